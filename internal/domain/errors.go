package domain

import "errors"

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

var (
	ErrNotFound     = errors.New("not found")
	ErrTourNotFound = errors.New("tour not found")
	ErrUserNotFound = errors.New("user not found")
)

var (
	ErrInvalidReference     = errors.New("invalid reference")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrMissingPaymentIntent = errors.New("payment intent id is required for stripe payments")
	ErrPaymentNotCompleted  = errors.New("payment not completed")
	ErrMissingField         = errors.New("missing required field")
	ErrInvalidDate          = errors.New("invalid booking date")
	ErrInvalidState         = errors.New("invalid booking state")
	ErrInvalidStatusValue   = errors.New("invalid status value")
	ErrInvalidRole          = errors.New("invalid role")
)

var (
	ErrEmailTaken             = errors.New("email is already registered")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrRateLimited            = errors.New("rate limit exceeded")
	ErrGateway                = errors.New("payment gateway error")
	ErrConditionNotMet        = errors.New("conditional update matched no rows")
	ErrConcurrentModification = errors.New("booking was modified concurrently")
)
