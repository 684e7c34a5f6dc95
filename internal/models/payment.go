package models

// PaymentIntent is the gateway-side record of an attempted charge.
type PaymentIntent struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	ClientSecret string `json:"clientSecret,omitempty"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

func (p *PaymentIntent) Succeeded() bool {
	return p != nil && p.Status == PaymentIntentSucceeded
}
