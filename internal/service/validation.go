package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"tourbook/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkFields runs struct tag validation and reports every failing field as ErrMissingField.
func checkFields(input interface{}) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return fmt.Errorf("%s: %w", strings.Join(fields, ", "), domain.ErrMissingField)
}

func checkReference(field, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%s %q: %w", field, id, domain.ErrInvalidReference)
	}
	return nil
}

// parseDate accepts a calendar date or an RFC 3339 timestamp.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", raw, domain.ErrInvalidDate)
	}
	return t.UTC(), nil
}

// parseFutureDate additionally requires the date to lie after now.
func parseFutureDate(raw string, now time.Time) (time.Time, error) {
	t, err := parseDate(raw)
	if err != nil {
		return time.Time{}, err
	}
	if !t.After(now) {
		return time.Time{}, fmt.Errorf("date %s is not in the future: %w", raw, domain.ErrInvalidDate)
	}
	return t, nil
}
