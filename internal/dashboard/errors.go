package dashboard

import (
	"errors"

	"github.com/mealdesk/mealdesk/internal/mealapi"
)

var (
	ErrInvalidTotal   = errors.New("invalid total amount")
	ErrInvalidDate    = errors.New("invalid date")
	ErrNoOrders       = errors.New("no orders found")
	ErrNoUserSelected = errors.New("no user selected")
	ErrNotConfirmed   = errors.New("cancellation not confirmed")
	ErrMissingUserID  = errors.New("missing whatsapp id")
)

// Failure is an error whose message is meant for the dashboard user.
type Failure struct {
	Message string
	Err     error
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.Err }

// fail prefers the error message of the API response and falls back to a fixed text.
func fail(err error, fallback string) error {
	var apiErr *mealapi.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return &Failure{Message: apiErr.Message, Err: err}
	}
	return &Failure{Message: fallback, Err: err}
}

func invalid(err error, message string) error {
	return &Failure{Message: message, Err: err}
}

// Message returns the text that should be shown to the user for err.
func Message(err error) string {
	var f *Failure
	if errors.As(err, &f) {
		return f.Message
	}
	return "Something went wrong. Please try again."
}
