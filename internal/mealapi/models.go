package mealapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// DateLayout is the calendar date format used by the remote API.
const DateLayout = "2006-01-02"

// Date is a calendar date. The remote API sends either a plain date or a full timestamp.
// Unrecognised values decode to the zero Date.
type Date struct {
	time.Time
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d *Date) UnmarshalJSON(data []byte) error {
	d.Time = time.Time{}
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		log.Debug("Ignoring non-string date", "value", string(data))
		return nil
	}
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	log.Debug("Ignoring unsupported date format", "value", s)
	return nil
}

var dateLayouts = []string{
	DateLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	time.RFC1123,
	time.RFC1123Z,
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// Order is a single meal order of a user for one day.
type Order struct {
	WhatsappID  string  `json:"whatsapp_id"`
	Username    string  `json:"username"`
	OrderDate   Date    `json:"order_date"`
	Breakfast   bool    `json:"breakfast"`
	Lunch       bool    `json:"lunch"`
	Dinner      bool    `json:"dinner"`
	Canceled    bool    `json:"canceled"`
	TotalAmount float64 `json:"total_amount"`
}

// User is a customer known to the remote API.
type User struct {
	WhatsappID string `json:"whatsapp_id"`
	Username   string `json:"username"`
}

// OrdersResponse is the response of GET /detailed_summary.
type OrdersResponse struct {
	Orders []Order `json:"orders"`
}

// UserOrdersResponse is the response of GET /orders/{whatsapp_id}.
type UserOrdersResponse struct {
	Username string  `json:"username"`
	Orders   []Order `json:"orders"`
}

// UsersResponse is the response of GET /users.
type UsersResponse struct {
	Users []User `json:"users"`
}

// OrderPayload is the body of POST /orders, used for both create and update.
// Meal flags are tri-state: nil leaves the flag out of the request.
type OrderPayload struct {
	WhatsappID  string   `json:"whatsapp_id"`
	Date        string   `json:"date"`
	Username    string   `json:"username,omitempty"`
	TotalAmount *float64 `json:"total_amount,omitempty"`
	Breakfast   *bool    `json:"breakfast,omitempty"`
	Lunch       *bool    `json:"lunch,omitempty"`
	Dinner      *bool    `json:"dinner,omitempty"`
	Canceled    *bool    `json:"canceled,omitempty"`
}

// CancelPayload is the body of POST /orders/cancel_by_date.
type CancelPayload struct {
	WhatsappID string `json:"whatsapp_id"`
	Date       string `json:"date"`
}

// errorBody is the error shape returned by the remote API.
type errorBody struct {
	Error string `json:"error"`
}
