package dashboard

import (
	"math"
	"strconv"
	"strings"

	"github.com/mealdesk/mealdesk/internal/mealapi"
)

// MealFlags holds the raw form values of the meal controls.
// The edit form sends "true"/"false" from a select, the create form sends
// checkbox values that are missing when unchecked.
type MealFlags struct {
	Breakfast string `form:"breakfast"`
	Lunch     string `form:"lunch"`
	Dinner    string `form:"dinner"`
	Canceled  string `form:"canceled"`
}

func isTrue(v string) bool {
	v = strings.TrimSpace(v)
	return strings.EqualFold(v, "true") || strings.EqualFold(v, "on")
}

func flagIfTrue(v string) *bool {
	if !isTrue(v) {
		return nil
	}
	t := true
	return &t
}

// apply sets only the flags that are true; false is sent by omission.
func (f MealFlags) apply(p *mealapi.OrderPayload) {
	p.Breakfast = flagIfTrue(f.Breakfast)
	p.Lunch = flagIfTrue(f.Lunch)
	p.Dinner = flagIfTrue(f.Dinner)
	p.Canceled = flagIfTrue(f.Canceled)
}

// EditForm is the view model of the edit surface. It only lives between
// opening the surface and submitting it.
type EditForm struct {
	WhatsappID  string `form:"whatsapp_id"`
	Username    string `form:"username"`
	TotalAmount string `form:"total_amount"`
	MealFlags

	// LastOrderDate is the date of the order the form was populated from.
	LastOrderDate string `form:"-"`
	// LastOrderAgo is LastOrderDate relative to now.
	LastOrderAgo string `form:"-"`
}

// CreateForm is the view model of the create surface.
type CreateForm struct {
	Date       string
	Candidates []mealapi.User
}

// HasCandidates reports whether any user can still get an order on Date.
func (f *CreateForm) HasCandidates() bool {
	return len(f.Candidates) > 0
}

// CreateInput is the submitted create form.
type CreateInput struct {
	WhatsappID string `form:"whatsapp_id"`
	Date       string `form:"date"`
	MealFlags
}

// parseTotal accepts any finite, non-negative number.
func parseTotal(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}

// FormatTotal formats an order total without trailing zeros.
func FormatTotal(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// describe lists the meals that were sent, used for the history log.
func describe(p mealapi.OrderPayload) string {
	var parts []string
	if p.Breakfast != nil {
		parts = append(parts, "breakfast")
	}
	if p.Lunch != nil {
		parts = append(parts, "lunch")
	}
	if p.Dinner != nil {
		parts = append(parts, "dinner")
	}
	if p.Canceled != nil {
		parts = append(parts, "canceled")
	}
	if len(parts) == 0 {
		parts = append(parts, "no meals")
	}
	if p.TotalAmount != nil {
		parts = append(parts, "total "+FormatTotal(*p.TotalAmount))
	}
	return strings.Join(parts, ", ")
}
