package dashboard

import (
	"github.com/dustin/go-humanize"
	"github.com/mealdesk/mealdesk/internal/mealapi"
	"github.com/samber/lo"
)

// Prices holds the price of every meal in whole currency units.
type Prices struct {
	Breakfast int
	Lunch     int
	Dinner    int
}

// DefaultPrices are the prices used when nothing else is configured.
var DefaultPrices = Prices{Breakfast: 40, Lunch: 70, Dinner: 40}

// Summary holds the per-meal counters of a day. Canceled orders are not counted.
type Summary struct {
	BreakfastCount  int
	LunchCount      int
	DinnerCount     int
	BreakfastAmount int
	LunchAmount     int
	DinnerAmount    int
	TotalAmount     int
}

// Summarize counts the non-canceled orders per meal and prices them.
func Summarize(orders []mealapi.Order, prices Prices) Summary {
	active := lo.Reject(orders, func(o mealapi.Order, _ int) bool { return o.Canceled })

	s := Summary{
		BreakfastCount: lo.CountBy(active, func(o mealapi.Order) bool { return o.Breakfast }),
		LunchCount:     lo.CountBy(active, func(o mealapi.Order) bool { return o.Lunch }),
		DinnerCount:    lo.CountBy(active, func(o mealapi.Order) bool { return o.Dinner }),
	}
	s.BreakfastAmount = s.BreakfastCount * prices.Breakfast
	s.LunchAmount = s.LunchCount * prices.Lunch
	s.DinnerAmount = s.DinnerCount * prices.Dinner
	s.TotalAmount = s.BreakfastAmount + s.LunchAmount + s.DinnerAmount
	return s
}

// FormatAmount formats a whole amount with the currency symbol and thousands separators.
func FormatAmount(symbol string, amount int) string {
	return symbol + humanize.Comma(int64(amount))
}
