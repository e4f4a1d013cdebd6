package dashboard

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mealdesk/mealdesk/internal/database"
	"github.com/mealdesk/mealdesk/internal/mealapi"
	"github.com/mergestat/timediff"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// API is the part of the remote meal API the dashboard needs.
type API interface {
	OrdersByDate(ctx context.Context, date string) ([]mealapi.Order, error)
	OrdersByUser(ctx context.Context, whatsappID string) (*mealapi.UserOrdersResponse, error)
	SaveOrder(ctx context.Context, payload mealapi.OrderPayload) error
	CancelOrder(ctx context.Context, whatsappID, date string) error
	Users(ctx context.Context) ([]mealapi.User, error)
}

// UsersCache caches the remote user list.
type UsersCache interface {
	Get(ctx context.Context) ([]mealapi.User, bool)
	Set(ctx context.Context, users []mealapi.User)
}

// History records successful changes.
type History interface {
	CreateEvent(ctx context.Context, event database.Event) error
}

// DateView is everything the dashboard shows for one date.
type DateView struct {
	Date    string
	Orders  []mealapi.Order
	Summary Summary
}

// Empty reports whether there is nothing to list for the date.
func (v *DateView) Empty() bool {
	return len(v.Orders) == 0
}

// Service runs the dashboard operations against the remote API.
type Service struct {
	api     API
	users   UsersCache
	history History
	prices  Prices
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithUsersCache caches the user list used by the create surface.
func WithUsersCache(c UsersCache) Option {
	return func(s *Service) { s.users = c }
}

// WithHistory records successful changes.
func WithHistory(h History) Option {
	return func(s *Service) { s.history = h }
}

// WithPrices sets the meal prices used for the summary.
func WithPrices(p Prices) Option {
	return func(s *Service) { s.prices = p }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a dashboard service.
func New(api API, opts ...Option) *Service {
	s := &Service{
		api:    api,
		prices: DefaultPrices,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current UTC date as YYYY-MM-DD.
func (s *Service) Today() string {
	return s.now().UTC().Format(mealapi.DateLayout)
}

// ResolveDate returns date if it is a valid YYYY-MM-DD date and today otherwise.
func (s *Service) ResolveDate(date string) string {
	if _, err := mealapi.ParseDate(strings.TrimSpace(date)); err != nil {
		return s.Today()
	}
	return strings.TrimSpace(date)
}

// List returns the orders of a date with their summary. An empty day is not an error.
func (s *Service) List(ctx context.Context, date string) (*DateView, error) {
	view := &DateView{Date: date, Orders: []mealapi.Order{}}

	orders, err := s.api.OrdersByDate(ctx, date)
	if err != nil {
		log.Error("failed to fetch orders", "date", date, "error", err)
		return view, fail(err, "Error loading orders. Please try again.")
	}

	view.Orders = orders
	view.Summary = Summarize(orders, s.prices)
	return view, nil
}

// OpenEdit loads the most recent order of a user into an edit form.
func (s *Service) OpenEdit(ctx context.Context, whatsappID string) (*EditForm, error) {
	if strings.TrimSpace(whatsappID) == "" {
		return nil, invalid(ErrMissingUserID, "No user selected")
	}

	res, err := s.api.OrdersByUser(ctx, whatsappID)
	if err != nil {
		log.Error("failed to fetch orders of user", "whatsapp_id", whatsappID, "error", err)
		return nil, fail(err, "Error loading order details. Please try again.")
	}
	if len(res.Orders) == 0 {
		return nil, invalid(ErrNoOrders, "No orders found for this user")
	}

	latest := lo.MaxBy(res.Orders, func(a, b mealapi.Order) bool {
		return a.OrderDate.After(b.OrderDate.Time)
	})

	form := &EditForm{
		WhatsappID:  whatsappID,
		Username:    res.Username,
		TotalAmount: FormatTotal(latest.TotalAmount),
		MealFlags: MealFlags{
			Breakfast: strconv.FormatBool(latest.Breakfast),
			Lunch:     strconv.FormatBool(latest.Lunch),
			Dinner:    strconv.FormatBool(latest.Dinner),
			Canceled:  strconv.FormatBool(latest.Canceled),
		},
		LastOrderDate: latest.OrderDate.String(),
	}
	if !latest.OrderDate.IsZero() {
		form.LastOrderAgo = timediff.TimeDiff(latest.OrderDate.Time, timediff.WithStartTime(s.now()))
	}
	return form, nil
}

// SubmitEdit validates the edit form and saves it for the viewed date.
// An invalid total is rejected before any request is made.
func (s *Service) SubmitEdit(ctx context.Context, form EditForm, date, actor string) error {
	if strings.TrimSpace(form.WhatsappID) == "" {
		return invalid(ErrMissingUserID, "No user selected")
	}
	total, ok := parseTotal(form.TotalAmount)
	if !ok {
		return invalid(ErrInvalidTotal, "Enter a valid total amount")
	}
	if _, err := mealapi.ParseDate(date); err != nil {
		return invalid(ErrInvalidDate, "Select a valid date")
	}

	username := strings.TrimSpace(form.Username)
	if username == "" {
		username = "Unknown"
	}

	payload := mealapi.OrderPayload{
		WhatsappID:  form.WhatsappID,
		Date:        date,
		Username:    username,
		TotalAmount: &total,
	}
	form.MealFlags.apply(&payload)

	log.Debug("submitting order update", "payload", payload)
	if err := s.api.SaveOrder(ctx, payload); err != nil {
		log.Error("failed to update order", "whatsapp_id", form.WhatsappID, "date", date, "error", err)
		return fail(err, "Update failed")
	}

	s.record(ctx, database.EventOrderUpdated, form.WhatsappID, date, actor, describe(payload))
	return nil
}

// Cancel cancels the order of a user for a date. Nothing is sent without confirmation.
func (s *Service) Cancel(ctx context.Context, whatsappID, date string, confirmed bool, actor string) error {
	if !confirmed {
		return invalid(ErrNotConfirmed, "Cancellation was not confirmed")
	}
	if strings.TrimSpace(whatsappID) == "" {
		return invalid(ErrMissingUserID, "No user selected")
	}
	if _, err := mealapi.ParseDate(date); err != nil {
		return invalid(ErrInvalidDate, "Select a valid date")
	}

	if err := s.api.CancelOrder(ctx, whatsappID, date); err != nil {
		log.Error("failed to cancel order", "whatsapp_id", whatsappID, "date", date, "error", err)
		return fail(err, "Cancel failed")
	}

	s.record(ctx, database.EventOrderCanceled, whatsappID, date, actor, "")
	return nil
}

// OpenCreate lists the users that have no order on date yet.
func (s *Service) OpenCreate(ctx context.Context, date string) (*CreateForm, error) {
	var (
		users  []mealapi.User
		orders []mealapi.Order
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = s.Users(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		orders, err = s.api.OrdersByDate(gctx, date)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Error("failed to load users", "date", date, "error", err)
		return nil, fail(err, "Error loading users. Please try again.")
	}

	ordered := lo.SliceToMap(orders, func(o mealapi.Order) (string, struct{}) {
		return o.WhatsappID, struct{}{}
	})

	return &CreateForm{
		Date: date,
		Candidates: lo.Filter(users, func(u mealapi.User, _ int) bool {
			_, ok := ordered[u.WhatsappID]
			return !ok
		}),
	}, nil
}

// SubmitCreate creates an order from the create form.
func (s *Service) SubmitCreate(ctx context.Context, input CreateInput, actor string) error {
	if strings.TrimSpace(input.WhatsappID) == "" {
		return invalid(ErrNoUserSelected, "Select a user")
	}
	if _, err := mealapi.ParseDate(input.Date); err != nil {
		return invalid(ErrInvalidDate, "Select a valid date")
	}

	payload := mealapi.OrderPayload{
		WhatsappID: input.WhatsappID,
		Date:       input.Date,
	}
	input.MealFlags.apply(&payload)

	log.Debug("creating order", "payload", payload)
	if err := s.api.SaveOrder(ctx, payload); err != nil {
		log.Error("failed to create order", "whatsapp_id", input.WhatsappID, "date", input.Date, "error", err)
		return fail(err, "Failed to create order")
	}

	s.record(ctx, database.EventOrderCreated, input.WhatsappID, input.Date, actor, describe(payload))
	return nil
}

// Users returns the user list, served from the cache when possible.
func (s *Service) Users(ctx context.Context) ([]mealapi.User, error) {
	if s.users != nil {
		if users, ok := s.users.Get(ctx); ok {
			return users, nil
		}
	}
	return s.RefreshUsers(ctx)
}

// RefreshUsers fetches the user list from the API and updates the cache.
func (s *Service) RefreshUsers(ctx context.Context) ([]mealapi.User, error) {
	users, err := s.api.Users(ctx)
	if err != nil {
		return nil, err
	}
	if s.users != nil {
		s.users.Set(ctx, users)
	}
	return users, nil
}

func (s *Service) record(ctx context.Context, action database.EventAction, whatsappID, date, actor, detail string) {
	if s.history == nil {
		return
	}
	if err := s.history.CreateEvent(ctx, database.Event{
		Action:     action,
		WhatsappID: whatsappID,
		OrderDate:  date,
		Actor:      actor,
		Detail:     detail,
		EventTime:  s.now(),
	}); err != nil {
		log.Warn("failed to record history event", "action", action, "error", err)
	}
}
