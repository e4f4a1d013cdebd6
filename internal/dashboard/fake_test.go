package dashboard

import (
	"context"
	"sync"

	"github.com/mealdesk/mealdesk/internal/database"
	"github.com/mealdesk/mealdesk/internal/mealapi"
)

// fakeAPI is an in-memory API that records every call.
type fakeAPI struct {
	mu sync.Mutex

	ordersByDate map[string][]mealapi.Order
	userOrders   map[string]*mealapi.UserOrdersResponse
	users        []mealapi.User

	saved     []mealapi.OrderPayload
	canceled  []mealapi.CancelPayload
	calls     int
	userCalls int

	OrdersByDateError error
	OrdersByUserError error
	SaveOrderError    error
	CancelOrderError  error
	UsersError        error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		ordersByDate: make(map[string][]mealapi.Order),
		userOrders:   make(map[string]*mealapi.UserOrdersResponse),
	}
}

func (f *fakeAPI) OrdersByDate(_ context.Context, date string) ([]mealapi.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.OrdersByDateError != nil {
		return nil, f.OrdersByDateError
	}
	orders := f.ordersByDate[date]
	if orders == nil {
		return []mealapi.Order{}, nil
	}
	return orders, nil
}

func (f *fakeAPI) OrdersByUser(_ context.Context, whatsappID string) (*mealapi.UserOrdersResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.OrdersByUserError != nil {
		return nil, f.OrdersByUserError
	}
	if res, ok := f.userOrders[whatsappID]; ok {
		return res, nil
	}
	return &mealapi.UserOrdersResponse{}, nil
}

func (f *fakeAPI) SaveOrder(_ context.Context, payload mealapi.OrderPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.SaveOrderError != nil {
		return f.SaveOrderError
	}
	f.saved = append(f.saved, payload)
	return nil
}

func (f *fakeAPI) CancelOrder(_ context.Context, whatsappID, date string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.CancelOrderError != nil {
		return f.CancelOrderError
	}
	f.canceled = append(f.canceled, mealapi.CancelPayload{WhatsappID: whatsappID, Date: date})
	return nil
}

func (f *fakeAPI) Users(_ context.Context) ([]mealapi.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.userCalls++
	if f.UsersError != nil {
		return nil, f.UsersError
	}
	return f.users, nil
}

type fakeHistory struct {
	events []database.Event
}

func (h *fakeHistory) CreateEvent(_ context.Context, event database.Event) error {
	h.events = append(h.events, event)
	return nil
}

type fakeUsersCache struct {
	users []mealapi.User
	ok    bool
}

func (c *fakeUsersCache) Get(context.Context) ([]mealapi.User, bool) { return c.users, c.ok }

func (c *fakeUsersCache) Set(_ context.Context, users []mealapi.User) {
	c.users, c.ok = users, true
}
