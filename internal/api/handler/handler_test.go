package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/mealdesk/mealdesk/internal/api/auth"
	"github.com/mealdesk/mealdesk/internal/api/models"
	"github.com/mealdesk/mealdesk/internal/cache"
	"github.com/mealdesk/mealdesk/internal/config"
	"github.com/mealdesk/mealdesk/internal/dashboard"
	"github.com/mealdesk/mealdesk/internal/database"
	"github.com/mealdesk/mealdesk/internal/mealapi"
	"github.com/mealdesk/mealdesk/internal/scheduler"
	"github.com/mealdesk/mealdesk/web/templates"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

const testDate = "2024-01-02"

// fakeAPI is an in-memory remote API that counts every call.
type fakeAPI struct {
	mu sync.Mutex

	orders     map[string][]mealapi.Order
	userOrders map[string]*mealapi.UserOrdersResponse
	users      []mealapi.User
	saved      []mealapi.OrderPayload
	canceled   []mealapi.CancelPayload
	calls      int

	listErr   error
	saveErr   error
	cancelErr error
}

func (f *fakeAPI) OrdersByDate(_ context.Context, date string) ([]mealapi.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]mealapi.Order{}, f.orders[date]...), nil
}

func (f *fakeAPI) OrdersByUser(_ context.Context, whatsappID string) (*mealapi.UserOrdersResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if res, ok := f.userOrders[whatsappID]; ok {
		return res, nil
	}
	return &mealapi.UserOrdersResponse{}, nil
}

func (f *fakeAPI) SaveOrder(_ context.Context, payload mealapi.OrderPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, payload)
	return nil
}

func (f *fakeAPI) CancelOrder(_ context.Context, whatsappID, date string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.canceled = append(f.canceled, mealapi.CancelPayload{WhatsappID: whatsappID, Date: date})
	return nil
}

func (f *fakeAPI) Users(context.Context) ([]mealapi.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.users, nil
}

func (f *fakeAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeJobs struct {
	ran []string
}

func (*fakeJobs) GetJobs() []scheduler.JobInfo {
	return []scheduler.JobInfo{{ID: scheduler.KeepWarmJobID, Name: "Keep warm", Status: scheduler.JobStatusCompleted, RunCount: 3}}
}

func (f *fakeJobs) RunJobNow(id string) error {
	if id != scheduler.KeepWarmJobID {
		return fmt.Errorf("job %s not found", id)
	}
	f.ran = append(f.ran, id)
	return nil
}

type HandlerTestSuite struct {
	suite.Suite
	router  *gin.Engine
	api     *fakeAPI
	jobs    *fakeJobs
	db      *database.Client
	cookies []*http.Cookie
}

func (s *HandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	s.api = &fakeAPI{
		orders: map[string][]mealapi.Order{
			testDate: {{WhatsappID: "919", Username: "alice", Breakfast: true, TotalAmount: 40}},
		},
		userOrders: map[string]*mealapi.UserOrdersResponse{
			"919": {Username: "alice", Orders: []mealapi.Order{
				{WhatsappID: "919", Username: "alice", OrderDate: mealapi.Date{Time: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}, Lunch: true, TotalAmount: 70},
			}},
		},
		users: []mealapi.User{{WhatsappID: "919", Username: "alice"}, {WhatsappID: "920", Username: "bob"}},
	}

	db, err := database.New(filepath.Join(s.T().TempDir(), "mealdesk.db"))
	s.Require().NoError(err)
	s.db = db

	usersCache := cache.NewUsersCache(&config.CacheConfig{Type: config.CacheTypeMemory, UsersTTL: time.Minute})
	svc := dashboard.New(s.api,
		dashboard.WithHistory(db),
		dashboard.WithUsersCache(usersCache),
		dashboard.WithClock(func() time.Time { return time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC) }),
	)
	s.jobs = &fakeJobs{}
	h := New(svc, db, usersCache, s.jobs)

	s.router = gin.New()
	s.router.Use(sessions.Sessions("mealdesk_session", cookie.NewStore([]byte("test-secret"))))
	tmpl, err := templates.Parse("₹")
	s.Require().NoError(err)
	s.router.SetHTMLTemplate(tmpl)

	admin := s.router.Group("/admin", func(c *gin.Context) {
		c.Set(auth.SessionKeyUsername, "admin")
	})
	admin.GET("", h.Admin)
	admin.GET("/orders/new", h.NewOrder)
	admin.POST("/orders", h.CreateOrder)
	admin.GET("/orders/:id/edit", h.EditOrder)
	admin.POST("/orders/:id", h.UpdateOrder)
	admin.GET("/orders/:id/cancel", h.ConfirmCancel)
	admin.POST("/orders/:id/cancel", h.CancelOrder)
	admin.GET("/history", h.History)
	admin.GET("/status", h.Status)
	admin.POST("/cache/clear", h.ClearCache)
	admin.POST("/jobs/:id/run", h.RunJob)

	s.cookies = nil
}

func (s *HandlerTestSuite) TearDownTest() {
	if s.db != nil {
		s.NoError(s.db.Close())
	}
}

// do sends a request and keeps the session cookie for the next one.
func (s *HandlerTestSuite) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range s.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if cookies := w.Result().Cookies(); len(cookies) > 0 {
		s.cookies = cookies
	}
	return w
}

func (s *HandlerTestSuite) get(target string) *httptest.ResponseRecorder {
	return s.do(httptest.NewRequest(http.MethodGet, target, nil))
}

func (s *HandlerTestSuite) post(target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req)
}

func (s *HandlerTestSuite) TestAdmin_ListsOrdersWithSummary() {
	w := s.get("/admin?date=" + testDate)

	s.Equal(http.StatusOK, w.Code)
	body := w.Body.String()
	s.Contains(body, `value="2024-01-02"`)

	s.Equal(1, strings.Count(body, "/edit?date="+testDate), "one order row")
	s.Equal([]string{"alice", "919", "✅", "❌", "❌", "❌", "40"}, cells(body))

	s.Contains(body, `<span class="label">Breakfast</span><span class="count">1</span><span class="amount">₹40</span>`)
	s.Contains(body, `<span class="label">Lunch</span><span class="count">0</span>`)
	s.Contains(body, `<span class="label">Dinner</span><span class="count">0</span>`)
	s.Contains(body, `<span class="label">Total</span><span class="amount">₹40</span>`)
}

var cellPattern = regexp.MustCompile(`<td>([^<]*)</td>`)

// cells returns the plain table cells of a page in order.
func cells(body string) []string {
	var out []string
	for _, m := range cellPattern.FindAllStringSubmatch(body, -1) {
		out = append(out, m[1])
	}
	return out
}

func (s *HandlerTestSuite) TestAdmin_Empty() {
	w := s.get("/admin?date=2024-02-01")

	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "No orders found for 2024-02-01")
}

func (s *HandlerTestSuite) TestAdmin_InvalidDateFallsBackToToday() {
	w := s.get("/admin?date=yesterday")

	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `value="2024-01-02"`)
}

func (s *HandlerTestSuite) TestAdmin_LoadError() {
	s.api.listErr = &mealapi.APIError{StatusCode: http.StatusInternalServerError, Message: "Internal Server Error"}

	w := s.get("/admin?date=" + testDate)

	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "Internal Server Error")
}

func (s *HandlerTestSuite) TestCancel_WithoutConfirmationMakesNoRequest() {
	before := s.api.callCount()

	w := s.post("/admin/orders/919/cancel", url.Values{"date": {testDate}})

	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `name="confirm" value="yes"`)
	s.Equal(before, s.api.callCount())
	s.Empty(s.api.canceled)
}

func (s *HandlerTestSuite) TestCancel_Confirmed() {
	w := s.post("/admin/orders/919/cancel", url.Values{"date": {testDate}, "confirm": {"yes"}})

	s.Equal(http.StatusFound, w.Code)
	s.Equal("/admin?date=2024-01-02", w.Header().Get("Location"))
	s.Equal([]mealapi.CancelPayload{{WhatsappID: "919", Date: testDate}}, s.api.canceled)

	w = s.get("/admin?date=" + testDate)
	s.Contains(w.Body.String(), "Order canceled")

	// flashes are shown once
	w = s.get("/admin?date=" + testDate)
	s.NotContains(w.Body.String(), "Order canceled")

	events, err := s.db.GetEvents(context.Background(), 10)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(database.EventOrderCanceled, events[0].Action)
	s.Equal("admin", events[0].Actor)
}

func (s *HandlerTestSuite) TestCancel_ServerMessageIsShown() {
	s.api.cancelErr = &mealapi.APIError{StatusCode: http.StatusNotFound, Message: "Order not found"}

	w := s.post("/admin/orders/919/cancel", url.Values{"date": {testDate}, "confirm": {"yes"}})
	s.Equal(http.StatusFound, w.Code)

	w = s.get("/admin?date=" + testDate)
	s.Contains(w.Body.String(), "Order not found")
}

func (s *HandlerTestSuite) TestConfirmCancelPage() {
	w := s.get("/admin/orders/919/cancel?date=" + testDate)

	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "919")
}

func (s *HandlerTestSuite) TestEditOrder_PopulatesForm() {
	w := s.get("/admin/orders/919/edit?date=" + testDate)

	s.Equal(http.StatusOK, w.Code)
	body := w.Body.String()
	s.Contains(body, `value="70"`)
	s.Contains(body, "alice")
}

func (s *HandlerTestSuite) TestEditOrder_NoOrders() {
	w := s.get("/admin/orders/404/edit?date=" + testDate)

	s.Equal(http.StatusFound, w.Code)
	w = s.get("/admin?date=" + testDate)
	s.Contains(w.Body.String(), "No orders found for this user")
}

func (s *HandlerTestSuite) TestUpdateOrder_InvalidTotalMakesNoRequest() {
	before := s.api.callCount()

	w := s.post("/admin/orders/919", url.Values{
		"date":         {testDate},
		"username":     {"alice"},
		"total_amount": {"-5"},
		"lunch":        {"true"},
	})

	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "Enter a valid total amount")
	s.Equal(before, s.api.callCount())
}

func (s *HandlerTestSuite) TestUpdateOrder_SendsOnlyTrueFlags() {
	w := s.post("/admin/orders/919", url.Values{
		"date":         {testDate},
		"username":     {"alice"},
		"total_amount": {"110"},
		"breakfast":    {"false"},
		"lunch":        {"true"},
		"dinner":       {"true"},
		"canceled":     {"false"},
	})

	s.Equal(http.StatusFound, w.Code)
	s.Equal("/admin?date=2024-01-02", w.Header().Get("Location"))
	s.Require().Len(s.api.saved, 1)

	payload := s.api.saved[0]
	s.Equal("919", payload.WhatsappID)
	s.Equal(testDate, payload.Date)
	s.Nil(payload.Breakfast)
	s.Nil(payload.Canceled)
	s.Require().NotNil(payload.Lunch)
	s.True(*payload.Lunch)
	s.Require().NotNil(payload.TotalAmount)
	s.Equal(110.0, *payload.TotalAmount)
}

func (s *HandlerTestSuite) TestNewOrder_ListsUsersWithoutOrder() {
	w := s.get("/admin/orders/new?date=" + testDate)

	s.Equal(http.StatusOK, w.Code)
	body := w.Body.String()
	s.Contains(body, "bob")
	s.NotContains(body, "alice")
}

func (s *HandlerTestSuite) TestCreateOrder() {
	w := s.post("/admin/orders", url.Values{
		"date":        {testDate},
		"whatsapp_id": {"920"},
		"dinner":      {"true"},
	})

	s.Equal(http.StatusFound, w.Code)
	s.Equal("/admin?date=2024-01-02", w.Header().Get("Location"))
	s.Require().Len(s.api.saved, 1)
	s.Nil(s.api.saved[0].Breakfast)
	s.Nil(s.api.saved[0].Lunch)
	s.Require().NotNil(s.api.saved[0].Dinner)
	s.Nil(s.api.saved[0].TotalAmount)
}

func (s *HandlerTestSuite) TestCreateOrder_NoUserSelected() {
	w := s.post("/admin/orders", url.Values{"date": {testDate}})

	s.Equal(http.StatusFound, w.Code)
	s.Equal("/admin/orders/new?date=2024-01-02", w.Header().Get("Location"))
	s.Empty(s.api.saved)

	w = s.get("/admin/orders/new?date=" + testDate)
	s.Contains(w.Body.String(), "Select a user")
}

func (s *HandlerTestSuite) TestHistory() {
	s.post("/admin/orders/919/cancel", url.Values{"date": {testDate}, "confirm": {"yes"}})

	w := s.get("/admin/history")
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "order_canceled")

	w = s.get("/admin/history?whatsapp_id=920")
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "No activity recorded yet.")
}

func (s *HandlerTestSuite) TestStatus() {
	w := s.get("/admin/status")

	s.Equal(http.StatusOK, w.Code)
	var res models.StatusResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &res))
	s.Require().Len(res.Jobs, 1)
	s.Equal(scheduler.KeepWarmJobID, res.Jobs[0].ID)
	s.Require().NotNil(res.Cache)
	s.Equal("users", res.Cache.CacheName)
	s.Equal(models.DatabaseOK, res.Database)
}

func (s *HandlerTestSuite) TestStatus_DatabaseUnavailable() {
	s.Require().NoError(s.db.Close())
	s.db = nil

	w := s.get("/admin/status")

	s.Equal(http.StatusOK, w.Code)
	var res models.StatusResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &res))
	s.Equal(models.DatabaseUnavailable, res.Database)
}

func (s *HandlerTestSuite) TestRunJob() {
	w := s.post("/admin/jobs/"+scheduler.KeepWarmJobID+"/run", nil)

	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"success":true,"message":"Job triggered successfully"}`, w.Body.String())
	s.Equal([]string{scheduler.KeepWarmJobID}, s.jobs.ran)
}

func (s *HandlerTestSuite) TestRunJob_Unknown() {
	w := s.post("/admin/jobs/nope/run", nil)

	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(w.Body.String(), "job nope not found")
	s.Empty(s.jobs.ran)
}

func (s *HandlerTestSuite) TestClearCache() {
	s.get("/admin/orders/new?date=" + testDate)
	calls := s.api.callCount()

	w := s.post("/admin/cache/clear", nil)
	s.Equal(http.StatusOK, w.Code)

	// the next create page has to fetch the users again
	s.get("/admin/orders/new?date=" + testDate)
	s.Equal(calls+2, s.api.callCount())
}

func TestHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func TestNew_WithoutOptionalDependencies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := New(dashboard.New(&fakeAPI{}), nil, nil, nil)

	router := gin.New()
	router.GET("/status", h.Status)
	router.POST("/cache/clear", h.ClearCache)
	router.POST("/jobs/:id/run", h.RunJob)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"jobs":[]}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/cache/clear", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/jobs/"+scheduler.KeepWarmJobID+"/run", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
