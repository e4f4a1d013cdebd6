package handler

import (
	"context"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/mealdesk/mealdesk/internal/api/auth"
	"github.com/mealdesk/mealdesk/internal/cache"
	"github.com/mealdesk/mealdesk/internal/dashboard"
	"github.com/mealdesk/mealdesk/internal/database"
	"github.com/mealdesk/mealdesk/internal/scheduler"
)

// Dashboard is the order dashboard behind the admin pages.
type Dashboard interface {
	ResolveDate(date string) string
	List(ctx context.Context, date string) (*dashboard.DateView, error)
	OpenEdit(ctx context.Context, whatsappID string) (*dashboard.EditForm, error)
	SubmitEdit(ctx context.Context, form dashboard.EditForm, date, actor string) error
	Cancel(ctx context.Context, whatsappID, date string, confirmed bool, actor string) error
	OpenCreate(ctx context.Context, date string) (*dashboard.CreateForm, error)
	SubmitCreate(ctx context.Context, input dashboard.CreateInput, actor string) error
}

// HistoryReader lists recorded dashboard activity.
type HistoryReader interface {
	GetEvents(ctx context.Context, limit int) ([]database.Event, error)
	GetEventsByWhatsappID(ctx context.Context, whatsappID string) ([]database.Event, error)
	Ping(ctx context.Context) error
}

// UsersCache is the cache behind the create page.
type UsersCache interface {
	Clear(ctx context.Context) error
	GetStats() *cache.Stats
}

// JobLister lists and triggers the scheduled jobs.
type JobLister interface {
	GetJobs() []scheduler.JobInfo
	RunJobNow(id string) error
}

const (
	flashError   = "flash_error"
	flashSuccess = "flash_success"

	historyLimit = 100
)

// Flashes are the one-shot messages shown on the next rendered page.
type Flashes struct {
	Errors    []string
	Successes []string
}

type Handler struct {
	dashboard  Dashboard
	history    HistoryReader
	usersCache UsersCache
	jobs       JobLister
}

// New creates the admin page handlers. history, usersCache and jobs may be nil.
func New(d Dashboard, history HistoryReader, usersCache UsersCache, jobs JobLister) *Handler {
	return &Handler{
		dashboard:  d,
		history:    history,
		usersCache: usersCache,
		jobs:       jobs,
	}
}

// actor returns the username of the logged in admin.
func actor(c *gin.Context) string {
	return c.GetString(auth.SessionKeyUsername)
}

// addFlash queues a message for the next rendered page. Messages are stored as []string.
func addFlash(c *gin.Context, kind, message string) {
	session := sessions.Default(c)
	messages, _ := session.Get(kind).([]string)
	session.Set(kind, append(messages, message))
	if err := session.Save(); err != nil {
		log.Error("Failed to save flash message", "error", err)
	}
}

func popFlashes(c *gin.Context) Flashes {
	session := sessions.Default(c)
	errs, _ := session.Get(flashError).([]string)
	successes, _ := session.Get(flashSuccess).([]string)
	if len(errs) == 0 && len(successes) == 0 {
		return Flashes{}
	}

	session.Delete(flashError)
	session.Delete(flashSuccess)
	if err := session.Save(); err != nil {
		log.Error("Failed to clear flash messages", "error", err)
	}
	return Flashes{Errors: errs, Successes: successes}
}

// render renders a page with the pending flashes and any extra error messages.
func (h *Handler) render(c *gin.Context, name string, data gin.H, errs ...string) {
	flashes := popFlashes(c)
	flashes.Errors = append(flashes.Errors, errs...)

	data["Flashes"] = flashes
	data["Username"] = actor(c)
	c.HTML(http.StatusOK, name, data)
}

// redirectToDate returns to the dashboard showing date.
func redirectToDate(c *gin.Context, date string) {
	c.Redirect(http.StatusFound, "/admin?date="+url.QueryEscape(date))
}
