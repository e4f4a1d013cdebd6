package database

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
)

// EventAction represents the kind of change made from the dashboard.
type EventAction string

const (
	// EventOrderCreated indicates an order was created.
	EventOrderCreated EventAction = "order_created"
	// EventOrderUpdated indicates an order was edited.
	EventOrderUpdated EventAction = "order_updated"
	// EventOrderCanceled indicates an order was canceled.
	EventOrderCanceled EventAction = "order_canceled"
)

// Event is a successful change made through the dashboard.
type Event struct {
	gorm.Model
	Action     EventAction `gorm:"not null;index"`
	WhatsappID string      `gorm:"not null;index"`
	// OrderDate is the YYYY-MM-DD date the change applied to.
	OrderDate string `gorm:"not null;index"`
	// Actor is the admin username stored in the session.
	Actor string
	// Detail is a short human readable summary, e.g. the meals that were sent.
	Detail    string
	EventTime time.Time `gorm:"not null;index"`
}

// HistoryDB defines the interface for history-related database operations.
type HistoryDB interface {
	CreateEvent(ctx context.Context, event Event) error
	GetEvents(ctx context.Context, limit int) ([]Event, error)
	GetEventsByWhatsappID(ctx context.Context, whatsappID string) ([]Event, error)
}

// CreateEvent stores a new history event.
func (c *Client) CreateEvent(ctx context.Context, event Event) error {
	if event.EventTime.IsZero() {
		event.EventTime = time.Now()
	}

	result := c.db.WithContext(ctx).Create(&event)
	if result.Error != nil {
		log.Error("failed to create history event", "error", result.Error)
		return result.Error
	}
	return nil
}

// GetEvents returns the newest events first. A limit <= 0 returns all events.
func (c *Client) GetEvents(ctx context.Context, limit int) ([]Event, error) {
	var events []Event
	query := c.db.WithContext(ctx).Order("event_time DESC").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&events).Error; err != nil {
		log.Error("failed to get history events", "error", err)
		return nil, err
	}
	return events, nil
}

// GetEventsByWhatsappID returns all events of a user, newest first.
func (c *Client) GetEventsByWhatsappID(ctx context.Context, whatsappID string) ([]Event, error) {
	var events []Event
	if err := c.db.WithContext(ctx).
		Where("whatsapp_id = ?", whatsappID).
		Order("event_time DESC").
		Find(&events).Error; err != nil {
		log.Error("failed to get history events by whatsapp id", "error", err)
		return nil, err
	}
	return events, nil
}
