// Package events provides an in-process event bus with typed payloads.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	NotificationCreated EventType = "NOTIFICATION_CREATED"
	OrderStatusChanged  EventType = "ORDER_STATUS_CHANGED"
	PortfolioClosed     EventType = "PORTFOLIO_CLOSED"
	PriceAlertTriggered EventType = "PRICE_ALERT_TRIGGERED"
	ErrorOccurred       EventType = "ERROR_OCCURRED"
)

// Event is one published occurrence
type Event struct {
	Timestamp time.Time `json:"timestamp" msgpack:"timestamp"`
	Data      EventData `json:"data" msgpack:"data"`
	Type      EventType `json:"type" msgpack:"type"`
	Module    string    `json:"module" msgpack:"module"`
}
