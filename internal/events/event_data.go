package events

import "time"

// EventData is the interface that all event data types must implement
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// NotificationData carries one user-facing notification
type NotificationData struct {
	CreatedAt time.Time `json:"created_at" msgpack:"created_at"`
	ID        string    `json:"id" msgpack:"id"`
	Kind      string    `json:"kind" msgpack:"kind"`
	Title     string    `json:"title" msgpack:"title"`
	Message   string    `json:"message" msgpack:"message"`
}

// EventType returns the event type for NotificationData
func (d *NotificationData) EventType() EventType {
	return NotificationCreated
}

// OrderStatusChangedData describes one order lifecycle transition
type OrderStatusChangedData struct {
	OrderID     int64  `json:"order_id" msgpack:"order_id"`
	PortfolioID int64  `json:"portfolio_id" msgpack:"portfolio_id"`
	OldStatus   int    `json:"old_status" msgpack:"old_status"`
	NewStatus   int    `json:"new_status" msgpack:"new_status"`
	Settled     string `json:"settled,omitempty" msgpack:"settled,omitempty"` // "applied", "reversed" or empty
}

// EventType returns the event type for OrderStatusChangedData
func (d *OrderStatusChangedData) EventType() EventType {
	return OrderStatusChanged
}

// PortfolioClosedData describes a portfolio close
type PortfolioClosedData struct {
	PortfolioID int64 `json:"portfolio_id" msgpack:"portfolio_id"`
	Liquidated  int   `json:"liquidated" msgpack:"liquidated"`
}

// EventType returns the event type for PortfolioClosedData
func (d *PortfolioClosedData) EventType() EventType {
	return PortfolioClosed
}

// PriceAlertData describes a triggered watchlist alert
type PriceAlertData struct {
	EntryID   int64  `json:"entry_id" msgpack:"entry_id"`
	Symbol    string `json:"symbol" msgpack:"symbol"`
	Direction string `json:"direction" msgpack:"direction"`
	Target    string `json:"target" msgpack:"target"`
	Price     string `json:"price" msgpack:"price"`
}

// EventType returns the event type for PriceAlertData
func (d *PriceAlertData) EventType() EventType {
	return PriceAlertTriggered
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string `json:"error" msgpack:"error"`
	Context string `json:"context,omitempty" msgpack:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}
