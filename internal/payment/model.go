package payment

import (
	"time"
)

// Statuses a payment row moves through. The gateway adapter never writes
// these; only the service does, driven by dispatch results and verified
// notifications.
const (
	StatusPending  = "PENDING"
	StatusPaid     = "PAID"
	StatusClosed   = "CLOSED"
	StatusTimedOut = "TIMED_OUT"
	StatusFailed   = "FAILED"
)

type Payment struct {
	ID         int64
	OutTradeNo string
	TradeNo    string
	Subject    string
	Amount     string
	Status     string
	Method     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NotificationRecord is one inbound provider notification as persisted.
// Redeliveries are expected; (provider, notify_id) dedups them.
type NotificationRecord struct {
	ID             int64
	NotifyID       string
	TradeNo        string
	OutTradeNo     string
	TradeStatus    string
	SignatureValid bool
	Payload        string
	ReceivedAt     time.Time
	ProcessedAt    *time.Time
	ProcessError   string
}
