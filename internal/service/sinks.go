package service

import (
	"context"
	"log"

	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/domain"
)

// Notification events emitted by the payment pipeline.
const (
	EventPaymentInitiated  = "payment_initiated"
	EventPaymentCompleted  = "payment_completed"
	EventPaymentFailed     = "payment_failed"
	EventPaymentCancelled  = "payment_cancelled"
	EventInsufficientFunds = "insufficient_funds"
	EventInvalidAccount    = "invalid_account"
)

// NotificationSink delivers payment events to the payer. Delivery is
// best-effort: a failed notification never fails the payment.
type NotificationSink interface {
	Notify(ctx context.Context, event string, tx *domain.Transaction)
}

// EventSink records payment lifecycle events for analytics.
type EventSink interface {
	Record(ctx context.Context, event string, tx *domain.Transaction)
}

// Alerter raises operator alerts for unexpected processing errors.
type Alerter interface {
	Alert(ctx context.Context, tx *domain.Transaction, err error)
}

// LogNotificationSink logs notifications instead of delivering them.
type LogNotificationSink struct{}

func (LogNotificationSink) Notify(_ context.Context, event string, tx *domain.Transaction) {
	log.Printf("notification: event=%s transaction=%s payer=%s status=%s", event, tx.ID, tx.PayerID, tx.Status)
}

// LogEventSink logs analytics events.
type LogEventSink struct{}

func (LogEventSink) Record(_ context.Context, event string, tx *domain.Transaction) {
	log.Printf("analytics: event=%s transaction=%s provider=%s amount=%d", event, tx.ID, tx.Provider, tx.Amount)
}

// LogAlerter logs operator alerts.
type LogAlerter struct{}

func (LogAlerter) Alert(_ context.Context, tx *domain.Transaction, err error) {
	log.Printf("ALERT: unexpected payment error: transaction=%s provider=%s error=%v", tx.ID, tx.Provider, err)
}
