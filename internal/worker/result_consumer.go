package worker

import (
	"encoding/json"
	"log/slog"

	"github.com/nsqio/go-nsq"
)

// WaiterRegistry wakes wait loops parked on a correlation id.
type WaiterRegistry interface {
	Notify(correlationID string)
}

// ResultConsumer listens on the result topic. Workers publish a small
// announcement there after writing the result object; the consumer wakes the
// matching waiter so it re-checks the store immediately instead of sleeping
// out its poll interval. Announcements are advisory: dropping a malformed or
// unmatched one is safe because polling still converges.
type ResultConsumer struct {
	notifier WaiterRegistry
}

func NewResultConsumer(notifier WaiterRegistry) *ResultConsumer {
	return &ResultConsumer{notifier: notifier}
}

func (h *ResultConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var payload struct {
		CorrelationID string `json:"correlation_id"`
		Status        string `json:"status,omitempty"`
	}
	if err := json.Unmarshal(m.Body, &payload); err != nil {
		slog.Error("invalid result announcement, dropping", "error", err)
		return nil
	}
	if payload.CorrelationID == "" {
		slog.Error("result announcement without correlation_id, dropping")
		return nil
	}

	slog.Debug("result announced", "job_id", payload.CorrelationID, "status", payload.Status)
	h.notifier.Notify(payload.CorrelationID)
	return nil
}
