// Package events carries domain notifications out of the ledger and checklist
// services to the push-notification collaborator.
//
// Publishing is best effort: services log a failed Publish and carry on, the
// write that produced the event is already committed.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"campaign/pkg/requestcontext"
)

type Type string

const (
	TypeWitnessAssigned         Type = "witness.assigned"
	TypeWitnessChecklistUpdated Type = "witness.checklist_updated"
	TypeReportSubmitted         Type = "report.submitted"
	TypeReportValidated         Type = "report.validated"
)

// Event is the envelope written to the notification topic.
// Key groups events of one aggregate on one partition.
type Event struct {
	ID         string         `json:"id"`
	Type       Type           `json:"type"`
	Key        string         `json:"key"`
	OccurredAt time.Time      `json:"occurred_at"`
	RequestID  string         `json:"request_id,omitempty"`
	Payload    map[string]any `json:"payload"`
}

// New stamps an event with an ID, the request time and the request ID from ctx.
func New(ctx context.Context, typ Type, key string, payload map[string]any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		Key:        key,
		OccurredAt: requestcontext.Now(ctx),
		RequestID:  requestcontext.RequestID(ctx),
		Payload:    payload,
	}
}

// Publisher delivers events to a sink.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, event Event) error

func (f PublisherFunc) Publish(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Fanout delivers each event to every publisher in order, synchronously.
// Delivery continues past a failing publisher; the failures are joined.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
