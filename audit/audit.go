// Copyright 2024 Griddeck UG - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@griddeck.io
//

/*
Package audit emits change notifications for row writes that pass through the
gateway. Events are fire-and-forget; a failed delivery is logged and never
fails the originating request.
*/
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Operation is the kind of change an event describes.
type Operation string

// operations
const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// Event is one change notification.
type Event struct {
	EventID   uuid.UUID `json:"event_id"`
	Resource  string    `json:"resource"`
	Operation Operation `json:"operation"`
	Identity  string    `json:"identity,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// NewEvent builds an event with a fresh id and the current time.
func NewEvent(resource string, operation Operation, identity string, payload any) Event {
	return Event{
		EventID:   uuid.New(),
		Resource:  resource,
		Operation: operation,
		Identity:  identity,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// Notifier delivers events to an external sink.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
	Close() error
}

// NopNotifier discards all events. It is the default when no sink is
// configured.
type NopNotifier struct{}

var _ Notifier = NopNotifier{}

// Notify discards the event.
func (NopNotifier) Notify(ctx context.Context, event Event) error { return nil }

// Close does nothing.
func (NopNotifier) Close() error { return nil }
