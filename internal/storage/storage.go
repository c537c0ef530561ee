package storage

import (
	"context"
	"time"

	"deskie/internal/event"
)

// Storage is the station's event journal.
type Storage interface {
	Init(ctx context.Context) error
	SaveEvent(ctx context.Context, e event.Event) (int64, error)
	GetEvents(ctx context.Context, start, end time.Time, eventTypes ...event.EventType) ([]event.Event, error)
	AwayStats(ctx context.Context, since time.Time) ([]event.AwayStat, error)
	Close() error
}
