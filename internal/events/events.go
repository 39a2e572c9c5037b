// Package events publishes import notifications to live consumers: HUD
// overlays over a websocket and an optional Kafka topic.
package events

import (
	"context"
	"errors"
	"strconv"
	"time"
)

type Type string

const (
	TypeHandImported Type = "hand_imported"
	TypeImportDone   Type = "import_done"
	TypeCacheRebuilt Type = "hudcache_rebuilt"
)

// Event is one notification. Hand events carry the hand identity and the
// players whose HUD figures changed; import events carry batch counts.
type Event struct {
	Type       Type      `json:"type"`
	ImportID   string    `json:"importId,omitempty"`
	Site       string    `json:"site,omitempty"`
	HandNo     int64     `json:"handNo,omitempty"`
	Players    []string  `json:"players,omitempty"`
	Stored     int       `json:"stored,omitempty"`
	Duplicates int       `json:"duplicates,omitempty"`
	Partial    int       `json:"partial,omitempty"`
	Errors     int       `json:"errors,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Key partitions events: hands by site and number, the rest by import.
func (e Event) Key() string {
	if e.HandNo != 0 {
		return e.Site + "-" + strconv.FormatInt(e.HandNo, 10)
	}
	return e.ImportID
}

// Publisher delivers events. Publish must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error { return nil }

// Multi fans an event out to several publishers and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
