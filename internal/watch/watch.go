// Package watch defines the core types and interfaces for the price watch
// service. It includes the watch request model, the extraction signal, the
// batch outcome, and the collaborator contracts consumed by the tracker.
package watch

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Request represents one user's interest in a product's price. The store
// assigns the ID; the tracker only reads requests and deletes them after a
// successful notification.
type Request struct {
	ID                string    `json:"id"`
	URL               string    `json:"url"`
	TargetPrice       float64   `json:"target_price"`
	NotifyDestination string    `json:"notify_destination"`
	Title             string    `json:"title,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// Validate enforces the request invariants before it enters the store.
func (r Request) Validate() error {
	if strings.TrimSpace(r.URL) == "" {
		return fmt.Errorf("url is required")
	}
	if r.TargetPrice < 0 {
		return fmt.Errorf("target_price must be >= 0")
	}
	if strings.TrimSpace(r.NotifyDestination) == "" {
		return fmt.Errorf("notify_destination is required")
	}
	return nil
}

// PriceSignal is the result of extracting a price from a document: either a
// numeric value or an absence marker meaning "no price found this run".
type PriceSignal struct {
	Value float64
	Found bool
}

// Price builds a found signal.
func Price(value float64) PriceSignal {
	return PriceSignal{Value: value, Found: true}
}

// NoPrice builds the absence signal.
func NoPrice() PriceSignal {
	return PriceSignal{}
}

// Stage identifies where in the per-item pipeline a failure occurred.
type Stage string

// Pipeline stages recorded in failure descriptors.
const (
	StageFetch   Stage = "fetch"
	StageExtract Stage = "extract"
	StageNotify  Stage = "notify"
	StageDelete  Stage = "delete"
)

// ItemFailure describes a contained per-request failure.
type ItemFailure struct {
	RequestID string `json:"request_id"`
	Stage     Stage  `json:"stage"`
	Message   string `json:"message"`
}

// BatchOutcome is the aggregate result of one batch run. NoWork distinguishes
// "there were no requests" from "the batch ran and nothing matched".
type BatchOutcome struct {
	Total    int           `json:"total"`
	Fired    int           `json:"fired"`
	Failed   int           `json:"failed"`
	NoWork   bool          `json:"no_work"`
	Failures []ItemFailure `json:"failures,omitempty"`
}

// Store is the durable collection of active watch requests. DeleteByID must
// treat a missing id as success so that concurrent removal between snapshot
// and processing stays benign.
type Store interface {
	Create(ctx context.Context, req Request) (Request, error)
	ListAll(ctx context.Context) ([]Request, error)
	DeleteByID(ctx context.Context, id string) error
	Close()
}

// Fetcher retrieves the raw content of a target URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Extractor parses fetched content into a price signal. A page without the
// expected price element yields the absence signal with a nil error; only a
// document that cannot be parsed at all is an error.
type Extractor interface {
	Extract(content []byte) (PriceSignal, error)
}

// Notifier delivers a formatted alert to a destination address.
type Notifier interface {
	Send(ctx context.Context, destination, subject, body string) error
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator creates identifiers for stored requests.
type IDGenerator interface {
	NewID() (string, error)
}
