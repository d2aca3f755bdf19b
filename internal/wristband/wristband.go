// Package wristband dispatches wristband print jobs to ward printers.
//
// Printers subscribe to "<prefix>/<printer>/jobs" on the MQTT broker and
// render the identifier and its QR payload. Dispatch is at-least-once;
// printers deduplicate on Job.ID.
package wristband

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/segmentio/ksuid"
)

const (
	DefaultTopicPrefix = "prms/wristband"
	DefaultPrinter     = "admissions"
)

var (
	ErrInvalidPrinter = errors.New("wristband: printer name must be 1-32 characters of [a-z0-9-]")
	ErrNoPublisher    = errors.New("wristband: no publisher configured")
)

var printerPattern = regexp.MustCompile(`^[a-z0-9-]{1,32}$`)

// ValidPrinter reports whether name can be used as a printer topic segment.
func ValidPrinter(name string) bool {
	return printerPattern.MatchString(name)
}

// Job is the message a printer receives.
type Job struct {
	ID          string    `json:"id"`
	PID         string    `json:"pid"`
	QRPayload   string    `json:"qr_payload"`
	Printer     string    `json:"printer"`
	Copies      int       `json:"copies"`
	RequestedAt time.Time `json:"requested_at"`
	RequestID   string    `json:"request_id,omitempty"`
}

// Publisher delivers a payload to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Dispatcher turns jobs into broker messages.
type Dispatcher struct {
	publisher      Publisher
	topicPrefix    string
	defaultPrinter string
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithTopicPrefix(prefix string) Option {
	return func(d *Dispatcher) {
		if prefix != "" {
			d.topicPrefix = prefix
		}
	}
}

// WithDefaultPrinter sets the printer used when a job names none.
func WithDefaultPrinter(name string) Option {
	return func(d *Dispatcher) {
		if name != "" {
			d.defaultPrinter = name
		}
	}
}

// NewDispatcher creates a dispatcher over publisher.
func NewDispatcher(publisher Publisher, opts ...Option) (*Dispatcher, error) {
	if publisher == nil {
		return nil, ErrNoPublisher
	}
	d := &Dispatcher{
		publisher:      publisher,
		topicPrefix:    DefaultTopicPrefix,
		defaultPrinter: DefaultPrinter,
	}
	for _, opt := range opts {
		opt(d)
	}
	if !ValidPrinter(d.defaultPrinter) {
		return nil, ErrInvalidPrinter
	}
	return d, nil
}

// Topic returns the topic a printer listens on.
func (d *Dispatcher) Topic(printer string) string {
	return d.topicPrefix + "/" + printer + "/jobs"
}

// Print publishes job, filling ID, printer and copy count when unset, and
// returns the job as sent.
func (d *Dispatcher) Print(ctx context.Context, job Job) (Job, error) {
	if job.Printer == "" {
		job.Printer = d.defaultPrinter
	}
	if !ValidPrinter(job.Printer) {
		return Job{}, ErrInvalidPrinter
	}
	if job.ID == "" {
		job.ID = ksuid.New().String()
	}
	if job.Copies <= 0 {
		job.Copies = 1
	}
	if job.RequestedAt.IsZero() {
		job.RequestedAt = time.Now()
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return Job{}, fmt.Errorf("marshal print job: %w", err)
	}
	if err := d.publisher.Publish(ctx, d.Topic(job.Printer), payload); err != nil {
		return Job{}, fmt.Errorf("dispatch print job %s: %w", job.ID, err)
	}
	return job, nil
}
