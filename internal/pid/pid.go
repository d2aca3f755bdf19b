// Package pid implements the patient identifier codec.
//
// A PID has the canonical form SSS-YYMM-NNNNN-C: a three-letter site code,
// the two-digit year and month of issue, a five-digit per-period sequence,
// and a Mod-11 check digit over the embedded digits. Identifiers are value
// objects: generated once, then only compared, validated and parsed.
//
// The codec is pure apart from the clock and the injected SequenceAllocator,
// which owns uniqueness of sequence numbers within a (site, year, month).
package pid

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"prms/pkg/platform/sentinel"
)

const (
	// DefaultSiteCode is the facility code used when none is configured.
	DefaultSiteCode = "KTH"

	// FormatHint is the human-readable layout shown next to input errors.
	FormatHint = "SSS-YYMM-NNNNN-C"

	// Example is a well-formed identifier for display purposes.
	Example = "KTH-2508-00073-2"

	// MaxSequence is the largest sequence that fits the five-digit block.
	MaxSequence = 99999
)

var siteCodePattern = regexp.MustCompile(`^[A-Z]{3}$`)

var (
	// ErrSequenceExhausted is returned when an allocator hands out a value
	// outside [0, MaxSequence].
	ErrSequenceExhausted = fmt.Errorf("pid sequence %w", sentinel.ErrExhausted)

	// ErrNoAllocator is returned by Generate on a validate-only codec.
	ErrNoAllocator = errors.New("pid: no sequence allocator configured")
)

// Period scopes sequence allocation: one counter per site, year and month.
type Period struct {
	SiteCode string
	Year     string
	Month    string
}

// PeriodAt returns the allocation period of siteCode at t.
func PeriodAt(siteCode string, t time.Time) Period {
	return Period{
		SiteCode: siteCode,
		Year:     fmt.Sprintf("%02d", t.Year()%100),
		Month:    fmt.Sprintf("%02d", int(t.Month())),
	}
}

func (p Period) String() string {
	return p.SiteCode + "-" + p.Year + p.Month
}

// Components is the structured form of a PID.
type Components struct {
	SiteCode   string `json:"site_code"`
	Year       string `json:"year"`
	Month      string `json:"month"`
	Sequence   string `json:"sequence"`
	CheckDigit string `json:"check_digit"`
}

// String formats the components as a PID.
func (c Components) String() string {
	return c.SiteCode + "-" + c.Year + c.Month + "-" + c.Sequence + "-" + c.CheckDigit
}

// Period returns the allocation period the components were issued in.
func (c Components) Period() Period {
	return Period{SiteCode: c.SiteCode, Year: c.Year, Month: c.Month}
}

// SequenceAllocator issues sequence numbers unique within a Period and
// never reused. Implementations own their own concurrency control.
type SequenceAllocator interface {
	Next(ctx context.Context, period Period) (int, error)
}

// AllocatorFunc adapts a function to SequenceAllocator.
type AllocatorFunc func(ctx context.Context, period Period) (int, error)

func (f AllocatorFunc) Next(ctx context.Context, period Period) (int, error) {
	return f(ctx, period)
}

// Config holds deployment-level codec settings.
type Config struct {
	SiteCode string
}

// Codec generates and checks identifiers for one site.
type Codec struct {
	siteCode string
	alloc    SequenceAllocator
	clock    func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock overrides the time source used by Generate.
func WithClock(clock func() time.Time) Option {
	return func(c *Codec) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// New builds a codec for cfg.SiteCode. alloc may be nil for codecs that
// only validate and parse.
func New(cfg Config, alloc SequenceAllocator, opts ...Option) (*Codec, error) {
	site := cfg.SiteCode
	if site == "" {
		site = DefaultSiteCode
	}
	if !siteCodePattern.MatchString(site) {
		return nil, fmt.Errorf("pid: site code %q must be three uppercase letters", site)
	}
	c := &Codec{
		siteCode: site,
		alloc:    alloc,
		clock:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// SiteCode returns the configured facility code.
func (c *Codec) SiteCode() string {
	return c.siteCode
}

// Generate issues a new identifier for the current period.
func (c *Codec) Generate(ctx context.Context) (string, Components, error) {
	return c.GenerateAt(ctx, c.clock())
}

// GenerateAt issues a new identifier for the period containing t.
func (c *Codec) GenerateAt(ctx context.Context, t time.Time) (string, Components, error) {
	if c.alloc == nil {
		return "", Components{}, ErrNoAllocator
	}
	period := PeriodAt(c.siteCode, t)
	n, err := c.alloc.Next(ctx, period)
	if err != nil {
		return "", Components{}, fmt.Errorf("allocate sequence for %s: %w", period, err)
	}
	if n < 0 || n > MaxSequence {
		return "", Components{}, fmt.Errorf("%w: %d issued for %s", ErrSequenceExhausted, n, period)
	}

	comps := Components{
		SiteCode: period.SiteCode,
		Year:     period.Year,
		Month:    period.Month,
		Sequence: fmt.Sprintf("%05d", n),
	}
	comps.CheckDigit = Mod11Check(comps.SiteCode + comps.Year + comps.Month + comps.Sequence)
	return comps.String(), comps, nil
}

// QRPayload wraps pid for embedding in a scannable code. The input is not
// validated.
func (c *Codec) QRPayload(pid string) string {
	return c.siteCode + ":PID:" + pid
}
