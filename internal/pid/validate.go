package pid

import (
	"errors"
	"regexp"
	"strings"
)

var pidPattern = regexp.MustCompile(`^[A-Z]{3}-\d{4}-\d{5}-\d$`)

// ErrorKind classifies why a candidate identifier was rejected.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	MalformedFormat
	UnknownSite
	CheckDigitMismatch
	// ImplausiblePeriod is only reported by ValidateStrict.
	ImplausiblePeriod
)

var (
	ErrMalformedFormat    = errors.New("pid: malformed format")
	ErrUnknownSite        = errors.New("pid: unknown site")
	ErrCheckDigitMismatch = errors.New("pid: check digit mismatch")
	ErrImplausiblePeriod  = errors.New("pid: implausible year/month")
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case MalformedFormat:
		return "malformed_format"
	case UnknownSite:
		return "unknown_site"
	case CheckDigitMismatch:
		return "check_digit_mismatch"
	case ImplausiblePeriod:
		return "implausible_period"
	default:
		return "unknown"
	}
}

// Message is the text shown to the person who typed or scanned the value.
func (k ErrorKind) Message() string {
	switch k {
	case MalformedFormat:
		return "Invalid PID format. Expected: " + FormatHint
	case UnknownSite:
		return "Invalid site code"
	case CheckDigitMismatch:
		return "Invalid check digit"
	case ImplausiblePeriod:
		return "Invalid year/month"
	default:
		return ""
	}
}

// Err returns the sentinel error for k, or nil for KindNone.
func (k ErrorKind) Err() error {
	switch k {
	case MalformedFormat:
		return ErrMalformedFormat
	case UnknownSite:
		return ErrUnknownSite
	case CheckDigitMismatch:
		return ErrCheckDigitMismatch
	case ImplausiblePeriod:
		return ErrImplausiblePeriod
	default:
		return nil
	}
}

// Validation is the outcome of checking a candidate identifier.
type Validation struct {
	Valid bool
	Kind  ErrorKind
}

// Err returns nil for a valid result and the kind's sentinel otherwise.
func (v Validation) Err() error {
	if v.Valid {
		return nil
	}
	return v.Kind.Err()
}

func rejected(kind ErrorKind) Validation {
	return Validation{Kind: kind}
}

// Validate checks format, site code and check digit. Year and month are
// not range checked; see ValidateStrict.
func (c *Codec) Validate(candidate string) Validation {
	if !pidPattern.MatchString(candidate) {
		return rejected(MalformedFormat)
	}
	parts := strings.Split(candidate, "-")
	site, yearMonth, sequence, check := parts[0], parts[1], parts[2], parts[3]

	if site != c.siteCode {
		return rejected(UnknownSite)
	}
	if Mod11Check(site+yearMonth+sequence) != check {
		return rejected(CheckDigitMismatch)
	}
	return Validation{Valid: true}
}

// ValidateStrict is Validate plus a month range check (01-12).
func (c *Codec) ValidateStrict(candidate string) Validation {
	v := c.Validate(candidate)
	if !v.Valid {
		return v
	}
	month := candidate[6:8]
	if month < "01" || month > "12" {
		return rejected(ImplausiblePeriod)
	}
	return v
}

// Parse validates candidate and splits it into components. A rejected
// candidate yields zero Components and the kind's sentinel error.
func (c *Codec) Parse(candidate string) (Components, error) {
	if err := c.Validate(candidate).Err(); err != nil {
		return Components{}, err
	}
	parts := strings.Split(candidate, "-")
	return Components{
		SiteCode:   parts[0],
		Year:       parts[1][0:2],
		Month:      parts[1][2:4],
		Sequence:   parts[2],
		CheckDigit: parts[3],
	}, nil
}

// Normalize prepares typed or scanned input for validation: surrounding
// whitespace is dropped and letters are uppercased.
func Normalize(input string) string {
	return strings.ToUpper(strings.TrimSpace(input))
}
