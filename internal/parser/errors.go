package parser

import (
	"errors"
	"fmt"

	"github.com/pable/go-hud-stats/internal/model"
)

// Sentinels for the two ways a hand fails to parse. Match with errors.Is.
var (
	ErrUnrecognizedFormat = errors.New("unrecognized format")
	ErrInconsistentData   = errors.New("inconsistent data")
)

// Kind classifies a ParseError.
type Kind int

const (
	KindUnrecognizedFormat Kind = iota + 1
	KindInconsistentData
)

func (k Kind) String() string {
	switch k {
	case KindUnrecognizedFormat:
		return "unrecognized format"
	case KindInconsistentData:
		return "inconsistent data"
	default:
		return "unknown"
	}
}

const maxFragment = 100

// ParseError reports a hand that could not be normalised. Fragment is the
// first offending text, truncated.
type ParseError struct {
	Kind     Kind
	Site     model.Site
	HandNo   int64
	Fragment string
	Err      error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Site, e.Kind)
	if e.HandNo != 0 {
		msg += fmt.Sprintf(" (hand %d)", e.HandNo)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Fragment != "" {
		msg += fmt.Sprintf(" near %q", e.Fragment)
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the cause.
func (e *ParseError) Unwrap() []error {
	errs := []error{}
	switch e.Kind {
	case KindUnrecognizedFormat:
		errs = append(errs, ErrUnrecognizedFormat)
	case KindInconsistentData:
		errs = append(errs, ErrInconsistentData)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func unrecognized(site model.Site, fragment string, err error) *ParseError {
	return &ParseError{Kind: KindUnrecognizedFormat, Site: site, Fragment: truncate(fragment), Err: err}
}

func inconsistent(site model.Site, handNo int64, fragment string, err error) *ParseError {
	return &ParseError{Kind: KindInconsistentData, Site: site, HandNo: handNo, Fragment: truncate(fragment), Err: err}
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxFragment {
		return s
	}
	return string(r[:maxFragment])
}
