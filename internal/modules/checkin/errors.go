package checkin

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrAlreadySent marks an idempotency conflict: a check-in for the client and
// week is already recorded. Callers treat it as success.
var ErrAlreadySent = errors.New("checkin already sent for week")

var ErrClientNotFound = errors.New("client not found")

var errLeaseHeld = errors.New("checkin already in flight")

// ConfigError is fatal and surfaces at startup.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// TransientSourceError means a data source failed; the client is retried next cycle.
type TransientSourceError struct {
	Source string
	Err    error
}

func (e *TransientSourceError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *TransientSourceError) Unwrap() error { return e.Err }

// GenerationError means the narrative collaborator failed or timed out; the
// client gets no check-in this cycle.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("narrative generation: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// FilterError is never fatal; the unfiltered text is used instead.
type FilterError struct {
	Rule string
	Err  error
}

func (e *FilterError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("filter rule %s: %v", e.Rule, e.Err)
}

func (e *FilterError) Unwrap() error { return e.Err }

// StageError tags a per-client failure with the stage that produced it.
type StageError struct {
	ClientID uuid.UUID
	Stage    string
	Err      error
}

func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("client %s stage %s: %v", e.ClientID, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// ErrorKind names the taxonomy bucket of err for logs and metrics.
func ErrorKind(err error) string {
	var (
		cfgErr    *ConfigError
		srcErr    *TransientSourceError
		genErr    *GenerationError
		filterErr *FilterError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAlreadySent):
		return "already_sent"
	case errors.As(err, &cfgErr):
		return "config"
	case errors.As(err, &srcErr):
		return "transient_source"
	case errors.As(err, &genErr):
		return "generation"
	case errors.As(err, &filterErr):
		return "filter"
	default:
		return "storage"
	}
}
