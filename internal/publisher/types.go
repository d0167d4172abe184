// Package publisher wraps the social-media API behind a single capability:
// post text, get back a post id or a typed failure.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// PostID identifies a published post.
type PostID string

// Publisher posts one text.
type Publisher interface {
	Publish(ctx context.Context, text string) (PostID, error)
}

// Kind classifies publish failures for operators.
type Kind string

const (
	KindDuplicate    Kind = "duplicate"
	KindUnauthorized Kind = "unauthorized"
	KindRateLimited  Kind = "rate_limited"
	KindForbidden    Kind = "forbidden" // account restriction / policy
	KindNetwork      Kind = "network"
	KindServer       Kind = "server"
	KindUnknown      Kind = "unknown"
)

// Error is returned by every Publisher for failed posts.
type Error struct {
	Kind   Kind
	Status int    // HTTP status, 0 for transport failures
	Detail string // API-provided explanation
	// ResetAt is when the rate limit window reopens (KindRateLimited only; may be zero).
	ResetAt time.Time
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("publish %s", e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (http %d)", e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the failure kind of err, KindUnknown for foreign errors and
// "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}

// IsDuplicate reports a duplicate-content rejection.
func IsDuplicate(err error) bool { return KindOf(err) == KindDuplicate }
