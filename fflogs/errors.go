package fflogs

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind buckets a fetch failure for the caller's error budget / notice logic.
type ErrorKind int

const (
	// KindTransport covers network and server-side failures (retryable).
	KindTransport ErrorKind = iota
	// KindAuth covers token and permission failures.
	KindAuth
	// KindNotFound means the report is missing or private.
	KindNotFound
	// KindGraphQL covers any other upstream query error.
	KindGraphQL
)

// String returns a human-readable name for the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindGraphQL:
		return "graphql"
	default:
		return "unknown"
	}
}

// FetchError is a typed upstream failure.
type FetchError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fflogs fetch (%s): %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("fflogs fetch (%s): %s", e.Kind, e.Message)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsReportUnavailable reports whether err means the report is gone or private,
// as opposed to a transient upstream failure.
func IsReportUnavailable(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == KindNotFound
}

// classifyGraphQLError maps an upstream GraphQL error message onto an ErrorKind.
// The API does not expose machine-readable codes, so this is pattern matching
// against the messages it is known to emit.
func classifyGraphQLError(msg string) ErrorKind {
	lower := strings.ToLower(msg)

	notFoundPatterns := []string{
		"does not exist",
		"not found",
		"no report",
		"private",
		"permission",
		"you do not have access",
	}
	for _, p := range notFoundPatterns {
		if strings.Contains(lower, p) {
			return KindNotFound
		}
	}

	authPatterns := []string{
		"unauthenticated",
		"unauthorized",
		"invalid token",
		"token expired",
	}
	for _, p := range authPatterns {
		if strings.Contains(lower, p) {
			return KindAuth
		}
	}

	return KindGraphQL
}
