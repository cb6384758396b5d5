package fflogs

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifyGraphQLError(t *testing.T) {
	cases := []struct {
		msg  string
		want ErrorKind
	}{
		{"This report does not exist", KindNotFound},
		{"Report not found", KindNotFound},
		{"This report is private", KindNotFound},
		{"You do not have permission to view this report", KindNotFound},
		{"Unauthenticated.", KindAuth},
		{"Invalid token supplied", KindAuth},
		{"Token expired", KindAuth},
		{"Something else went wrong", KindGraphQL},
	}
	for _, tc := range cases {
		if got := classifyGraphQLError(tc.msg); got != tc.want {
			t.Errorf("classifyGraphQLError(%q) = %s, want %s", tc.msg, got, tc.want)
		}
	}
}

func TestFetchErrorUnwrap(t *testing.T) {
	inner := errors.New("dial tcp: refused")
	err := fmt.Errorf("fetching: %w", &FetchError{Kind: KindTransport, Message: "request failed", Err: inner})

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatal("FetchError must survive wrapping")
	}
	if !errors.Is(err, inner) {
		t.Error("FetchError must unwrap to its cause")
	}
}

func TestIsReportUnavailable(t *testing.T) {
	if IsReportUnavailable(&FetchError{Kind: KindTransport, Message: "timeout"}) {
		t.Error("transport failures are not unavailability")
	}
	if !IsReportUnavailable(&FetchError{Kind: KindNotFound, Message: "private"}) {
		t.Error("not-found must mean unavailable")
	}
	if IsReportUnavailable(errors.New("plain")) {
		t.Error("plain errors are not unavailability")
	}
}
