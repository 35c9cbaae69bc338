package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"pgregory.net/rapid"
)

var allCodes = []Code{
	InvalidArgument,
	NotFound,
	AlreadyExists,
	Timeout,
	FailedPrecondition,
	AssertionFailed,
	PermissionDenied,
	ResourceExhausted,
	Unavailable,
	Internal,
}

func testCodeOf_RoundtripForTypedErrors(t *rapid.T) {
	code := rapid.SampledFrom(allCodes).Draw(t, "code")
	message := rapid.StringMatching(`[a-zA-Z0-9 _:\-]{1,80}`).Draw(t, "message")

	err := New(code, message)
	if got := CodeOf(err); got != code {
		t.Fatalf("CodeOf(New) mismatch: got=%q want=%q", got, code)
	}
	if got := MessageOf(err); got != message {
		t.Fatalf("MessageOf(New) mismatch: got=%q want=%q", got, message)
	}
	if !Is(err, code) {
		t.Fatalf("Is(New(%q)) = false", code)
	}
}

func TestCodeOf_RoundtripForTypedErrors(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testCodeOf_RoundtripForTypedErrors)
}

func testCodeOfAndMessageOf_WrappedTypedError(t *rapid.T) {
	code := rapid.SampledFrom(allCodes).Draw(t, "code")
	message := rapid.StringMatching(`[a-zA-Z0-9 _:\-]{1,80}`).Draw(t, "message")
	cause := errors.New(rapid.StringMatching(`[a-zA-Z0-9 _:\-]{1,80}`).Draw(t, "cause"))

	err := Wrap(code, message, cause)
	wrapped := fmt.Errorf("outer: %w", err)

	if got := CodeOf(wrapped); got != code {
		t.Fatalf("CodeOf(wrapped) mismatch: got=%q want=%q", got, code)
	}
	if got := MessageOf(wrapped); got != message {
		t.Fatalf("MessageOf(wrapped) mismatch: got=%q want=%q", got, message)
	}
	if !errors.Is(wrapped, cause) {
		t.Fatal("wrapped error lost its cause")
	}
}

func TestCodeOfAndMessageOf_WrappedTypedError(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testCodeOfAndMessageOf_WrappedTypedError)
}

func testIs_FindsInnerCode(t *rapid.T) {
	outer := rapid.SampledFrom(allCodes).Draw(t, "outer")
	inner := rapid.SampledFrom(allCodes).Draw(t, "inner")

	err := Wrap(outer, "outer", New(inner, "inner"))
	if !Is(err, outer) {
		t.Fatalf("Is(err, %q) = false for outer code", outer)
	}
	if !Is(err, inner) {
		t.Fatalf("Is(err, %q) = false for inner code", inner)
	}
	for _, other := range allCodes {
		if other == outer || other == inner {
			continue
		}
		if Is(err, other) {
			t.Fatalf("Is(err, %q) = true, chain only has %q and %q", other, outer, inner)
		}
	}
}

func TestIs_FindsInnerCode(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testIs_FindsInnerCode)
}

func TestIs_UntypedAndNil(t *testing.T) {
	t.Parallel()
	if Is(nil, Internal) {
		t.Fatal("Is(nil) = true")
	}
	if Is(errors.New("boom"), Internal) {
		t.Fatal("Is(untyped, internal) = true")
	}
}

func TestNewf_FormatsMessage(t *testing.T) {
	t.Parallel()
	err := Newf(InvalidArgument, "unknown field %q", "nickname")
	if got := MessageOf(err); got != `unknown field "nickname"` {
		t.Fatalf("MessageOf(Newf) = %q", got)
	}
}

func testUntypedAndNilFallbacks(t *rapid.T) {
	raw := rapid.StringMatching(`[a-zA-Z0-9 _:\-./]{1,80}`).Draw(t, "raw")
	untyped := errors.New(raw)

	if got := CodeOf(untyped); got != Internal {
		t.Fatalf("CodeOf(untyped) mismatch: got=%q want=%q", got, Internal)
	}
	if got := MessageOf(untyped); got != "internal error" {
		t.Fatalf("MessageOf(untyped) mismatch: got=%q want=%q", got, "internal error")
	}
	if got := CodeOf(nil); got != Internal {
		t.Fatalf("CodeOf(nil) mismatch: got=%q want=%q", got, Internal)
	}
	if got := MessageOf(nil); got != string(Internal) {
		t.Fatalf("MessageOf(nil) mismatch: got=%q want=%q", got, Internal)
	}
}

func TestUntypedAndNilFallbacks(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testUntypedAndNilFallbacks)
}

func testHTTPStatus_Mapping(t *rapid.T) {
	cases := map[Code]int{
		InvalidArgument:    http.StatusBadRequest,
		PermissionDenied:   http.StatusForbidden,
		NotFound:           http.StatusNotFound,
		AlreadyExists:      http.StatusConflict,
		FailedPrecondition: http.StatusConflict,
		Timeout:            http.StatusGatewayTimeout,
		ResourceExhausted:  http.StatusTooManyRequests,
		Unavailable:        http.StatusServiceUnavailable,
		Internal:           http.StatusInternalServerError,
	}

	code := rapid.SampledFrom(append(allCodes, Code("unknown_code"))).Draw(t, "code")

	want := http.StatusInternalServerError
	if mapped, ok := cases[code]; ok {
		want = mapped
	}
	if got := HTTPStatus(code); got != want {
		t.Fatalf("HTTPStatus mismatch: code=%q got=%d want=%d", code, got, want)
	}
}

func TestHTTPStatus_Mapping(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testHTTPStatus_Mapping)
}
