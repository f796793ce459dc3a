package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code      Code
		status    int
		retryable bool
	}{
		{CodeValidation, http.StatusBadRequest, false},
		{CodeUnauthorized, http.StatusUnauthorized, false},
		{CodeNotFound, http.StatusNotFound, false},
		{CodeConflict, http.StatusConflict, false},
		{CodeTransform, http.StatusUnprocessableEntity, false},
		{CodeInternal, http.StatusInternalServerError, true},
		{CodeDependency, http.StatusServiceUnavailable, true},
	}

	for _, tc := range cases {
		meta := MetadataFor(tc.code)
		if meta.HTTPStatus != tc.status {
			t.Errorf("%s: status = %d, want %d", tc.code, meta.HTTPStatus, tc.status)
		}
		if meta.Retryable != tc.retryable {
			t.Errorf("%s: retryable = %v, want %v", tc.code, meta.Retryable, tc.retryable)
		}
	}
}

func TestMetadataForUnknownCodeFallsBackToInternal(t *testing.T) {
	t.Parallel()

	meta := MetadataFor(Code("BOGUS"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	t.Parallel()

	cause := stdErrors.New("connection refused")
	err := Wrap(CodeDependency, cause, "s3 unreachable")

	if !stdErrors.Is(err, cause) {
		t.Fatal("wrapped error should match cause with errors.Is")
	}
	if err.Code() != CodeDependency {
		t.Fatalf("code = %s, want %s", err.Code(), CodeDependency)
	}
}

func TestAsExtractsThroughFmtWrap(t *testing.T) {
	t.Parallel()

	inner := New(CodeNotFound, "product missing")
	outer := fmt.Errorf("loading catalog: %w", inner)

	typed := As(outer)
	if typed == nil {
		t.Fatal("As returned nil for wrapped typed error")
	}
	if typed.Code() != CodeNotFound {
		t.Fatalf("code = %s, want %s", typed.Code(), CodeNotFound)
	}
}

func TestAsReturnsNilForUntyped(t *testing.T) {
	t.Parallel()

	if As(stdErrors.New("plain")) != nil {
		t.Fatal("expected nil for untyped error")
	}
	if As(nil) != nil {
		t.Fatal("expected nil for nil error")
	}
}

func TestRetryable(t *testing.T) {
	t.Parallel()

	if Retryable(New(CodeValidation, "bad input")) {
		t.Fatal("validation errors must not be retryable")
	}
	if !Retryable(New(CodeDependency, "s3 down")) {
		t.Fatal("dependency errors must be retryable")
	}
	if !Retryable(stdErrors.New("unknown")) {
		t.Fatal("unknown errors default to retryable")
	}
}

func TestWithDetails(t *testing.T) {
	t.Parallel()

	err := New(CodeValidation, "invalid payload").WithDetails(map[string]string{"sku": "required"})
	details, ok := err.Details().(map[string]string)
	if !ok || details["sku"] != "required" {
		t.Fatalf("details = %#v", err.Details())
	}
}

func TestDumpIncludesCause(t *testing.T) {
	t.Parallel()

	cause := stdErrors.New("disk full")
	out := Dump(Wrap(CodeInternal, cause, "write failed"))
	if out == "" || out == "<nil>" {
		t.Fatalf("unexpected dump: %q", out)
	}
}
