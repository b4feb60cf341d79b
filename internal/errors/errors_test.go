package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestGetServiceErrorThroughWrap(t *testing.T) {
	base := NotFound("person", "p-1")
	wrapped := fmt.Errorf("load: %w", base)

	se := GetServiceError(wrapped)
	if se == nil {
		t.Fatal("expected service error in chain")
	}
	if se.Code != CodeNotFound || se.HTTPStatus != http.StatusNotFound {
		t.Fatalf("unexpected error %+v", se)
	}
	if StatusOf(wrapped) != http.StatusNotFound {
		t.Fatalf("status = %d", StatusOf(wrapped))
	}
	if StatusOf(errors.New("boom")) != http.StatusInternalServerError {
		t.Fatal("plain errors map to 500")
	}
}

func TestWithDetailsCopies(t *testing.T) {
	orig := Validation("bad")
	withA := orig.WithDetails("field", "a")
	if orig.Details != nil {
		t.Fatalf("original mutated: %v", orig.Details)
	}
	if withA.Details["field"] != "a" {
		t.Fatalf("details = %v", withA.Details)
	}
}

func TestQuotaExceededDetails(t *testing.T) {
	err := QuotaExceeded(90, 100)
	if !HasCode(err, CodeQuotaExceeded) {
		t.Fatal("expected quota code")
	}
	if err.Details["used"] != int64(90) || err.Details["quota"] != int64(100) {
		t.Fatalf("details = %v", err.Details)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("db down")
	err := Internal("query failed", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected Unwrap to expose cause")
	}
}

func TestGuardrailBlockedIsValidationStatus(t *testing.T) {
	err := GuardrailBlocked("excluded topic")
	if err.Code != CodeGuardrailBlocked {
		t.Fatalf("code = %s", err.Code)
	}
	if err.HTTPStatus != Validation("x").HTTPStatus || err.HTTPStatus != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", err.HTTPStatus, http.StatusBadRequest)
	}
}
