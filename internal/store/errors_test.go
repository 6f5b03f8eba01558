package store

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	be := &BackendError{Backend: "sqlite", Code: "SQLITE_BUSY", Message: "database is locked"}
	wrapped := fmt.Errorf("create transaction: %w", be)

	kind, got := Classify(wrapped)
	if kind != KindBackend || got != be {
		t.Fatalf("Classify = %v %v, want backend error", kind, got)
	}
	if kind, got := Classify(errors.New("boom")); kind != KindUnknown || got != nil {
		t.Fatalf("plain error classified as %v", kind)
	}
	if kind, _ := Classify(nil); kind != KindUnknown {
		t.Fatalf("nil classified as %v", kind)
	}
}

func TestNotFoundMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("delete: %w", NotFound("mongo", "abc"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected errors.Is to match ErrNotFound: %v", err)
	}
	other := &BackendError{Backend: "mongo", Code: "11000"}
	if errors.Is(other, ErrNotFound) {
		t.Fatalf("duplicate key must not match ErrNotFound")
	}
	if got := NotFound("sqlite", "x").Error(); got != "sqlite: not-found: transaction x not found" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestBackendErrorUnwrap(t *testing.T) {
	cause := errors.New("io")
	be := &BackendError{Backend: "sqlite", Code: "SQLITE_IOERR", Err: cause}
	if !errors.Is(be, cause) {
		t.Fatalf("cause not reachable through Unwrap")
	}
	if be.Error() != "sqlite: SQLITE_IOERR" {
		t.Fatalf("unexpected message %q", be.Error())
	}
}
