package testfixtures

import "testing"

func TestIDGenerator_SequentialIDs(t *testing.T) {
	t.Parallel()

	gen := NewIDGenerator("booking")
	if got := gen.Next(); got != "booking-1" {
		t.Fatalf("expected booking-1, got %q", got)
	}
	if got := gen.Next(); got != "booking-2" {
		t.Fatalf("expected booking-2, got %q", got)
	}
}

func TestIDGenerator_DefaultPrefix(t *testing.T) {
	t.Parallel()

	gen := NewIDGenerator("")
	if got := gen.Next(); got != "id-1" {
		t.Fatalf("expected id-1, got %q", got)
	}
}

func TestIDGenerator_SetCounter(t *testing.T) {
	t.Parallel()

	gen := NewIDGenerator("resource")
	gen.SetCounter(41)
	if got := gen.Next(); got != "resource-42" {
		t.Fatalf("expected resource-42, got %q", got)
	}
}

func TestIDGenerator_NextFuncOnNilGenerator(t *testing.T) {
	t.Parallel()

	var gen *IDGenerator
	next := gen.NextFunc()
	if next == nil {
		t.Fatal("expected fallback generator")
	}
	if got := next(); got != "" {
		t.Fatalf("expected empty id from fallback, got %q", got)
	}
}
