package domain

import (
	"errors"
	"testing"
)

func TestNormalizeWhitespace(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"red bird", "red bird"},
		{"  red bird  ", "red bird"},
		{"red \t\n  bird", "red bird"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range tests {
		if got := NormalizeWhitespace(tc.in); got != tc.want {
			t.Errorf("NormalizeWhitespace(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidationError_Unwrap(t *testing.T) {
	err := NewValidationError("query", "must be %d-%d characters", 3, 500)
	if !errors.Is(err, ErrValidation) {
		t.Fatal("expected errors.Is(err, ErrValidation)")
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatal("expected *ValidationError")
	}
	if ve.Field != "query" {
		t.Errorf("expected field 'query', got %q", ve.Field)
	}
	if ve.Message != "must be 3-500 characters" {
		t.Errorf("unexpected message %q", ve.Message)
	}
}

func TestDimensionMismatchError_Unwrap(t *testing.T) {
	err := NewDimensionMismatch(1536, 3)
	if !errors.Is(err, ErrVectorDimMismatch) {
		t.Fatal("expected errors.Is(err, ErrVectorDimMismatch)")
	}
	var dm *DimensionMismatchError
	if !errors.As(err, &dm) {
		t.Fatal("expected *DimensionMismatchError")
	}
	if dm.Expected != 1536 || dm.Actual != 3 {
		t.Errorf("unexpected dims: %+v", dm)
	}
}

func TestDefaultSearchConfig(t *testing.T) {
	cfg := DefaultSearchConfig()
	if cfg.MinQueryLength != 3 || cfg.MaxQueryLength != 500 {
		t.Errorf("unexpected query bounds: %d..%d", cfg.MinQueryLength, cfg.MaxQueryLength)
	}
	if cfg.DefaultLimit != 10 || cfg.MinScore != 0.3 || cfg.MaxFieldMarks != 5 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}
