package request

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/kailas-cloud/birdmatch/internal/domain"
)

func TestNew_Defaults(t *testing.T) {
	r, err := New("  red bird  ", domain.DefaultSearchConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Query() != "red bird" {
		t.Errorf("Query() = %q", r.Query())
	}
	if r.Limit() != 10 {
		t.Errorf("Limit() = %d, want 10", r.Limit())
	}
	if r.MinScore() != 0.3 {
		t.Errorf("MinScore() = %f, want 0.3", r.MinScore())
	}
	if r.Length() != 8 {
		t.Errorf("Length() = %d, want 8", r.Length())
	}
}

func TestNew_Overrides(t *testing.T) {
	r, err := New("red bird", domain.DefaultSearchConfig(), WithLimit(25), WithMinScore(-0.5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Limit() != 25 || r.MinScore() != -0.5 {
		t.Errorf("got limit=%d minScore=%f", r.Limit(), r.MinScore())
	}
}

func TestNew_QueryLength(t *testing.T) {
	cfg := domain.DefaultSearchConfig()
	tests := []struct {
		name    string
		query   string
		wantErr bool
	}{
		{"too short", "ab", true},
		{"short after trim", "   ab   ", true},
		{"empty", "", true},
		{"min", "abc", false},
		{"max", strings.Repeat("a", 500), false},
		{"too long", strings.Repeat("a", 501), true},
		{"multibyte counted as chars", strings.Repeat("é", 500), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.query, cfg)
			if !tc.wantErr {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != "query" {
				t.Errorf("Field = %q, want query", ve.Field)
			}
			if !strings.Contains(ve.Message, "3-500") {
				t.Errorf("Message %q does not cite the range", ve.Message)
			}
		})
	}
}

func TestNew_InvalidRanking(t *testing.T) {
	cfg := domain.DefaultSearchConfig()
	tests := []struct {
		name  string
		opt   Option
		field string
	}{
		{"limit zero", WithLimit(0), "limit"},
		{"limit over max", WithLimit(101), "limit"},
		{"min score below", WithMinScore(-1.01), "min_score"},
		{"min score above", WithMinScore(1.5), "min_score"},
		{"min score NaN", WithMinScore(math.NaN()), "min_score"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New("red bird", cfg, tc.opt)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tc.field {
				t.Errorf("Field = %q, want %q", ve.Field, tc.field)
			}
			if !errors.Is(err, domain.ErrValidation) {
				t.Error("expected errors.Is(err, ErrValidation)")
			}
		})
	}
}

func TestValidateRanking_Bounds(t *testing.T) {
	for _, tc := range []struct {
		limit    int
		minScore float64
	}{{1, -1}, {100, 1}, {10, 0.3}} {
		if err := ValidateRanking(tc.limit, tc.minScore); err != nil {
			t.Errorf("ValidateRanking(%d, %f) = %v", tc.limit, tc.minScore, err)
		}
	}
}
