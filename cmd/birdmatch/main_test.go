package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kailas-cloud/birdmatch/internal/domain/search/result"
	chitransport "github.com/kailas-cloud/birdmatch/internal/transport/chi"
)

func TestNewCommand_Subcommands(t *testing.T) {
	cmd := newCommand()
	want := map[string]bool{"serve": false, "search": false, "healthcheck": false}
	for _, sub := range cmd.Commands {
		if _, ok := want[sub.Name]; ok {
			want[sub.Name] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestSearch_RequiresQuery(t *testing.T) {
	cmd := newCommand()
	if err := cmd.Run(context.Background(), []string{"birdmatch", "search"}); err == nil {
		t.Fatal("expected error without query")
	}
}

func TestPrintOutcome(t *testing.T) {
	var buf bytes.Buffer
	out := result.NewOutcome("q-1", []result.Item{
		{
			ID:         "norcar",
			CommonName: "Northern Cardinal",
			Score:      0.91,
			FieldMarks: []string{"red crest"},
		},
		{
			ID:           "blujay",
			CommonName:   "Blue Jay",
			Score:        0.52,
			ThumbnailURL: "https://img.example/blujay.jpg",
		},
	})
	if err := printOutcome(&buf, out); err != nil {
		t.Fatal(err)
	}

	var got chitransport.SearchResponse
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if got.QueryID != "q-1" || got.TotalCount != 2 || got.Results[0].ID != "norcar" {
		t.Errorf("unexpected output: %+v", got)
	}
	if got.Results[1].ThumbnailURL == nil || *got.Results[1].ThumbnailURL != "https://img.example/blujay.jpg" {
		t.Errorf("thumbnail = %v", got.Results[1].ThumbnailURL)
	}

	var raw struct {
		Results []map[string]json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	thumb, ok := raw.Results[0]["thumbnailUrl"]
	if !ok || string(thumb) != "null" {
		t.Errorf("missing thumbnail must be null, got %q (present=%v)", thumb, ok)
	}
	if marks := string(raw.Results[1]["fieldMarks"]); marks != "[]" {
		t.Errorf("fieldMarks = %s, want []", marks)
	}
}

func TestProbe(t *testing.T) {
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()

	if err := probe(context.Background(), srv.Client(), srv.URL); err != nil {
		t.Errorf("healthy server: %v", err)
	}

	status = http.StatusServiceUnavailable
	if err := probe(context.Background(), srv.Client(), srv.URL); err == nil {
		t.Error("expected error for 503")
	}
}
