package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/pgvector/pgvector-go"

	"github.com/kailas-cloud/birdmatch/internal/db"
	"github.com/kailas-cloud/birdmatch/internal/domain"
)

func newMockStore(t *testing.T, dims int) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})
	return NewStore(mock, dims), mock
}

func ptr(s string) *string { return &s }

func TestAllWithEmbedding(t *testing.T) {
	s, mock := newMockStore(t, 2)
	rows := mock.NewRows([]string{"id", "common_name", "scientific_name", "embedding"}).
		AddRow("blujay", "Blue Jay", "Cyanocitta cristata", pgvector.NewVector([]float32{1, 0})).
		AddRow("norcar", "Northern Cardinal", "Cardinalis cardinalis", pgvector.NewVector([]float32{0, 1}))
	mock.ExpectQuery("embedding IS NOT NULL").WillReturnRows(rows)

	recs, err := s.AllWithEmbedding(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].ID != "blujay" || recs[0].Embedding[0] != 1 {
		t.Errorf("unexpected first record: %+v", recs[0])
	}
}

func TestAllWithEmbedding_DimensionMismatch(t *testing.T) {
	s, mock := newMockStore(t, 3)
	rows := mock.NewRows([]string{"id", "common_name", "scientific_name", "embedding"}).
		AddRow("blujay", "Blue Jay", "Cyanocitta cristata", pgvector.NewVector([]float32{1, 0}))
	mock.ExpectQuery("embedding IS NOT NULL").WillReturnRows(rows)

	_, err := s.AllWithEmbedding(context.Background())
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestAllWithEmbedding_MissingName(t *testing.T) {
	s, mock := newMockStore(t, 0)
	rows := mock.NewRows([]string{"id", "common_name", "scientific_name", "embedding"}).
		AddRow("blujay", "", "Cyanocitta cristata", pgvector.NewVector([]float32{1}))
	mock.ExpectQuery("embedding IS NOT NULL").WillReturnRows(rows)

	if _, err := s.AllWithEmbedding(context.Background()); !errors.Is(err, domain.ErrCorruptRecord) {
		t.Fatalf("expected ErrCorruptRecord, got %v", err)
	}
}

func TestAllWithEmbedding_QueryError(t *testing.T) {
	s, mock := newMockStore(t, 0)
	mock.ExpectQuery("embedding IS NOT NULL").WillReturnError(errors.New("relation does not exist"))

	_, err := s.AllWithEmbedding(context.Background())
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpQuery {
		t.Fatalf("expected db.Error QUERY, got %v", err)
	}
}

func TestByIDs_OrderAndThumbnails(t *testing.T) {
	s, mock := newMockStore(t, 0)
	ids := []string{"norcar", "missing", "blujay"}
	rows := mock.NewRows([]string{"id", "common_name", "scientific_name", "description", "url"}).
		AddRow("blujay", "Blue Jay", "Cyanocitta cristata", "Blue crest.", ptr("https://img/blujay.jpg")).
		AddRow("norcar", "Northern Cardinal", "Cardinalis cardinalis", "", nil)
	mock.ExpectQuery("= ANY").WithArgs(ids).WillReturnRows(rows)

	recs, err := s.ByIDs(context.Background(), ids)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].ID != "norcar" || recs[1].ID != "blujay" {
		t.Errorf("order not preserved: %s, %s", recs[0].ID, recs[1].ID)
	}
	if recs[0].ThumbnailURL != "" {
		t.Errorf("expected no thumbnail, got %q", recs[0].ThumbnailURL)
	}
	if recs[1].ThumbnailURL != "https://img/blujay.jpg" || recs[1].Description != "Blue crest." {
		t.Errorf("unexpected record: %+v", recs[1])
	}
}

func TestByIDs_DuplicatePrimaryImages(t *testing.T) {
	s, mock := newMockStore(t, 0)
	rows := mock.NewRows([]string{"id", "common_name", "scientific_name", "description", "url"}).
		AddRow("blujay", "Blue Jay", "Cyanocitta cristata", "", ptr("first")).
		AddRow("blujay", "Blue Jay", "Cyanocitta cristata", "", ptr("second"))
	mock.ExpectQuery("= ANY").WithArgs([]string{"blujay"}).WillReturnRows(rows)

	recs, err := s.ByIDs(context.Background(), []string{"blujay"})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].ThumbnailURL != "first" {
		t.Errorf("unexpected records: %+v", recs)
	}
}

func TestByIDs_Empty(t *testing.T) {
	s, _ := newMockStore(t, 0)
	recs, err := s.ByIDs(context.Background(), nil)
	if err != nil || len(recs) != 0 {
		t.Errorf("got %v, %v", recs, err)
	}
}

func TestTaxonomy(t *testing.T) {
	s, mock := newMockStore(t, 0)
	rows := mock.NewRows([]string{"version", "updated_at", "source"}).
		AddRow("2024", "2024-10-22", "eBird/Clements")
	mock.ExpectQuery("FROM taxonomy_metadata").WillReturnRows(rows)

	tax, err := s.Taxonomy(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if tax.Version != "2024" || tax.UpdatedAt != "2024-10-22" || tax.Source != "eBird/Clements" {
		t.Errorf("unexpected taxonomy: %+v", tax)
	}
}

func TestTaxonomy_NoRow(t *testing.T) {
	s, mock := newMockStore(t, 0)
	mock.ExpectQuery("FROM taxonomy_metadata").
		WillReturnRows(mock.NewRows([]string{"version", "updated_at", "source"}))

	tax, err := s.Taxonomy(context.Background())
	if err != nil {
		t.Fatalf("missing taxonomy must not fail: %v", err)
	}
	if tax.Version != "" {
		t.Errorf("expected zero taxonomy, got %+v", tax)
	}
}

func TestPing(t *testing.T) {
	s, mock := newMockStore(t, 0)
	mock.ExpectPing()
	if err := s.Ping(context.Background()); err != nil {
		t.Fatal(err)
	}

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	var dbErr *db.Error
	if err := s.Ping(context.Background()); !errors.As(err, &dbErr) || dbErr.Op != db.OpPing {
		t.Errorf("expected db.Error PING, got %v", err)
	}
}

func TestWaitForReady(t *testing.T) {
	s, mock := newMockStore(t, 0)
	mock.ExpectPing()
	if err := s.WaitForReady(context.Background(), time.Second); err != nil {
		t.Fatal(err)
	}
}
