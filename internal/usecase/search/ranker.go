package search

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/kailas-cloud/birdmatch/internal/domain/search/request"
	"github.com/kailas-cloud/birdmatch/internal/domain/search/result"
	"github.com/kailas-cloud/birdmatch/internal/domain/species"
	"github.com/kailas-cloud/birdmatch/internal/domain/vector"
	"github.com/kailas-cloud/birdmatch/internal/metrics"
)

// DefaultParallelThreshold is the corpus size from which scoring fans out to the pool.
const DefaultParallelThreshold = 2048

// Ranker scores the whole corpus against a query vector (exhaustive scan).
type Ranker struct {
	corpus    Corpus
	pool      *ants.Pool
	threshold int
}

// RankerOption configures a Ranker.
type RankerOption func(*Ranker)

// WithWorkerPool scores corpora of at least threshold records on pool.
// threshold <= 0 means DefaultParallelThreshold.
func WithWorkerPool(pool *ants.Pool, threshold int) RankerOption {
	return func(r *Ranker) {
		r.pool = pool
		if threshold <= 0 {
			threshold = DefaultParallelThreshold
		}
		r.threshold = threshold
	}
}

// NewRanker creates a ranker over corpus.
func NewRanker(corpus Corpus, opts ...RankerOption) *Ranker {
	r := &Ranker{corpus: corpus, threshold: DefaultParallelThreshold}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type scored struct {
	rec   *species.Record
	score float64
}

// Rank returns at most limit matches with score >= minScore, sorted by score
// descending and id ascending. Arguments are validated before the corpus is read.
func (r *Ranker) Rank(
	ctx context.Context, query []float32, limit int, minScore float64,
) ([]result.Match, error) {
	if err := request.ValidateRanking(limit, minScore); err != nil {
		return nil, err
	}

	records, err := r.corpus.AllWithEmbedding(ctx)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	records = dedupe(records)
	metrics.SearchCorpusSize.Set(float64(len(records)))

	scores, err := r.score(query, records)
	if err != nil {
		return nil, err
	}

	kept := scores[:0]
	for _, s := range scores {
		if s.score >= minScore {
			kept = append(kept, s)
		}
	}

	sort.Slice(kept, func(i, j int) bool {
		if kept[i].score != kept[j].score {
			return kept[i].score > kept[j].score
		}
		return kept[i].rec.ID < kept[j].rec.ID
	})

	if len(kept) > limit {
		kept = kept[:limit]
	}

	matches := make([]result.Match, len(kept))
	for i, s := range kept {
		matches[i] = result.NewMatch(s.rec.ID, s.rec.CommonName, s.rec.ScientificName, s.score)
	}
	return matches, nil
}

func (r *Ranker) score(query []float32, records []species.Record) ([]scored, error) {
	out := make([]scored, len(records))
	if r.pool == nil || len(records) < r.threshold {
		if err := scoreRange(query, records, out, 0, len(records)); err != nil {
			return nil, err
		}
		return out, nil
	}

	workers := r.pool.Cap()
	if workers < 1 {
		workers = 1
	}
	chunk := (len(records) + workers - 1) / workers

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for lo := 0; lo < len(records); lo += chunk {
		hi := min(lo+chunk, len(records))
		task := func() {
			defer wg.Done()
			if err := scoreRange(query, records, out, lo, hi); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}
		wg.Add(1)
		if err := r.pool.Submit(task); err != nil {
			// Pool closed or saturated in non-blocking mode.
			task()
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

func scoreRange(query []float32, records []species.Record, out []scored, lo, hi int) error {
	for i := lo; i < hi; i++ {
		s, err := vector.CosineSimilarity(query, records[i].Embedding)
		if err != nil {
			return fmt.Errorf("score species %s: %w", records[i].ID, err)
		}
		out[i] = scored{rec: &records[i], score: s}
	}
	return nil
}

// dedupe drops repeated ids, keeping the first occurrence.
func dedupe(records []species.Record) []species.Record {
	seen := make(map[string]struct{}, len(records))
	out := records[:0:0]
	for _, rec := range records {
		if _, ok := seen[rec.ID]; ok {
			continue
		}
		seen[rec.ID] = struct{}{}
		out = append(out, rec)
	}
	return out
}
