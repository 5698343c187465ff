package species

import (
	"context"
	"strings"

	"github.com/kailas-cloud/birdmatch/internal/domain/vector"
)

// mockStore implements the consumer interface for tests over an in-memory hash map.
type mockStore struct {
	hashes     map[string]map[string]string
	scanErr    error
	multiErr   error
	multiCalls int
	hgetAllFn  func(ctx context.Context, key string) (map[string]string, error)
}

func newMockStore() *mockStore {
	return &mockStore{hashes: map[string]map[string]string{}}
}

func (m *mockStore) put(id, common, scientific, desc string, emb []float32) {
	h := map[string]string{
		fieldCommonName:     common,
		fieldScientificName: scientific,
	}
	if desc != "" {
		h[fieldDescription] = desc
	}
	if emb != nil {
		h[fieldEmbedding] = string(vector.ToBytes(emb))
	}
	m.hashes[speciesKey(id)] = h
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	if h, ok := m.hashes[key]; ok {
		return h, nil
	}
	return map[string]string{}, nil
}

func (m *mockStore) HGetAllMulti(_ context.Context, keys []string) ([]map[string]string, error) {
	m.multiCalls++
	if m.multiErr != nil {
		return nil, m.multiErr
	}
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		if h, ok := m.hashes[k]; ok {
			out[i] = h
		} else {
			out[i] = map[string]string{}
		}
	}
	return out, nil
}

func (m *mockStore) Scan(_ context.Context, pattern string) ([]string, error) {
	if m.scanErr != nil {
		return nil, m.scanErr
	}
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for k := range m.hashes {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}
