package redis

import (
	"context"
	"sort"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/birdmatch/internal/db"
)

// XAdd appends an entry with an auto-generated id and returns that id.
// maxLen > 0 applies approximate trimming (MAXLEN ~ maxLen).
func (s *Store) XAdd(ctx context.Context, stream string, maxLen int64, fields map[string]string) (string, error) {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)

	key := s.b().Xadd().Key(stream)
	var cmd rueidis.Completed
	if maxLen > 0 {
		fv := key.Maxlen().Almost().Threshold(strconv.FormatInt(maxLen, 10)).Id("*").FieldValue()
		for _, k := range names {
			fv = fv.FieldValue(k, fields[k])
		}
		cmd = fv.Build()
	} else {
		fv := key.Id("*").FieldValue()
		for _, k := range names {
			fv = fv.FieldValue(k, fields[k])
		}
		cmd = fv.Build()
	}

	id, err := s.do(ctx, cmd).ToString()
	if err != nil {
		return "", &db.Error{Op: db.OpXAdd, Err: err}
	}
	return id, nil
}
