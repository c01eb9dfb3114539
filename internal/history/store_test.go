package history

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-health-advisor/internal/database"
	"ai-health-advisor/internal/logger"
)

// keywordEmbedder maps text onto a fixed set of topic axes.
type keywordEmbedder struct {
	fail  bool
	calls int
	mu    sync.Mutex
}

var axes = []string{"cholesterol", "running", "sleep"}

func (k *keywordEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	k.mu.Lock()
	k.calls++
	k.mu.Unlock()
	if k.fail {
		return nil, errors.New("embedding model unavailable")
	}
	if text == "" {
		return nil, nil
	}
	lower := strings.ToLower(text)
	v := make([]float32, len(axes))
	for i, a := range axes {
		if strings.Contains(lower, a) {
			v[i] = 1
		}
	}
	return v, nil
}

func newTestStore(t *testing.T, emb *keywordEmbedder, order Ordering) *Store {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "history.db"), logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var s *Store
	if emb == nil {
		s = NewStore(db.SQL, nil, Options{Ordering: order}, logger.NewNop())
	} else {
		s = NewStore(db.SQL, emb, Options{Ordering: order}, logger.NewNop())
	}
	return s
}

func fixedClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := current
		current = current.Add(step)
		return t
	}
}

func TestAppendAndQueryFiltersByUser(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, &keywordEmbedder{}, OrderRelevance)

	require.True(t, s.Append(ctx, "alice", ReportBlood, "LDL cholesterol 130 mg/dL"))
	require.True(t, s.Append(ctx, "bob", ReportSymptoms, "knee pain after running"))
	require.True(t, s.Append(ctx, "alice", ReportSymptoms, "poor sleep"))

	got := s.Query(ctx, "alice", 10)
	require.Len(t, got, 2)
	for _, r := range got {
		assert.Equal(t, "alice", r.UserID)
	}

	assert.Empty(t, s.Query(ctx, "carol", 10))
}

func TestSearchKeepsInsertionOrderOnTies(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, &keywordEmbedder{}, OrderRelevance)
	s.now = fixedClock(time.Unix(1_700_000_000, 0), time.Minute)

	for i := 0; i < 4; i++ {
		require.True(t, s.Append(ctx, "u1", ReportSymptoms, fmt.Sprintf("note %d", i)))
	}

	got := s.Search(ctx, "u1", "cholesterol", 10)
	require.Len(t, got, 4)
	for i, r := range got {
		assert.Equal(t, fmt.Sprintf("note %d", i), r.Text)
		assert.Zero(t, r.Score)
	}
}

func TestQueryRelevanceWithoutQueryVectorIsNewestFirst(t *testing.T) {
	ctx := context.Background()
	for name, emb := range map[string]*keywordEmbedder{
		"empty query embedding": {},
		"no embedder":           nil,
	} {
		t.Run(name, func(t *testing.T) {
			s := newTestStore(t, emb, OrderRelevance)
			s.now = fixedClock(time.Unix(1_700_000_000, 0), time.Minute)

			for i := 0; i < 12; i++ {
				require.True(t, s.Append(ctx, "u1", ReportSymptoms, fmt.Sprintf("note %d", i)))
			}

			got := s.Query(ctx, "u1", 10)
			require.Len(t, got, 10)
			assert.Equal(t, "note 11", got[0].Text)
			assert.Equal(t, "note 2", got[9].Text)
		})
	}
}

func TestQueryChronologicalNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, &keywordEmbedder{}, OrderChronological)
	s.now = fixedClock(time.Unix(1_700_000_000, 0), time.Hour)

	require.True(t, s.Append(ctx, "u1", ReportBlood, "first"))
	require.True(t, s.Append(ctx, "u1", ReportBlood, "second"))
	require.True(t, s.Append(ctx, "u1", ReportBlood, "third"))

	got := s.Query(ctx, "u1", 2)
	require.Len(t, got, 2)
	assert.Equal(t, "third", got[0].Text)
	assert.Equal(t, "second", got[1].Text)
}

func TestQueryLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, nil, OrderRelevance)
	s.now = fixedClock(time.Unix(1_700_000_000, 0), time.Second)

	for i := 0; i < 15; i++ {
		require.True(t, s.Append(ctx, "u1", ReportScan, fmt.Sprintf("scan %d", i)))
	}

	assert.Len(t, s.Query(ctx, "u1", 3), 3)
	assert.Empty(t, s.Query(ctx, "u1", 0))
	assert.Empty(t, s.Query(ctx, "u1", -1))
	assert.Empty(t, s.Search(ctx, "u1", "scan", 0))
}

func TestSearchRanksBySimilarity(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, &keywordEmbedder{}, OrderRelevance)
	s.now = fixedClock(time.Unix(1_700_000_000, 0), time.Second)

	require.True(t, s.Append(ctx, "u1", ReportSymptoms, "trouble with sleep"))
	require.True(t, s.Append(ctx, "u1", ReportBlood, "cholesterol is high"))
	require.True(t, s.Append(ctx, "u1", ReportWorkoutPlan, "running three times a week"))

	got := s.Search(ctx, "u1", "what about my cholesterol?", 1)
	require.Len(t, got, 1)
	assert.Equal(t, ReportBlood, got[0].ReportType)
	assert.InDelta(t, 1.0, got[0].Score, 1e-9)
}

func TestAppendIDCollisionGetsSuffix(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, nil, OrderRelevance)
	fixed := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return fixed }

	first, err := s.AppendRecord(ctx, "u1", ReportBlood, "a")
	require.NoError(t, err)
	second, err := s.AppendRecord(ctx, "u1", ReportBlood, "b")
	require.NoError(t, err)
	third, err := s.AppendRecord(ctx, "u1", ReportBlood, "c")
	require.NoError(t, err)

	assert.Equal(t, "u1_Blood_1700000000", first.ID)
	assert.Equal(t, "u1_Blood_1700000000_2", second.ID)
	assert.Equal(t, "u1_Blood_1700000000_3", third.ID)
	assert.Len(t, s.Query(ctx, "u1", 10), 3)
}

func TestAppendEmbeddingFailureStillStores(t *testing.T) {
	ctx := context.Background()
	emb := &keywordEmbedder{fail: true}
	s := newTestStore(t, emb, OrderRelevance)

	assert.True(t, s.Append(ctx, "u1", ReportBlood, "glucose 92"))

	got := s.Query(ctx, "u1", 10)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Embedding)
	assert.Equal(t, "glucose 92", got[0].Text)
}

func TestAppendRejectsEmptyUser(t *testing.T) {
	s := newTestStore(t, nil, OrderRelevance)
	assert.False(t, s.Append(context.Background(), "  ", ReportBlood, "x"))
}

func TestConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, &keywordEmbedder{}, OrderChronological)

	var wg sync.WaitGroup
	for u := 0; u < 4; u++ {
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func(u, i int) {
				defer wg.Done()
				assert.True(t, s.Append(ctx, fmt.Sprintf("user%d", u), ReportSymptoms, fmt.Sprintf("entry %d", i)))
			}(u, i)
		}
	}
	wg.Wait()

	for u := 0; u < 4; u++ {
		got := s.Query(ctx, fmt.Sprintf("user%d", u), 20)
		assert.Len(t, got, 5)
		ids := map[string]bool{}
		for _, r := range got {
			assert.False(t, ids[r.ID], "duplicate id %s", r.ID)
			ids[r.ID] = true
		}
	}
}

func TestBuildContext(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, NoHistoryText, BuildContext(nil))
	})

	t.Run("records", func(t *testing.T) {
		records := []Record{
			{ReportType: ReportWorkoutPlan, Text: "Day 1: legs", Timestamp: time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)},
			{ReportType: "blood", Text: "LDL 130", Timestamp: time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC)},
		}
		got := BuildContext(records)
		want := "Recent Health History:\n" +
			"---\n[Workout Plan - 2025-03-01 09:30]\nDay 1: legs\n" +
			"---\n[Blood - 2025-03-02 08:00]\nLDL 130\n"
		assert.Equal(t, want, got)
	})
}

func TestParseOrdering(t *testing.T) {
	o, err := ParseOrdering("Chronological")
	require.NoError(t, err)
	assert.Equal(t, OrderChronological, o)

	o, err = ParseOrdering("")
	require.NoError(t, err)
	assert.Equal(t, OrderRelevance, o)

	_, err = ParseOrdering("random")
	assert.Error(t, err)
}

func TestVectorRoundTrip(t *testing.T) {
	in := []float32{0.25, -1.5, 3}
	out, err := byteSliceToFloat32Slice(float32SliceToByteSlice(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = byteSliceToFloat32Slice([]byte{1, 2, 3})
	assert.Error(t, err)

	assert.Equal(t, 0.0, cosineSimilarity(nil, in))
	assert.Equal(t, 0.0, cosineSimilarity([]float32{0, 0, 0}, in))
	assert.InDelta(t, 1.0, cosineSimilarity(in, in), 1e-9)
}
