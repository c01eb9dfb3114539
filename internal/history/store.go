package history

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"ai-health-advisor/internal/llm"
	"ai-health-advisor/internal/logger"
	"ai-health-advisor/internal/metrics"
)

const (
	maxIDAttempts  = 100
	defaultTimeout = 30 * time.Second
)

// ErrEmptyUserID rejects records and queries without an owner.
var ErrEmptyUserID = errors.New("user id is required")

// Options tune a Store.
type Options struct {
	Ordering     Ordering
	EmbedTimeout time.Duration
}

// Store is the sqlite-backed MemoryStore. Embeddings are float32 blobs
// ranked by brute-force cosine similarity per user.
type Store struct {
	db       *sql.DB
	embedder llm.EmbeddingGenerator
	opts     Options
	log      *logger.Logger
	now      func() time.Time
}

// NewStore builds a Store. A nil embedder stores records without vectors.
func NewStore(db *sql.DB, embedder llm.EmbeddingGenerator, opts Options, log *logger.Logger) *Store {
	if opts.EmbedTimeout <= 0 {
		opts.EmbedTimeout = defaultTimeout
	}
	return &Store{
		db:       db,
		embedder: embedder,
		opts:     opts,
		log:      log.With("component", "history"),
		now:      time.Now,
	}
}

// Ordering reports how Query ranks records.
func (s *Store) Ordering() Ordering {
	return s.opts.Ordering
}

// Append embeds text and persists it as a new record. It never returns an
// error: failures are logged and reported as false.
func (s *Store) Append(ctx context.Context, userID string, reportType ReportType, text string) bool {
	if _, err := s.append(ctx, userID, reportType, text); err != nil {
		s.log.Error("failed to store health history", "user_id", userID, "report_type", reportType, "error", err)
		metrics.HistoryOperationsTotal.WithLabelValues("append", "error").Inc()
		return false
	}
	metrics.HistoryOperationsTotal.WithLabelValues("append", "ok").Inc()
	return true
}

// AppendRecord is Append for callers that want the stored record back.
func (s *Store) AppendRecord(ctx context.Context, userID string, reportType ReportType, text string) (Record, error) {
	return s.append(ctx, userID, reportType, text)
}

func (s *Store) append(ctx context.Context, userID string, reportType ReportType, text string) (Record, error) {
	if strings.TrimSpace(userID) == "" {
		return Record{}, ErrEmptyUserID
	}

	ts := s.now().UTC()
	embedding := s.embed(ctx, text)
	blob := float32SliceToByteSlice(embedding)

	base := RecordID(userID, reportType, ts)
	id := base
	for attempt := 1; attempt <= maxIDAttempts; attempt++ {
		res, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO health_history (id, user_id, report_type, content, embedding, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			id, userID, string(reportType), text, blob, ts.Unix(),
		)
		if err != nil {
			return Record{}, fmt.Errorf("failed to insert history record: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return Record{}, fmt.Errorf("failed to read insert result: %w", err)
		}
		if n == 1 {
			s.log.Info("added to health history", "report_type", reportType, "user_id", userID)
			return Record{
				ID:         id,
				UserID:     userID,
				ReportType: reportType,
				Text:       text,
				Embedding:  embedding,
				Timestamp:  time.Unix(ts.Unix(), 0).UTC(),
			}, nil
		}
		// Same user, type and second: disambiguate.
		id = fmt.Sprintf("%s_%d", base, attempt+1)
	}
	return Record{}, fmt.Errorf("could not allocate a unique id for %s", base)
}

// Query returns at most limit records of userID, ranked per the store's
// Ordering. Relevance ranking uses the neutral empty query, so it is not a
// chronology; callers that need one should sort by Timestamp or configure
// OrderChronological. A limit <= 0 returns no records.
func (s *Store) Query(ctx context.Context, userID string, limit int) []Record {
	records, err := s.load(ctx, userID)
	if err != nil {
		s.log.Error("error retrieving health history", "user_id", userID, "error", err)
		metrics.HistoryOperationsTotal.WithLabelValues("query", "error").Inc()
		return []Record{}
	}
	metrics.HistoryOperationsTotal.WithLabelValues("query", "ok").Inc()

	if s.opts.Ordering == OrderChronological {
		return truncate(newestFirst(records), limit)
	}
	return truncate(s.rank(ctx, records, ""), limit)
}

// Search ranks userID's records by similarity to query.
func (s *Store) Search(ctx context.Context, userID, query string, limit int) []Record {
	records, err := s.load(ctx, userID)
	if err != nil {
		s.log.Error("error searching health history", "user_id", userID, "error", err)
		metrics.HistoryOperationsTotal.WithLabelValues("search", "error").Inc()
		return []Record{}
	}
	metrics.HistoryOperationsTotal.WithLabelValues("search", "ok").Inc()
	return truncate(s.rank(ctx, records, query), limit)
}

// load reads every record of userID in insertion order.
func (s *Store) load(ctx context.Context, userID string) ([]Record, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrEmptyUserID
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, report_type, content, embedding, created_at
		   FROM health_history
		  WHERE user_id = ?
		  ORDER BY rowid`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var r Record
		var reportType string
		var blob []byte
		var created int64
		if err := rows.Scan(&r.ID, &r.UserID, &reportType, &r.Text, &blob, &created); err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		r.ReportType = ReportType(reportType)
		r.Timestamp = time.Unix(created, 0).UTC()
		emb, err := byteSliceToFloat32Slice(blob)
		if err != nil {
			s.log.Warn("failed to decode embedding", "id", r.ID, "error", err)
		}
		r.Embedding = emb
		records = append(records, r)
	}
	return records, rows.Err()
}

// rank scores records against the embedding of query. Records keep their
// relative insertion order on equal scores. Without a query vector every
// score would be 0, so the records are returned newest first instead.
func (s *Store) rank(ctx context.Context, records []Record, query string) []Record {
	qv := s.embed(ctx, query)
	if len(qv) == 0 {
		return newestFirst(records)
	}
	for i := range records {
		records[i].Score = cosineSimilarity(qv, records[i].Embedding)
	}
	slices.SortStableFunc(records, func(a, b Record) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return records
}

// embed returns nil when no embedder is configured or the call fails; an
// empty vector is the contract for an unavailable embedding model.
func (s *Store) embed(ctx context.Context, text string) []float32 {
	if s.embedder == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.EmbedTimeout)
	defer cancel()
	v, err := s.embedder.GenerateEmbedding(ctx, text)
	if err != nil {
		s.log.Warn("embedding failed, storing without vector", "error", err)
		return nil
	}
	return v
}

// newestFirst orders by timestamp, later insertions first within a second.
func newestFirst(records []Record) []Record {
	slices.Reverse(records)
	slices.SortStableFunc(records, func(a, b Record) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return records
}

func truncate(records []Record, limit int) []Record {
	if limit <= 0 {
		return []Record{}
	}
	if len(records) > limit {
		return records[:limit]
	}
	return records
}
