package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/pawclause/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/pawclause/internal/core/domain"
	"github.com/custodia-labs/pawclause/internal/core/ports/driven"
)

// DatabaseFile is the file name of the database inside the data directory.
const DatabaseFile = "pawclause.db"

// maxVariables bounds the number of placeholders in one IN clause.
const maxVariables = 500

// Store is a unified SQLite-based storage that provides access to
// all store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.pawclause/data/pawclause.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".pawclause", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// WAL lets readers proceed while the indexer writes the cache.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// EmbeddingCacheStore returns an EmbeddingCacheStore backed by this store.
func (s *Store) EmbeddingCacheStore() driven.EmbeddingCacheStore {
	return &embeddingCacheStore{store: s}
}

// FeedbackStore returns a FeedbackStore backed by this store.
func (s *Store) FeedbackStore() driven.FeedbackStore {
	return &feedbackStore{store: s}
}

// QueryLogStore returns a QueryLogStore backed by this store.
func (s *Store) QueryLogStore() driven.QueryLogStore {
	return &queryLogStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_embedding_cache.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}

		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Embedding Cache Store ====================

// embeddingCacheStore implements driven.EmbeddingCacheStore.
type embeddingCacheStore struct {
	store *Store
}

var _ driven.EmbeddingCacheStore = (*embeddingCacheStore)(nil)

// GetEmbeddings returns the stored vectors for the given keys.
func (s *embeddingCacheStore) GetEmbeddings(
	ctx context.Context,
	namespace string,
	keys []string,
) (map[string][]float32, error) {
	result := make(map[string][]float32, len(keys))

	for start := 0; start < len(keys); start += maxVariables {
		end := min(start+maxVariables, len(keys))
		batch := keys[start:end]

		args := make([]any, 0, len(batch)+1)
		args = append(args, namespace)
		for _, k := range batch {
			args = append(args, k)
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(batch)), ",")

		rows, err := s.store.db.QueryContext(ctx,
			`SELECT key, embedding FROM embedding_cache WHERE namespace = ? AND key IN (`+placeholders+`)`,
			args...)
		if err != nil {
			return nil, fmt.Errorf("querying embedding cache: %w", err)
		}

		for rows.Next() {
			var key string
			var blob []byte
			if err := rows.Scan(&key, &blob); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning embedding: %w", err)
			}
			result[key] = bytesToFloat32Slice(blob)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("iterating embeddings: %w", err)
		}
		rows.Close()
	}

	return result, nil
}

// PutEmbeddings stores vectors by key. Existing keys are left untouched.
func (s *embeddingCacheStore) PutEmbeddings(
	ctx context.Context,
	namespace string,
	entries map[string][]float32,
) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO embedding_cache (namespace, key, dimensions, embedding)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(namespace, key) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for key, vec := range entries {
		if len(vec) == 0 {
			return fmt.Errorf("%w: empty embedding for key %s", domain.ErrInvalidInput, key)
		}
		if _, err := stmt.ExecContext(ctx, namespace, key, len(vec), float32SliceToBytes(vec)); err != nil {
			return fmt.Errorf("saving embedding: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// CountEmbeddings returns the number of vectors stored under the namespace.
func (s *embeddingCacheStore) CountEmbeddings(ctx context.Context, namespace string) (int, error) {
	var n int
	err := s.store.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM embedding_cache WHERE namespace = ?`, namespace).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting embeddings: %w", err)
	}
	return n, nil
}

// ==================== Feedback Store ====================

// feedbackStore implements driven.FeedbackStore.
type feedbackStore struct {
	store *Store
}

var _ driven.FeedbackStore = (*feedbackStore)(nil)

// SaveFeedback stores a feedback record and returns its id.
func (s *feedbackStore) SaveFeedback(ctx context.Context, fb *domain.Feedback) (int64, error) {
	if fb == nil {
		return 0, fmt.Errorf("%w: nil feedback", domain.ErrInvalidInput)
	}
	if err := fb.Validate(); err != nil {
		return 0, err
	}

	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now()
	}

	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO feedback (
			timestamp, question, answer,
			accuracy_score, completeness_score, clarity_score, usefulness_score, friendliness_score,
			overall_score, comments, company, session_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		fb.CreatedAt.UTC(), fb.Question, fb.Answer,
		fb.Scores[domain.CriterionAccuracy],
		fb.Scores[domain.CriterionCompleteness],
		fb.Scores[domain.CriterionClarity],
		fb.Scores[domain.CriterionUsefulness],
		fb.Scores[domain.CriterionFriendliness],
		fb.Overall(), fb.Comment, fb.Company, fb.SessionID,
	)
	if err != nil {
		return 0, fmt.Errorf("saving feedback: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading feedback id: %w", err)
	}
	fb.ID = id
	return id, nil
}

// ListFeedbackSince returns feedback created at or after since, newest first.
func (s *feedbackStore) ListFeedbackSince(ctx context.Context, since time.Time) ([]domain.Feedback, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, timestamp, question, answer,
			accuracy_score, completeness_score, clarity_score, usefulness_score, friendliness_score,
			comments, company, session_id
		FROM feedback
		WHERE timestamp >= ?
		ORDER BY timestamp DESC, id DESC
	`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("querying feedback: %w", err)
	}
	defer rows.Close()

	var out []domain.Feedback
	for rows.Next() {
		var fb domain.Feedback
		var accuracy, completeness, clarity, usefulness, friendliness int
		if err := rows.Scan(&fb.ID, &fb.CreatedAt, &fb.Question, &fb.Answer,
			&accuracy, &completeness, &clarity, &usefulness, &friendliness,
			&fb.Comment, &fb.Company, &fb.SessionID); err != nil {
			return nil, fmt.Errorf("scanning feedback: %w", err)
		}
		fb.Scores = map[domain.Criterion]int{
			domain.CriterionAccuracy:     accuracy,
			domain.CriterionCompleteness: completeness,
			domain.CriterionClarity:      clarity,
			domain.CriterionUsefulness:   usefulness,
			domain.CriterionFriendliness: friendliness,
		}
		out = append(out, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating feedback: %w", err)
	}
	return out, nil
}

// ==================== Query Log Store ====================

// queryLogStore implements driven.QueryLogStore.
type queryLogStore struct {
	store *Store
}

var _ driven.QueryLogStore = (*queryLogStore)(nil)

// AppendQueryLog records one processed question.
func (s *queryLogStore) AppendQueryLog(ctx context.Context, entry domain.PerformanceEntry) error {
	companies, err := json.Marshal(entry.Companies)
	if err != nil {
		return fmt.Errorf("marshalling companies: %w", err)
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO query_log (timestamp, question, companies, execution_time, status, success, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.Timestamp.UTC(), entry.Question, string(companies), entry.ExecutionTime,
		string(entry.Status), entry.Success, entry.Error)
	if err != nil {
		return fmt.Errorf("saving query log: %w", err)
	}
	return nil
}

// ListQueryLog returns entries in chronological order.
func (s *queryLogStore) ListQueryLog(ctx context.Context, limit int) ([]domain.PerformanceEntry, error) {
	query := `
		SELECT timestamp, question, companies, execution_time, status, success, error
		FROM query_log ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying query log: %w", err)
	}
	defer rows.Close()

	var out []domain.PerformanceEntry
	for rows.Next() {
		var e domain.PerformanceEntry
		var companies, status string
		if err := rows.Scan(&e.Timestamp, &e.Question, &companies, &e.ExecutionTime,
			&status, &e.Success, &e.Error); err != nil {
			return nil, fmt.Errorf("scanning query log: %w", err)
		}
		if companies != "" && companies != "null" {
			if err := json.Unmarshal([]byte(companies), &e.Companies); err != nil {
				return nil, fmt.Errorf("unmarshalling companies: %w", err)
			}
		}
		e.Status = domain.AnswerStatus(status)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query log: %w", err)
	}

	// Rows were read newest first so LIMIT keeps the most recent.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// ClearQueryLog removes every entry.
func (s *queryLogStore) ClearQueryLog(ctx context.Context) error {
	if _, err := s.store.db.ExecContext(ctx, `DELETE FROM query_log`); err != nil {
		return fmt.Errorf("clearing query log: %w", err)
	}
	return nil
}

// ==================== Helpers ====================

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
