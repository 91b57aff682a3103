package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/config"
	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/features"
	"github.com/rjz46/Cornell-Conversational-Analysis-Toolkit/internal/lattice"
)

// ErrNotFound is returned when an entity is not found.
type ErrNotFound struct {
	Entity string
	ID     string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// IsNotFound returns true if err is or wraps an ErrNotFound.
func IsNotFound(err error) bool {
	var nf *ErrNotFound
	return errors.As(err, &nf)
}

// Run is one feature extraction over a corpus.
type Run struct {
	ID        string        `json:"id" yaml:"id"`
	Corpus    string        `json:"corpus" yaml:"corpus"`
	Config    config.Config `json:"config" yaml:"config"`
	Threads   int           `json:"threads" yaml:"threads"`
	CreatedAt time.Time     `json:"created_at" yaml:"created_at"`
}

// RunParams describes a new run.
type RunParams struct {
	Corpus string
	Config config.Config
}

// StoredThread is a persisted ThreadFeatures row.
type StoredThread struct {
	RunID        string         `json:"run_id" yaml:"run_id"`
	ThreadID     string         `json:"thread_id" yaml:"thread_id"`
	Root         string         `json:"root" yaml:"root"`
	Fingerprint  uint64         `json:"fingerprint" yaml:"fingerprint"`
	Utterances   int            `json:"utterances" yaml:"utterances"`
	Participants int            `json:"participants" yaml:"participants"`
	Features     map[string]int `json:"features" yaml:"features"`
	Result       lattice.Result `json:"result" yaml:"result"`
}

// CreateRun records a new run.
func (s *Store) CreateRun(ctx context.Context, p RunParams) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := json.Marshal(p.Config)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	run := &Run{
		ID:        uuid.New().String(),
		Corpus:    p.Corpus,
		Config:    p.Config,
		CreatedAt: time.UnixMilli(time.Now().UnixMilli()).UTC(),
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, corpus, config, threads, created_at)
		VALUES (?, ?, ?, 0, ?)
	`, run.ID, run.Corpus, string(cfg), run.CreatedAt.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// GetRun retrieves a run by id.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, corpus, config, threads, created_at FROM runs WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &ErrNotFound{Entity: "run", ID: id}
	}
	return run, err
}

// ListRuns returns the most recent runs first. A limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, corpus, config, threads, created_at FROM runs
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run       Run
		cfg       string
		createdAt int64
	)
	if err := row.Scan(&run.ID, &run.Corpus, &cfg, &run.Threads, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	if err := json.Unmarshal([]byte(cfg), &run.Config); err != nil {
		return nil, fmt.Errorf("unmarshal run %s config: %w", run.ID, err)
	}
	run.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &run, nil
}

// SaveThread stores the features of one thread under a run, replacing any
// previous row for the same thread.
func (s *Store) SaveThread(ctx context.Context, runID string, tf features.ThreadFeatures) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	feats, err := json.Marshal(tf.Features)
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}
	result, err := json.Marshal(tf.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, runID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return &ErrNotFound{Entity: "run", ID: runID}
	}
	if err != nil {
		return fmt.Errorf("lookup run: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO thread_features (run_id, thread_id, root, fingerprint, utterances, participants, features, result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id, thread_id) DO UPDATE SET
			root = excluded.root,
			fingerprint = excluded.fingerprint,
			utterances = excluded.utterances,
			participants = excluded.participants,
			features = excluded.features,
			result = excluded.result
	`, runID, tf.ThreadID, tf.Root, formatFingerprint(tf.Fingerprint),
		tf.Utterances, tf.Participants, string(feats), string(result))
	if err != nil {
		return fmt.Errorf("insert thread %s: %w", tf.ThreadID, err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE runs SET threads = (SELECT COUNT(*) FROM thread_features WHERE run_id = ?)
		WHERE id = ?
	`, runID, runID)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}

	return tx.Commit()
}

// ThreadFeatures returns the threads stored under a run, ordered by thread id.
func (s *Store) ThreadFeatures(ctx context.Context, runID string) ([]StoredThread, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT thread_id, root, fingerprint, utterances, participants, features, result
		FROM thread_features WHERE run_id = ?
		ORDER BY thread_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query threads: %w", err)
	}
	defer rows.Close()

	var out []StoredThread
	for rows.Next() {
		st := StoredThread{RunID: runID}
		var fp, feats, result string
		if err := rows.Scan(&st.ThreadID, &st.Root, &fp, &st.Utterances, &st.Participants, &feats, &result); err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		if st.Fingerprint, err = strconv.ParseUint(fp, 16, 64); err != nil {
			return nil, fmt.Errorf("thread %s fingerprint: %w", st.ThreadID, err)
		}
		if err := json.Unmarshal([]byte(feats), &st.Features); err != nil {
			return nil, fmt.Errorf("thread %s features: %w", st.ThreadID, err)
		}
		if err := json.Unmarshal([]byte(result), &st.Result); err != nil {
			return nil, fmt.Errorf("thread %s result: %w", st.ThreadID, err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate threads: %w", err)
	}
	return out, nil
}

// HasFingerprint reports whether any run already stored a thread with the
// given fingerprint.
func (s *Store) HasFingerprint(ctx context.Context, fp uint64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM thread_features WHERE fingerprint = ?
	`, formatFingerprint(fp)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("lookup fingerprint: %w", err)
	}
	return n > 0, nil
}

// SQLite integers are signed.
func formatFingerprint(fp uint64) string {
	return fmt.Sprintf("%016x", fp)
}
