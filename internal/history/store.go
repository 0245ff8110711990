package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"transcribe-client/internal/domain"
)

// Record is one settled run retained locally for the history view.
type Record struct {
	ID         string          `json:"id"`
	InputPath  string          `json:"inputPath"`
	JobID      string          `json:"jobId,omitempty"`
	State      domain.RunState `json:"state"`
	SrtURL     string          `json:"srtUrl,omitempty"`
	FileURL    string          `json:"fileUrl,omitempty"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	FinishedAt time.Time       `json:"finishedAt"`
}

// Store keeps settled runs in a local sqlite database.
type Store struct {
	db *sql.DB
}

// Open creates parent directories, opens the database, and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  input_path TEXT NOT NULL,
  job_id TEXT,
  state TEXT NOT NULL,
  srt_url TEXT,
  file_url TEXT,
  error_message TEXT,
  created_at INTEGER NOT NULL,
  finished_at INTEGER NOT NULL
);
`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Save upserts one settled run. A run restarted under the same identifier
// overwrites its previous record.
func (s *Store) Save(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs
           (id, input_path, job_id, state, srt_url, file_url, error_message, created_at, finished_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.InputPath,
		nullable(rec.JobID),
		string(rec.State),
		nullable(rec.SrtURL),
		nullable(rec.FileURL),
		nullable(rec.Error),
		rec.CreatedAt.UnixMilli(),
		rec.FinishedAt.UnixMilli(),
	)
	return err
}

// List returns the most recently finished runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 25
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, input_path, job_id, state, srt_url, file_url, error_message, created_at, finished_at
       FROM runs ORDER BY finished_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			id, inputPath, state   string
			jobID, srtURL, fileURL sql.NullString
			errorMsg               sql.NullString
			createdMs, finishedMs  int64
		)
		if err := rows.Scan(&id, &inputPath, &jobID, &state, &srtURL, &fileURL, &errorMsg, &createdMs, &finishedMs); err != nil {
			return nil, err
		}
		rec := Record{
			ID:         id,
			InputPath:  inputPath,
			State:      domain.RunState(state),
			CreatedAt:  time.UnixMilli(createdMs),
			FinishedAt: time.UnixMilli(finishedMs),
		}
		if jobID.Valid {
			rec.JobID = jobID.String
		}
		if srtURL.Valid {
			rec.SrtURL = srtURL.String
		}
		if fileURL.Valid {
			rec.FileURL = fileURL.String
		}
		if errorMsg.Valid {
			rec.Error = errorMsg.String
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
