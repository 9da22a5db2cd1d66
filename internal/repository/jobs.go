package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tbellec/ladingd/constants"
	"github.com/tbellec/ladingd/internal/common"
)

// Job is one row of the extraction history.
type Job struct {
	ID         uuid.UUID           `json:"id"`
	Filename   string              `json:"filename"`
	Format     constants.Format    `json:"format"`
	Method     string              `json:"method,omitempty"`
	Status     constants.JobStatus `json:"status"`
	Confidence float32             `json:"confidence"`
	DurationMS int64               `json:"duration_ms"`
	Fields     json.RawMessage     `json:"fields,omitempty"`
	Error      string              `json:"error,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}

// JobStore reads and writes extraction_jobs rows.
type JobStore struct {
	db     *DB
	logger *slog.Logger
}

func NewJobStore(db *DB, logger *slog.Logger) *JobStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobStore{db: db, logger: logger}
}

// Create inserts a job in RUNNING state and returns its id.
func (s *JobStore) Create(ctx context.Context, filename string, format constants.Format) (uuid.UUID, error) {
	id := uuid.New()
	q := s.db.rebind(`INSERT INTO extraction_jobs
		(id, filename, format, status, fields, created_at)
		VALUES (?, ?, ?, ?, '{}', ?)`)
	_, err := s.db.ExecContext(ctx, q,
		id.String(), filename, string(format), string(constants.JobStatusRunning), time.Now().UTC())
	if err != nil {
		return uuid.Nil, common.WrapError(err, "insert job")
	}
	return id, nil
}

// Finish records the terminal state of a job.
func (s *JobStore) Finish(ctx context.Context, id uuid.UUID, status constants.JobStatus,
	method string, confidence float32, duration time.Duration, fields json.RawMessage, jobErr string) error {

	if len(fields) == 0 {
		fields = json.RawMessage(`{}`)
	}
	q := s.db.rebind(`UPDATE extraction_jobs
		SET status = ?, method = ?, confidence = ?, duration_ms = ?, fields = ?, error = ?
		WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, q,
		string(status), method, confidence, duration.Milliseconds(), string(fields), jobErr, id.String())
	if err != nil {
		return common.WrapError(err, "update job")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.NewAppError("NOT_FOUND", "job not found", common.ErrNotFound)
	}
	return nil
}

// Get returns one job by id.
func (s *JobStore) Get(ctx context.Context, id uuid.UUID) (*Job, error) {
	q := s.db.rebind(selectJob + ` WHERE id = ?`)
	row := s.db.QueryRowContext(ctx, q, id.String())
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError("NOT_FOUND", "job not found", common.ErrNotFound)
	}
	if err != nil {
		return nil, common.WrapError(err, "query job")
	}
	return job, nil
}

// List returns the most recent jobs, newest first.
func (s *JobStore) List(ctx context.Context, limit int) ([]Job, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := s.db.rebind(selectJob + ` ORDER BY created_at DESC LIMIT ?`)
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, common.WrapError(err, "list jobs")
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, common.WrapError(err, "scan job")
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

const selectJob = `SELECT id, filename, format, method, status, confidence, duration_ms, fields, error, created_at
	FROM extraction_jobs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(r rowScanner) (*Job, error) {
	var (
		job              Job
		id, format, stat string
		fields           string
	)
	err := r.Scan(&id, &job.Filename, &format, &job.Method, &stat,
		&job.Confidence, &job.DurationMS, &fields, &job.Error, &job.CreatedAt)
	if err != nil {
		return nil, err
	}
	job.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	job.Format = constants.Format(format)
	job.Status = constants.JobStatus(stat)
	job.Fields = json.RawMessage(fields)
	return &job, nil
}
