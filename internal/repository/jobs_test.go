package repository

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbellec/ladingd/constants"
	"github.com/tbellec/ladingd/internal/common"
)

func openTestStore(t *testing.T) *JobStore {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "jobs.db")
	db, err := Open(context.Background(), common.DatabaseConfig{DSN: dsn}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewJobStore(db, nil)
}

func TestJobLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, "bl.pdf", constants.PDF)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)

	job, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusRunning, job.Status)
	assert.Equal(t, "bl.pdf", job.Filename)
	assert.Equal(t, constants.PDF, job.Format)
	assert.JSONEq(t, `{}`, string(job.Fields))

	fields := json.RawMessage(`{"bl_number":"MSCUAB123456"}`)
	err = store.Finish(ctx, id, constants.JobStatusCompleted,
		constants.MethodPaddleLLM, 0.92, 1200*time.Millisecond, fields, "")
	require.NoError(t, err)

	job, err = store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusCompleted, job.Status)
	assert.Equal(t, constants.MethodPaddleLLM, job.Method)
	assert.InDelta(t, 0.92, job.Confidence, 0.001)
	assert.Equal(t, int64(1200), job.DurationMS)
	assert.JSONEq(t, string(fields), string(job.Fields))
	assert.Empty(t, job.Error)
}

func TestFinishDefaultsEmptyFields(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, "scan.png", constants.IMAGE)
	require.NoError(t, err)

	err = store.Finish(ctx, id, constants.JobStatusExhausted,
		constants.MethodRegexOnly, 0, 10*time.Millisecond, nil, "")
	require.NoError(t, err)

	job, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(job.Fields))
}

func TestFinishUnknownJob(t *testing.T) {
	store := openTestStore(t)

	err := store.Finish(context.Background(), uuid.New(),
		constants.JobStatusCompleted, "", 0, 0, nil, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetUnknownJob(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Get(context.Background(), uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		id, err := store.Create(ctx, "bl.pdf", constants.PDF)
		require.NoError(t, err)
		ids = append(ids, id)
		time.Sleep(5 * time.Millisecond) // created_at ordering
	}

	jobs, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, ids[2], jobs[0].ID)
	assert.Equal(t, ids[0], jobs[2].ID)

	jobs, err = store.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestRebindPostgres(t *testing.T) {
	d := &DB{driver: "pgx"}
	got := d.rebind(`UPDATE t SET a = ?, b = ? WHERE id = ?`)
	assert.Equal(t, `UPDATE t SET a = $1, b = $2 WHERE id = $3`, got)

	d = &DB{driver: "sqlite"}
	assert.Equal(t, `SELECT ?`, d.rebind(`SELECT ?`))
}
