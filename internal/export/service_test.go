package export

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tbellec/ladingd/constants"
	"github.com/tbellec/ladingd/internal/common"
	"github.com/tbellec/ladingd/internal/repository"
)

func seedStore(t *testing.T) *repository.JobStore {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "export.db")
	db, err := repository.Open(context.Background(), common.DatabaseConfig{DSN: dsn}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return repository.NewJobStore(db, nil)
}

func TestExportJobsXLSX(t *testing.T) {
	store := seedStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, "voyage-042.pdf", constants.PDF)
	require.NoError(t, err)
	fields := json.RawMessage(`{
		"bl_number": "MSCUAB123456",
		"shipper": {"name": "ACME EXPORTS"},
		"consignee": {"name": "GLOBEX IMPORT GMBH"},
		"port_of_loading": {"name": "SINGAPORE"},
		"port_of_discharge": {"name": "HAMBURG"},
		"containers": [{"number": "MSCU1234567"}, {"number": "MSCU7654321"}],
		"extraction_confidence": 0.91,
		"extraction_method": "paddleocr_llm"
	}`)
	require.NoError(t, store.Finish(ctx, id, constants.JobStatusCompleted,
		constants.MethodPaddleLLM, 0.91, 950*time.Millisecond, fields, ""))

	svc := NewService(store, nil)
	data, err := svc.ExportJobsXLSX(ctx, 100)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Extractions")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, []string{
		"Date", "Filename", "Format", "Status", "Method", "Confidence",
		"Duration (ms)", "B/L Number", "Shipper", "Consignee",
		"Port of Loading", "Port of Discharge", "Containers",
	}, rows[0])

	got := rows[1]
	assert.Equal(t, "voyage-042.pdf", got[1])
	assert.Equal(t, "PDF", got[2])
	assert.Equal(t, "COMPLETED", got[3])
	assert.Equal(t, "paddleocr_llm", got[4])
	assert.Equal(t, "0.91", got[5])
	assert.Equal(t, "MSCUAB123456", got[7])
	assert.Equal(t, "ACME EXPORTS", got[8])
	assert.Equal(t, "GLOBEX IMPORT GMBH", got[9])
	assert.Equal(t, "SINGAPORE", got[10])
	assert.Equal(t, "HAMBURG", got[11])
	assert.Equal(t, "MSCU1234567, MSCU7654321", got[12])
}

func TestExportEmptyHistory(t *testing.T) {
	store := seedStore(t)
	svc := NewService(store, nil)

	data, err := svc.ExportJobsXLSX(context.Background(), 100)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Extractions")
	require.NoError(t, err)
	require.Len(t, rows, 1) // header only
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	assert.Equal(t, "abcdefgh", truncate("abcdefgh", 0))
}
