package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/tbellec/ladingd/constants"
	"github.com/tbellec/ladingd/internal/capability"
	"github.com/tbellec/ladingd/internal/cascade"
	"github.com/tbellec/ladingd/internal/common"
	"github.com/tbellec/ladingd/internal/record"
	"github.com/tbellec/ladingd/internal/strategy"
)

type extractResponse struct {
	JobID      string              `json:"job_id,omitempty"`
	Status     constants.JobStatus `json:"status"`
	Method     string              `json:"method"`
	Confidence float32             `json:"confidence"`
	DurationMS int64               `json:"duration_ms"`
	Record     record.BillOfLading `json:"record"`
	Attempts   []cascade.Attempt   `json:"attempts"`
}

type errorResponse struct {
	Error  string              `json:"error"`
	Status constants.JobStatus `json:"status,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCapabilities(w http.ResponseWriter, _ *http.Request) {
	out := make(map[string]capability.Info, len(capability.Backends))
	for _, b := range capability.Backends {
		out[string(b)] = s.caps.Get(b)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.cfg.Cascade.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = 32 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request", constants.JobStatusRejected)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field", constants.JobStatusRejected)
		return
	}
	defer file.Close()

	format := constants.MapExtToFormat(filepath.Ext(header.Filename))
	if format == "" {
		format = constants.MapContentTypeToFormat(header.Header.Get("Content-Type"))
	}
	if format == "" {
		s.recordRejected(r, header.Filename, "unsupported media type")
		writeError(w, http.StatusBadRequest, "unsupported media type", constants.JobStatusRejected)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read upload", constants.JobStatusRejected)
		return
	}

	path, cleanup, err := s.spool(header.Filename, data)
	if err != nil {
		s.logger.Error("http.extract.spool_error", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "internal error", "")
		return
	}
	defer cleanup()

	opts := strategy.Options{
		DisableLayout: formBool(r, "disable_layout"),
		DisableLLM:    formBool(r, "disable_llm"),
		PreferredOCR:  r.FormValue("ocr_engine"),
	}

	var jobID uuid.UUID
	if s.jobs != nil {
		jobID, err = s.jobs.Create(r.Context(), header.Filename, format)
		if err != nil {
			s.logger.Error("http.extract.job_create_error", "error", err.Error())
		}
	}

	res, err := s.exec.Execute(r.Context(), cascade.Input{
		Path:     path,
		Data:     data,
		Filename: header.Filename,
		Format:   format,
	}, opts)
	if err != nil {
		s.finishJob(r, jobID, constants.JobStatusRejected, res, err.Error())
		if common.IsFatalInput(err) {
			writeError(w, http.StatusBadRequest, err.Error(), constants.JobStatusRejected)
			return
		}
		s.logger.Error("http.extract.error", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "extraction failed", "")
		return
	}

	s.finishJob(r, jobID, res.Status, res, "")

	resp := extractResponse{
		Status:     res.Status,
		Method:     res.Method,
		Confidence: res.Record.ExtractionConfidence,
		DurationMS: res.Duration.Milliseconds(),
		Record:     res.Record,
		Attempts:   res.Attempts,
	}
	if jobID != uuid.Nil {
		resp.JobID = jobID.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		writeError(w, http.StatusNotFound, "job history not configured", "")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	jobs, err := s.jobs.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("http.jobs.list_error", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "internal error", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		writeError(w, http.StatusNotFound, "job history not configured", "")
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id", "")
		return
	}
	job, err := s.jobs.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found", "")
			return
		}
		s.logger.Error("http.jobs.get_error", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "internal error", "")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleExportJobs(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeError(w, http.StatusNotFound, "job history not configured", "")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	buf, err := s.exporter.ExportJobsXLSX(r.Context(), limit)
	if err != nil {
		s.logger.Error("http.jobs.export_error", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "internal error", "")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="extractions.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf)
}

// spool writes the upload to the artifact dir so the CLI-based OCR
// engines can read it from disk.
func (s *Server) spool(filename string, data []byte) (string, func(), error) {
	dir := s.cfg.OCR.ArtifactDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, err
	}
	f, err := os.CreateTemp(dir, "upload-*"+filepath.Ext(filename))
	if err != nil {
		return "", nil, err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", nil, err
	}
	return f.Name(), func() { os.Remove(f.Name()) }, nil
}

func (s *Server) recordRejected(r *http.Request, filename, reason string) {
	if s.jobs == nil {
		return
	}
	id, err := s.jobs.Create(r.Context(), filename, "")
	if err != nil {
		return
	}
	_ = s.jobs.Finish(r.Context(), id, constants.JobStatusRejected, "", 0, 0, nil, reason)
}

func (s *Server) finishJob(r *http.Request, id uuid.UUID, status constants.JobStatus, res cascade.Result, errMsg string) {
	if s.jobs == nil || id == uuid.Nil {
		return
	}
	var fields json.RawMessage
	if res.Record.ExtractionMethod != "" {
		if raw, err := json.Marshal(res.Record); err == nil {
			fields = raw
		}
	}
	err := s.jobs.Finish(r.Context(), id, status,
		res.Method, res.Record.ExtractionConfidence, res.Duration, fields, errMsg)
	if err != nil {
		s.logger.Error("http.extract.job_finish_error", "error", err.Error())
	}
}

func formBool(r *http.Request, key string) bool {
	v := r.FormValue(key)
	return v == "true" || v == "1"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, jobStatus constants.JobStatus) {
	writeJSON(w, status, errorResponse{Error: msg, Status: jobStatus})
}
