package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/csvdatasets/internal/auth"
	"github.com/JonMunkholm/csvdatasets/internal/core"
	"github.com/JonMunkholm/csvdatasets/internal/files"
	"github.com/JonMunkholm/csvdatasets/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// maxJSONBody bounds the process-csv request body.
const maxJSONBody = 1 << 20

// multipartOverhead is slack on top of the file size limit for form
// boundaries and headers.
const multipartOverhead = 1 << 20

// ProcessRequest is the body of POST /api/process-csv.
type ProcessRequest struct {
	DatasetName string `json:"datasetName"`
	FilePath    string `json:"filePath"`
}

// ProcessResponse is the success body of POST /api/process-csv.
type ProcessResponse struct {
	Success bool               `json:"success"`
	Dataset *core.IngestResult `json:"dataset"`
}

// UploadResponse is the body of POST /api/files.
type UploadResponse struct {
	FilePath string `json:"filePath"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string             `json:"status"`
	Ingest core.LimiterStatus `json:"ingest"`
}

// handleProcessCSV ingests a stored file as a new dataset. Every failure,
// whatever its kind, is reported as 400.
func (s *Server) handleProcessCSV(w http.ResponseWriter, r *http.Request) {
	owner, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, r, errMissingCaller, http.StatusBadRequest)
		return
	}

	var req ProcessRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil {
		respondError(w, r, fmt.Errorf("%w: %v", errInvalidBody, err), http.StatusBadRequest)
		return
	}

	// A client that disconnects mid-ingest must not abort the batches.
	ctx := context.WithoutCancel(r.Context())

	result, err := s.service.Ingest(ctx, owner, req.DatasetName, req.FilePath)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	writeJSON(w, ProcessResponse{Success: true, Dataset: result})
}

// handleUploadFile stores a multipart "file" field under the caller's
// prefix and returns the path for process-csv.
func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	owner, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, r, errMissingCaller, http.StatusBadRequest)
		return
	}

	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			respondError(w, r, files.ErrTooLarge, http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, r, fmt.Errorf("%w: %v", errNoFile, err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	path, err := s.service.SaveUpload(r.Context(), owner, header.Filename, file)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, files.ErrTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		respondError(w, r, err, status)
		return
	}

	writeJSONStatus(w, http.StatusCreated, UploadResponse{FilePath: path})
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	owner, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, r, errMissingCaller, http.StatusBadRequest)
		return
	}

	datasets, err := s.service.ListDatasets(r.Context(), owner)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if datasets == nil {
		datasets = []storage.Dataset{}
	}

	writeJSON(w, map[string]any{"datasets": datasets})
}

func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	owner, id, ok := s.datasetTarget(w, r)
	if !ok {
		return
	}

	ds, err := s.service.GetDataset(r.Context(), owner, id)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	writeJSON(w, ds)
}

func (s *Server) handleListRows(w http.ResponseWriter, r *http.Request) {
	owner, id, ok := s.datasetTarget(w, r)
	if !ok {
		return
	}

	rows, err := s.service.ListRows(r.Context(), owner, id, parseIntParam(r, "limit", 0))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	if rows == nil {
		rows = []storage.StoredRow{}
	}

	writeJSON(w, map[string]any{"rows": rows})
}

func (s *Server) handleDeleteDataset(w http.ResponseWriter, r *http.Request) {
	owner, id, ok := s.datasetTarget(w, r)
	if !ok {
		return
	}

	if err := s.service.DeleteDataset(r.Context(), owner, id); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleHealth reports liveness and ingestion slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{
		Status: "ok",
		Ingest: s.service.LimiterStatus(),
	})
}

// datasetTarget resolves the caller and the {id} URL parameter, writing
// the error response itself when either is missing.
func (s *Server) datasetTarget(w http.ResponseWriter, r *http.Request) (auth.Identity, uuid.UUID, bool) {
	owner, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, r, errMissingCaller, http.StatusBadRequest)
		return auth.Identity{}, uuid.Nil, false
	}

	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		respondError(w, r, fmt.Errorf("%w %q", errInvalidID, raw), http.StatusBadRequest)
		return auth.Identity{}, uuid.Nil, false
	}
	return owner, id, true
}

func statusFor(err error) int {
	if errors.Is(err, storage.ErrDatasetNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
