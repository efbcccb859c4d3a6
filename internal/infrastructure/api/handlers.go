package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/seoremedy/internal/domain/entities"
)

const (
	maxBodyBytes        = 4 << 20
	defaultHistoryLimit = 20
)

var errDecode = errors.New("invalid request body")

type startBatchRequest struct {
	BatchID     string `json:"batchId"`
	Description string `json:"description"`
}

type recordChangeRequest struct {
	FilePath   string         `json:"filePath"`
	ChangeType string         `json:"changeType"`
	Metadata   map[string]any `json:"metadata"`
}

type finalizeRequest struct {
	Approved *bool `json:"approved"`
}

type crawlRequest struct {
	SeedURL string `json:"seedUrl"`
	entities.CrawlOverrides
}

type runRequest struct {
	SeedURL string                  `json:"seedUrl"`
	DryRun  bool                    `json:"dryRun"`
	Crawl   entities.CrawlOverrides `json:"crawl"`
}

func (it *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (it *Server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	var req crawlRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondWithError(w, err)
		return
	}
	if req.SeedURL == "" {
		respondWithError(w, fmt.Errorf("%w: seedUrl is required", errDecode))
		return
	}
	opts := it.settings.ResolveCrawlOptions(req.SeedURL, req.CrawlOverrides)

	result, err := it.crawl.Execute(r.Context(), opts)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

func (it *Server) handleStartBatch(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "siteID")
	var req startBatchRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondWithError(w, err)
		return
	}

	branch, err := it.tracking.StartBatch(r.Context(), siteID, req.BatchID, req.Description)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]string{
		"siteId":  siteID,
		"batchId": req.BatchID,
		"branch":  branch,
	})
}

func (it *Server) handleGetOpenBatch(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "siteID")
	batch, err := it.tracking.OpenBatch(r.Context(), siteID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	if batch == nil {
		respondWithJSON(w, http.StatusNotFound, map[string]string{
			"error": entities.ErrNoOpenBatch.Error(),
			"kind":  string(entities.KindNotFound),
		})
		return
	}
	respondWithJSON(w, http.StatusOK, batch)
}

func (it *Server) handleRecordChange(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "siteID")
	var req recordChangeRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondWithError(w, err)
		return
	}
	changeType, err := entities.ParseChangeType(req.ChangeType)
	if err != nil {
		respondWithError(w, err)
		return
	}

	ref, err := it.tracking.RecordChange(r.Context(), siteID, req.FilePath, changeType, req.Metadata)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]string{
		"siteId":   siteID,
		"filePath": req.FilePath,
		"commit":   string(ref),
	})
}

func (it *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	batch, err := it.tracking.GetBatch(r.Context(), chi.URLParam(r, "siteID"), chi.URLParam(r, "batchID"))
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, batch)
}

func (it *Server) handleFinalizeBatch(w http.ResponseWriter, r *http.Request) {
	var req finalizeRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondWithError(w, err)
		return
	}
	if req.Approved == nil {
		respondWithError(w, fmt.Errorf("%w: approved is required", errDecode))
		return
	}

	result, err := it.tracking.FinalizeBatch(
		r.Context(), chi.URLParam(r, "siteID"), chi.URLParam(r, "batchID"), *req.Approved,
	)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

func (it *Server) handleRollbackBatch(w http.ResponseWriter, r *http.Request) {
	result, err := it.tracking.RollbackBatch(r.Context(), chi.URLParam(r, "siteID"), chi.URLParam(r, "batchID"))
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

func (it *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondWithError(w, fmt.Errorf("%w: limit must be a positive integer", errDecode))
			return
		}
		limit = parsed
	}

	history, err := it.tracking.GetChangeHistory(r.Context(), chi.URLParam(r, "siteID"), limit)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, history)
}

func (it *Server) handleImplementFixes(w http.ResponseWriter, r *http.Request) {
	var fixes []entities.Fix
	if err := decodeBody(w, r, &fixes); err != nil {
		respondWithError(w, err)
		return
	}

	result, err := it.pipeline.ImplementFixes(r.Context(), chi.URLParam(r, "siteID"), fixes)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

func (it *Server) handleRollbackFixes(w http.ResponseWriter, r *http.Request) {
	var fixes []entities.Fix
	if err := decodeBody(w, r, &fixes); err != nil {
		respondWithError(w, err)
		return
	}

	result, err := it.pipeline.RollbackFixes(r.Context(), chi.URLParam(r, "siteID"), fixes)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

func (it *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondWithError(w, err)
		return
	}
	opts := entities.PipelineOptions{
		SiteID:  chi.URLParam(r, "siteID"),
		SeedURL: req.SeedURL,
		DryRun:  req.DryRun,
		Crawl:   req.Crawl,
	}

	report, err := it.pipeline.Execute(r.Context(), opts)
	if err != nil {
		logger.Errorf("Run for site %q failed: %v", opts.SiteID, err)
		respondWithJSON(w, statusFor(err), map[string]any{
			"error":  err.Error(),
			"kind":   string(entities.KindOf(err)),
			"report": report,
		})
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}

// --- Helper Functions ---

// decodeBody decodes a JSON body; an empty body leaves target untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, target any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %w", errDecode, err)
	}
	return nil
}

// statusFor maps an error to the HTTP status of its kind.
func statusFor(err error) int {
	if errors.Is(err, errDecode) {
		return http.StatusBadRequest
	}
	switch entities.KindOf(err) {
	case entities.KindNotFound:
		return http.StatusNotFound
	case entities.KindInvalidState:
		return http.StatusConflict
	case entities.KindPolicyViolation:
		return http.StatusUnprocessableEntity
	case entities.KindNavigationFailure:
		return http.StatusBadGateway
	case entities.KindExternalToolFailure, entities.KindUnknown:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

func respondWithError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Errorf("Request failed: %v", err)
	}
	respondWithJSON(w, status, map[string]string{
		"error": err.Error(),
		"kind":  string(entities.KindOf(err)),
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		logger.Errorf("Failed to encode response: %v", err)
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
