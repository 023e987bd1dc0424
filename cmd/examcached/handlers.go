package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/declanmoore/examcache"
	"github.com/declanmoore/examcache/diagnostics"
	"github.com/go-chi/chi/v5"
)

type handler struct {
	pipeline *examcache.Pipeline
	cfg      examcache.Config
}

func newHandler(p *examcache.Pipeline, cfg examcache.Config) *handler {
	return &handler{pipeline: p, cfg: cfg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"cache_root":   h.cfg.CacheRoot,
		"dpi":          h.cfg.DPI,
		"search_index": h.cfg.SearchIndex.Enabled,
		"diagnostics":  h.cfg.Diagnostics.Enabled,
	})
}

type extractRequest struct {
	QPPath string `json:"qp_path"`
}

func (h *handler) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.QPPath == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "qp_path is required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	result := h.pipeline.ExtractPDF(ctx, req.QPPath)
	if result.Err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": result.Err.Error()})
		return
	}

	if err := h.pipeline.WriteDiagnosticsReport(result.ExamCode); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	succeeded := 0
	for _, q := range result.Questions {
		if q.Err == nil {
			succeeded++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"exam_code": result.ExamCode,
		"extracted": succeeded,
		"total":     len(result.Questions),
	})
}

func (h *handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "q is required"})
		return
	}
	examCode := r.URL.Query().Get("exam_code")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	results, err := h.pipeline.Search(r.Context(), query, examCode, limit)
	if err != nil {
		if errors.Is(err, examcache.ErrSearchIndexDisabled) {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results, "count": len(results)})
}

func (h *handler) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	examCode := chi.URLParam(r, "examCode")
	path := filepath.Join(h.cfg.CacheRoot, examCode, "_metadata", "detection_diagnostics.json")

	data, err := os.ReadFile(path)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no diagnostics report for " + examCode})
		return
	}

	var report diagnostics.Report
	if err := json.Unmarshal(data, &report); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "corrupt diagnostics report"})
		return
	}
	writeJSON(w, http.StatusOK, report)
}
