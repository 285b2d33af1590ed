package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/baseline-analyzer/internal/analyzer"
	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
	"github.com/JakeFAU/baseline-analyzer/internal/features"
	"github.com/JakeFAU/baseline-analyzer/internal/hash/sha256"
	"github.com/JakeFAU/baseline-analyzer/internal/report"
)

// Listing bounds for GET /v1/analyses.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

const maxBodyBytes = 1 << 20

type analyzeRequest struct {
	URL string `json:"url"`
}

type urlsRequest struct {
	URLs []string `json:"urls"`
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(s.logger, w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.URL == "" {
		writeError(s.logger, w, http.StatusBadRequest, "URL is required")
		return
	}
	result, err := s.analyzer.Analyze(r.Context(), req.URL)
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to analyze website")
		return
	}
	s.save(r, result)
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) bulk(w http.ResponseWriter, r *http.Request) {
	var req urlsRequest
	if !s.decode(w, r, &req) {
		return
	}
	out, err := s.analyzer.Bulk(r.Context(), req.URLs)
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to perform bulk analysis")
		return
	}
	for _, item := range out.Results {
		if item.Analysis != nil {
			s.save(r, *item.Analysis)
		}
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) compare(w http.ResponseWriter, r *http.Request) {
	var req urlsRequest
	if !s.decode(w, r, &req) {
		return
	}
	out, err := s.analyzer.Compare(r.Context(), req.URLs)
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to compare websites")
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

// save stores a finished synchronous analysis. A storage failure does not
// fail the request; the caller already has the result.
func (s *Server) save(r *http.Request, result baseline.AnalysisResult) {
	if err := s.store.SaveAnalysis(r.Context(), result); err != nil {
		s.logger.Error("store analysis failed",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("analysis_id", result.ID),
			zap.Error(err),
		)
	}
}

func (s *Server) submitAnalysis(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		writeError(s.logger, w, http.StatusServiceUnavailable, "asynchronous analysis is disabled")
		return
	}
	var req analyzeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.URL == "" {
		writeError(s.logger, w, http.StatusBadRequest, "URL is required")
		return
	}
	job, err := s.jobs.Submit(r.Context(), req.URL)
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to submit analysis")
		return
	}
	w.Header().Set("Location", "/v1/analyses/"+job.ID)
	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"analysis_id": job.ID,
		"status":      string(job.Status),
	})
}

func (s *Server) listAnalyses(w http.ResponseWriter, r *http.Request) {
	limit := DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(s.logger, w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, MaxListLimit)
	}
	summaries, err := s.store.ListAnalyses(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to list analyses")
		return
	}
	if summaries == nil {
		summaries = []baseline.AnalysisSummary{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"analyses": summaries, "count": len(summaries)})
}

// getAnalysis serves a stored result, or the job status while an
// asynchronous analysis is still pending.
func (s *Server) getAnalysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "analysis_id")
	result, err := s.store.GetAnalysis(r.Context(), id)
	if err == nil {
		s.writeCached(w, r, result)
		return
	}
	if !errors.Is(err, baseline.ErrNotFound) {
		s.writeServiceError(w, r, err, "Failed to load analysis")
		return
	}
	job, jerr := s.store.GetJob(r.Context(), id)
	if jerr != nil {
		s.writeServiceError(w, r, jerr, "Failed to load analysis")
		return
	}
	status := http.StatusAccepted
	if job.Status.IsTerminal() {
		status = http.StatusOK
	}
	s.writeJSON(w, status, map[string]any{"job": job})
}

func (s *Server) writeCached(w http.ResponseWriter, r *http.Request, result baseline.AnalysisResult) {
	body, err := json.Marshal(result)
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to encode analysis")
		return
	}
	etag := sha256.ETag(body)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "private, max-age=0, must-revalidate")
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(append(body, '\n')); err != nil {
		s.logger.Error("write analysis failed", zap.Error(err))
	}
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	typ, err := report.ParseType(r.URL.Query().Get("type"))
	if err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}
	result, err := s.store.GetAnalysis(r.Context(), chi.URLParam(r, "analysis_id"))
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to load analysis")
		return
	}
	doc, err := s.reports.Render(result, typ, format)
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to generate report")
		return
	}
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Body); err != nil {
		s.logger.Error("write report failed", zap.Error(err))
	}
}

type badgeResponse struct {
	AnalysisID string         `json:"analysisId"`
	URL        string         `json:"url"`
	Score      int            `json:"score"`
	Badge      baseline.Badge `json:"badge"`
}

func (s *Server) getBadge(w http.ResponseWriter, r *http.Request) {
	result, err := s.store.GetAnalysis(r.Context(), chi.URLParam(r, "analysis_id"))
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to load analysis")
		return
	}
	s.writeJSON(w, http.StatusOK, badgeResponse{
		AnalysisID: result.ID,
		URL:        result.URL,
		Score:      result.Overall.CategoryScore,
		Badge:      analyzer.Badge(result),
	})
}

type catalogFeature struct {
	ID       string                   `json:"id"`
	Name     string                   `json:"name"`
	Category baseline.FeatureCategory `json:"category"`
	Impact   string                   `json:"impact"`
}

type catalogPartition struct {
	Year     int              `json:"year"`
	Count    int              `json:"count"`
	Features []catalogFeature `json:"features"`
}

type catalogSummary struct {
	Total      int                              `json:"total"`
	Partitions []catalogPartition               `json:"partitions"`
	Categories map[baseline.FeatureCategory]int `json:"categories"`
}

func (s *Server) listFeatures(w http.ResponseWriter, _ *http.Request) {
	if s.catalog == nil {
		writeError(s.logger, w, http.StatusServiceUnavailable, "feature catalog is not loaded")
		return
	}
	s.writeJSON(w, http.StatusOK, summarizeCatalog(s.catalog))
}

func summarizeCatalog(c *features.Catalog) catalogSummary {
	out := catalogSummary{
		Total:      c.Len(),
		Partitions: []catalogPartition{},
		Categories: map[baseline.FeatureCategory]int{},
	}
	for _, f := range c.Features() {
		out.Categories[f.Category()]++
	}
	for _, year := range []int{features.Year2024, features.Year2025} {
		feats := c.Partition(year)
		p := catalogPartition{Year: year, Count: len(feats), Features: make([]catalogFeature, 0, len(feats))}
		for _, f := range feats {
			p.Features = append(p.Features, catalogFeature{ID: f.ID, Name: f.Name, Category: f.Category(), Impact: f.Impact()})
		}
		out.Partitions = append(out.Partitions, p)
	}
	return out
}
