package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/crimson-sun/auditexport/internal/exporter"
	"github.com/crimson-sun/auditexport/internal/ledger"
	"github.com/crimson-sun/auditexport/internal/model"
	"github.com/crimson-sun/auditexport/internal/output/export"
)

type exportRequest struct {
	Types []string `json:"types"`
}

type exportResponse struct {
	ExportID       string            `json:"exportId,omitempty"`
	File           string            `json:"file"`
	TotalEntries   int               `json:"totalEntries"`
	Summary        model.Summary     `json:"summary"`
	RequestedTypes []model.EventType `json:"requestedTypes"`
	UnknownTokens  []string          `json:"unknownTokens"`
	TruncatedTypes []model.EventType `json:"truncatedTypes"`
	FailedTypes    []model.EventType `json:"failedTypes"`
	ElapsedMillis  int64             `json:"elapsedMs"`
}

func newExportResponse(res exporter.Result) exportResponse {
	return exportResponse{
		ExportID:       res.ExportID,
		File:           res.File,
		TotalEntries:   len(res.Entries),
		Summary:        res.Summary,
		RequestedTypes: nonNil(res.Requested),
		UnknownTokens:  nonNil(res.Unknown),
		TruncatedTypes: nonNil(res.Truncated),
		FailedTypes:    nonNil(res.Failed),
		ElapsedMillis:  res.Elapsed.Milliseconds(),
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (s *Server) listTypes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.exp.Types().All())
}

func (s *Server) createExport(w http.ResponseWriter, r *http.Request) {
	guildID := strings.TrimSpace(chi.URLParam(r, "guildID"))

	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res, err := s.exp.Run(ctx, guildID, req.Types)
	if err != nil {
		s.logger.Error("export failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("guild", guildID),
			zap.Error(err),
		)
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, export.ErrInvalidGuildID):
			status = http.StatusBadRequest
		case errors.Is(err, context.DeadlineExceeded):
			status = http.StatusGatewayTimeout
		}
		writeError(w, r, status, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, newExportResponse(res))
}

func (s *Server) listExports(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, r, http.StatusNotFound, "export history is disabled")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := s.history.List(r.Context(), chi.URLParam(r, "guildID"), limit)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, nonNil(records))
}

var _ History = (*ledger.Store)(nil)
