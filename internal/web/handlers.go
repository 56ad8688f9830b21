package web

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bakeledger/dataport/internal/core"
	"github.com/bakeledger/dataport/internal/logging"
	"github.com/go-chi/chi/v5"
)

// importResponse is the envelope returned by the import endpoints. It
// embeds the batch result so the per-row outcome fields keep their names.
type importResponse struct {
	Success bool `json:"success"`
	*core.ImportResult
}

// userID resolves the acting user from the X-User-ID header, falling back
// to the configured default.
func (s *Server) userID(r *http.Request) int64 {
	if raw := r.Header.Get("X-User-ID"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			return id
		}
	}
	return s.cfg.Import.DefaultUserID
}

// readPayload reads the request body up to the configured size cap.
func (s *Server) readPayload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body := http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxPayloadSize)
	defer body.Close()
	return io.ReadAll(body)
}

// handleImport ingests a CSV, XLSX or JSON payload. The target entity kind
// is auto-detected from the payload unless ?kind= pins it.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	s.runImport(w, r, "")
}

// handleImportLegacy ingests data exported from a predecessor system.
// Enum values are translated through the legacy adapter; ?source= names
// the system (default "legacy").
func (s *Server) handleImportLegacy(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "" {
		source = "legacy"
	}
	s.runImport(w, r, source)
}

func (s *Server) runImport(w http.ResponseWriter, r *http.Request, sourceSystem string) {
	ctx := r.Context()

	payload, err := s.readPayload(w, r)
	if err != nil {
		writeError(ctx, w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}
	if len(payload) == 0 {
		writeError(ctx, w, http.StatusBadRequest, "empty payload")
		return
	}

	opts := core.ImportOptions{
		SourceSystem: sourceSystem,
		UserID:       s.userID(r),
	}

	if raw := r.URL.Query().Get("kind"); raw != "" {
		kind, ok := core.ParseKind(raw)
		if !ok {
			writeError(ctx, w, http.StatusBadRequest, fmt.Sprintf("unknown entity kind %q", raw))
			return
		}
		opts.Kind = kind
	}

	if raw := r.URL.Query().Get("include"); raw != "" {
		include := make(map[core.EntityKind]bool)
		for _, part := range strings.Split(raw, ",") {
			kind, ok := core.ParseKind(strings.TrimSpace(part))
			if !ok {
				writeError(ctx, w, http.StatusBadRequest, fmt.Sprintf("unknown entity kind %q in include list", part))
				return
			}
			include[kind] = true
		}
		opts.Include = include
	}

	result, err := s.service.ImportBatch(ctx, payload, opts)
	if err != nil {
		var parseErr *core.ParseError
		switch {
		case errors.As(err, &parseErr), errors.Is(err, core.ErrUnknownKind):
			writeError(ctx, w, http.StatusBadRequest, err.Error())
		default:
			writeError(ctx, w, http.StatusInternalServerError, "import failed")
		}
		return
	}

	writeJSON(w, importResponse{Success: true, ImportResult: result})
}

// handleExportSnapshot returns the full JSON snapshot for the acting user.
func (s *Server) handleExportSnapshot(w http.ResponseWriter, r *http.Request) {
	envelope := s.service.ExportSnapshot(r.Context(), s.userID(r))
	writeJSON(w, envelope)
}

// handleExportCSV returns the tabular export of one entity kind as a CSV
// attachment.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	kind, ok := core.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		writeError(ctx, w, http.StatusNotFound, "unknown entity kind")
		return
	}

	table, err := s.service.ExportCSV(ctx, kind, s.userID(r))
	if err != nil {
		writeError(ctx, w, http.StatusInternalServerError, "export failed")
		return
	}

	writeCSV(ctx, w, string(kind), table)
}

// handleDownloadTemplate returns a header-only CSV for one entity kind,
// suitable as an import template.
func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	kind, ok := core.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		writeError(ctx, w, http.StatusNotFound, "unknown entity kind")
		return
	}
	def, ok := core.Definition(kind)
	if !ok {
		writeError(ctx, w, http.StatusNotFound, "unknown entity kind")
		return
	}

	writeCSV(ctx, w, string(kind)+"_template", [][]string{def.Header})
}

// writeCSV streams a table as a CSV file attachment.
func writeCSV(ctx context.Context, w http.ResponseWriter, name string, table [][]string) {
	filename := fmt.Sprintf("%s_%s.csv", name, time.Now().Format("20060102_150405"))

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	cw := csv.NewWriter(w)
	if err := cw.WriteAll(table); err != nil {
		logging.FromContext(ctx).Error("csv write error", "error", err)
	}
}
