package web

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/pandahoho/importer/internal/store"
)

var errInvalidQuery = errors.New("invalid query parameter")

const (
	historyPageSize    = 50
	historyMaxPageSize = 500
)

type importLogPage struct {
	Entries    []store.ImportLogEntry `json:"entries"`
	Total      int64                  `json:"total"`
	Page       int                    `json:"page"`
	PageSize   int                    `json:"pageSize"`
	TotalPages int                    `json:"totalPages"`
}

// handleImportLog lists committed bulk imports, newest first.
//
// Query: resource, from and to (YYYY-MM-DD, inclusive), page, page_size.
func (s *Server) handleImportLog(w http.ResponseWriter, r *http.Request) {
	filter, err := s.importLogFilter(r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	page, err := positiveParam(r, "page", 1)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	pageSize, err := positiveParam(r, "page_size", historyPageSize)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	pageSize = min(pageSize, historyMaxPageSize)
	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize

	entries, err := s.store.ListImports(r.Context(), filter)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	total, err := s.store.CountImports(r.Context(), filter)
	if err != nil {
		total = int64(filter.Offset + len(entries))
	}

	writeJSON(w, http.StatusOK, importLogPage{
		Entries:    entries,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	})
}

// handleImportLogExport streams the matching history as CSV.
func (s *Server) handleImportLogExport(w http.ResponseWriter, r *http.Request) {
	filter, err := s.importLogFilter(r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	filename := fmt.Sprintf("import_log_%s.csv", time.Now().UTC().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"ID", "Timestamp", "Resource", "Records", "Created", "Updated",
		"IP Address", "User Agent", "Request ID", "Duration (ms)",
	}); err != nil {
		return
	}

	const flushEvery = 1000
	rows := 0
	err = s.store.StreamImports(r.Context(), filter, func(e store.ImportLogEntry) error {
		if err := cw.Write([]string{
			e.ID,
			e.CreatedAt.UTC().Format(time.RFC3339),
			e.Resource,
			strconv.Itoa(e.Count),
			strconv.Itoa(e.Created),
			strconv.Itoa(e.Updated),
			e.IPAddress,
			e.UserAgent,
			e.RequestID,
			strconv.FormatInt(e.DurationMS, 10),
		}); err != nil {
			return err
		}
		rows++
		if rows%flushEvery == 0 {
			cw.Flush()
			if err := cw.Error(); err != nil {
				return err
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
		return nil
	})
	cw.Flush()

	// Headers are gone by now, so a failure can only be logged.
	if err != nil && r.Context().Err() == nil {
		requestLogger(r).Error("import log export failed", "error", err, "rows", rows)
	}
}

func (s *Server) importLogFilter(r *http.Request) (store.ImportLogFilter, error) {
	q := r.URL.Query()
	f := store.ImportLogFilter{Resource: q.Get("resource")}

	if f.Resource != "" {
		if _, ok := s.targets.Get(f.Resource); !ok {
			return f, fmt.Errorf("%w %q", errUnknownTarget, f.Resource)
		}
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return f, fmt.Errorf("%w from=%q: use YYYY-MM-DD", errInvalidQuery, v)
		}
		f.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return f, fmt.Errorf("%w to=%q: use YYYY-MM-DD", errInvalidQuery, v)
		}
		f.To = t.Add(24*time.Hour - time.Nanosecond)
	}
	return f, nil
}

func positiveParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w %s=%q: use a whole number of 1 or more", errInvalidQuery, name, v)
	}
	return n, nil
}
