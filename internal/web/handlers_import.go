package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pandahoho/importer/internal/core"
)

var (
	errUnknownTarget = errors.New("unknown import target")
	errNoFile        = errors.New("no file provided")
	errNotCSV        = errors.New("only .csv files are accepted")
	errFileTooLarge  = errors.New("file too large")
	errEmptyFile     = errors.New("empty file: the upload has no content")
)

// multipartOverhead leaves room for boundaries and headers around the file
// part when capping the request body.
const multipartOverhead = 64 << 10

// sessionResponse is the JSON body for every session endpoint.
type sessionResponse struct {
	ID     string `json:"id"`
	Target string `json:"target"`
	core.Snapshot
}

func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	all := s.targets.All()
	infos := make([]core.TargetInfo, 0, len(all))
	for _, t := range all {
		infos = append(infos, t.Info())
	}
	writeJSON(w, http.StatusOK, infos)
}

// handleTemplate serves the target's example CSV as an attachment.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	target, err := s.lookupTarget(r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	data, err := target.TemplateCSV()
	if err != nil {
		s.respondError(w, r, fmt.Errorf("render template: %w", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", target.Info().TemplateFile))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// handlePreview runs the pipeline over an uploaded file without keeping any
// state. Nothing is submitted.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	target, err := s.lookupTarget(r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	raw, err := s.readCSV(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	var snap core.Snapshot
	err = s.limiter.Do(r.Context(), func() {
		snap = target.Preview(raw, s.cfg.Import.ErrorDisplayLimit)
	})
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	requestLogger(r, "target", target.Info().Key).Info("preview finished",
		"file", raw.Name,
		"state", snap.State,
		"records", snap.RecordCount,
		"errors", snap.ErrorCount,
	)
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	target, err := s.lookupTarget(r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	sess := s.sessions.Open(target)
	requestLogger(r, "session_id", sess.ID, "target", sess.Target).Info("import session opened")
	writeJSON(w, http.StatusCreated, sessionView(sess))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, sessionView(sess))
}

// handleSelectFile runs the pipeline for a session. Any earlier file,
// outcome or in-flight submission of the session is discarded.
func (s *Server) handleSelectFile(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	raw, err := s.readCSV(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	var snap core.Snapshot
	err = s.limiter.Do(r.Context(), func() {
		snap = sess.Handle.SelectFile(raw)
	})
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	requestLogger(r, "session_id", sess.ID, "target", sess.Target).Info("import file processed",
		"file", raw.Name,
		"encoding", snap.Encoding,
		"state", snap.State,
		"records", snap.RecordCount,
		"errors", snap.ErrorCount,
	)
	writeJSON(w, http.StatusOK, sessionResponse{ID: sess.ID, Target: sess.Target, Snapshot: snap})
}

// handleSubmit sends a Ready session's records to the store. Failed
// submissions leave the session in submit_failed so the client can retry.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	logger := requestLogger(r, "session_id", sess.ID, "target", sess.Target)

	report, err := sess.Handle.Submit(r.Context())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	logger.Info("import submitted",
		"count", report.Result.Count,
		"created", report.Result.Created,
		"updated", report.Result.Updated,
		"duration_ms", report.Duration.Milliseconds(),
	)
	writeJSON(w, http.StatusOK, sessionView(sess))
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sessions.Close(id); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	requestLogger(r, "session_id", id).Info("import session closed")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) lookupTarget(r *http.Request) (core.Target, error) {
	key := chi.URLParam(r, "target")
	target, ok := s.targets.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w %q", errUnknownTarget, key)
	}
	return target, nil
}

// readCSV pulls the "file" part out of a multipart upload.
func (s *Server) readCSV(w http.ResponseWriter, r *http.Request) (core.RawFile, error) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return core.RawFile{}, fmt.Errorf("%w: limit is %d bytes", errFileTooLarge, maxSize)
		}
		return core.RawFile{}, fmt.Errorf("%w: %v", errNoFile, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return core.RawFile{}, errNoFile
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		return core.RawFile{}, fmt.Errorf("%w, got %q", errNotCSV, header.Filename)
	}
	if header.Size > maxSize {
		return core.RawFile{}, fmt.Errorf("%w: limit is %d bytes", errFileTooLarge, maxSize)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return core.RawFile{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return core.RawFile{}, errEmptyFile
	}

	return core.RawFile{
		Name:     header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

func sessionView(sess *ImportSession) sessionResponse {
	return sessionResponse{ID: sess.ID, Target: sess.Target, Snapshot: sess.Handle.Snapshot()}
}
