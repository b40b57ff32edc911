package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/tracedeck/internal/docerr"
	"github.com/dgallion1/tracedeck/internal/format"
	"github.com/dgallion1/tracedeck/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

// multipartMemory is the in-memory budget for form parsing; larger parts
// spill to temporary files.
const multipartMemory = 32 << 20

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"formats": format.Catalogue})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	filename, path, ok := s.spoolUpload(w, r)
	if !ok {
		return
	}
	defer os.Remove(path)

	ctx := r.Context()
	if s.cfg.FileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.FileTimeout)
		defer cancel()
	}

	res, err := s.orchestrator.Processor().Process(ctx, path)
	if err != nil {
		s.log.Warn("process failed", "filename", filename, "kind", docerr.KindOf(err), "error", err)
		writeDocError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	filename, path, ok := s.spoolUpload(w, r)
	if !ok {
		return
	}

	job := pipeline.NewJob(filename, path)
	if err := s.orchestrator.Submit(job); err != nil {
		os.Remove(path)
		jsonError(w, err.Error(), "", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"filename": job.Filename,
		"status":   pipeline.StatusQueued,
		"poll_url": fmt.Sprintf("/api/jobs/%s", job.ID),
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", "", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		jsonError(w, "stats unavailable", "", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"queue_depth": s.orchestrator.QueueDepth(),
		"stats":       s.stats.Snapshot(),
	})
}

// spoolUpload copies the multipart "file" part to a temporary file that
// keeps the upload's extension. On failure it has already written the
// response.
func (s *Server) spoolUpload(w http.ResponseWriter, r *http.Request) (filename, path string, ok bool) {
	// Extra 1MB for form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			jsonError(w, fmt.Sprintf("upload exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), "", http.StatusRequestEntityTooLarge)
			return "", "", false
		}
		jsonError(w, "invalid multipart form: "+err.Error(), "", http.StatusBadRequest)
		return "", "", false
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), "", http.StatusBadRequest)
		return "", "", false
	}
	defer file.Close()

	filename = sanitizeFilename(header.Filename)
	f, err := format.Classify(filename)
	if err != nil {
		writeDocError(w, err)
		return "", "", false
	}

	tmp, err := os.CreateTemp("", "tracedeck-upload-*."+string(f))
	if err != nil {
		jsonError(w, "failed to spool upload", string(docerr.KindIO), http.StatusInternalServerError)
		return "", "", false
	}
	n, err := io.Copy(tmp, io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	switch {
	case err != nil:
		os.Remove(tmp.Name())
		jsonError(w, "failed to read upload", string(docerr.KindIO), http.StatusInternalServerError)
		return "", "", false
	case n > s.cfg.MaxUploadBytes:
		os.Remove(tmp.Name())
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), "", http.StatusRequestEntityTooLarge)
		return "", "", false
	}
	return filename, tmp.Name(), true
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	switch docerr.KindOf(err) {
	case docerr.KindUnsupportedFormat, docerr.KindFormatMismatch:
		return http.StatusUnsupportedMediaType
	case docerr.KindParse, docerr.KindPDF, docerr.KindDOCX, docerr.KindImage:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeDocError(w http.ResponseWriter, err error) {
	jsonError(w, err.Error(), string(docerr.KindOf(err)), statusFor(err))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg, kind string, code int) {
	body := map[string]string{"error": msg}
	if kind != "" {
		body["kind"] = kind
	}
	writeJSON(w, code, body)
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
