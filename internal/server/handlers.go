package server

import (
	"encoding/json"
	"net/http"

	"github.com/oleg-kozlyuk-grafana/go-diffcover/internal/format"
	"github.com/oleg-kozlyuk-grafana/go-diffcover/internal/storage"
)

// defaultExt is served when the request names no ext.
const defaultExt = "md"

type listResponse struct {
	Reports []string `json:"reports"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// listReportsHandler lists stored report paths under ?prefix=.
func (s *Server) listReportsHandler(w http.ResponseWriter, r *http.Request) {
	paths, err := s.store.ListReports(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, "failed to list reports", err)
		return
	}
	if paths == nil {
		paths = []string{}
	}
	writeJSON(w, http.StatusOK, listResponse{Reports: paths})
}

// getReportHandler serves one report. ?ext= picks the stored format.
func (s *Server) getReportHandler(w http.ResponseWriter, r *http.Request) {
	ext := r.URL.Query().Get("ext")
	if ext == "" {
		ext = defaultExt
	}

	key := storage.ReportKey{
		Org:    r.PathValue("org"),
		Repo:   r.PathValue("repo"),
		Branch: r.PathValue("branch"),
		Ext:    ext,
	}
	if err := storage.ValidateReportKey(key); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	data, err := s.store.GetReport(r.Context(), key)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, "failed to read report", err)
		return
	}
	if data == nil {
		s.writeError(w, r, http.StatusNotFound, "report not found: "+storage.ObjectPath(key), nil)
		return
	}

	w.Header().Set("Content-Type", format.ContentTypeFor(ext))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// writeError logs err, if any, and sends a JSON error body.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, msg string, err error) {
	requestID := RequestIDFromContext(r.Context())
	if err != nil {
		s.logger.Error(msg, "error", err, "path", r.URL.Path, "request_id", requestID)
	}
	writeJSON(w, status, errorResponse{Error: msg, RequestID: requestID})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
