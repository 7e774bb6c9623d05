package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

// auditLogMiddleware records write requests. It is mounted behind basic
// auth. The route name set in setupRoutes identifies the handler.
func (s *Server) auditLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}

		entry := AuditLogEntry{
			Timestamp: s.timeNow(),
			Method:    r.Method,
			Path:      r.URL.Path,
			Handler:   "unknown",
		}
		if route := mux.CurrentRoute(r); route != nil && route.GetName() != "" {
			entry.Handler = route.GetName()
		}
		if username, _, ok := r.BasicAuth(); ok {
			entry.UserID = username
		}

		vars := mux.Vars(r)
		if strings.HasPrefix(r.URL.Path, "/requests/") {
			entry.RequestID = vars["id"]
		}

		if r.Body != nil && !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
			body, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(body))
			entry.Request = string(body)

			if entry.RequestID != "" && strings.HasSuffix(r.URL.Path, "/events") {
				var eventRequest struct {
					Event string `json:"event"`
				}
				if err := json.Unmarshal(body, &eventRequest); err == nil {
					entry.Event = eventRequest.Event
				}
				if req, err := s.service.GetRequest(r.Context(), entry.RequestID); err == nil {
					entry.OldStatus = string(req.Status)
				}
			}
		}

		rec := newRecordingWriter(w)
		next.ServeHTTP(rec, r)

		entry.StatusCode = rec.Status()
		entry.Response = string(rec.Body())
		if entry.Event != "" && entry.StatusCode == http.StatusOK {
			var updated struct {
				Status string `json:"status"`
			}
			if err := json.Unmarshal(rec.Body(), &updated); err == nil {
				entry.NewStatus = updated.Status
			}
		}

		s.audit.LogEntry(r.Context(), entry)
	})
}

func defaultTimeNow() time.Time {
	return time.Now().UTC()
}
