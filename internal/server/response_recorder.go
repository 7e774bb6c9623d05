package server

import (
	"bytes"
	"net/http"
)

// maxRecordedBody bounds how much of a response the audit trail keeps.
const maxRecordedBody = 4 << 10

// recordingWriter passes the response through while keeping its status and
// the first maxRecordedBody bytes for the audit entry.
type recordingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func newRecordingWriter(w http.ResponseWriter) *recordingWriter {
	return &recordingWriter{ResponseWriter: w, status: http.StatusOK}
}

func (w *recordingWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	if room := maxRecordedBody - w.body.Len(); room > 0 {
		if len(b) < room {
			room = len(b)
		}
		w.body.Write(b[:room])
	}
	return w.ResponseWriter.Write(b)
}

func (w *recordingWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *recordingWriter) Status() int { return w.status }

func (w *recordingWriter) Body() []byte { return w.body.Bytes() }
