package server

import (
	"time"

	"go.uber.org/zap/zapcore"
)

// AuditLogEntry records one write request and its outcome.
type AuditLogEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	Handler    string    `json:"handler"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	StatusCode int       `json:"status_code"`
	UserID     string    `json:"user_id,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	Event      string    `json:"event,omitempty"`
	OldStatus  string    `json:"old_status,omitempty"`
	NewStatus  string    `json:"new_status,omitempty"`
	Request    string    `json:"request,omitempty"`
	Response   string    `json:"response,omitempty"`
}

func (e AuditLogEntry) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddTime("timestamp", e.Timestamp)
	enc.AddString("handler", e.Handler)
	enc.AddString("method", e.Method)
	enc.AddString("path", e.Path)
	enc.AddInt("status_code", e.StatusCode)
	if e.UserID != "" {
		enc.AddString("user_id", e.UserID)
	}
	if e.RequestID != "" {
		enc.AddString("request_id", e.RequestID)
	}
	if e.Event != "" {
		enc.AddString("event", e.Event)
	}
	if e.OldStatus != "" {
		enc.AddString("old_status", e.OldStatus)
	}
	if e.NewStatus != "" {
		enc.AddString("new_status", e.NewStatus)
	}
	if e.Request != "" {
		enc.AddString("request", e.Request)
	}
	if e.Response != "" {
		enc.AddString("response", e.Response)
	}
	return nil
}

type auditBatch []AuditLogEntry

func (b auditBatch) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for _, e := range b {
		if err := enc.AppendObject(e); err != nil {
			return err
		}
	}
	return nil
}
