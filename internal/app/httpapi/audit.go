package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/flockhq/flock/internal/app/domain/audit"
	"github.com/flockhq/flock/internal/app/storage"
	"github.com/flockhq/flock/internal/middleware"
	"github.com/flockhq/flock/pkg/logger"
)

// AuditSink persists audit entries.
type AuditSink interface {
	Write(ctx context.Context, entry audit.Entry) error
}

// AuditLog keeps the most recent API calls in memory and forwards each
// entry to the configured sinks.
type AuditLog struct {
	mu      sync.Mutex
	entries []audit.Entry
	max     int
	sinks   []AuditSink
	log     *logger.Logger
}

// NewAuditLog creates an audit log holding at most max entries in memory.
func NewAuditLog(max int, log *logger.Logger, sinks ...AuditSink) *AuditLog {
	if max <= 0 {
		max = 200
	}
	if log == nil {
		log = logger.NewDefault("audit")
	}
	l := &AuditLog{max: max, log: log}
	for _, s := range sinks {
		if s != nil {
			l.sinks = append(l.sinks, s)
		}
	}
	return l
}

func (l *AuditLog) add(ctx context.Context, entry audit.Entry) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
	l.mu.Unlock()

	for _, sink := range l.sinks {
		// Sink failures never fail the request.
		if err := sink.Write(ctx, entry); err != nil {
			l.log.WithError(err).Warn("audit sink write failed")
		}
	}
}

// List returns up to limit entries for tenantID, newest first.
func (l *AuditLog) List(tenantID string, limit int) []audit.Entry {
	if limit <= 0 || limit > l.max {
		limit = l.max
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]audit.Entry, 0, limit)
	for i := len(l.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if l.entries[i].TenantID == tenantID {
			out = append(out, l.entries[i])
		}
	}
	return out
}

// Middleware records every authenticated API call once it completes.
func (l *AuditLog) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		p, ok := middleware.PrincipalFrom(r.Context())
		if !ok || !strings.HasPrefix(r.URL.Path, apiPrefix) {
			return
		}
		l.add(r.Context(), audit.Entry{
			Time:       time.Now().UTC(),
			TenantID:   p.TenantID,
			UserID:     p.UserID,
			Role:       string(p.Role),
			Method:     r.Method,
			Path:       r.URL.Path,
			Status:     rec.status,
			TraceID:    logger.TraceID(r.Context()),
			RemoteAddr: r.RemoteAddr,
			UserAgent:  r.UserAgent(),
		})
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

// FileAuditSink appends audit entries as JSONL.
type FileAuditSink struct {
	mu   sync.Mutex
	file *os.File
}

// NewFileAuditSink opens path for appending. An empty path returns nil.
func NewFileAuditSink(path string) (*FileAuditSink, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, err
	}
	return &FileAuditSink{file: f}, nil
}

func (s *FileAuditSink) Write(_ context.Context, entry audit.Entry) error {
	if s == nil || s.file == nil {
		return nil
	}
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.file.Write(append(b, '\n'))
	return err
}

// Close closes the underlying file.
func (s *FileAuditSink) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	return s.file.Close()
}

// StoreAuditSink writes entries to an AuditStore.
type StoreAuditSink struct {
	store storage.AuditStore
}

// NewStoreAuditSink wraps store.
func NewStoreAuditSink(store storage.AuditStore) *StoreAuditSink {
	return &StoreAuditSink{store: store}
}

func (s *StoreAuditSink) Write(ctx context.Context, entry audit.Entry) error {
	// The request may already be cancelled; the write should still land.
	return s.store.AppendAudit(context.WithoutCancel(ctx), entry)
}
