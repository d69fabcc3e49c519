package web

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SierraSoftworks/automate/pkg/core"
	"github.com/SierraSoftworks/automate/pkg/storage"
	"github.com/SierraSoftworks/automate/pkg/webhook"
)

// Introspector is the read-only store view backing the admin API.
// *storage.GormStore satisfies it.
type Introspector interface {
	Stats(ctx context.Context) ([]storage.PartitionStats, error)
	Messages(ctx context.Context, partition string) ([]core.Message, error)
	Partitions(ctx context.Context) ([]string, error)
	List(ctx context.Context, partition string) ([]core.Entry, error)
}

// Server is the daemon's HTTP handler.
type Server struct {
	queue  core.Queue
	store  Introspector
	logger *slog.Logger
	router chi.Router

	mu       sync.RWMutex
	webhooks map[string]bool
}

// Option configures a Server.
type Option interface {
	applyServer(*Server)
}

type serverOptionFunc func(*Server)

func (f serverOptionFunc) applyServer(s *Server) { f(s) }

// WithLogger sets the logger used for request logging.
func WithLogger(logger *slog.Logger) Option {
	return serverOptionFunc(func(s *Server) {
		s.logger = logger
	})
}

// NewServer creates the HTTP surface over a queue and a store view.
// webhooks lists the endpoint names that accept deliveries; everything else
// under /webhooks/ is a 404.
func NewServer(q core.Queue, store Introspector, webhooks []string, opts ...Option) *Server {
	s := &Server{
		queue:  q,
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt.applyServer(s)
	}
	s.SetWebhooks(webhooks)

	r := chi.NewRouter()
	r.Use(requestLogger(s.logger))
	r.Use(limitBody)

	r.Post("/webhooks/{name}", s.handleWebhook)

	r.Get("/api/queues", s.handleQueueStats)
	r.Get("/api/queues/{partition}", s.handleQueueMessages)
	r.Get("/api/kv", s.handleKVPartitions)
	r.Get("/api/kv/{partition}", s.handleKVEntries)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetWebhooks replaces the accepted webhook endpoint names. Called on config
// reload; in-flight requests see either the old or the new set.
func (s *Server) SetWebhooks(names []string) {
	accepted := make(map[string]bool, len(names))
	for _, name := range names {
		accepted[name] = true
	}
	s.mu.Lock()
	s.webhooks = accepted
	s.mu.Unlock()
}

func (s *Server) acceptsWebhook(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.webhooks[name]
}

// handleWebhook captures a delivery into the webhook's queue partition.
// It answers 204 as soon as the envelope is durably enqueued.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !s.acceptsWebhook(name) {
		http.NotFound(w, r)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	headers := make(map[string]string, len(r.Header))
	for key := range r.Header {
		headers[key] = r.Header.Get(key)
	}
	event := webhook.Event{
		Body:    string(body),
		Query:   r.URL.RawQuery,
		Headers: headers,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("failed to encode webhook event", "webhook", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	// The sender's trace context rides along on the message so the job that
	// processes this delivery stays attributable to it.
	ctx := core.WithTraceContext(r.Context(), core.TraceContext{
		Traceparent: r.Header.Get("traceparent"),
		Tracestate:  r.Header.Get("tracestate"),
	})
	if err := s.queue.Enqueue(ctx, webhook.Partition(name), payload, core.EnqueueOptions{}); err != nil {
		s.logger.Error("failed to enqueue webhook event", "webhook", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.serveError(w, "failed to collect queue stats", err)
		return
	}
	s.serveJSON(w, stats)
}

// messageSummary is the operator view of a queue message. Payloads are
// summarised by size; their content may carry credentials.
type messageSummary struct {
	Key         string    `json:"key"`
	PayloadSize int       `json:"payload_size"`
	ScheduledAt time.Time `json:"scheduled_at"`
	HiddenUntil time.Time `json:"hidden_until"`
	Reserved    bool      `json:"reserved"`
}

func (s *Server) handleQueueMessages(w http.ResponseWriter, r *http.Request) {
	partition := chi.URLParam(r, "partition")
	messages, err := s.store.Messages(r.Context(), partition)
	if err != nil {
		s.serveError(w, "failed to list messages", err)
		return
	}

	summaries := make([]messageSummary, 0, len(messages))
	for _, msg := range messages {
		summaries = append(summaries, messageSummary{
			Key:         msg.Key,
			PayloadSize: len(msg.Payload),
			ScheduledAt: msg.ScheduledAt,
			HiddenUntil: msg.HiddenUntil,
			Reserved:    msg.ReservedBy != "",
		})
	}
	s.serveJSON(w, summaries)
}

func (s *Server) handleKVPartitions(w http.ResponseWriter, r *http.Request) {
	partitions, err := s.store.Partitions(r.Context())
	if err != nil {
		s.serveError(w, "failed to list partitions", err)
		return
	}
	if partitions == nil {
		partitions = []string{}
	}
	s.serveJSON(w, partitions)
}

type kvEntry struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

func (s *Server) handleKVEntries(w http.ResponseWriter, r *http.Request) {
	partition := chi.URLParam(r, "partition")
	entries, err := s.store.List(r.Context(), partition)
	if err != nil {
		s.serveError(w, "failed to list entries", err)
		return
	}

	out := make([]kvEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, kvEntry{Key: entry.Key, Value: json.RawMessage(entry.Value)})
	}
	s.serveJSON(w, out)
}

func (s *Server) serveJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) serveError(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, "error", err)
	http.Error(w, msg, http.StatusInternalServerError)
}
