// Package api exposes the HTTP interface for the indexer service.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/showcaselabs/showcase-indexer/internal/indexer"
	"github.com/showcaselabs/showcase-indexer/internal/scheduler"
	"github.com/showcaselabs/showcase-indexer/internal/store/memory"
)

// Server wires HTTP handlers to the scheduler and batch store.
type Server struct {
	router    chi.Router
	batches   *memory.BatchStore
	scheduler *scheduler.Scheduler
	emit      indexer.EmitFunc
	idGen     indexer.IDGenerator
	clock     indexer.Clock
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	batches *memory.BatchStore,
	sched *scheduler.Scheduler,
	emit indexer.EmitFunc,
	idGen indexer.IDGenerator,
	clock indexer.Clock,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		batches:   batches,
		scheduler: sched,
		emit:      emit,
		idGen:     idGen,
		clock:     clock,
		logger:    logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/batches", func(r chi.Router) {
			r.Post("/", s.submitBatch)
			r.Route("/{batch_id}", func(r chi.Router) {
				r.Get("/status", s.getBatchStatus)
				r.Get("/result", s.getBatchResult)
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type batchRequest struct {
	URLs []string `json:"urls"`
}

func (s *Server) submitBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.URLs) == 0 {
		writeError(w, http.StatusBadRequest, "urls required")
		return
	}

	urls := make([]string, 0, len(req.URLs))
	for _, raw := range req.URLs {
		cleaned, err := indexer.CleanURL(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid url: "+raw)
			return
		}
		urls = append(urls, cleaned)
	}

	batchID, err := s.idGen.NewID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "generate batch id failed")
		return
	}
	batch := indexer.Batch{
		ID:        batchID,
		Status:    indexer.BatchStatusQueued,
		URLs:      urls,
		Submitted: s.clock.Now(),
	}
	if err := s.batches.CreateBatch(batch); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	go s.runBatch(batchID, urls)

	writeJSON(w, http.StatusAccepted, map[string]string{"batch_id": batchID})
}

// runBatch executes the scheduler for one submitted batch. The server's
// lifetime, not the request's, bounds the run.
func (s *Server) runBatch(batchID string, urls []string) {
	ctx := context.Background()

	s.updateBatch(batchID, func(b *indexer.Batch) {
		now := s.clock.Now()
		b.Status = indexer.BatchStatusRunning
		b.Started = &now
	})

	var counters indexer.BatchCounters
	emit := func(ctx context.Context, snapshot *indexer.Snapshot) error {
		s.batches.RecordSummary(batchID, snapshot.Summary())
		s.updateBatch(batchID, func(b *indexer.Batch) {
			if snapshot.Status == indexer.StatusOK {
				b.Counters.SnapshotsOK++
			} else {
				b.Counters.SnapshotsError++
			}
			counters = b.Counters
		})
		if s.emit == nil {
			return nil
		}
		return s.emit(ctx, snapshot)
	}

	err := s.scheduler.RunURLs(ctx, urls, emit)

	s.updateBatch(batchID, func(b *indexer.Batch) {
		now := s.clock.Now()
		b.Finished = &now
		switch {
		case err != nil:
			b.Status = indexer.BatchStatusFailed
			b.ErrorText = err.Error()
		case counters.SnapshotsOK == 0 && len(urls) > 0:
			b.Status = indexer.BatchStatusFailed
			b.ErrorText = "no snapshots succeeded"
		default:
			b.Status = indexer.BatchStatusSucceeded
		}
	})
}

func (s *Server) updateBatch(batchID string, fn func(*indexer.Batch)) {
	if err := s.batches.UpdateBatch(batchID, fn); err != nil {
		s.logger.Error("batch update failed", zap.String("batch_id", batchID), zap.Error(err))
	}
}

func (s *Server) getBatchStatus(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batch_id")
	batch, err := s.batches.GetBatch(batchID)
	if err != nil {
		writeError(w, http.StatusNotFound, "batch not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"batch": batch})
}

func (s *Server) getBatchResult(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batch_id")
	batch, err := s.batches.GetBatch(batchID)
	if err != nil {
		writeError(w, http.StatusNotFound, "batch not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"batch":     batch,
		"snapshots": s.batches.ListSummaries(batchID),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Serve runs the HTTP server until ctx finishes.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
