package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/copyleftdev/egoserver/internal/config"
	apperrors "github.com/copyleftdev/egoserver/internal/errors"
	"github.com/copyleftdev/egoserver/internal/logging"
	"github.com/copyleftdev/egoserver/internal/metrics"
	"github.com/copyleftdev/egoserver/internal/optimization"
	"github.com/copyleftdev/egoserver/internal/optimization/ego"
	"github.com/copyleftdev/egoserver/internal/optimization/testfunctions"
	"github.com/copyleftdev/egoserver/internal/runner"
)

// Status is the lifecycle state of a run
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusStopped   Status = "stopped"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the run has finished
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusStopped, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// OptimizationState represents the state of an optimization run.
// Fields are guarded by the server's table lock, except the stop flag.
type OptimizationState struct {
	ID           string
	Status       Status
	StartTime    time.Time
	EndTime      *time.Time
	Progress     float64
	BestSolution *optimization.Solution
	Outcome      *runner.Outcome
	Error        string
	LastUpdated  time.Time

	stopRequested atomic.Bool
	cancel        context.CancelFunc
}

// Server exposes EGO runs over HTTP. Each run executes in its own goroutine.
type Server struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Collector

	// Optimization state management
	optimizations   map[string]*OptimizationState
	optimizationsMu sync.RWMutex // Protects the optimizations map and its states

	seq     atomic.Uint64
	baseCtx context.Context
	stopAll context.CancelFunc
	wg      sync.WaitGroup
}

// NewServer creates a new server instance. A nil collector disables run metrics.
func NewServer(cfg *config.Config, logger *zap.Logger, collector *metrics.Collector) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:           cfg,
		logger:        logger.Named("server"),
		metrics:       collector,
		optimizations: make(map[string]*OptimizationState),
		baseCtx:       ctx,
		stopAll:       cancel,
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/functions", s.handleFunctions)
		r.Post("/optimize", s.handleOptimize)
		r.Get("/status/{id}", s.handleStatus)
		r.Delete("/optimization/{id}", s.handleStop)
	})
}

// handleFunctions lists the objectives runs can target
func (s *Server) handleFunctions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string][]string{"functions": testfunctions.Names()})
}

// handleOptimize starts a new run from the JSON run spec in the body.
// Returns: {"optimization_id": "opt_1", "status": "pending"}
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	spec := config.NewRunSpec(s.cfg.EGO)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(spec); err != nil {
		apperrors.Write(w, apperrors.BadRequest(fmt.Sprintf("invalid request body: %v", err), err))
		return
	}

	id := fmt.Sprintf("opt_%d", s.seq.Add(1))
	run, err := runner.Build(spec, s.logger.With(zap.String("optimization_id", id)))
	if err != nil {
		logger.Info("Rejected run", zap.Error(err))
		apperrors.Write(w, err)
		return
	}

	now := time.Now()
	state := &OptimizationState{
		ID:          id,
		Status:      StatusPending,
		StartTime:   now,
		LastUpdated: now,
	}

	run.SetStopCallback(state.stopRequested.Load)
	run.SetProgressCallback(func(percent float64) {
		best := run.BestSolution()
		s.optimizationsMu.Lock()
		state.Progress = percent
		state.BestSolution = best
		state.LastUpdated = time.Now()
		s.optimizationsMu.Unlock()
	})
	if s.metrics != nil {
		run.SetObserver(s.metrics.Run(id))
	}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if timeout := s.cfg.Optimization.RunTimeout; timeout > 0 {
		ctx, cancel = context.WithTimeout(s.baseCtx, timeout)
	} else {
		ctx, cancel = context.WithCancel(s.baseCtx)
	}
	state.cancel = cancel

	if limit := s.cfg.Optimization.MaxConcurrentRuns; !s.admit(state, limit) {
		cancel()
		if s.metrics != nil {
			s.metrics.Forget(id)
		}
		apperrors.Write(w, apperrors.New(http.StatusTooManyRequests, "too_many_runs",
			fmt.Sprintf("at most %d runs may be active", limit)))
		return
	}

	s.wg.Add(1)
	go s.runOptimization(ctx, state, run.Run)

	logger.Info("Optimization started",
		zap.String("optimization_id", id),
		zap.String("function", spec.Function),
		zap.Int("dimension", spec.Dimension))

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"optimization_id": id,
		"status":          StatusPending,
	})
}

// runOptimization executes a run and records its outcome
func (s *Server) runOptimization(ctx context.Context, state *OptimizationState, run func(context.Context) (*ego.Result, error)) {
	defer s.wg.Done()
	defer state.cancel()

	s.optimizationsMu.Lock()
	state.Status = StatusRunning
	state.LastUpdated = time.Now()
	s.optimizationsMu.Unlock()

	result, err := run(ctx)

	s.optimizationsMu.Lock()
	defer s.optimizationsMu.Unlock()

	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now

	switch {
	case err != nil && s.baseCtx.Err() != nil:
		state.Status = StatusCancelled
		state.Error = err.Error()
	case err != nil:
		s.logger.Error("Optimization failed",
			zap.String("optimization_id", state.ID),
			zap.Error(err))
		state.Status = StatusFailed
		state.Error = err.Error()
	default:
		state.Outcome = runner.NewOutcome(result)
		state.BestSolution = result.BestSolution
		state.Progress = 100
		state.Status = StatusCompleted
		if result.StopReason == optimization.StopUser {
			state.Status = StatusStopped
		}
		s.logger.Info("Optimization finished",
			zap.String("optimization_id", state.ID),
			zap.String("reason", string(result.StopReason)),
			zap.Int("evaluations", result.Evaluations))
	}
}

// StatusResponse is the body of a status query
type StatusResponse struct {
	ID           string          `json:"optimization_id"`
	Status       Status          `json:"status"`
	Progress     float64         `json:"progress"`
	StartTime    string          `json:"start_time"`
	LastUpdate   string          `json:"last_update"`
	EndTime      string          `json:"end_time,omitempty"`
	BestSolution *SolutionBody   `json:"best_solution,omitempty"`
	Result       *runner.Outcome `json:"result,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// SolutionBody is a point with its objective value
type SolutionBody struct {
	Parameters []float64 `json:"parameters"`
	Value      float64   `json:"value"`
}

// handleStatus reports the state of a run
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.optimizationsMu.RLock()
	state, exists := s.optimizations[id]
	if !exists {
		s.optimizationsMu.RUnlock()
		apperrors.Write(w, apperrors.NotFound(fmt.Sprintf("optimization %q not found", id)))
		return
	}

	response := StatusResponse{
		ID:         state.ID,
		Status:     state.Status,
		Progress:   state.Progress,
		StartTime:  state.StartTime.Format(time.RFC3339),
		LastUpdate: state.LastUpdated.Format(time.RFC3339),
		Result:     state.Outcome,
		Error:      state.Error,
	}
	if state.EndTime != nil {
		response.EndTime = state.EndTime.Format(time.RFC3339)
	}
	if state.BestSolution != nil {
		response.BestSolution = &SolutionBody{
			Parameters: state.BestSolution.Parameters,
			Value:      state.BestSolution.Value,
		}
	}
	s.optimizationsMu.RUnlock()

	respondJSON(w, http.StatusOK, response)
}

// handleStop asks an active run to stop after its current iteration. A
// finished run is removed from the table instead.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.optimizationsMu.Lock()
	state, exists := s.optimizations[id]
	if !exists {
		s.optimizationsMu.Unlock()
		apperrors.Write(w, apperrors.NotFound(fmt.Sprintf("optimization %q not found", id)))
		return
	}
	if state.Status.Terminal() {
		delete(s.optimizations, id)
		s.optimizationsMu.Unlock()
		if s.metrics != nil {
			s.metrics.Forget(id)
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
		return
	}
	state.stopRequested.Store(true)
	state.LastUpdated = time.Now()
	s.optimizationsMu.Unlock()

	logging.FromContext(r.Context()).Info("Optimization stop requested", zap.String("optimization_id", id))
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "stop requested"})
}

// admit inserts state into the run table unless limit runs are already
// active. A limit of zero admits every run.
func (s *Server) admit(state *OptimizationState, limit int) bool {
	s.optimizationsMu.Lock()
	defer s.optimizationsMu.Unlock()

	if limit > 0 {
		n := 0
		for _, other := range s.optimizations {
			if !other.Status.Terminal() {
				n++
			}
		}
		if n >= limit {
			return false
		}
	}
	s.optimizations[state.ID] = state
	return true
}

// Close cancels every active run and waits for them to return
func (s *Server) Close(ctx context.Context) error {
	s.stopAll()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
