package settlement

import (
	"context"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// WorkerPoolService runs settlements on a bounded ants pool. Payment
// callbacks can burst; the pool caps concurrent database transactions while
// each caller still blocks for its own result.
type WorkerPoolService struct {
	baseService Service
	pool        *ants.Pool
	logger      *slog.Logger
	// Protects the in-flight results map
	mu      sync.Mutex
	results map[string]chan settleResult
}

type settleResult struct {
	outcome Outcome
	err     error
}

func NewWorkerPoolService(baseService Service, size int, logger *slog.Logger) (*WorkerPoolService, error) {
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
		results:     make(map[string]chan settleResult),
	}, nil
}

// Precheck runs inline; it is a read-only check and needs no pooling
func (s *WorkerPoolService) Precheck(ctx context.Context, req *PrecheckRequest) error {
	return s.baseService.Precheck(ctx, req)
}

// Settle submits the settlement to the worker pool and waits for its result
func (s *WorkerPoolService) Settle(ctx context.Context, req *SettleRequest) (Outcome, error) {
	s.logger.Info("Submitting settlement to worker pool",
		"payload", req.Payload,
		"charge_id", req.ChargeID,
	)

	resultChan := make(chan settleResult, 1)

	s.mu.Lock()
	s.results[req.Payload] = resultChan
	s.mu.Unlock()

	// Copy the request to avoid data races with the caller
	reqCopy := *req

	err := s.pool.Submit(func() {
		outcome, err := s.baseService.Settle(ctx, &reqCopy)

		resultChan <- settleResult{outcome: outcome, err: err}

		s.mu.Lock()
		delete(s.results, reqCopy.Payload)
		close(resultChan)
		s.mu.Unlock()
	})

	if err != nil {
		s.mu.Lock()
		delete(s.results, req.Payload)
		close(resultChan)
		s.mu.Unlock()

		s.logger.Error("Failed to submit settlement to worker pool",
			"payload", req.Payload,
			"error", err,
		)
		return OutcomeUnknown, err
	}

	result := <-resultChan
	return result.outcome, result.err
}

// Shutdown gracefully shuts down the worker pool
func (s *WorkerPoolService) Shutdown() {
	s.logger.Info("Shutting down settlement worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool
func (s *WorkerPoolService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool
func (s *WorkerPoolService) Capacity() int {
	return s.pool.Cap()
}
