package orchestration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agbru/heatcalc/internal/comm"
	"github.com/agbru/heatcalc/internal/convergence"
	apperrors "github.com/agbru/heatcalc/internal/errors"
	"github.com/agbru/heatcalc/internal/grid"
	"github.com/agbru/heatcalc/internal/halo"
	"github.com/agbru/heatcalc/internal/logging"
	"github.com/agbru/heatcalc/internal/stencil"
)

// DefaultProgressInterval is the number of iterations between two
// progress hook calls.
const DefaultProgressInterval = 100

// ProgressHook receives diagnostics from a running worker. It is called
// every ProgressInterval iterations and on the final iteration.
type ProgressHook func(iteration int, residual float64, rank int)

// Observer is notified after every completed iteration.
type Observer interface {
	ObserveIteration(rank, iteration int, residual float64, haloWait, reduceWait time.Duration)
}

// Problem describes the global domain and stop rule shared by every worker.
type Problem struct {
	Rows      int
	Cols      int
	Workers   int
	Boundary  grid.Boundary
	Criterion convergence.Criterion
}

// Options tunes a single worker.
type Options struct {
	Kernel           stencil.Kernel
	ProgressInterval int
	ProgressHook     ProgressHook
	Observers        []Observer
	Logger           logging.Logger
}

// Solver runs the relaxation loop of one worker.
type Solver struct {
	comm      comm.Communicator
	part      grid.Partition
	grid      *grid.Grid
	kernel    stencil.Kernel
	halo      *halo.Exchanger
	reducer   *convergence.Reducer
	criterion convergence.Criterion
	opts      Options
	logger    logging.Logger

	iteration  int
	residual   float64
	state      State
	haloWait   time.Duration
	reduceWait time.Duration
}

// NewSolver validates the decomposition against the communicator and
// allocates the worker's band. Every error it returns is a ConfigError and
// is raised before any message is exchanged.
func NewSolver(c comm.Communicator, problem Problem, opts Options) (*Solver, error) {
	part, err := grid.NewPartition(problem.Rows, problem.Cols, problem.Workers, c.Rank(), c.Size())
	if err != nil {
		return nil, err
	}
	if !(problem.Criterion.Epsilon > 0) {
		return nil, apperrors.NewConfigError("epsilon must be positive, got %v", problem.Criterion.Epsilon)
	}
	if problem.Criterion.MaxIterations < 1 {
		return nil, apperrors.NewConfigError("max iterations must be at least 1, got %d", problem.Criterion.MaxIterations)
	}
	if problem.Boundary == nil {
		problem.Boundary = grid.LaplaceRamp{}
	}
	if opts.Kernel == nil {
		opts.Kernel = stencil.Serial{}
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	return &Solver{
		comm:      c,
		part:      part,
		grid:      grid.New(part, problem.Boundary),
		kernel:    opts.Kernel,
		halo:      halo.New(c, part),
		reducer:   convergence.NewReducer(c, opts.Kernel),
		criterion: problem.Criterion,
		opts:      opts,
		logger:    opts.Logger,
	}, nil
}

// Partition returns the worker's band.
func (s *Solver) Partition() grid.Partition { return s.part }

// Grid returns the worker's buffers. Previous holds the latest iteration.
func (s *Solver) Grid() *grid.Grid { return s.grid }

// State returns the current lifecycle state.
func (s *Solver) State() State { return s.state }

// Iteration returns the number of completed iterations.
func (s *Solver) Iteration() int { return s.iteration }

// Residual returns the global scalar of the last completed iteration.
func (s *Solver) Residual() float64 { return s.residual }

// Step runs one iteration and returns the global convergence scalar.
//
// The boundary-adjacent rows are relaxed first and sent as soon as they are
// ready; the remaining rows are relaxed while those messages are in flight.
// Ghost rows received during the iteration are installed into the buffer
// the next iteration reads, after the swap, so the kernel never sees a
// partially received row.
func (s *Solver) Step(ctx context.Context) (float64, error) {
	if s.state != Running {
		return s.residual, fmt.Errorf("rank %d: solver already %s", s.part.Rank, s.state)
	}
	prev, cur := s.grid.Previous(), s.grid.Current()
	last := s.part.LocalRows

	if err := s.halo.PostReceives(ctx); err != nil {
		return 0, err
	}
	s.kernel.Relax(cur, prev, 1, 1)
	s.halo.SendTop(ctx, cur)
	if last > 1 {
		s.kernel.Relax(cur, prev, last, last)
	}
	s.halo.SendBottom(ctx, cur)
	if last > 2 {
		s.kernel.Relax(cur, prev, 2, last-1)
	}

	local := s.reducer.LocalMax(cur, prev)
	s.grid.Swap()

	haloWait, err := s.halo.Complete(ctx, s.grid.Previous())
	s.haloWait += haloWait
	if err != nil {
		return 0, s.commError("halo exchange", err)
	}

	global, reduceWait, err := s.reducer.Reduce(ctx, local)
	s.reduceWait += reduceWait
	if err != nil {
		return 0, s.commError("allreduce", err)
	}

	s.iteration++
	s.residual = global
	for _, o := range s.opts.Observers {
		o.ObserveIteration(s.part.Rank, s.iteration, global, haloWait, reduceWait)
	}
	return global, nil
}

// commError keeps context errors untouched so callers can map them to
// timeout or cancellation, and wraps everything else as a
// CommunicationError.
func (s *Solver) commError(op string, err error) error {
	if apperrors.IsContextError(err) {
		return err
	}
	var cerr apperrors.CommunicationError
	if errors.As(err, &cerr) {
		return err
	}
	return apperrors.CommunicationError{Op: op, Rank: s.part.Rank, Peer: -1, Cause: err}
}

// Run iterates until the global scalar drops below epsilon or the
// iteration cap is reached. Every worker evaluates the same rule on the
// same reduced scalar, so the whole cohort stops on the same iteration.
func (s *Solver) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	s.logger.Debug("solve started",
		logging.Int("rank", s.part.Rank),
		logging.Int("local_rows", s.part.LocalRows),
		logging.Int("offset", s.part.Offset),
		logging.String("kernel", s.kernel.Name()))

	for s.state == Running {
		residual, err := s.Step(ctx)
		if err != nil {
			s.logger.Error("solve failed", err, logging.Int("rank", s.part.Rank), logging.Int("iteration", s.iteration))
			return s.result(start, err), err
		}
		switch s.criterion.Decide(s.iteration, residual) {
		case convergence.Converged:
			s.state = Converged
		case convergence.CapReached:
			s.state = Stopped
		}
		if s.opts.ProgressHook != nil && (s.state != Running || s.iteration%s.opts.ProgressInterval == 0) {
			s.opts.ProgressHook(s.iteration, residual, s.part.Rank)
		}
	}

	res := s.result(start, nil)
	s.logger.Info("solve finished",
		logging.Int("rank", s.part.Rank),
		logging.Int("iteration", res.Iterations),
		logging.Float64("residual", res.Residual),
		logging.String("state", res.State.String()),
		logging.Duration("halo_wait", res.HaloWait),
		logging.Duration("reduce_wait", res.ReduceWait))
	return res, nil
}

func (s *Solver) result(start time.Time, err error) Result {
	return Result{
		Rank:       s.part.Rank,
		Iterations: s.iteration,
		Residual:   s.residual,
		State:      s.state,
		Duration:   time.Since(start),
		HaloWait:   s.haloWait,
		ReduceWait: s.reduceWait,
		Err:        err,
	}
}

// Close releases the exchanger's staging rows.
func (s *Solver) Close() {
	s.halo.Release()
}
