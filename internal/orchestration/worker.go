package orchestration

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/agbru/heatcalc/internal/comm"
)

const tracerName = "github.com/agbru/heatcalc/internal/orchestration"

// RunWorker runs one worker to completion over c. It is the entry point of
// multi-process runs, where every process owns a single rank. The returned
// solver gives access to the worker's final band; the caller must Close it.
// A nil solver is returned when the configuration is rejected.
func RunWorker(ctx context.Context, c comm.Communicator, problem Problem, opts Options) (Result, *Solver, error) {
	s, err := NewSolver(c, problem, opts)
	if err != nil {
		return Result{Rank: c.Rank(), Err: err}, nil, err
	}
	res, err := runTraced(ctx, s)
	return res, s, err
}

// runTraced wraps Solver.Run in a span carrying the worker's outcome.
func runTraced(ctx context.Context, s *Solver) (Result, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "heatcalc.worker.solve",
		trace.WithAttributes(
			attribute.Int("heatcalc.rank", s.part.Rank),
			attribute.Int("heatcalc.workers", s.part.Workers),
			attribute.Int("heatcalc.local_rows", s.part.LocalRows),
			attribute.Int("heatcalc.cols", s.part.Cols),
			attribute.String("heatcalc.kernel", s.kernel.Name()),
		))
	defer span.End()

	res, err := s.Run(ctx)
	span.SetAttributes(
		attribute.Int("heatcalc.iterations", res.Iterations),
		attribute.Float64("heatcalc.residual", res.Residual),
		attribute.Bool("heatcalc.converged", res.Converged()),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}
