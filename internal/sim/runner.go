package sim

import (
	"context"
	"errors"
	"fmt"

	"autotrading/internal/clock"
	"autotrading/internal/ports"
)

// Piece is anything the runner drives in lockstep with the clock: data
// streamers, brokers, and strategies all qualify.
type Piece interface {
	// SetClock attaches the shared simulation clock before the run starts.
	SetClock(c *clock.SimulationClock)
	// Step performs the piece's work for the clock's current datetime.
	Step(ctx context.Context) error
}

// Runner owns one simulation: a single clock, the data-producing pieces, and
// the consuming pieces. Every step it ticks the clock once, then steps all
// producers in registration order, then all consumers in registration order,
// so consumers always observe a fully updated world.
type Runner struct {
	clk       *clock.SimulationClock
	log       ports.Logger
	producers []Piece
	consumers []Piece
}

// RunnerConfig holds the dependencies of a Runner.
type RunnerConfig struct {
	Clock  *clock.SimulationClock
	Logger ports.Logger
}

// NewRunner validates the configuration and returns an empty runner.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.Clock == nil {
		return nil, fmt.Errorf("%w: clock is required", ports.ErrConfigurationError)
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("%w: logger is required", ports.ErrConfigurationError)
	}
	return &Runner{clk: cfg.Clock, log: cfg.Logger}, nil
}

// Clock returns the runner's clock.
func (r *Runner) Clock() *clock.SimulationClock { return r.clk }

// AddProducer registers a piece stepped before the consumers, attaching the
// clock to it.
func (r *Runner) AddProducer(p Piece) {
	p.SetClock(r.clk)
	r.producers = append(r.producers, p)
}

// AddConsumer registers a piece stepped after the producers, attaching the
// clock to it.
func (r *Runner) AddConsumer(p Piece) {
	p.SetClock(r.clk)
	r.consumers = append(r.consumers, p)
}

// RunSim drives the simulation for at most stepCount ticks; a non-positive
// stepCount runs until the clock is exhausted. Exhaustion ends the run
// cleanly; any other error aborts it.
func (r *Runner) RunSim(ctx context.Context, stepCount int) error {
	steps := 0
	for stepCount <= 0 || steps < stepCount {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := r.clk.Tick(); err != nil {
			if errors.Is(err, ports.ErrEndOfSimulation) {
				r.log.Info(ctx, "simulation complete", map[string]interface{}{
					"steps": steps,
				})
				return nil
			}
			return fmt.Errorf("advancing clock: %w", err)
		}
		steps++

		for _, p := range r.producers {
			if err := p.Step(ctx); err != nil {
				return fmt.Errorf("stepping producer: %w", err)
			}
		}
		for _, p := range r.consumers {
			if err := p.Step(ctx); err != nil {
				return fmt.Errorf("stepping consumer: %w", err)
			}
		}
	}
	return nil
}
