// Package probe runs startup reachability checks against the external
// collaborators before the server starts serving.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Probe is a single startup check. Critical failures prevent startup;
// others only log, since collaborators may come up later.
type Probe struct {
	Name     string
	Check    func(ctx context.Context) error
	Critical bool
}

// Result is the outcome of one probe.
type Result struct {
	Name     string
	Critical bool
	Err      error
	Duration time.Duration
}

const checkTimeout = 5 * time.Second

// Run executes the probes sequentially, logs each outcome, and returns
// a combined error when any critical probe failed.
func Run(ctx context.Context, probes []Probe) error {
	var critical []error

	for _, p := range probes {
		r := runOne(ctx, p)

		if r.Err == nil {
			slog.Info("Startup check passed", "probe", r.Name, "duration", r.Duration.Round(time.Millisecond))
			continue
		}

		slog.Error("Startup check failed", "probe", r.Name, "critical", r.Critical, "error", r.Err)
		if r.Critical {
			critical = append(critical, fmt.Errorf("%s: %w", r.Name, r.Err))
		}
	}

	return errors.Join(critical...)
}

func runOne(ctx context.Context, p Probe) Result {
	// Bound each check so that one stuck collaborator can't hang startup
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()
	err := p.Check(ctx)
	return Result{Name: p.Name, Critical: p.Critical, Err: err, Duration: time.Since(start)}
}
