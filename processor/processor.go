// Package processor drains the computation cluster's result stream into the
// engine's callback path. It is the only consumer of the stream: results are
// handled strictly in arrival order, so commits for the same record never
// race.
package processor

import (
	"context"
	"errors"
	"fmt"

	"go.vocdoni.io/dvote/log"

	"github.com/veilmarket/veilmarket/engine"
	"github.com/veilmarket/veilmarket/mpc"
)

// Processor is the callback worker.
type Processor struct {
	engine  *engine.Engine
	cluster mpc.Cluster
	cancel  context.CancelFunc
}

// New creates a processor for the given engine and cluster.
func New(eng *engine.Engine, cluster mpc.Cluster) *Processor {
	return &Processor{engine: eng, cluster: cluster}
}

// Start launches the result worker.
func (p *Processor) Start(ctx context.Context) error {
	if p.cluster == nil {
		return fmt.Errorf("processor: no cluster configured")
	}
	ctx, p.cancel = context.WithCancel(ctx)
	go func() {
		for {
			select {
			case res := <-p.cluster.Results():
				if err := p.engine.HandleResult(res); err != nil {
					// aborted computations are already journaled by the
					// engine; anything else is unexpected
					if !errors.Is(err, engine.ErrAbortedComputation) {
						log.Errorw(err, "failed to handle computation result")
					}
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Stop cancels the result worker.
func (p *Processor) Stop() error {
	if p.cancel != nil {
		p.cancel()
	}
	return nil
}
