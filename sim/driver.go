package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Start launches continuous mode: one tick every Speed() milliseconds of wall
// time. Starting while already running is a no-op.
func (sim *Simulator) Start() {
	sim.runMu.Lock()
	defer sim.runMu.Unlock()
	if sim.running {
		logrus.Debug("Simulation already running")
		return
	}
	sim.running = true
	sim.startLoopLocked()
	sim.AddLog("Simulation started")
}

// Stop cancels continuous mode. No tick fires after Stop returns.
// Stopping a stopped simulation is a no-op.
func (sim *Simulator) Stop() {
	sim.runMu.Lock()
	defer sim.runMu.Unlock()
	if !sim.running {
		return
	}
	sim.stopLoopLocked()
	sim.running = false
	sim.AddLog("Simulation stopped")
}

// Running reports whether continuous mode is active.
func (sim *Simulator) Running() bool {
	sim.runMu.Lock()
	defer sim.runMu.Unlock()
	return sim.running
}

// SetSpeed sets the simulated milliseconds per tick. While running, the
// periodic trigger is replaced: the old loop is fully stopped before the new
// one is armed, so ticks are never doubled.
func (sim *Simulator) SetSpeed(ms int64) error {
	if err := validateSpeed(ms, false); err != nil {
		return err
	}
	sim.runMu.Lock()
	defer sim.runMu.Unlock()

	sim.mu.Lock()
	sim.speed = ms
	sim.addLogLocked(fmt.Sprintf("Simulation speed set to %dms", ms))
	sim.mu.Unlock()

	if sim.running {
		sim.stopLoopLocked()
		sim.startLoopLocked()
	}
	return nil
}

// startLoopLocked arms the periodic trigger. Caller holds runMu.
func (sim *Simulator) startLoopLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	sim.cancel = cancel
	period := time.Duration(sim.Speed()) * time.Millisecond

	sim.wg.Add(1)
	go func() {
		defer sim.wg.Done()
		sim.runLoop(ctx, period)
	}()
	logrus.Debugf("Driver armed with period %v", period)
}

// stopLoopLocked cancels the periodic trigger and waits for an in-flight tick
// to finish. Caller holds runMu.
func (sim *Simulator) stopLoopLocked() {
	if sim.cancel == nil {
		return
	}
	sim.cancel()
	sim.wg.Wait()
	sim.cancel = nil
}

// runLoop ticks the simulation on every period until ctx is cancelled.
func (sim *Simulator) runLoop(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Both channels may be ready; cancellation wins.
			if ctx.Err() != nil {
				return
			}
			sim.mu.Lock()
			sim.tickLocked()
			sim.mu.Unlock()
		case <-ctx.Done():
			logrus.Debug("Driver stopping")
			return
		}
	}
}
