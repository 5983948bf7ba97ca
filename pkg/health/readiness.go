package health

import "sync/atomic"

// Readiness phases, ordered by lifecycle. Draining is terminal: once the
// process starts shutting down it never reports ready again, which tells the
// orchestrator to stop routing new traffic here.
const (
	phaseStarting int32 = iota
	phaseReady
	phaseDraining
)

// ReadinessState tracks where the process is in its lifecycle for the
// readiness probe.
type ReadinessState struct {
	phase atomic.Int32
}

var globalState ReadinessState

// GetReadinessState returns the process-wide readiness state.
func GetReadinessState() *ReadinessState {
	return &globalState
}

// SetReady marks the process as ready to receive traffic. Ignored once
// draining has begun.
func (r *ReadinessState) SetReady() {
	r.phase.CompareAndSwap(phaseStarting, phaseReady)
}

// SetShuttingDown moves the process into its terminal draining phase.
func (r *ReadinessState) SetShuttingDown() {
	r.phase.Store(phaseDraining)
}

// IsReady reports whether the process should receive traffic.
func (r *ReadinessState) IsReady() bool {
	return r.phase.Load() == phaseReady
}

// IsShuttingDown reports whether the process has begun draining.
func (r *ReadinessState) IsShuttingDown() bool {
	return r.phase.Load() == phaseDraining
}
