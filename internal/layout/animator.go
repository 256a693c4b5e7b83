// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package layout

import (
	"sync"
	"time"

	"github.com/pdiddy/rabbithole/pkg/types"
)

// alphaMin is the energy level below which the animated simulation parks.
const alphaMin = 0.001

// ScheduleFunc queues f to run after d and returns a cancel handle.
// The default wraps time.AfterFunc; tests substitute a manual scheduler.
type ScheduleFunc func(d time.Duration, f func()) (cancel func())

func defaultSchedule(d time.Duration, f func()) func() {
	t := time.AfterFunc(d, f)
	return func() { t.Stop() }
}

// Animator drives a simulation on a cooperative, single-threaded tick
// scheduler. Stop releases the scheduling handle so no callback leaks;
// Reheat restores energy so an already-converged layout moves again.
type Animator struct {
	mu       sync.Mutex
	sim      *simulation
	schedule ScheduleFunc
	interval time.Duration
	cancel   func()
	running  bool
	onTick   func(map[string]types.Position)
}

// NewAnimator wraps the full-layout force system for the given graph.
// onTick receives the position map after every tick; it runs on the
// scheduler goroutine and must not block.
func NewAnimator(e *Engine, nodes []*types.GraphNode, edges []types.GraphEdge, clusters []types.Cluster, onTick func(map[string]types.Position)) *Animator {
	ordered := sortedByID(nodes)
	simNodes, index := e.seedRadial(ordered)
	attachClusterTargets(simNodes, index, clusters)

	sim := newSimulation(simNodes, buildLinks(edges, index), simConfig{
		repulsion:       900,
		linkDistance:    80,
		linkStrength:    0.7,
		centerStrength:  0.05,
		clusterStrength: 0.12,
		collide:         true,
	})
	return &Animator{
		sim:      sim,
		schedule: defaultSchedule,
		interval: 16 * time.Millisecond,
		onTick:   onTick,
	}
}

// SetScheduler replaces the tick scheduler. Call before Start.
func (a *Animator) SetScheduler(s ScheduleFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.schedule = s
}

// Start begins ticking. Starting a running animator is a no-op.
func (a *Animator) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return
	}
	a.running = true
	a.cancel = a.schedule(a.interval, a.step)
}

// Stop halts ticking and releases the scheduling handle.
func (a *Animator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
}

func (a *Animator) stopLocked() {
	a.running = false
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
}

// Reheat resets simulation energy and resumes ticking if stopped.
func (a *Animator) Reheat() {
	a.mu.Lock()
	a.sim.reheat()
	running := a.running
	a.mu.Unlock()
	if !running {
		a.Start()
	}
}

// Running reports whether the animator currently holds a schedule handle.
func (a *Animator) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// Positions returns the current coordinates.
func (a *Animator) Positions() map[string]types.Position {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sim.positions()
}

// step runs one tick and reschedules until the system cools below
// alphaMin, at which point the handle is released.
func (a *Animator) step() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.sim.tick()
	positions := a.sim.positions()
	cooled := a.sim.alpha < alphaMin
	if cooled {
		a.stopLocked()
	} else {
		a.cancel = a.schedule(a.interval, a.step)
	}
	onTick := a.onTick
	a.mu.Unlock()

	if onTick != nil {
		onTick(positions)
	}
}
