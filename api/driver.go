// Package api defines the driver that runs an NPU on an akita engine.
package api

import (
	"errors"
	"fmt"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/npusim/core"
	"github.com/sarchlab/npusim/program"
)

// DrainCycles is the number of cycles the driver keeps ticking the device
// after the run has finished. They are not counted in the cycle total.
const DrainCycles = 100

// ErrMaxCycles is returned when a run hits the cycle limit.
var ErrMaxCycles = errors.New("maximum number of cycles reached")

// Device is a cycle-driven accelerator that takes VLIW words and produces
// output vectors.
type Device interface {
	Tick(now core.Cycle)
	CanIssue() bool
	Issue(w program.VLIW)
	PopOutput() (core.Vector, bool)
	Idle() bool
}

// Driver provides the interface to control an NPU.
type Driver interface {
	sim.Component

	// RegisterDevice sets the device that the driver runs.
	RegisterDevice(device Device)

	// Enqueue appends instructions to the list the driver feeds in, one
	// VLIW word per cycle.
	Enqueue(prog []program.VLIW)

	// ExpectOutputs makes the run finish once n output vectors have been
	// collected. Without it, the run finishes when the device is idle.
	ExpectOutputs(n int)

	// Run ticks the device until the run finishes, then drains it.
	Run() error

	// Outputs returns the output vectors collected so far, oldest first.
	Outputs() []core.Vector

	// Cycles returns the number of cycles the run took, excluding the drain.
	Cycles() int
}

type driverImpl struct {
	*sim.TickingComponent

	device    Device
	maxCycles int
	expected  int

	insts   []program.VLIW
	outputs []core.Vector

	now      core.Cycle
	cycles   int
	finished bool
	drained  int
	timedOut bool
}

// Tick runs the driver and the device for one cycle.
func (d *driverImpl) Tick() (madeProgress bool) {
	if d.device == nil {
		panic("driver " + d.Name() + ": no device registered")
	}

	if d.finished {
		return d.drain()
	}

	d.feedIn()
	d.device.Tick(d.now)
	d.collect()
	d.now++

	switch {
	case d.isDone():
		d.finish(false)
	case d.maxCycles > 0 && int(d.now) >= d.maxCycles:
		d.finish(true)
	}

	return true
}

func (d *driverImpl) feedIn() {
	if len(d.insts) == 0 || !d.device.CanIssue() {
		return
	}

	d.device.Issue(d.insts[0])
	d.insts = d.insts[1:]
}

func (d *driverImpl) collect() {
	v, ok := d.device.PopOutput()
	if !ok {
		return
	}

	d.outputs = append(d.outputs, v)

	core.Trace("Driver",
		"Behavior", "Collect",
		"Component", d.Name(),
		"Cycle", d.now,
		"Index", len(d.outputs)-1,
		"Data", v.String(),
	)
}

func (d *driverImpl) isDone() bool {
	if len(d.insts) > 0 {
		return false
	}

	if d.expected > 0 {
		return len(d.outputs) >= d.expected
	}

	return d.device.Idle()
}

func (d *driverImpl) finish(timedOut bool) {
	d.finished = true
	d.timedOut = timedOut
	d.cycles = int(d.now)

	core.Trace("Driver",
		"Behavior", "Finish",
		"Component", d.Name(),
		"Cycle", d.now,
		"Outputs", len(d.outputs),
		"TimedOut", timedOut,
	)
}

func (d *driverImpl) drain() bool {
	if d.drained >= DrainCycles {
		return false
	}

	d.device.Tick(d.now)
	d.collect()
	d.now++
	d.drained++

	return true
}

// RegisterDevice sets the device that the driver runs.
func (d *driverImpl) RegisterDevice(device Device) {
	d.device = device
}

// Enqueue appends instructions to be fed in.
func (d *driverImpl) Enqueue(prog []program.VLIW) {
	d.insts = append(d.insts, prog...)
}

// ExpectOutputs sets the number of outputs that ends the run.
func (d *driverImpl) ExpectOutputs(n int) {
	d.expected = n
}

// Outputs returns the collected output vectors.
func (d *driverImpl) Outputs() []core.Vector {
	return d.outputs
}

// Cycles returns the cycle count of the run.
func (d *driverImpl) Cycles() int {
	return d.cycles
}

// Run runs the engine until the driver stops ticking.
func (d *driverImpl) Run() error {
	d.TickLater()

	if err := d.Engine.Run(); err != nil {
		return err
	}

	if d.timedOut {
		return fmt.Errorf("driver %s: %w after %d cycles with %d of %d outputs",
			d.Name(), ErrMaxCycles, d.cycles, len(d.outputs), d.expected)
	}

	return nil
}
