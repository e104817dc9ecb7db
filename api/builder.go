package api

import "github.com/sarchlab/akita/v4/sim"

// DriverBuilder creates a new instance of Driver.
type DriverBuilder struct {
	engine    sim.Engine
	freq      sim.Freq
	maxCycles int
	expected  int
}

// WithEngine sets the engine.
func (b DriverBuilder) WithEngine(engine sim.Engine) DriverBuilder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the driver.
func (b DriverBuilder) WithFreq(freq sim.Freq) DriverBuilder {
	b.freq = freq
	return b
}

// WithMaxCycles stops the run after the given number of cycles. Zero means
// no limit.
func (b DriverBuilder) WithMaxCycles(n int) DriverBuilder {
	b.maxCycles = n
	return b
}

// WithExpectedOutputs sets the number of output vectors that ends the run.
func (b DriverBuilder) WithExpectedOutputs(n int) DriverBuilder {
	b.expected = n
	return b
}

// Build create a driver.
func (b DriverBuilder) Build(name string) Driver {
	d := &driverImpl{
		maxCycles: b.maxCycles,
		expected:  b.expected,
	}

	d.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, d)

	return d
}
