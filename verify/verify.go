// Package verify runs an NPU simulation from a seed directory and checks
// its output against the golden vectors.
package verify

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/npusim/api"
	"github.com/sarchlab/npusim/config"
	"github.com/sarchlab/npusim/core"
	"github.com/sarchlab/npusim/npu"
	"github.com/sarchlab/npusim/program"
)

// A Simulation is an NPU and its driver, loaded from a seed directory.
type Simulation struct {
	Engine sim.Engine
	Driver api.Driver
	NPU    *npu.NPU

	Program []program.VLIW
	Golden  []core.Vector
}

// NewSimulation builds an NPU for arch and loads the register files, the
// program and the golden output from dir. A maxCycles of zero disables
// the cycle limit.
func NewSimulation(dir string, arch config.Arch, maxCycles int) (*Simulation, error) {
	n := npu.MakeBuilder().WithArch(arch).Build("NPU")

	if err := n.LoadSeeds(dir); err != nil {
		return nil, fmt.Errorf("load seeds: %w", err)
	}

	prog, err := program.LoadFile(filepath.Join(dir, npu.ProgramFile))
	if err != nil {
		return nil, err
	}

	golden, err := core.ReadVectorFile(
		filepath.Join(dir, npu.RegisterFileDir, npu.GoldenFile))
	if err != nil {
		return nil, fmt.Errorf("load golden output: %w", err)
	}

	engine := sim.NewSerialEngine()
	driver := api.DriverBuilder{}.
		WithEngine(engine).
		WithFreq(1 * sim.GHz).
		WithExpectedOutputs(len(golden)).
		WithMaxCycles(maxCycles).
		Build("Driver")
	driver.RegisterDevice(n)
	driver.Enqueue(prog)

	return &Simulation{
		Engine:  engine,
		Driver:  driver,
		NPU:     n,
		Program: prog,
		Golden:  golden,
	}, nil
}

// Run runs the simulation to completion and compares the outputs. A run
// that hits the cycle limit is reported as a failure, not returned as an
// error.
func (s *Simulation) Run() (*Report, error) {
	start := time.Now()

	err := s.Driver.Run()
	if err != nil && !errors.Is(err, api.ErrMaxCycles) {
		return nil, err
	}

	r := NewReport(s.Driver.Outputs(), s.Golden, s.Driver.Cycles(), time.Since(start))
	r.Err = err

	return r, nil
}

// A Mismatch is an output vector that differs from the golden vector at
// the same index. A missing vector is nil.
type Mismatch struct {
	Index int
	Got   core.Vector
	Want  core.Vector
}

// Compare returns every index at which outputs and golden differ,
// including vectors present in only one of them.
func Compare(outputs, golden []core.Vector) []Mismatch {
	n := len(outputs)
	if len(golden) > n {
		n = len(golden)
	}

	var mismatches []Mismatch
	for i := 0; i < n; i++ {
		var got, want core.Vector
		if i < len(outputs) {
			got = outputs[i]
		}
		if i < len(golden) {
			want = golden[i]
		}

		if i >= len(outputs) || i >= len(golden) || !got.Equal(want) {
			mismatches = append(mismatches, Mismatch{Index: i, Got: got, Want: want})
		}
	}

	return mismatches
}
