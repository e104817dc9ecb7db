package main

import (
	"fmt"
	"os"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/npusim/api"
	"github.com/sarchlab/npusim/config"
	"github.com/sarchlab/npusim/core"
	"github.com/sarchlab/npusim/npu"
	"github.com/sarchlab/npusim/verify"
	"github.com/tebeka/atexit"
)

// Two lane chunks per tile, so every output row block takes two vectors.
func smallArch() config.Arch {
	arch := config.Default()
	arch.Tiles = 2
	arch.DPEs = 8
	arch.Lanes = 4
	arch.Latency.MVUReduction = config.DefaultReductionLatency(arch.Tiles)

	return arch
}

func rowSum(driver api.Driver, device *npu.NPU) {
	arch := device.Arch()
	w := verify.DefaultRowSum(arch)

	mrfs := w.Matrices(arch)
	for t := range mrfs {
		for d := range mrfs[t] {
			if err := device.Datapath().MVU().Tile(t).LoadMRF(d, mrfs[t][d]); err != nil {
				panic(err)
			}
		}
	}

	device.Datapath().Loader().LoadInputQueue(w.InputQueue(arch))

	golden := w.Golden(arch, mrfs)
	driver.ExpectOutputs(len(golden))
	driver.Enqueue(w.Program(arch))

	if err := driver.Run(); err != nil {
		panic(err)
	}

	fmt.Println("cycles:", driver.Cycles())
	for i, v := range driver.Outputs() {
		fmt.Printf("  %d: npu %v ref %v\n", i, v, golden[i])
	}

	mismatches := verify.Compare(driver.Outputs(), golden)
	if len(mismatches) > 0 {
		fmt.Printf("%d vectors mismatch\n", len(mismatches))
		device.DumpState(os.Stdout, core.Cycle(driver.Cycles()))
		atexit.Exit(1)
	}
}

func main() {
	engine := sim.NewSerialEngine()

	driver := api.DriverBuilder{}.
		WithEngine(engine).
		WithFreq(1 * sim.GHz).
		WithMaxCycles(100000).
		Build("Driver")

	device := npu.MakeBuilder().
		WithArch(smallArch()).
		Build("NPU")

	driver.RegisterDevice(device)
	rowSum(driver, device)
	atexit.Exit(0)
}
