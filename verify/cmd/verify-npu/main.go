// Command verify-npu runs the NPU simulator on a seed directory and checks
// the output against the golden vectors.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/sarchlab/akita/v4/monitoring"
	"github.com/sarchlab/npusim/config"
	"github.com/sarchlab/npusim/core"
	"github.com/sarchlab/npusim/verify"
	"github.com/tebeka/atexit"
)

var (
	configFlag    = flag.String("config", "", "YAML file overriding the default architecture")
	dirFlag       = flag.String("dir", ".", "Seed directory holding register_files/ and the instruction file")
	maxCyclesFlag = flag.Int("max-cycles", 10_000_000, "Stop the run after this many cycles, 0 for no limit")
	monitorFlag   = flag.Bool("monitor", false, "Start the akita monitoring server")
	logFlag       = flag.String("log", "npu.json.log", "File to write the JSON log to")
	traceFlag     = flag.Bool("trace", false, "Log datapath events")
	traceChFlag   = flag.Bool("trace-channels", false, "Log every channel read and write, implies -trace")
	outFlag       = flag.String("out", "sim_done", "File to write the result to")
	generateFlag  = flag.Bool("generate", false, "Write a row-sum workload into -dir before running")
)

func main() {
	flag.Parse()

	setupLogging()

	arch := config.Default()
	if *configFlag != "" {
		var err error
		arch, err = config.Load(*configFlag)
		if err != nil {
			fatal("load config", err)
		}
	}

	if *generateFlag {
		if err := verify.GenerateRowSum(*dirFlag, arch); err != nil {
			fatal("generate workload", err)
		}
	}

	s, err := verify.NewSimulation(*dirFlag, arch, *maxCyclesFlag)
	if err != nil {
		fatal("load simulation", err)
	}

	if *traceChFlag {
		s.NPU.Links().AcceptHook(core.ChannelTracer{})
	}

	if *monitorFlag {
		monitor := monitoring.NewMonitor()
		monitor.RegisterEngine(s.Engine)
		monitor.RegisterComponent(s.Driver)
		monitor.StartServer()
	}

	slog.Info("Simulation start",
		"Dir", *dirFlag,
		"Instructions", len(s.Program),
		"ExpectedOutputs", len(s.Golden),
	)

	r, err := s.Run()
	if err != nil {
		fatal("run simulation", err)
	}

	if r.Err != nil {
		s.NPU.DumpState(os.Stderr, core.Cycle(r.Cycles))
	}

	r.WriteReport(os.Stdout)

	if err := r.SaveSimDone(*outFlag); err != nil {
		fatal("save result", err)
	}

	slog.Info("Simulation done",
		"RunID", r.RunID.String(),
		"Cycles", r.Cycles,
		"Passed", r.Passed(),
	)

	if !r.Passed() {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func setupLogging() {
	f, err := os.Create(*logFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to open log file:", err)
		atexit.Exit(1)
	}

	atexit.Register(func() { f.Close() })

	handler := slog.NewJSONHandler(f, &slog.HandlerOptions{
		Level: core.LogLevel(*traceFlag || *traceChFlag),
	})

	slog.SetDefault(slog.New(handler))
}

func fatal(what string, err error) {
	slog.Error(what, "Error", err)
	fmt.Fprintf(os.Stderr, "%s: %v\n", what, err)
	atexit.Exit(1)
}
