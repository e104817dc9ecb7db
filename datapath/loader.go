package datapath

import (
	"fmt"

	"github.com/sarchlab/npusim/config"
	"github.com/sarchlab/npusim/core"
	"github.com/sarchlab/npusim/program"
)

// A Loader is the last stage. It stores vectors to the output, writes them
// back into register files, and retires instructions.
type Loader struct {
	name string
	arch config.Arch

	UOp    *core.Input[program.LDMicroOp]
	Input  *core.Input[core.Vector]
	Output *core.Output[core.Vector]
	Retire *core.Output[bool]

	// Dests are the write-back ports, indexed by destination id. Ids below
	// the number of tiles are the tile vector register files. They are
	// followed by the EVRF, then MFU0 VRF0, MFU0 VRF1, MFU1 VRF0 and
	// MFU1 VRF1.
	Dests []*core.Output[core.RegWrite[core.Vector]]

	queue []core.Vector
}

// Destination ids past the tiles.
const (
	DestEVRF = iota
	DestMFU0VRF0
	DestMFU0VRF1
	DestMFU1VRF0
	DestMFU1VRF1
	numStageDests
)

// NewLoader creates a loader.
func NewLoader(name string, arch config.Arch) *Loader {
	ld := &Loader{
		name:   name,
		arch:   arch,
		UOp:    core.NewInput[program.LDMicroOp](name + ".UOp"),
		Input:  core.NewInput[core.Vector](name + ".Input"),
		Output: core.NewOutput[core.Vector](name + ".Output"),
		Retire: core.NewOutput[bool](name + ".Retire"),
	}

	for id := 0; id < arch.Tiles+numStageDests; id++ {
		ld.Dests = append(ld.Dests, core.NewOutput[core.RegWrite[core.Vector]](
			fmt.Sprintf("%s.Dest[%d]", name, id)))
	}

	return ld
}

// Name returns the name of the loader.
func (ld *Loader) Name() string {
	return ld.name
}

// LoadInputQueue replaces the vectors that STOREs from the input read.
func (ld *Loader) LoadInputQueue(rows []core.Vector) {
	ld.queue = append([]core.Vector(nil), rows...)
}

// QueueLen returns how many input vectors are left.
func (ld *Loader) QueueLen() int {
	return len(ld.queue)
}

// Tick executes at most one micro-op.
func (ld *Loader) Tick(now core.Cycle) {
	if ld.UOp.IsEmpty() {
		return
	}

	u := ld.UOp.Peek()

	switch u.Op {
	case program.LDNop:
		ld.UOp.Read()
		core.Trace("Loader", "Behavior", "NOP", "Component", ld.name, "Cycle", now)
	case program.LDStore:
		ld.store(u, now)
	case program.LDFlush:
		ld.flush(u, now)
	default:
		panic(fmt.Sprintf("%s: unknown micro-op %v", ld.name, u))
	}
}

func (ld *Loader) store(u program.LDMicroOp, now core.Cycle) {
	switch u.Src {
	case program.LDSrcDatapath:
		if ld.Input.IsEmpty() {
			return
		}
	case program.LDSrcInput:
		if len(ld.queue) == 0 {
			panic(fmt.Sprintf("%s: input queue is empty", ld.name))
		}
	default:
		panic(fmt.Sprintf("%s: unknown source %d", ld.name, u.Src))
	}

	if !ld.canStore(u) {
		return
	}

	ld.UOp.Read()

	var v core.Vector
	if u.Src == program.LDSrcDatapath {
		v = ld.Input.Read()
	} else {
		v, ld.queue = ld.queue[0], ld.queue[1:]
	}

	if u.WriteToOutput {
		ld.Output.Write(v)

		core.Trace("Loader",
			"Behavior", "Produced",
			"Component", ld.name,
			"Cycle", now,
			"Data", v.String(),
		)
	}

	for _, d := range u.Dst {
		if !d.Valid {
			continue
		}

		data := v
		if d.ID < ld.arch.Tiles {
			data = ld.narrow(v)
		}

		ld.Dests[d.ID].Write(core.RegWrite[core.Vector]{Addr: d.Addr, Data: data})
	}

	traceIssue(ld.name, now, u.FirstFlag, u.LastFlag, 0)
	ld.retire(u, now)
}

func (ld *Loader) canStore(u program.LDMicroOp) bool {
	if u.WriteToOutput && ld.Output.IsFull() {
		return false
	}

	if u.LastFlag && ld.Retire.IsFull() {
		return false
	}

	// Both destinations may name the same port.
	writes := make(map[int]int, len(u.Dst))
	for _, d := range u.Dst {
		if !d.Valid {
			continue
		}

		if d.ID < 0 || d.ID >= len(ld.Dests) {
			panic(fmt.Sprintf("%s: unknown destination %d", ld.name, d.ID))
		}

		writes[d.ID]++
	}

	for id, n := range writes {
		if !ld.Dests[id].CanAccept(n) {
			return false
		}
	}

	return true
}

func (ld *Loader) flush(u program.LDMicroOp, now core.Cycle) {
	if ld.Input.IsEmpty() || (u.LastFlag && ld.Retire.IsFull()) {
		return
	}

	ld.UOp.Read()
	ld.Input.Read()
	ld.retire(u, now)
}

func (ld *Loader) retire(u program.LDMicroOp, now core.Cycle) {
	if !u.LastFlag {
		return
	}

	ld.Retire.Write(true)

	core.Trace("Loader", "Behavior", "Retire", "Component", ld.name, "Cycle", now)
}

func (ld *Loader) narrow(v core.Vector) core.Vector {
	out := make(core.Vector, len(v))
	for i, x := range v {
		out[i] = ld.arch.Narrow(x)
	}

	return out
}
