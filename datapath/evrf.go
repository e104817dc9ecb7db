// Package datapath holds the pipeline stages that follow the MVU and the
// composite that wires all five stages together.
package datapath

import (
	"fmt"

	"github.com/sarchlab/npusim/config"
	"github.com/sarchlab/npusim/core"
	"github.com/sarchlab/npusim/program"
)

// EVRF is the external vector register file stage. It either passes MVU
// results through or replaces them with vectors from its own register file.
type EVRF struct {
	name string

	UOp       *core.Input[program.EVRFMicroOp]
	Input     *core.Input[core.Vector]
	UpdateTag *core.Input[bool]
	Write     *core.Input[core.RegWrite[core.Vector]]
	Output    *core.Output[core.Vector]

	rf     *core.RegisterFile[core.Vector]
	rAddr  *core.Channel[int]
	rData  *core.Channel[core.Vector]
	bypass *core.Channel[core.Vector]
	links  core.Links

	currentTag int
}

// NewEVRF creates an EVRF stage.
func NewEVRF(name string, arch config.Arch) *EVRF {
	lat := arch.Latency

	e := &EVRF{
		name:      name,
		UOp:       core.NewInput[program.EVRFMicroOp](name + ".UOp"),
		Input:     core.NewInput[core.Vector](name + ".Input"),
		UpdateTag: core.NewInput[bool](name + ".UpdateTag"),
		Output:    core.NewOutput[core.Vector](name + ".Output"),
		rf: core.NewRegisterFile(name+".RF", arch.EVRFDepth,
			lat.RFRead, lat.RFWrite, core.Zeros(arch.Lanes)),
		rAddr:  core.NewChannel[int](name+".ReadAddr", 1, 0),
		rData:  core.NewChannel[core.Vector](name+".ReadData", 2, 0),
		bypass: core.NewPipe[core.Vector](name+".Bypass", lat.RFRead+1),
	}

	e.Write = e.rf.Write
	e.rf.ReadAddr.ConnectTo(e.rAddr)
	e.rf.ReadData.ConnectTo(e.rData)
	e.links = core.Links{e.rAddr, e.rData, e.bypass}

	return e
}

// Name returns the name of the stage.
func (e *EVRF) Name() string {
	return e.name
}

// RF returns the register file of the stage.
func (e *EVRF) RF() *core.RegisterFile[core.Vector] {
	return e.rf
}

// CurrentTag returns the tag of the newest instruction the stage may run.
func (e *EVRF) CurrentTag() int {
	return e.currentTag
}

// Links returns the channels inside the stage.
func (e *EVRF) Links() core.Links {
	return e.links
}

// Idle returns true if no vector is in flight in the stage.
func (e *EVRF) Idle() bool {
	return e.links.Drained() && e.rf.Idle()
}

// Tick advances the stage by one cycle.
func (e *EVRF) Tick(now core.Cycle) {
	e.currentTag += updateTag(e.UpdateTag, e.name, e.currentTag, now)
	e.emit()
	e.issue(now)
	e.rf.Tick(now)
	e.links.Clock()
}

func (e *EVRF) emit() {
	if e.Output.IsFull() {
		return
	}

	switch {
	case !e.bypass.IsEmpty():
		e.Output.Write(e.bypass.Read())
	case !e.rData.IsEmpty():
		e.Output.Write(e.rData.Read())
	}
}

func (e *EVRF) issue(now core.Cycle) {
	if e.UOp.IsEmpty() {
		return
	}

	u := e.UOp.Peek()

	if u.Op == program.EVRFNop {
		e.UOp.Read()
		core.Trace("EVRF", "Behavior", "NOP", "Component", e.name, "Cycle", now)

		return
	}

	if u.Tag > e.currentTag {
		return
	}

	switch {
	case u.Op == program.EVRFFlush:
		if e.Input.IsEmpty() {
			return
		}

		e.Input.Read()
	case u.Op == program.EVRFMove && u.Src == program.EVRFSrcMVU:
		if e.Input.IsEmpty() || e.bypass.IsFull() {
			return
		}

		e.bypass.Write(e.Input.Read())
	case u.Op == program.EVRFMove && u.Src == program.EVRFSrcEVRF:
		if e.rAddr.IsFull() {
			return
		}

		e.rAddr.Write(u.VRFAddr)
	default:
		panic(fmt.Sprintf("%s: unknown micro-op %v", e.name, u))
	}

	e.UOp.Read()
	traceIssue(e.name, now, u.FirstFlag, u.LastFlag, u.Tag)
}

// updateTag consumes one retire pulse and returns by how much the current
// tag advances.
func updateTag(in *core.Input[bool], name string, tag int, now core.Cycle) int {
	if in.IsEmpty() {
		return 0
	}

	in.Read()

	core.Trace("Stage",
		"Behavior", "TagUpdate",
		"Component", name,
		"Cycle", now,
		"Tag", tag+1,
	)

	return 1
}

func traceIssue(name string, now core.Cycle, first int, last bool, tag int) {
	if first > 0 {
		core.Trace("Stage",
			"Behavior", "IssueFirst",
			"Component", name,
			"Cycle", now,
			"Tag", tag,
			"Count", first,
		)
	}

	if last {
		core.Trace("Stage",
			"Behavior", "IssueLast",
			"Component", name,
			"Cycle", now,
			"Tag", tag,
		)
	}
}
