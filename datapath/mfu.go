package datapath

import (
	"fmt"

	"github.com/sarchlab/npusim/config"
	"github.com/sarchlab/npusim/core"
	"github.com/sarchlab/npusim/program"
)

// An ActivationFunc maps one vector to another, lane by lane. It must not
// modify its argument.
type ActivationFunc func(core.Vector) core.Vector

// Identity returns its argument.
func Identity(v core.Vector) core.Vector {
	return v
}

// DefaultActivations returns the activation table an MFU starts with.
//
// TODO: replace the identity placeholders with the fixed-point tanh, sigmoid
// and relu of the hardware once their encodings are pinned down.
func DefaultActivations() map[program.ActOp]ActivationFunc {
	return map[program.ActOp]ActivationFunc{
		program.ActNop:     Identity,
		program.ActTanh:    Identity,
		program.ActSigmoid: Identity,
		program.ActReLU:    Identity,
	}
}

// An MFU is a multi-function unit. It applies an activation, an elementwise
// add or subtract, and an elementwise multiply to every incoming vector.
type MFU struct {
	name string

	UOp       *core.Input[program.MFUMicroOp]
	Input     *core.Input[core.Vector]
	UpdateTag *core.Input[bool]
	VRF0Write *core.Input[core.RegWrite[core.Vector]]
	VRF1Write *core.Input[core.RegWrite[core.Vector]]
	Output    *core.Output[core.Vector]

	vrf0, vrf1     *core.RegisterFile[core.Vector]
	rAddr0, rAddr1 *core.Channel[int]
	rData0, rData1 *core.Channel[core.Vector]
	uops           *core.Channel[program.MFUMicroOp]
	results        *core.Channel[core.Vector]
	links          core.Links

	activations map[program.ActOp]ActivationFunc
	currentTag  int
}

// NewMFU creates an MFU with the default activation table.
func NewMFU(name string, arch config.Arch) *MFU {
	lat := arch.Latency
	zero := core.Zeros(arch.Lanes)

	m := &MFU{
		name:      name,
		UOp:       core.NewInput[program.MFUMicroOp](name + ".UOp"),
		Input:     core.NewInput[core.Vector](name + ".Input"),
		UpdateTag: core.NewInput[bool](name + ".UpdateTag"),
		Output:    core.NewOutput[core.Vector](name + ".Output"),
		vrf0: core.NewRegisterFile(name+".VRF0", arch.MFUVRF0Depth,
			lat.RFRead, lat.RFWrite, zero),
		vrf1: core.NewRegisterFile(name+".VRF1", arch.MFUVRF1Depth,
			lat.RFRead, lat.RFWrite, zero),
		rAddr0:  core.NewChannel[int](name+".VRF0ReadAddr", 1, 0),
		rAddr1:  core.NewChannel[int](name+".VRF1ReadAddr", 1, 0),
		rData0:  core.NewChannel[core.Vector](name+".VRF0ReadData", 2, 0),
		rData1:  core.NewChannel[core.Vector](name+".VRF1ReadData", 2, 0),
		uops:    core.NewPipe[program.MFUMicroOp](name+".UOpPipe", lat.RFRead+1),
		results: core.NewPipe[core.Vector](name+".Results", arch.MFULatency()),

		activations: DefaultActivations(),
	}

	m.VRF0Write = m.vrf0.Write
	m.VRF1Write = m.vrf1.Write
	m.vrf0.ReadAddr.ConnectTo(m.rAddr0)
	m.vrf0.ReadData.ConnectTo(m.rData0)
	m.vrf1.ReadAddr.ConnectTo(m.rAddr1)
	m.vrf1.ReadData.ConnectTo(m.rData1)

	m.links = core.Links{
		m.rAddr0, m.rAddr1, m.rData0, m.rData1, m.uops, m.results,
	}

	return m
}

// Name returns the name of the MFU.
func (m *MFU) Name() string {
	return m.name
}

// SetActivation replaces the function used for an activation op.
func (m *MFU) SetActivation(op program.ActOp, fn ActivationFunc) {
	m.activations[op] = fn
}

// VRF0 returns the register file that feeds the add unit.
func (m *MFU) VRF0() *core.RegisterFile[core.Vector] {
	return m.vrf0
}

// VRF1 returns the register file that feeds the multiply unit.
func (m *MFU) VRF1() *core.RegisterFile[core.Vector] {
	return m.vrf1
}

// CurrentTag returns the tag of the newest instruction the MFU may run.
func (m *MFU) CurrentTag() int {
	return m.currentTag
}

// Links returns the channels inside the MFU.
func (m *MFU) Links() core.Links {
	return m.links
}

// Idle returns true if no vector is in flight in the MFU.
func (m *MFU) Idle() bool {
	return m.links.Drained() && m.vrf0.Idle() && m.vrf1.Idle()
}

// Tick advances the MFU by one cycle.
func (m *MFU) Tick(now core.Cycle) {
	m.currentTag += updateTag(m.UpdateTag, m.name, m.currentTag, now)
	m.forward()
	m.execute(now)
	m.issue(now)
	m.vrf0.Tick(now)
	m.vrf1.Tick(now)
	m.links.Clock()
}

func (m *MFU) forward() {
	if m.results.IsEmpty() || m.Output.IsFull() {
		return
	}

	m.Output.Write(m.results.Read())
}

func (m *MFU) issue(now core.Cycle) {
	if m.UOp.IsEmpty() {
		return
	}

	u := m.UOp.Peek()

	if u.Op == program.MFUNop {
		m.UOp.Read()
		core.Trace("MFU", "Behavior", "NOP", "Component", m.name, "Cycle", now)

		return
	}

	if u.Tag > m.currentTag || m.uops.IsFull() {
		return
	}

	needAdd := u.AddOp != program.AddNop
	needMul := u.MulOp != program.MulNop

	if (needAdd && m.rAddr0.IsFull()) || (needMul && m.rAddr1.IsFull()) {
		return
	}

	m.UOp.Read()

	if needAdd {
		m.rAddr0.Write(u.VRF0Addr)
	}

	if needMul {
		m.rAddr1.Write(u.VRF1Addr)
	}

	m.uops.Write(u)
	traceIssue(m.name, now, u.FirstFlag, u.LastFlag, u.Tag)
}

func (m *MFU) execute(now core.Cycle) {
	if m.uops.IsEmpty() || m.Input.IsEmpty() || m.results.IsFull() {
		return
	}

	u := m.uops.Peek()
	needAdd := u.AddOp != program.AddNop
	needMul := u.MulOp != program.MulNop

	if (needAdd && m.rData0.IsEmpty()) || (needMul && m.rData1.IsEmpty()) {
		return
	}

	m.uops.Read()
	v := m.Input.Read()

	if u.ActOp != program.ActNop {
		v = m.activate(u.ActOp, v)
	}

	if needAdd {
		v = m.add(u.AddOp, v, m.rData0.Read())
	}

	if needMul {
		v = mul(v, m.rData1.Read())
	}

	m.results.Write(v)

	if u.LastFlag {
		core.Trace("MFU",
			"Behavior", "Produced",
			"Component", m.name,
			"Cycle", now,
			"Tag", u.Tag,
		)
	}
}

func (m *MFU) activate(op program.ActOp, v core.Vector) core.Vector {
	fn, ok := m.activations[op]
	if !ok {
		panic(fmt.Sprintf("%s: unknown activation %d", m.name, op))
	}

	return fn(v)
}

func (m *MFU) add(op program.AddOp, a, b core.Vector) core.Vector {
	out := make(core.Vector, len(a))

	for i := range a {
		switch op {
		case program.AddAdd:
			out[i] = a[i] + b[i]
		case program.AddSubAB:
			out[i] = a[i] - b[i]
		case program.AddSubBA:
			out[i] = b[i] - a[i]
		default:
			panic(fmt.Sprintf("%s: unknown add op %d", m.name, op))
		}
	}

	return out
}

func mul(a, b core.Vector) core.Vector {
	out := make(core.Vector, len(a))
	for i := range a {
		out[i] = a[i] * b[i]
	}

	return out
}
