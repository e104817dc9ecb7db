package mvu

import (
	"fmt"

	"github.com/sarchlab/npusim/config"
	"github.com/sarchlab/npusim/core"
	"github.com/sarchlab/npusim/program"
)

type lane struct {
	mrf   *core.RegisterFile[core.Vector]
	dpe   *DPE
	accum *Accumulator

	mrfRAddr  *core.Channel[int]
	ctrl      *core.Channel[Control]
	accumCtrl *core.Channel[AccumControl]
}

// A Tile is one slice of the MVU. It holds a vector register file shared by
// all its lanes, and one DPE, matrix register file and accumulator per lane.
type Tile struct {
	name string
	arch config.Arch

	UOp      *core.Input[program.MVUMicroOp]
	VRFWrite *core.Input[core.RegWrite[core.Vector]]
	Results  []*core.Output[Triple]

	vrf   *core.RegisterFile[core.Vector]
	lanes []*lane

	vrfRAddr *core.Channel[int]
	mrfWrite *core.Channel[core.RegWrite[core.Vector]]
	links    core.Links
}

// NewTile creates a tile and connects its lanes.
func NewTile(name string, arch config.Arch) *Tile {
	lat := arch.Latency
	zero := core.Zeros(arch.Lanes)

	t := &Tile{
		name: name,
		arch: arch,
		UOp:  core.NewInput[program.MVUMicroOp](name + ".UOp"),
		vrf: core.NewRegisterFile(name+".VRF",
			arch.MVUVRFDepth, lat.RFRead, lat.RFWrite, zero),
		vrfRAddr: core.NewChannel[int](name+".VRFReadAddr", 1, 0),
		mrfWrite: core.NewChannel[core.RegWrite[core.Vector]](
			name+".MRFWrite", 1, 0),
	}

	t.VRFWrite = t.vrf.Write
	t.vrf.ReadAddr.ConnectTo(t.vrfRAddr)
	t.links = append(t.links, t.vrfRAddr, t.mrfWrite)

	for d := 0; d < arch.DPEs; d++ {
		t.lanes = append(t.lanes, t.buildLane(d, zero))
	}

	return t
}

func (t *Tile) buildLane(d int, zero core.Vector) *lane {
	arch := t.arch
	lat := arch.Latency
	prefix := fmt.Sprintf("%s.Lane[%d]", t.name, d)

	l := &lane{
		mrf: core.NewRegisterFile(prefix+".MRF",
			arch.MVUMRFDepth, lat.RFRead, lat.RFWrite, zero),
		dpe:      NewDPE(prefix+".DPE", arch),
		accum:    NewAccumulator(prefix+".Accum", arch.AccumSlots()),
		mrfRAddr: core.NewChannel[int](prefix+".MRFReadAddr", 1, 0),
		ctrl: core.NewPipe[Control](prefix+".DPECtrl",
			arch.DPEControlLatency()),
		accumCtrl: core.NewChannel[AccumControl](prefix+".AccumCtrl",
			arch.AccumLatency()+arch.AccumSlots(), arch.AccumLatency()),
	}

	mrfToDPE := core.NewPipe[core.Vector](prefix+".MRFToDPE", lat.MRFToDPE)
	vrfToDPE := core.NewPipe[core.Vector](prefix+".VRFToDPE", lat.VRFToDPE)
	dpeToAccum := core.NewPipe[Triple](prefix+".DPEToAccum", lat.MVUAccum)

	l.mrf.ReadAddr.ConnectTo(l.mrfRAddr)
	l.mrf.Write.ConnectTo(t.mrfWrite)
	l.mrf.ReadData.ConnectTo(mrfToDPE)
	t.vrf.ReadData.ConnectTo(vrfToDPE)

	l.dpe.Ctrl.ConnectTo(l.ctrl)
	l.dpe.Broadcast.ConnectTo(mrfToDPE)
	l.dpe.Seq.ConnectTo(vrfToDPE)
	l.dpe.Result.ConnectTo(dpeToAccum)

	l.accum.In.ConnectTo(dpeToAccum)
	l.accum.Ctrl.ConnectTo(l.accumCtrl)
	t.Results = append(t.Results, l.accum.Output)

	t.links = append(t.links,
		l.mrfRAddr, l.ctrl, l.accumCtrl, mrfToDPE, vrfToDPE, dpeToAccum)

	return l
}

// Name returns the name of the tile.
func (t *Tile) Name() string {
	return t.name
}

// LoadVRF seeds the vector register file.
func (t *Tile) LoadVRF(rows []core.Vector) error {
	return t.vrf.Load(rows)
}

// LoadMRF seeds the matrix register file of one lane.
func (t *Tile) LoadMRF(d int, rows []core.Vector) error {
	if d < 0 || d >= len(t.lanes) {
		return fmt.Errorf("%s: no lane %d", t.name, d)
	}

	return t.lanes[d].mrf.Load(rows)
}

// VRF returns the vector register file.
func (t *Tile) VRF() *core.RegisterFile[core.Vector] {
	return t.vrf
}

// Links returns every channel inside the tile.
func (t *Tile) Links() core.Links {
	links := append(core.Links{}, t.links...)
	for _, l := range t.lanes {
		links = append(links, l.dpe.Links()...)
	}

	return links
}

// Idle returns true if no work is in flight in the tile.
func (t *Tile) Idle() bool {
	if !t.Links().Drained() || !t.vrf.Idle() {
		return false
	}

	for _, l := range t.lanes {
		if !l.mrf.Idle() {
			return false
		}
	}

	return true
}

// Tick dispatches one micro-op to every lane and then advances the lanes.
func (t *Tile) Tick(now core.Cycle) {
	t.dispatch()

	t.vrf.Tick(now)
	for _, l := range t.lanes {
		l.mrf.Tick(now)
		l.dpe.Tick(now)
		l.accum.Tick(now)
	}

	t.links.Clock()
}

func (t *Tile) dispatch() {
	if t.UOp.IsEmpty() || !t.canDispatch() {
		return
	}

	u := t.UOp.Read()

	if u.VRFEn {
		t.vrfRAddr.Write(u.VRFAddr)
	}

	ctrl := Control{
		RegSel:    u.RegSel,
		VRFEn:     u.VRFEn,
		Slot:      u.Slot,
		AccumSize: u.AccumSize,
	}
	accum := AccumControl{Final: u.Accum, Size: u.AccumSize}

	for _, l := range t.lanes {
		l.mrfRAddr.Write(u.MRFAddr)
		l.ctrl.Write(ctrl)
		l.accumCtrl.Write(accum)
	}
}

func (t *Tile) canDispatch() bool {
	if t.vrfRAddr.IsFull() {
		return false
	}

	for _, l := range t.lanes {
		if l.mrfRAddr.IsFull() || l.ctrl.IsFull() || l.accumCtrl.IsFull() {
			return false
		}
	}

	return true
}
