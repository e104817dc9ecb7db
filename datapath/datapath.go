package datapath

import (
	"github.com/sarchlab/npusim/config"
	"github.com/sarchlab/npusim/core"
	"github.com/sarchlab/npusim/mvu"
	"github.com/sarchlab/npusim/program"
)

// A Datapath chains the MVU, the EVRF, two MFUs and the loader, and routes
// the loader's write-backs and retire pulses.
type Datapath struct {
	name string

	MVUUOp  *core.Input[program.MVUMicroOp]
	EVRFUOp *core.Input[program.EVRFMicroOp]
	MFU0UOp *core.Input[program.MFUMicroOp]
	MFU1UOp *core.Input[program.MFUMicroOp]
	LDUOp   *core.Input[program.LDMicroOp]
	Output  *core.Output[core.Vector]

	mvu  *mvu.MVU
	evrf *EVRF
	mfu0 *MFU
	mfu1 *MFU
	ld   *Loader

	links core.Links
}

// Builder creates datapaths.
type Builder struct {
	arch config.Arch
}

// MakeBuilder returns a builder that uses the default architecture.
func MakeBuilder() Builder {
	return Builder{arch: config.Default()}
}

// WithArch sets the architecture.
func (b Builder) WithArch(arch config.Arch) Builder {
	b.arch = arch
	return b
}

// Build creates a datapath and connects its stages.
func (b Builder) Build(name string) *Datapath {
	arch := b.arch

	dp := &Datapath{
		name: name,
		mvu:  mvu.MakeBuilder().WithArch(arch).Build(name + ".MVU"),
		evrf: NewEVRF(name+".EVRF", arch),
		mfu0: NewMFU(name+".MFU0", arch),
		mfu1: NewMFU(name+".MFU1", arch),
		ld:   NewLoader(name+".LD", arch),
	}

	dp.MVUUOp = dp.mvu.UOp
	dp.EVRFUOp = dp.evrf.UOp
	dp.MFU0UOp = dp.mfu0.UOp
	dp.MFU1UOp = dp.mfu1.UOp
	dp.LDUOp = dp.ld.UOp
	dp.Output = dp.ld.Output

	b.connectForward(dp)
	b.connectWriteBack(dp)
	b.connectRetire(dp)

	return dp
}

func (b Builder) connectForward(dp *Datapath) {
	depth := b.arch.FIFODepth

	hops := []struct {
		name string
		from *core.Output[core.Vector]
		to   *core.Input[core.Vector]
	}{
		{"MVUToEVRF", dp.mvu.Output, dp.evrf.Input},
		{"EVRFToMFU0", dp.evrf.Output, dp.mfu0.Input},
		{"MFU0ToMFU1", dp.mfu0.Output, dp.mfu1.Input},
		{"MFU1ToLD", dp.mfu1.Output, dp.ld.Input},
	}

	for _, h := range hops {
		ch := core.NewChannel[core.Vector](dp.name+"."+h.name, depth, 1)
		h.from.ConnectTo(ch)
		h.to.ConnectTo(ch)
		dp.links = append(dp.links, ch)
	}
}

func (b Builder) connectWriteBack(dp *Datapath) {
	var targets []*core.Input[core.RegWrite[core.Vector]]

	for t := 0; t < dp.mvu.NumTiles(); t++ {
		targets = append(targets, dp.mvu.Tile(t).VRFWrite)
	}

	targets = append(targets,
		dp.evrf.Write,
		dp.mfu0.VRF0Write, dp.mfu0.VRF1Write,
		dp.mfu1.VRF0Write, dp.mfu1.VRF1Write,
	)

	for id, in := range targets {
		ch := core.NewChannel[core.RegWrite[core.Vector]](
			dp.ld.Dests[id].Name(), b.arch.FIFODepth, b.arch.Latency.LDWriteBack)
		dp.ld.Dests[id].ConnectTo(ch)
		in.ConnectTo(ch)
		dp.links = append(dp.links, ch)
	}
}

func (b Builder) connectRetire(dp *Datapath) {
	targets := []struct {
		name string
		in   *core.Input[bool]
	}{
		{"RetireMVU", dp.mvu.UpdateTag},
		{"RetireEVRF", dp.evrf.UpdateTag},
		{"RetireMFU0", dp.mfu0.UpdateTag},
		{"RetireMFU1", dp.mfu1.UpdateTag},
	}

	for _, t := range targets {
		ch := core.NewChannel[bool](dp.name+"."+t.name,
			b.arch.FIFODepth, b.arch.RetireLatency())
		dp.ld.Retire.ConnectTo(ch)
		t.in.ConnectTo(ch)
		dp.links = append(dp.links, ch)
	}
}

// Name returns the name of the datapath.
func (dp *Datapath) Name() string {
	return dp.name
}

// MVU returns the matrix-vector unit.
func (dp *Datapath) MVU() *mvu.MVU {
	return dp.mvu
}

// EVRF returns the EVRF stage.
func (dp *Datapath) EVRF() *EVRF {
	return dp.evrf
}

// MFU returns MFU 0 or MFU 1.
func (dp *Datapath) MFU(i int) *MFU {
	if i == 0 {
		return dp.mfu0
	}

	return dp.mfu1
}

// Loader returns the loader.
func (dp *Datapath) Loader() *Loader {
	return dp.ld
}

// Links returns every channel inside the datapath.
func (dp *Datapath) Links() core.Links {
	links := append(core.Links{}, dp.links...)
	links = append(links, dp.mvu.Links()...)
	links = append(links, dp.evrf.Links()...)
	links = append(links, dp.mfu0.Links()...)
	links = append(links, dp.mfu1.Links()...)

	return links
}

// Idle returns true if no vector is in flight anywhere in the datapath.
func (dp *Datapath) Idle() bool {
	return dp.links.Drained() &&
		dp.mvu.Idle() && dp.evrf.Idle() && dp.mfu0.Idle() && dp.mfu1.Idle()
}

// Tick advances every stage, in pipeline order, and then the channels
// between them.
func (dp *Datapath) Tick(now core.Cycle) {
	dp.mvu.Tick(now)
	dp.evrf.Tick(now)
	dp.mfu0.Tick(now)
	dp.mfu1.Tick(now)
	dp.ld.Tick(now)

	dp.links.Clock()
}
