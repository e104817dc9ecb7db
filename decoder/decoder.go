// Package decoder splits VLIW words into per-stage macro-ops and expands
// each macro-op into the stream of micro-ops its stage executes.
package decoder

import (
	"github.com/sarchlab/npusim/config"
	"github.com/sarchlab/npusim/core"
	"github.com/sarchlab/npusim/program"
)

// A stageContext expands the macro-ops of one stage.
type stageContext[M any, U any] struct {
	name string
	mops *core.Channel[M]
	out  *core.Output[U]

	isNop  func(M) bool
	nop    func(M) U
	expand func(M) expansion[U]

	cur expansion[U]
}

func (c *stageContext[M, U]) idle() bool {
	return c.cur == nil
}

func (c *stageContext[M, U]) tick(now core.Cycle) {
	if c.out.IsFull() {
		return
	}

	if c.cur == nil {
		if c.mops.IsEmpty() {
			return
		}

		m := c.mops.Read()

		if c.isNop(m) {
			c.out.Write(c.nop(m))
			return
		}

		core.Trace("Decoder",
			"Behavior", "Accept",
			"Component", c.name,
			"Cycle", now,
			"MacroOp", m,
		)

		c.cur = c.expand(m)
	}

	u, last := c.cur.next()
	c.out.Write(u)

	if last {
		c.cur = nil
	}
}

// A Decoder turns VLIW words into five independent micro-op streams.
type Decoder struct {
	name string

	Instruction *core.Input[program.VLIW]
	MVU         *core.Output[program.MVUMicroOp]
	EVRF        *core.Output[program.EVRFMicroOp]
	MFU0        *core.Output[program.MFUMicroOp]
	MFU1        *core.Output[program.MFUMicroOp]
	LD          *core.Output[program.LDMicroOp]

	mvu  *stageContext[program.MVUMacroOp, program.MVUMicroOp]
	evrf *stageContext[program.EVRFMacroOp, program.EVRFMicroOp]
	mfu0 *stageContext[program.MFUMacroOp, program.MFUMicroOp]
	mfu1 *stageContext[program.MFUMacroOp, program.MFUMicroOp]
	ld   *stageContext[program.LDMacroOp, program.LDMicroOp]

	regSel int
	links  core.Links
}

// New creates a decoder.
func New(name string, arch config.Arch) *Decoder {
	d := &Decoder{
		name:        name,
		Instruction: core.NewInput[program.VLIW](name + ".Instruction"),
		MVU:         core.NewOutput[program.MVUMicroOp](name + ".MVU"),
		EVRF:        core.NewOutput[program.EVRFMicroOp](name + ".EVRF"),
		MFU0:        core.NewOutput[program.MFUMicroOp](name + ".MFU0"),
		MFU1:        core.NewOutput[program.MFUMicroOp](name + ".MFU1"),
		LD:          core.NewOutput[program.LDMicroOp](name + ".LD"),
	}

	depth := arch.FIFODepth

	d.mvu = &stageContext[program.MVUMacroOp, program.MVUMicroOp]{
		name:  name + ".MVU",
		mops:  core.NewChannel[program.MVUMacroOp](name+".MVUMacroOps", depth, 1),
		out:   d.MVU,
		isNop: func(m program.MVUMacroOp) bool { return m.Op == program.MVUNop },
		nop: func(m program.MVUMacroOp) program.MVUMicroOp {
			return program.MVUMicroOp{Op: program.MVUNop, Tag: m.Tag}
		},
		expand: func(m program.MVUMacroOp) expansion[program.MVUMicroOp] {
			return newMVUExpansion(arch, m, &d.regSel)
		},
	}

	d.evrf = &stageContext[program.EVRFMacroOp, program.EVRFMicroOp]{
		name:  name + ".EVRF",
		mops:  core.NewChannel[program.EVRFMacroOp](name+".EVRFMacroOps", depth, 1),
		out:   d.EVRF,
		isNop: func(m program.EVRFMacroOp) bool { return m.Op == program.EVRFNop },
		nop: func(m program.EVRFMacroOp) program.EVRFMicroOp {
			return program.EVRFMicroOp{Op: program.EVRFNop, Tag: m.Tag}
		},
		expand: func(m program.EVRFMacroOp) expansion[program.EVRFMicroOp] {
			return newEVRFExpansion(m)
		},
	}

	d.mfu0 = newMFUContext(name+".MFU0", depth, d.MFU0)
	d.mfu1 = newMFUContext(name+".MFU1", depth, d.MFU1)

	d.ld = &stageContext[program.LDMacroOp, program.LDMicroOp]{
		name:  name + ".LD",
		mops:  core.NewChannel[program.LDMacroOp](name+".LDMacroOps", depth, 1),
		out:   d.LD,
		isNop: func(m program.LDMacroOp) bool { return m.Op == program.LDNop },
		// Loader micro-ops carry no tag. The loader is the stage that
		// retires tags, so it never waits on one.
		nop: func(program.LDMacroOp) program.LDMicroOp {
			return program.LDMicroOp{Op: program.LDNop}
		},
		expand: func(m program.LDMacroOp) expansion[program.LDMicroOp] {
			return newLDExpansion(m)
		},
	}

	d.links = core.Links{
		d.mvu.mops, d.evrf.mops, d.mfu0.mops, d.mfu1.mops, d.ld.mops,
	}

	return d
}

func newMFUContext(
	name string,
	depth int,
	out *core.Output[program.MFUMicroOp],
) *stageContext[program.MFUMacroOp, program.MFUMicroOp] {
	return &stageContext[program.MFUMacroOp, program.MFUMicroOp]{
		name:  name,
		mops:  core.NewChannel[program.MFUMacroOp](name+"MacroOps", depth, 1),
		out:   out,
		isNop: func(m program.MFUMacroOp) bool { return m.Op == program.MFUNop },
		nop: func(m program.MFUMacroOp) program.MFUMicroOp {
			return program.MFUMicroOp{Op: program.MFUNop, Tag: m.Tag}
		},
		expand: func(m program.MFUMacroOp) expansion[program.MFUMicroOp] {
			return newMFUExpansion(name, m)
		},
	}
}

// Name returns the name of the decoder.
func (d *Decoder) Name() string {
	return d.name
}

// Links returns the macro-op queues.
func (d *Decoder) Links() core.Links {
	return d.links
}

// Idle returns true if no macro-op is queued or being expanded.
func (d *Decoder) Idle() bool {
	return d.links.Drained() &&
		d.mvu.idle() && d.evrf.idle() && d.mfu0.idle() && d.mfu1.idle() &&
		d.ld.idle()
}

// Tick splits one VLIW word and advances every context by one micro-op.
func (d *Decoder) Tick(now core.Cycle) {
	d.dispatch(now)

	d.mvu.tick(now)
	d.evrf.tick(now)
	d.mfu0.tick(now)
	d.mfu1.tick(now)
	d.ld.tick(now)

	d.links.Clock()
}

func (d *Decoder) dispatch(now core.Cycle) {
	if d.Instruction.IsEmpty() {
		return
	}

	for _, l := range d.links {
		if l.Len() >= l.Cap() {
			return
		}
	}

	w := d.Instruction.Read()

	d.mvu.mops.Write(w.MVU)
	d.evrf.mops.Write(w.EVRF)
	d.mfu0.mops.Write(w.MFU0)
	d.mfu1.mops.Write(w.MFU1)
	d.ld.mops.Write(w.LD)

	core.Trace("Decoder",
		"Behavior", "Dispatch",
		"Component", d.name,
		"Cycle", now,
	)
}
