package decoder

import (
	"fmt"

	"github.com/sarchlab/npusim/config"
	"github.com/sarchlab/npusim/program"
)

// An expansion produces the micro-ops of one macro-op, one at a time.
type expansion[U any] interface {
	next() (u U, last bool)
}

// counter walks an outer element index and an inner batch slot, and tracks
// the first and last micro-op of the expansion.
type counter struct {
	vSize, slots int
	elem, slot   int
	emitted      int
}

func newCounter(stage string, vSize, slots int) counter {
	if vSize <= 0 || slots <= 0 || slots > 3 {
		panic(fmt.Sprintf("decoder: %s macro-op expands to no micro-op "+
			"(v_size %d, batch %d)", stage, vSize, slots))
	}

	return counter{vSize: vSize, slots: slots}
}

func (c *counter) total() int {
	return c.vSize * c.slots
}

// step returns the position of the current micro-op and advances.
func (c *counter) step() (elem, slot, first int, last bool) {
	elem, slot = c.elem, c.slot

	if c.emitted == 0 {
		first = c.total()
	}

	c.emitted++
	last = c.emitted == c.total()

	c.slot++
	if c.slot == c.slots {
		c.slot = 0
		c.elem++
	}

	return elem, slot, first, last
}

type mvuExpansion struct {
	m      program.MVUMacroOp
	group  int
	regSel *int

	total, emitted int
	rem, acc       int
	k, p, chunk    int
}

func newMVUExpansion(
	arch config.Arch,
	m program.MVUMacroOp,
	regSel *int,
) *mvuExpansion {
	if m.VSize <= 0 || m.MSize < m.VSize {
		panic(fmt.Sprintf("decoder: mvu macro-op expands to no micro-op "+
			"(v_size %d, m_size %d)", m.VSize, m.MSize))
	}

	rows := m.MSize / m.VSize
	e := &mvuExpansion{
		m:      m,
		group:  arch.GroupSize(),
		regSel: regSel,
		total:  m.VSize * rows,
		rem:    rows,
	}
	e.acc = e.groupSize()

	return e
}

// groupSize is the number of row blocks in the current chunk. The last
// chunk takes everything left once fewer than two full groups remain.
func (e *mvuExpansion) groupSize() int {
	if e.rem > 2*e.group-1 {
		return e.group
	}

	return e.rem
}

func (e *mvuExpansion) next() (program.MVUMicroOp, bool) {
	m := e.m
	v := m.VSize

	u := program.MVUMicroOp{
		Op:        m.Op,
		VRFEn:     e.p < 3,
		Slot:      e.p,
		MRFAddr:   m.MRFAddr + e.chunk*e.group*v + e.p*v + e.k,
		Accum:     e.k == v-1,
		AccumSize: e.acc,
		RegSel:    *e.regSel,
		Tag:       m.Tag,
	}

	if u.VRFEn {
		u.VRFAddr = m.VRFAddr[e.p] + e.k
	}

	if e.emitted == 0 {
		u.FirstFlag = e.total
	}

	e.emitted++
	u.LastFlag = e.emitted == e.total

	e.p++
	if e.p == e.acc {
		e.p = 0
		*e.regSel ^= 1
		e.k++

		if e.k == v {
			e.k = 0
			if e.rem > 2*e.group-1 {
				e.rem -= e.group
			}
			e.chunk++
			e.acc = e.groupSize()
		}
	}

	return u, u.LastFlag
}

type evrfExpansion struct {
	m   program.EVRFMacroOp
	cnt counter
}

func newEVRFExpansion(m program.EVRFMacroOp) *evrfExpansion {
	slots := m.Batch
	if m.Src == program.EVRFSrcMVU {
		// The MVU always produces all three batch vectors.
		slots = 3
	}

	return &evrfExpansion{m: m, cnt: newCounter("evrf", m.VSize, slots)}
}

func (e *evrfExpansion) next() (program.EVRFMicroOp, bool) {
	m := e.m
	elem, slot, first, last := e.cnt.step()

	u := program.EVRFMicroOp{
		Op:        m.Op,
		Src:       m.Src,
		VRFAddr:   m.VRFAddr[slot] + elem,
		Tag:       m.Tag,
		FirstFlag: first,
		LastFlag:  last,
	}

	if slot >= m.Batch {
		u.Op = program.EVRFFlush
	}

	return u, last
}

type mfuExpansion struct {
	m   program.MFUMacroOp
	cnt counter
}

func newMFUExpansion(stage string, m program.MFUMacroOp) *mfuExpansion {
	return &mfuExpansion{m: m, cnt: newCounter(stage, m.VSize, m.Batch)}
}

func (e *mfuExpansion) next() (program.MFUMicroOp, bool) {
	m := e.m
	elem, slot, first, last := e.cnt.step()

	return program.MFUMicroOp{
		Op:        m.Op,
		ActOp:     m.ActOp,
		AddOp:     m.AddOp,
		VRF0Addr:  m.VRF0Addr[slot] + elem,
		MulOp:     m.MulOp,
		VRF1Addr:  m.VRF1Addr[slot] + elem,
		Tag:       m.Tag,
		FirstFlag: first,
		LastFlag:  last,
	}, last
}

type ldExpansion struct {
	m   program.LDMacroOp
	cnt counter
}

func newLDExpansion(m program.LDMacroOp) *ldExpansion {
	return &ldExpansion{m: m, cnt: newCounter("ld", m.VSize, m.Batch)}
}

func (e *ldExpansion) next() (program.LDMicroOp, bool) {
	m := e.m
	elem, slot, first, last := e.cnt.step()

	u := program.LDMicroOp{
		Op:            m.Op,
		Src:           m.Src,
		WriteToOutput: m.WriteToOutput,
		FirstFlag:     first,
		LastFlag:      last,
	}

	for i, d := range m.Dst {
		u.Dst[i] = program.LDTarget{
			Valid: d.Valid,
			ID:    d.ID,
			Addr:  d.Addr[slot] + elem,
		}
	}

	return u, last
}

func drain[U any](e expansion[U]) []U {
	var uops []U

	for {
		u, last := e.next()
		uops = append(uops, u)

		if last {
			return uops
		}
	}
}

// ExpandMVU returns every micro-op of an MVU macro-op, starting with the
// first operand buffer.
func ExpandMVU(arch config.Arch, m program.MVUMacroOp) []program.MVUMicroOp {
	regSel := 0
	return drain[program.MVUMicroOp](newMVUExpansion(arch, m, &regSel))
}

// ExpandEVRF returns every micro-op of an EVRF macro-op.
func ExpandEVRF(m program.EVRFMacroOp) []program.EVRFMicroOp {
	return drain[program.EVRFMicroOp](newEVRFExpansion(m))
}

// ExpandMFU returns every micro-op of an MFU macro-op.
func ExpandMFU(m program.MFUMacroOp) []program.MFUMicroOp {
	return drain[program.MFUMicroOp](newMFUExpansion("mfu", m))
}

// ExpandLD returns every micro-op of a loader macro-op.
func ExpandLD(m program.LDMacroOp) []program.LDMicroOp {
	return drain[program.LDMicroOp](newLDExpansion(m))
}
