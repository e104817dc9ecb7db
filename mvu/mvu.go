package mvu

import (
	"fmt"

	"github.com/sarchlab/npusim/config"
	"github.com/sarchlab/npusim/core"
	"github.com/sarchlab/npusim/program"
)

// An MVU multiplies matrices held in the tiles' matrix register files by up
// to three vectors at a time and reduces the partial results across tiles.
type MVU struct {
	name string
	arch config.Arch

	UOp       *core.Input[program.MVUMicroOp]
	UpdateTag *core.Input[bool]
	Output    *core.Output[core.Vector]

	tiles      []*Tile
	tileUOps   []*core.Channel[program.MVUMicroOp]
	results    [][]*core.Channel[Triple]
	reductions *core.Channel[[3]core.Vector]
	links      core.Links

	currentTag int
}

// Builder creates MVUs.
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

// Build creates an MVU.
func (b Builder) Build(name string) *MVU {
	arch := b.arch

	m := &MVU{
		name:      name,
		arch:      arch,
		UOp:       core.NewInput[program.MVUMicroOp](name + ".UOp"),
		UpdateTag: core.NewInput[bool](name + ".UpdateTag"),
		Output:    core.NewOutput[core.Vector](name + ".Output"),
		reductions: core.NewPipe[[3]core.Vector](name+".Reduction",
			arch.Latency.MVUReduction),
	}
	m.links = append(m.links, m.reductions)

	for t := 0; t < arch.Tiles; t++ {
		tile := NewTile(fmt.Sprintf("%s.Tile[%d]", name, t), arch)

		uop := core.NewChannel[program.MVUMicroOp](tile.Name()+".UOpIn", 1, 0)
		tile.UOp.ConnectTo(uop)

		results := make([]*core.Channel[Triple], arch.DPEs)
		for d := range results {
			results[d] = core.NewChannel[Triple](
				fmt.Sprintf("%s.Result[%d]", tile.Name(), d), arch.AccumSlots(), 0)
			tile.Results[d].ConnectTo(results[d])
			m.links = append(m.links, results[d])
		}

		m.tiles = append(m.tiles, tile)
		m.tileUOps = append(m.tileUOps, uop)
		m.results = append(m.results, results)
		m.links = append(m.links, uop)
	}

	return m
}

// Name returns the name of the MVU.
func (m *MVU) Name() string {
	return m.name
}

// Tile returns the t-th tile.
func (m *MVU) Tile(t int) *Tile {
	return m.tiles[t]
}

// NumTiles returns the number of tiles.
func (m *MVU) NumTiles() int {
	return len(m.tiles)
}

// CurrentTag returns the tag of the newest instruction the MVU may execute.
func (m *MVU) CurrentTag() int {
	return m.currentTag
}

// Links returns every channel inside the MVU.
func (m *MVU) Links() core.Links {
	links := append(core.Links{}, m.links...)
	for _, t := range m.tiles {
		links = append(links, t.Links()...)
	}

	return links
}

// Idle returns true if no work is in flight in the MVU.
func (m *MVU) Idle() bool {
	if !m.Links().Drained() {
		return false
	}

	for _, t := range m.tiles {
		if !t.Idle() {
			return false
		}
	}

	return true
}

// Tick advances the MVU by one cycle.
func (m *MVU) Tick(now core.Cycle) {
	m.updateTag(now)
	m.emit(now)
	m.reduce()
	m.dispatch(now)

	for _, t := range m.tiles {
		t.Tick(now)
	}

	m.links.Clock()
}

func (m *MVU) updateTag(now core.Cycle) {
	if m.UpdateTag.IsEmpty() {
		return
	}

	m.UpdateTag.Read()
	m.currentTag++

	core.Trace("MVU",
		"Behavior", "TagUpdate",
		"Component", m.name,
		"Cycle", now,
		"Tag", m.currentTag,
	)
}

func (m *MVU) dispatch(now core.Cycle) {
	if m.UOp.IsEmpty() {
		return
	}

	u := m.UOp.Peek()

	if u.Op == program.MVUNop {
		m.UOp.Read()
		core.Trace("MVU", "Behavior", "NOP", "Component", m.name, "Cycle", now)

		return
	}

	if u.Tag > m.currentTag {
		return
	}

	for _, ch := range m.tileUOps {
		if ch.IsFull() {
			return
		}
	}

	m.UOp.Read()

	for _, ch := range m.tileUOps {
		ch.Write(u)
	}

	if u.FirstFlag > 0 {
		core.Trace("MVU",
			"Behavior", "IssueFirst",
			"Component", m.name,
			"Cycle", now,
			"Tag", u.Tag,
			"Count", u.FirstFlag,
		)
	}
}

func (m *MVU) reduce() {
	if m.reductions.IsFull() {
		return
	}

	for _, tile := range m.results {
		for _, ch := range tile {
			if ch.IsEmpty() {
				return
			}
		}
	}

	var sums [3]core.Vector
	for b := range sums {
		sums[b] = core.Zeros(m.arch.DPEs)
	}

	for _, tile := range m.results {
		for d, ch := range tile {
			t := ch.Read()
			for b := range sums {
				sums[b][d] += t[b]
			}
		}
	}

	m.reductions.Write(sums)
}

// emit splits one reduced result into lane-sized vectors and sends them out
// chunk by chunk, with the three batch vectors of a chunk next to each other.
func (m *MVU) emit(now core.Cycle) {
	chunks := m.arch.DPEs / m.arch.Lanes

	if m.reductions.IsEmpty() || !m.Output.CanAccept(3*chunks) {
		return
	}

	sums := m.reductions.Read()
	lanes := m.arch.Lanes

	for c := 0; c < chunks; c++ {
		for b := range sums {
			lo, hi := c*lanes, (c+1)*lanes
			m.Output.Write(sums[b][lo:hi:hi])
		}
	}

	core.Trace("MVU",
		"Behavior", "Produced",
		"Component", m.name,
		"Cycle", now,
		"Vectors", 3*chunks,
	)
}
