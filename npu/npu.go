// Package npu assembles the decoder and the datapath into a complete NPU.
package npu

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/sarchlab/npusim/config"
	"github.com/sarchlab/npusim/core"
	"github.com/sarchlab/npusim/datapath"
	"github.com/sarchlab/npusim/decoder"
	"github.com/sarchlab/npusim/program"
)

// An NPU takes VLIW words in and produces output vectors.
type NPU struct {
	name string
	arch config.Arch

	decoder  *decoder.Decoder
	datapath *datapath.Datapath

	insts   *core.Channel[program.VLIW]
	outputs *core.Channel[core.Vector]
	uops    core.Links
	links   core.Links
}

// Builder creates NPUs.
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

// Build creates an NPU.
func (b Builder) Build(name string) *NPU {
	arch := b.arch
	depth := arch.FIFODepth

	n := &NPU{
		name:     name,
		arch:     arch,
		decoder:  decoder.New(name+".Decoder", arch),
		datapath: datapath.MakeBuilder().WithArch(arch).Build(name + ".Datapath"),
		insts:    core.NewChannel[program.VLIW](name+".Instructions", depth, 0),
		outputs:  core.NewChannel[core.Vector](name+".Outputs", depth, 0),
	}

	n.decoder.Instruction.ConnectTo(n.insts)
	n.datapath.Output.ConnectTo(n.outputs)

	n.uops = core.Links{
		connect(name+".MVUUOps", depth, n.decoder.MVU, n.datapath.MVUUOp),
		connect(name+".EVRFUOps", depth, n.decoder.EVRF, n.datapath.EVRFUOp),
		connect(name+".MFU0UOps", depth, n.decoder.MFU0, n.datapath.MFU0UOp),
		connect(name+".MFU1UOps", depth, n.decoder.MFU1, n.datapath.MFU1UOp),
		connect(name+".LDUOps", depth, n.decoder.LD, n.datapath.LDUOp),
	}
	n.links = append(core.Links{n.insts, n.outputs}, n.uops...)

	return n
}

func connect[T any](
	name string,
	depth int,
	from *core.Output[T],
	to *core.Input[T],
) *core.Channel[T] {
	ch := core.NewChannel[T](name, depth, 1)
	from.ConnectTo(ch)
	to.ConnectTo(ch)

	return ch
}

// Name returns the name of the NPU.
func (n *NPU) Name() string {
	return n.name
}

// Arch returns the architecture the NPU was built with.
func (n *NPU) Arch() config.Arch {
	return n.arch
}

// Datapath returns the datapath.
func (n *NPU) Datapath() *datapath.Datapath {
	return n.datapath
}

// CanIssue returns true if the NPU can take another VLIW word this cycle.
func (n *NPU) CanIssue() bool {
	return !n.insts.IsFull()
}

// Issue hands a VLIW word to the decoder.
func (n *NPU) Issue(w program.VLIW) {
	n.insts.Write(w)
}

// PopOutput removes the oldest output vector, if there is one.
func (n *NPU) PopOutput() (core.Vector, bool) {
	if n.outputs.IsEmpty() {
		return nil, false
	}

	return n.outputs.Read(), true
}

// Tick advances the NPU by one cycle.
func (n *NPU) Tick(now core.Cycle) {
	n.datapath.Tick(now)
	n.decoder.Tick(now)
	n.links.Clock()
}

// Idle returns true if no instruction, micro-op or vector is in flight.
// Output vectors that have not been popped do not count.
func (n *NPU) Idle() bool {
	return n.insts.Len() == 0 && n.uops.Drained() &&
		n.decoder.Idle() && n.datapath.Idle()
}

// Links returns every channel in the NPU.
func (n *NPU) Links() core.Links {
	links := append(core.Links{}, n.links...)
	links = append(links, n.decoder.Links()...)
	links = append(links, n.datapath.Links()...)

	return links
}

// DumpState writes a table of every channel that holds a value.
func (n *NPU) DumpState(w io.Writer, now core.Cycle) {
	core.DumpLinks(w, fmt.Sprintf("%s at cycle %d", n.name, now), n.Links(), false)
}

// Seed file names, relative to the seed directory.
const (
	RegisterFileDir = "register_files"
	InputQueueFile  = "vrf_file.txt"
	GoldenFile      = "py_output.txt"
	ProgramFile     = "instructions.txt"
)

// MRFFile returns the seed file name of one lane's matrix register file.
func MRFFile(tile, dpe int) string {
	return fmt.Sprintf("mrf_tile_%d_dpe_%d.txt", tile, dpe)
}

// LoadSeeds fills the matrix register files and the loader input queue from
// the register_files directory under dir. Every seed file must exist.
func (n *NPU) LoadSeeds(dir string) error {
	rfDir := filepath.Join(dir, RegisterFileDir)
	m := n.datapath.MVU()

	for t := 0; t < n.arch.Tiles; t++ {
		for d := 0; d < n.arch.DPEs; d++ {
			path := filepath.Join(rfDir, MRFFile(t, d))

			rows, err := core.ReadVectorFile(path)
			if err != nil {
				return err
			}

			if err := m.Tile(t).LoadMRF(d, rows); err != nil {
				return err
			}
		}
	}

	rows, err := core.ReadVectorFile(filepath.Join(rfDir, InputQueueFile))
	if err != nil {
		return err
	}

	n.datapath.Loader().LoadInputQueue(rows)

	return nil
}
