// Package program defines the NPU instruction set: the VLIW word, the
// per-stage macro-ops it carries, and the micro-ops the decoder expands
// them into.
package program

import "fmt"

// MVU opcodes.
const (
	MVUNop   = 0
	MVUMVMul = 1
)

// EVRF opcodes and sources.
const (
	EVRFNop   = 0
	EVRFMove  = 1
	EVRFFlush = 2

	EVRFSrcMVU  = 0
	EVRFSrcEVRF = 1
)

// MFU opcodes.
const (
	MFUNop = 0
	MFUEn  = 1
)

// ActOp selects the MFU activation function.
type ActOp int

// Activation functions.
const (
	ActNop ActOp = iota
	ActTanh
	ActSigmoid
	ActReLU
)

// AddOp selects the MFU elementwise add unit operation.
type AddOp int

// Add unit operations. SubAB computes input - operand, SubBA computes
// operand - input.
const (
	AddNop AddOp = iota
	AddAdd
	AddSubAB
	AddSubBA
)

// MulOp selects the MFU elementwise multiply unit operation.
type MulOp int

// Multiply unit operations.
const (
	MulNop MulOp = iota
	MulMul
)

// Loader opcodes and sources.
const (
	LDNop   = 0
	LDStore = 1
	LDFlush = 2

	LDSrcDatapath = 0
	LDSrcInput    = 1
)

// MVUMacroOp multiplies the matrix at MRFAddr (MSize rows) by up to three
// vectors at VRFAddr (VSize rows each).
type MVUMacroOp struct {
	Op      int
	VRFAddr [3]int
	VSize   int
	MRFAddr int
	MSize   int
	Tag     int
}

func (m MVUMacroOp) String() string {
	return fmt.Sprintf("MVU{op=%d vrf=%v v=%d mrf=%d m=%d tag=%d}",
		m.Op, m.VRFAddr, m.VSize, m.MRFAddr, m.MSize, m.Tag)
}

// MVUMicroOp is one cycle of MVU work, issued to every tile.
type MVUMicroOp struct {
	Op        int
	VRFAddr   int
	VRFEn     bool
	Slot      int
	MRFAddr   int
	Accum     bool
	AccumSize int
	RegSel    int
	Tag       int
	FirstFlag int
	LastFlag  bool
}

func (u MVUMicroOp) String() string {
	return fmt.Sprintf("mvu{op=%d vrf=%d en=%t slot=%d mrf=%d acc=%t size=%d "+
		"sel=%d tag=%d first=%d last=%t}",
		u.Op, u.VRFAddr, u.VRFEn, u.Slot, u.MRFAddr, u.Accum, u.AccumSize,
		u.RegSel, u.Tag, u.FirstFlag, u.LastFlag)
}

// EVRFMacroOp moves vectors from the MVU or the external register file to
// the MFUs.
type EVRFMacroOp struct {
	Op      int
	Src     int
	VRFAddr [3]int
	VSize   int
	Batch   int
	Tag     int
}

func (m EVRFMacroOp) String() string {
	return fmt.Sprintf("EVRF{op=%d src=%d vrf=%v v=%d batch=%d tag=%d}",
		m.Op, m.Src, m.VRFAddr, m.VSize, m.Batch, m.Tag)
}

// EVRFMicroOp is one EVRF move or flush.
type EVRFMicroOp struct {
	Op        int
	Src       int
	VRFAddr   int
	Tag       int
	FirstFlag int
	LastFlag  bool
}

func (u EVRFMicroOp) String() string {
	return fmt.Sprintf("evrf{op=%d src=%d vrf=%d tag=%d first=%d last=%t}",
		u.Op, u.Src, u.VRFAddr, u.Tag, u.FirstFlag, u.LastFlag)
}

// MFUMacroOp applies activation, add and multiply to VSize vectors of each
// batch.
type MFUMacroOp struct {
	Op       int
	VSize    int
	ActOp    ActOp
	AddOp    AddOp
	VRF0Addr [3]int
	MulOp    MulOp
	VRF1Addr [3]int
	Batch    int
	Tag      int
}

func (m MFUMacroOp) String() string {
	return fmt.Sprintf("MFU{op=%d v=%d act=%d add=%d vrf0=%v mul=%d vrf1=%v "+
		"batch=%d tag=%d}",
		m.Op, m.VSize, m.ActOp, m.AddOp, m.VRF0Addr, m.MulOp, m.VRF1Addr,
		m.Batch, m.Tag)
}

// MFUMicroOp is the MFU work on one vector.
type MFUMicroOp struct {
	Op        int
	ActOp     ActOp
	AddOp     AddOp
	VRF0Addr  int
	MulOp     MulOp
	VRF1Addr  int
	Tag       int
	FirstFlag int
	LastFlag  bool
}

func (u MFUMicroOp) String() string {
	return fmt.Sprintf("mfu{op=%d act=%d add=%d vrf0=%d mul=%d vrf1=%d tag=%d "+
		"first=%d last=%t}",
		u.Op, u.ActOp, u.AddOp, u.VRF0Addr, u.MulOp, u.VRF1Addr, u.Tag,
		u.FirstFlag, u.LastFlag)
}

// LDDest is one loader write-back destination of a macro-op.
type LDDest struct {
	Valid bool
	ID    int
	Addr  [3]int
}

// LDMacroOp writes VSize vectors of each batch back to register files and/or
// the output.
type LDMacroOp struct {
	Op            int
	Src           int
	VSize         int
	Dst           [2]LDDest
	Batch         int
	WriteToOutput bool
}

func (m LDMacroOp) String() string {
	return fmt.Sprintf("LD{op=%d src=%d v=%d dst0=%v dst1=%v batch=%d out=%t}",
		m.Op, m.Src, m.VSize, m.Dst[0], m.Dst[1], m.Batch, m.WriteToOutput)
}

// LDTarget is one loader write-back destination of a micro-op.
type LDTarget struct {
	Valid bool
	ID    int
	Addr  int
}

// LDMicroOp writes back one vector.
type LDMicroOp struct {
	Op            int
	Src           int
	Dst           [2]LDTarget
	WriteToOutput bool
	FirstFlag     int
	LastFlag      bool
}

func (u LDMicroOp) String() string {
	return fmt.Sprintf("ld{op=%d src=%d dst0=%v dst1=%v out=%t first=%d last=%t}",
		u.Op, u.Src, u.Dst[0], u.Dst[1], u.WriteToOutput, u.FirstFlag, u.LastFlag)
}

// A VLIW is one instruction word, bundling a macro-op for each stage.
type VLIW struct {
	MVU  MVUMacroOp
	EVRF EVRFMacroOp
	MFU0 MFUMacroOp
	MFU1 MFUMacroOp
	LD   LDMacroOp
}
