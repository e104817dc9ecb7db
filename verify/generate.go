package verify

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sarchlab/npusim/config"
	"github.com/sarchlab/npusim/core"
	"github.com/sarchlab/npusim/npu"
	"github.com/sarchlab/npusim/program"
	valgen "github.com/sarchlab/npusim/util"
)

// RowSum describes the row-sum workload: an all-ones vector of VSize rows
// per tile multiplied by a matrix of MSize rows per lane.
type RowSum struct {
	VSize int
	MSize int
}

// DefaultRowSum returns the row-sum workload with VSize = lanes and
// MSize = 2 * lanes.
func DefaultRowSum(arch config.Arch) RowSum {
	return RowSum{VSize: arch.Lanes, MSize: 2 * arch.Lanes}
}

// OutputVectors is the number of vectors the workload produces.
func (w RowSum) OutputVectors(arch config.Arch) int {
	return w.MSize / w.VSize * arch.DPEs / arch.Lanes
}

// loadWords is the number of loader instructions needed to copy the input
// vector into every tile, two tiles per instruction.
func loadWords(arch config.Arch) int {
	return (arch.Tiles + 1) / 2
}

// Program returns the instructions of the workload. The first words copy
// the input vector from the loader input queue into every tile. The last
// word waits for them, runs the multiplication and sends the result to the
// output.
func (w RowSum) Program(arch config.Arch) []program.VLIW {
	var prog []program.VLIW

	for i := 0; i < loadWords(arch); i++ {
		ld := program.LDMacroOp{
			Op:    program.LDStore,
			Src:   program.LDSrcInput,
			VSize: w.VSize,
			Batch: 1,
		}

		for j := 0; j < 2; j++ {
			tile := 2*i + j
			if tile < arch.Tiles {
				ld.Dst[j] = program.LDDest{Valid: true, ID: tile}
			}
		}

		prog = append(prog, program.VLIW{LD: ld})
	}

	tag := loadWords(arch)
	outVecs := w.OutputVectors(arch)
	mfu := program.MFUMacroOp{Op: program.MFUEn, VSize: outVecs, Batch: 1, Tag: tag}

	prog = append(prog, program.VLIW{
		MVU: program.MVUMacroOp{
			Op: program.MVUMVMul, VSize: w.VSize, MSize: w.MSize, Tag: tag,
		},
		EVRF: program.EVRFMacroOp{
			Op: program.EVRFMove, Src: program.EVRFSrcMVU,
			VSize: outVecs, Batch: 1, Tag: tag,
		},
		MFU0: mfu,
		MFU1: mfu,
		LD: program.LDMacroOp{
			Op: program.LDStore, VSize: outVecs, Batch: 1, WriteToOutput: true,
		},
	})

	return prog
}

// InputQueue returns the vectors the loader copies into the tiles.
func (w RowSum) InputQueue(arch config.Arch) []core.Vector {
	ones := valgen.MakeConstGen(1)

	rows := make([]core.Vector, w.VSize*loadWords(arch))
	for i := range rows {
		rows[i] = valgen.Fill(arch.Lanes, ones)
	}

	return rows
}

// Matrices returns the MRF contents, indexed by tile and then lane.
func (w RowSum) Matrices(arch config.Arch) [][][]core.Vector {
	gen := valgen.MakeCyclicGen(7)

	mrfs := make([][][]core.Vector, arch.Tiles)
	for t := range mrfs {
		mrfs[t] = make([][]core.Vector, arch.DPEs)
		for d := range mrfs[t] {
			mrfs[t][d] = make([]core.Vector, w.MSize)
			for r := range mrfs[t][d] {
				mrfs[t][d][r] = valgen.Fill(arch.Lanes, gen)
			}
		}
	}

	return mrfs
}

// Golden returns the expected outputs for the given matrices: the sum of
// every matrix row block, chunked into lane vectors.
func (w RowSum) Golden(arch config.Arch, mrfs [][][]core.Vector) []core.Vector {
	blocks := w.MSize / w.VSize
	y := core.Zeros(blocks * arch.DPEs)

	for t := range mrfs {
		for d := range mrfs[t] {
			for r := 0; r < blocks; r++ {
				for k := 0; k < w.VSize; k++ {
					for _, x := range mrfs[t][d][r*w.VSize+k] {
						y[r*arch.DPEs+d] += x
					}
				}
			}
		}
	}

	out := make([]core.Vector, 0, len(y)/arch.Lanes)
	for lo := 0; lo < len(y); lo += arch.Lanes {
		out = append(out, y[lo:lo+arch.Lanes])
	}

	return out
}

// GenerateRowSum writes a complete seed directory for the row-sum
// workload: the register files, the golden output and the program.
func GenerateRowSum(dir string, arch config.Arch) error {
	w := DefaultRowSum(arch)
	rfDir := filepath.Join(dir, npu.RegisterFileDir)

	if err := os.MkdirAll(rfDir, 0o755); err != nil {
		return fmt.Errorf("create seed directory: %w", err)
	}

	mrfs := w.Matrices(arch)
	for t := range mrfs {
		for d := range mrfs[t] {
			path := filepath.Join(rfDir, npu.MRFFile(t, d))
			if err := core.WriteVectorFile(path, mrfs[t][d]); err != nil {
				return err
			}
		}
	}

	files := []struct {
		name string
		rows []core.Vector
	}{
		{npu.InputQueueFile, w.InputQueue(arch)},
		{npu.GoldenFile, w.Golden(arch, mrfs)},
	}

	for _, f := range files {
		if err := core.WriteVectorFile(filepath.Join(rfDir, f.name), f.rows); err != nil {
			return err
		}
	}

	return program.WriteFile(filepath.Join(dir, npu.ProgramFile), w.Program(arch))
}
