package npu_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/npusim/config"
	"github.com/sarchlab/npusim/core"
	"github.com/sarchlab/npusim/npu"
	"github.com/sarchlab/npusim/program"
)

func smallArch() config.Arch {
	a := config.Default()
	a.Tiles = 2
	a.DPEs = 4
	a.Lanes = 4
	a.Latency.MVUReduction = config.DefaultReductionLatency(a.Tiles)

	return a
}

func matrixValue(t, d, row, lane int) int32 {
	return int32((t + d + row + lane) % 5)
}

// mulWord multiplies the vector at VRF address zero by the matrix and sends
// the result straight to the output.
func mulWord(vSize, mSize, tag int) program.VLIW {
	outVecs := mSize / vSize

	return program.VLIW{
		MVU: program.MVUMacroOp{
			Op: program.MVUMVMul, VSize: vSize, MSize: mSize, Tag: tag,
		},
		EVRF: program.EVRFMacroOp{
			Op: program.EVRFMove, Src: program.EVRFSrcMVU,
			VSize: outVecs, Batch: 1, Tag: tag,
		},
		MFU0: program.MFUMacroOp{Op: program.MFUEn, VSize: outVecs, Batch: 1, Tag: tag},
		MFU1: program.MFUMacroOp{Op: program.MFUEn, VSize: outVecs, Batch: 1, Tag: tag},
		LD: program.LDMacroOp{
			Op: program.LDStore, VSize: outVecs, Batch: 1, WriteToOutput: true,
		},
	}
}

// rowSumProgram loads an all-ones vector into both tiles, multiplies it by
// the matrix and sends the result straight to the output.
func rowSumProgram(vSize, mSize int) []program.VLIW {
	load := program.VLIW{
		LD: program.LDMacroOp{
			Op:    program.LDStore,
			Src:   program.LDSrcInput,
			VSize: vSize,
			Dst: [2]program.LDDest{
				{Valid: true, ID: 0},
				{Valid: true, ID: 1},
			},
			Batch: 1,
		},
	}

	return []program.VLIW{load, mulWord(vSize, mSize, 1)}
}

func ones(n int) core.Vector {
	v := core.Zeros(n)
	for i := range v {
		v[i] = 1
	}

	return v
}

func loadMatrices(n *npu.NPU, arch config.Arch, m int) {
	for t := 0; t < arch.Tiles; t++ {
		for d := 0; d < arch.DPEs; d++ {
			rows := make([]core.Vector, m)
			for r := range rows {
				rows[r] = core.Zeros(arch.Lanes)
				for l := range rows[r] {
					rows[r][l] = matrixValue(t, d, r, l)
				}
			}
			Expect(n.Datapath().MVU().Tile(t).LoadMRF(d, rows)).To(Succeed())
		}
	}
}

func rowSums(arch config.Arch, v, m int) []core.Vector {
	want := make([]core.Vector, m/v)
	for r := range want {
		want[r] = core.Zeros(arch.DPEs)
		for d := 0; d < arch.DPEs; d++ {
			for t := 0; t < arch.Tiles; t++ {
				for k := 0; k < v; k++ {
					for l := 0; l < arch.Lanes; l++ {
						want[r][d] += matrixValue(t, d, r*v+k, l)
					}
				}
			}
		}
	}

	return want
}

var _ = Describe("NPU", func() {
	var (
		arch config.Arch
		n    *npu.NPU
	)

	BeforeEach(func() {
		arch = smallArch()
		n = npu.MakeBuilder().WithArch(arch).Build("NPU")
	})

	run := func(prog []program.VLIW, want, maxCycles int) ([]core.Vector, int) {
		var (
			got []core.Vector
			now core.Cycle
		)

		for ; int(now) < maxCycles && (len(prog) > 0 || len(got) < want); now++ {
			if len(prog) > 0 && n.CanIssue() {
				n.Issue(prog[0])
				prog = prog[1:]
			}

			n.Tick(now)

			if v, ok := n.PopOutput(); ok {
				got = append(got, v)
			}
		}

		return got, int(now)
	}

	It("should compute row sums", func() {
		v := arch.Lanes
		m := 2 * arch.Lanes
		one := ones(arch.Lanes)
		n.Datapath().Loader().LoadInputQueue([]core.Vector{one, one, one, one})
		loadMatrices(n, arch, m)
		want := rowSums(arch, v, m)

		got, cycles := run(rowSumProgram(v, m), len(want), 1000)

		Expect(got).To(Equal(want))

		for i := 0; i < 100; i++ {
			n.Tick(core.Cycle(cycles + i))
		}
		Expect(n.Idle()).To(BeTrue())
		Expect(n.Datapath().Loader().QueueLen()).To(BeZero())
	})

	DescribeTable("should finish a product within the nominal latency",
		func(a config.Arch, blocks int) {
			arch = a
			n = npu.MakeBuilder().WithArch(arch).Build("NPU")

			v := arch.Lanes
			m := blocks * arch.Lanes
			loadMatrices(n, arch, m)

			vrf := make([]core.Vector, v)
			for k := range vrf {
				vrf[k] = ones(arch.Lanes)
			}
			for t := 0; t < arch.Tiles; t++ {
				Expect(n.Datapath().MVU().Tile(t).LoadVRF(vrf)).To(Succeed())
			}
			want := rowSums(arch, v, m)

			got, cycles := run([]program.VLIW{mulWord(v, m, 0)}, len(want), 2000)

			Expect(got).To(Equal(want))
			Expect(cycles).To(BeNumerically("<=", arch.NominalLatency()+v*blocks))
		},
		Entry("at four lanes", smallArch(), 2),
		Entry("at the default width", config.Default(), 2),
	)

	It("should be idle after NOPs", func() {
		_, cycles := run([]program.VLIW{{}, {}, {}}, 0, 3)

		for i := 0; i < 5; i++ {
			n.Tick(core.Cycle(cycles + i))
		}

		Expect(n.Idle()).To(BeTrue())
	})

	It("should not be idle with an instruction waiting", func() {
		n.Issue(program.VLIW{})

		Expect(n.Idle()).To(BeFalse())
	})

	It("should dump busy channels", func() {
		n.Issue(program.VLIW{})
		buf := new(bytes.Buffer)

		n.DumpState(buf, 0)

		Expect(buf.String()).To(ContainSubstring("NPU.Instructions"))
	})

	Context("when seeding from files", func() {
		var dir string

		BeforeEach(func() {
			dir = GinkgoT().TempDir()
			Expect(os.MkdirAll(filepath.Join(dir, npu.RegisterFileDir), 0o755)).
				To(Succeed())
		})

		write := func(name string, rows []core.Vector) {
			path := filepath.Join(dir, npu.RegisterFileDir, name)
			Expect(core.WriteVectorFile(path, rows)).To(Succeed())
		}

		It("should load every register file", func() {
			for t := 0; t < arch.Tiles; t++ {
				for d := 0; d < arch.DPEs; d++ {
					write(npu.MRFFile(t, d), []core.Vector{{int32(t), int32(d), 0, 0}})
				}
			}
			write(npu.InputQueueFile, []core.Vector{{1, 2, 3, 4}})

			Expect(n.LoadSeeds(dir)).To(Succeed())
			Expect(n.Datapath().Loader().QueueLen()).To(Equal(1))
		})

		It("should report a missing seed file", func() {
			write(npu.InputQueueFile, []core.Vector{{1, 2, 3, 4}})

			Expect(n.LoadSeeds(dir)).To(MatchError(os.ErrNotExist))
		})
	})
})
