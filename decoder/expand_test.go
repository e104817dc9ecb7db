package decoder_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/npusim/decoder"
	"github.com/sarchlab/npusim/program"
)

var _ = Describe("Expansion", func() {
	Context("MVU", func() {
		It("should walk one group of row blocks", func() {
			uops := decoder.ExpandMVU(smallArch(), program.MVUMacroOp{
				Op:      program.MVUMVMul,
				VRFAddr: [3]int{0, 10, 20},
				VSize:   4,
				MRFAddr: 100,
				MSize:   8,
				Tag:     3,
			})

			Expect(uops).To(HaveLen(8))

			var addrs, vrfAddrs, sels []int
			for i, u := range uops {
				addrs = append(addrs, u.MRFAddr)
				vrfAddrs = append(vrfAddrs, u.VRFAddr)
				sels = append(sels, u.RegSel)

				Expect(u.Tag).To(Equal(3))
				Expect(u.AccumSize).To(Equal(2))
				Expect(u.VRFEn).To(BeTrue())
				Expect(u.Slot).To(Equal(i % 2))
				Expect(u.Accum).To(Equal(i >= 6))
			}

			Expect(addrs).To(Equal([]int{100, 104, 101, 105, 102, 106, 103, 107}))
			Expect(vrfAddrs).To(Equal([]int{0, 10, 1, 11, 2, 12, 3, 13}))
			Expect(sels).To(Equal([]int{0, 0, 1, 1, 0, 0, 1, 1}))
		})

		It("should set the flags on the first and last micro-op only", func() {
			uops := decoder.ExpandMVU(smallArch(), program.MVUMacroOp{
				Op: program.MVUMVMul, VSize: 4, MSize: 8,
			})

			Expect(uops[0].FirstFlag).To(Equal(8))
			for _, u := range uops[1:] {
				Expect(u.FirstFlag).To(BeZero())
			}

			for _, u := range uops[:7] {
				Expect(u.LastFlag).To(BeFalse())
			}
			Expect(uops[7].LastFlag).To(BeTrue())
		})

		It("should split many row blocks into chunks", func() {
			uops := decoder.ExpandMVU(smallArch(), program.MVUMacroOp{
				Op: program.MVUMVMul, VSize: 2, MSize: 14,
			})

			Expect(uops).To(HaveLen(14))

			seen := map[int]bool{}
			for _, u := range uops {
				seen[u.MRFAddr] = true
			}
			Expect(seen).To(HaveLen(14))
			for a := 0; a < 14; a++ {
				Expect(seen).To(HaveKey(a))
			}

			Expect(uops[0].AccumSize).To(Equal(3))
			Expect(uops[6].AccumSize).To(Equal(4))
			Expect(uops[6].MRFAddr).To(Equal(6))
			Expect(uops[9].Slot).To(Equal(3))
			Expect(uops[9].VRFEn).To(BeFalse())
			Expect(uops[13].LastFlag).To(BeTrue())
		})

		It("should refuse a matrix smaller than a row block", func() {
			Expect(func() {
				decoder.ExpandMVU(smallArch(), program.MVUMacroOp{
					Op: program.MVUMVMul, VSize: 4, MSize: 2,
				})
			}).To(Panic())
		})
	})

	Context("EVRF", func() {
		It("should flush unused batch slots of MVU results", func() {
			uops := decoder.ExpandEVRF(program.EVRFMacroOp{
				Op: program.EVRFMove, Src: program.EVRFSrcMVU, VSize: 2, Batch: 1,
			})

			var ops []int
			for _, u := range uops {
				ops = append(ops, u.Op)
			}

			Expect(ops).To(Equal([]int{
				program.EVRFMove, program.EVRFFlush, program.EVRFFlush,
				program.EVRFMove, program.EVRFFlush, program.EVRFFlush,
			}))
			Expect(uops[0].FirstFlag).To(Equal(6))
			Expect(uops[5].LastFlag).To(BeTrue())
		})

		It("should read only the batch slots from its register file", func() {
			uops := decoder.ExpandEVRF(program.EVRFMacroOp{
				Op:      program.EVRFMove,
				Src:     program.EVRFSrcEVRF,
				VRFAddr: [3]int{10, 20, 30},
				VSize:   2,
				Batch:   2,
			})

			var addrs []int
			for _, u := range uops {
				addrs = append(addrs, u.VRFAddr)
				Expect(u.Op).To(Equal(program.EVRFMove))
			}

			Expect(addrs).To(Equal([]int{10, 20, 11, 21}))
		})
	})

	Context("MFU", func() {
		It("should produce v_size times batch micro-ops", func() {
			uops := decoder.ExpandMFU(program.MFUMacroOp{
				Op:       program.MFUEn,
				VSize:    3,
				AddOp:    program.AddAdd,
				VRF0Addr: [3]int{0, 100, 200},
				MulOp:    program.MulMul,
				VRF1Addr: [3]int{5, 6, 7},
				Batch:    2,
				Tag:      1,
			})

			Expect(uops).To(HaveLen(6))
			Expect(uops[3].VRF0Addr).To(Equal(101))
			Expect(uops[3].VRF1Addr).To(Equal(7))
			Expect(uops[0].FirstFlag).To(Equal(6))
			Expect(uops[5].LastFlag).To(BeTrue())
			Expect(uops[5].Tag).To(Equal(1))
		})

		It("should refuse a batch wider than three", func() {
			Expect(func() {
				decoder.ExpandMFU(program.MFUMacroOp{
					Op: program.MFUEn, VSize: 1, Batch: 4,
				})
			}).To(Panic())
		})
	})

	Context("LD", func() {
		It("should offset both destinations", func() {
			uops := decoder.ExpandLD(program.LDMacroOp{
				Op:    program.LDStore,
				VSize: 2,
				Dst: [2]program.LDDest{
					{Valid: true, ID: 0, Addr: [3]int{8, 16, 24}},
					{Valid: false, ID: 3, Addr: [3]int{1, 2, 3}},
				},
				Batch:         3,
				WriteToOutput: true,
			})

			Expect(uops).To(HaveLen(6))
			Expect(uops[4].Dst[0]).To(Equal(program.LDTarget{
				Valid: true, ID: 0, Addr: 17,
			}))
			Expect(uops[4].Dst[1].Addr).To(Equal(3))
			Expect(uops[4].WriteToOutput).To(BeTrue())

			last := 0
			for _, u := range uops {
				if u.LastFlag {
					last++
				}
			}
			Expect(last).To(Equal(1))
		})
	})
})
