package core_test

import (
	gomock "github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/npusim/core"
)

var _ = Describe("Channel", func() {
	var ch *core.Channel[int]

	BeforeEach(func() {
		ch = core.NewChannel[int]("ch", 3, 2)
	})

	It("should hide a value until the latency has passed", func() {
		ch.Write(7)

		Expect(ch.IsEmpty()).To(BeTrue())
		Expect(ch.Len()).To(Equal(1))

		ch.Clock()
		Expect(ch.IsEmpty()).To(BeTrue())

		ch.Clock()
		Expect(ch.IsEmpty()).To(BeFalse())
		Expect(ch.Peek()).To(Equal(7))
		Expect(ch.Read()).To(Equal(7))
		Expect(ch.Len()).To(Equal(0))
	})

	It("should keep values in order", func() {
		ch.Write(1)
		ch.Clock()
		ch.Write(2)
		ch.Clock()
		ch.Write(3)
		ch.Clock()
		ch.Clock()

		Expect(ch.At(2)).To(Equal(3))
		Expect(ch.Read()).To(Equal(1))
		Expect(ch.Read()).To(Equal(2))
		Expect(ch.Read()).To(Equal(3))
	})

	It("should not let a late value pass an early one", func() {
		ch.Write(1)
		ch.Clock()
		ch.Clock()
		ch.Write(2)

		Expect(ch.Read()).To(Equal(1))
		Expect(ch.IsEmpty()).To(BeTrue())
	})

	It("should be full at capacity", func() {
		ch.Write(1)
		ch.Write(2)
		Expect(ch.IsFull()).To(BeFalse())
		Expect(ch.Free()).To(Equal(1))

		ch.Write(3)
		Expect(ch.IsFull()).To(BeTrue())
		Expect(func() { ch.Write(4) }).To(PanicWith(ContainSubstring("ch")))
	})

	It("should panic when reading a value that is not ready", func() {
		ch.Write(1)

		Expect(func() { ch.Read() }).To(Panic())
	})

	It("should panic when reading an empty channel", func() {
		Expect(func() { ch.Peek() }).To(PanicWith(ContainSubstring("empty")))
	})

	It("should panic when peeking out of range", func() {
		Expect(func() { ch.At(0) }).To(Panic())
	})

	It("should deliver values immediately with no latency", func() {
		zero := core.NewChannel[int]("zero", 1, 0)
		zero.Write(5)

		Expect(zero.Read()).To(Equal(5))
	})

	It("should size a pipe for one value per cycle", func() {
		pipe := core.NewPipe[int]("pipe", 4)

		Expect(pipe.Cap()).To(Equal(5))
		Expect(pipe.Latency()).To(Equal(4))

		for i := 0; i < 20; i++ {
			if !pipe.IsEmpty() {
				Expect(pipe.Read()).To(Equal(i - 4))
			}

			pipe.Write(i)
			pipe.Clock()
		}
	})

	It("should reject bad parameters", func() {
		Expect(func() { core.NewChannel[int]("bad", 0, 1) }).To(Panic())
		Expect(func() { core.NewChannel[int]("bad", 1, -1) }).To(Panic())
	})

	Context("with a hook", func() {
		var (
			mockCtrl *gomock.Controller
			hook     *MockHook
		)

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
			hook = NewMockHook(mockCtrl)
			ch.AcceptHook(hook)
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should report writes and reads", func() {
			hook.EXPECT().Func(gomock.Any()).Do(func(ctx sim.HookCtx) {
				Expect(ctx.Pos).To(Equal(core.HookPosChannelWrite))
				Expect(ctx.Item).To(Equal(9))
			})
			hook.EXPECT().Func(gomock.Any()).Do(func(ctx sim.HookCtx) {
				Expect(ctx.Pos).To(Equal(core.HookPosChannelRead))
				Expect(ctx.Domain).To(BeIdenticalTo(ch))
			})

			ch.Write(9)
			ch.Clock()
			ch.Clock()
			ch.Read()
		})
	})
})
