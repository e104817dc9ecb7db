package core_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/npusim/core"
)

var _ = Describe("Port", func() {
	It("should panic when used before it is connected", func() {
		in := core.NewInput[int]("lonely.In")
		out := core.NewOutput[int]("lonely.Out")

		Expect(func() { in.IsEmpty() }).To(PanicWith(ContainSubstring("lonely.In")))
		Expect(func() { out.Write(1) }).To(PanicWith(ContainSubstring("lonely.Out")))
	})

	It("should refuse a second channel on an input", func() {
		in := core.NewInput[int]("in")
		in.ConnectTo(core.NewChannel[int]("a", 1, 0))

		Expect(func() {
			in.ConnectTo(core.NewChannel[int]("b", 1, 0))
		}).To(Panic())
	})

	It("should pass values from an output to an input", func() {
		ch := core.NewChannel[int]("ch", 2, 1)
		out := core.NewOutput[int]("out")
		in := core.NewInput[int]("in")
		out.ConnectTo(ch)
		in.ConnectTo(ch)

		out.Write(3)
		Expect(in.IsEmpty()).To(BeTrue())

		ch.Clock()
		Expect(in.Peek()).To(Equal(3))
		Expect(in.Read()).To(Equal(3))
		Expect(in.Channel()).To(BeIdenticalTo(ch))
	})

	It("should fan out to every channel", func() {
		a := core.NewChannel[int]("a", 1, 0)
		b := core.NewChannel[int]("b", 2, 0)
		out := core.NewOutput[int]("out")
		out.ConnectTo(a)
		out.ConnectTo(b)

		Expect(out.CanAccept(1)).To(BeTrue())
		Expect(out.CanAccept(2)).To(BeFalse())

		out.Write(4)

		Expect(a.Read()).To(Equal(4))
		Expect(b.Read()).To(Equal(4))
		Expect(out.Channels()).To(HaveLen(2))
	})

	It("should be full when any channel is full", func() {
		a := core.NewChannel[int]("a", 1, 0)
		b := core.NewChannel[int]("b", 2, 0)
		out := core.NewOutput[int]("out")
		out.ConnectTo(a)
		out.ConnectTo(b)

		out.Write(1)

		Expect(out.IsFull()).To(BeTrue())
	})
})

var _ = Describe("Links", func() {
	var (
		a, b  *core.Channel[int]
		links core.Links
	)

	BeforeEach(func() {
		a = core.NewChannel[int]("alpha", 2, 1)
		b = core.NewChannel[int]("beta", 2, 1)
		links = core.Links{a, b}
	})

	It("should clock every channel", func() {
		a.Write(1)
		b.Write(2)

		links.Clock()

		Expect(a.IsEmpty()).To(BeFalse())
		Expect(b.IsEmpty()).To(BeFalse())
	})

	It("should report when drained", func() {
		Expect(links.Drained()).To(BeTrue())

		a.Write(1)
		Expect(links.Drained()).To(BeFalse())
	})

	It("should dump busy channels", func() {
		a.Write(1)
		buf := new(bytes.Buffer)

		core.DumpLinks(buf, "State", links, false)

		Expect(buf.String()).To(ContainSubstring("alpha"))
		Expect(buf.String()).NotTo(ContainSubstring("beta"))
	})
})
