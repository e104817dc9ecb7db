package api

import (
	gomock "github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/npusim/core"
	"github.com/sarchlab/npusim/program"
)

// echoDevice produces one output vector per issued word, delay cycles
// after it was issued.
type echoDevice struct {
	delay   int
	now     core.Cycle
	pending []core.Cycle
	ready   int
	popped  int
}

func (e *echoDevice) Tick(now core.Cycle) {
	e.now = now
	for len(e.pending) > 0 && e.pending[0]+core.Cycle(e.delay) <= now {
		e.pending = e.pending[1:]
		e.ready++
	}
}

func (e *echoDevice) CanIssue() bool { return true }

func (e *echoDevice) Issue(program.VLIW) {
	e.pending = append(e.pending, e.now)
}

func (e *echoDevice) PopOutput() (core.Vector, bool) {
	if e.ready == 0 {
		return nil, false
	}

	e.ready--
	e.popped++

	return core.Vector{int32(e.popped)}, true
}

func (e *echoDevice) Idle() bool {
	return len(e.pending) == 0 && e.ready == 0
}

var _ = Describe("Driver", func() {
	var (
		mockCtrl   *gomock.Controller
		mockDevice *MockDevice
		driver     *driverImpl
		words      []program.VLIW
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		mockDevice = NewMockDevice(mockCtrl)

		driver = &driverImpl{
			device: mockDevice,
		}
		driver.TickingComponent =
			sim.NewTickingComponent("Driver", nil, 1*sim.GHz, driver)

		words = []program.VLIW{
			{MVU: program.MVUMacroOp{Op: program.MVUMVMul, Tag: 1}},
			{LD: program.LDMacroOp{Op: program.LDFlush}},
		}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should feed one word per cycle", func() {
		driver.Enqueue(words)

		mockDevice.EXPECT().CanIssue().Return(true)
		mockDevice.EXPECT().Issue(words[0])
		mockDevice.EXPECT().Tick(core.Cycle(0))
		mockDevice.EXPECT().PopOutput().Return(nil, false)

		Expect(driver.Tick()).To(BeTrue())
		Expect(driver.insts).To(Equal(words[1:]))
		Expect(driver.finished).To(BeFalse())
	})

	It("should hold the word if the device is busy", func() {
		driver.Enqueue(words)

		mockDevice.EXPECT().CanIssue().Return(false)
		mockDevice.EXPECT().Tick(core.Cycle(0))
		mockDevice.EXPECT().PopOutput().Return(nil, false)

		driver.Tick()

		Expect(driver.insts).To(HaveLen(2))
	})

	It("should finish when the expected outputs arrive", func() {
		driver.ExpectOutputs(1)

		mockDevice.EXPECT().Tick(core.Cycle(0))
		mockDevice.EXPECT().PopOutput().Return(core.Vector{1, 2}, true)

		driver.Tick()

		Expect(driver.finished).To(BeTrue())
		Expect(driver.timedOut).To(BeFalse())
		Expect(driver.Cycles()).To(Equal(1))
		Expect(driver.Outputs()).To(Equal([]core.Vector{{1, 2}}))
	})

	It("should finish when the device is idle", func() {
		mockDevice.EXPECT().Tick(core.Cycle(0))
		mockDevice.EXPECT().PopOutput().Return(nil, false)
		mockDevice.EXPECT().Idle().Return(true)

		driver.Tick()

		Expect(driver.finished).To(BeTrue())
		Expect(driver.Outputs()).To(BeEmpty())
	})

	It("should drain without counting cycles", func() {
		driver.finished = true
		driver.cycles = 5
		driver.now = 5

		mockDevice.EXPECT().Tick(gomock.Any()).Times(DrainCycles)
		mockDevice.EXPECT().PopOutput().Return(nil, false).Times(DrainCycles)

		for i := 0; i < DrainCycles; i++ {
			Expect(driver.Tick()).To(BeTrue())
		}

		Expect(driver.Tick()).To(BeFalse())
		Expect(driver.Cycles()).To(Equal(5))
	})

	It("should stop at the cycle limit", func() {
		driver.maxCycles = 2

		mockDevice.EXPECT().Tick(gomock.Any()).Times(2)
		mockDevice.EXPECT().PopOutput().Return(nil, false).Times(2)
		mockDevice.EXPECT().Idle().Return(false).Times(2)

		driver.Tick()
		Expect(driver.finished).To(BeFalse())

		driver.Tick()
		Expect(driver.finished).To(BeTrue())
		Expect(driver.timedOut).To(BeTrue())
	})

	It("should panic without a device", func() {
		driver.device = nil

		Expect(func() { driver.Tick() }).To(Panic())
	})
})

var _ = Describe("Driver on an engine", func() {
	var (
		engine sim.Engine
		device *echoDevice
	)

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
		device = &echoDevice{delay: 3}
	})

	It("should run until every output is collected", func() {
		driver := DriverBuilder{}.
			WithEngine(engine).
			WithFreq(1 * sim.GHz).
			WithExpectedOutputs(3).
			Build("Driver")
		driver.RegisterDevice(device)
		driver.Enqueue(make([]program.VLIW, 3))

		Expect(driver.Run()).To(Succeed())

		Expect(driver.Outputs()).To(Equal([]core.Vector{{1}, {2}, {3}}))
		Expect(driver.Cycles()).To(Equal(6))
	})

	It("should report a run that hits the cycle limit", func() {
		driver := DriverBuilder{}.
			WithEngine(engine).
			WithFreq(1 * sim.GHz).
			WithExpectedOutputs(4).
			WithMaxCycles(20).
			Build("Driver")
		driver.RegisterDevice(device)
		driver.Enqueue(make([]program.VLIW, 3))

		Expect(driver.Run()).To(MatchError(ErrMaxCycles))
		Expect(driver.Cycles()).To(Equal(20))
		Expect(driver.Outputs()).To(HaveLen(3))
	})
})
