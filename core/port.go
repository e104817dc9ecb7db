package core

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"
)

// An Input is the receiving end a module uses to read from one channel.
type Input[T any] struct {
	name string
	ch   *Channel[T]
}

// NewInput creates an unbound input port.
func NewInput[T any](name string) *Input[T] {
	return &Input[T]{name: name}
}

// Name returns the name of the port.
func (p *Input[T]) Name() string {
	return p.name
}

// ConnectTo binds the port to a channel. An input can only be bound once.
func (p *Input[T]) ConnectTo(ch *Channel[T]) {
	if p.ch != nil {
		panic(fmt.Sprintf("port %s: already connected to %s, now connecting to %s",
			p.name, p.ch.Name(), ch.Name()))
	}

	p.ch = ch
}

// Channel returns the bound channel, or nil.
func (p *Input[T]) Channel() *Channel[T] {
	return p.ch
}

func (p *Input[T]) mustBeBound() {
	if p.ch == nil {
		panic(fmt.Sprintf("port %s: not connected", p.name))
	}
}

// IsEmpty returns true if the bound channel has nothing ready.
func (p *Input[T]) IsEmpty() bool {
	p.mustBeBound()
	return p.ch.IsEmpty()
}

// Peek returns the ready value without consuming it.
func (p *Input[T]) Peek() T {
	p.mustBeBound()
	return p.ch.Peek()
}

// Read consumes the ready value.
func (p *Input[T]) Read() T {
	p.mustBeBound()
	return p.ch.Read()
}

// An Output is the sending end of a module. It can fan out to several
// channels, in which case every write goes to all of them.
type Output[T any] struct {
	name string
	chs  []*Channel[T]
}

// NewOutput creates an unbound output port.
func NewOutput[T any](name string) *Output[T] {
	return &Output[T]{name: name}
}

// Name returns the name of the port.
func (p *Output[T]) Name() string {
	return p.name
}

// ConnectTo adds a channel to the fan-out set of the port.
func (p *Output[T]) ConnectTo(ch *Channel[T]) {
	p.chs = append(p.chs, ch)
}

// Channels returns the bound channels.
func (p *Output[T]) Channels() []*Channel[T] {
	return p.chs
}

func (p *Output[T]) mustBeBound() {
	if len(p.chs) == 0 {
		panic(fmt.Sprintf("port %s: not connected", p.name))
	}
}

// IsFull returns true if any of the bound channels is full.
func (p *Output[T]) IsFull() bool {
	p.mustBeBound()

	for _, ch := range p.chs {
		if ch.IsFull() {
			return true
		}
	}

	return false
}

// CanAccept returns true if every bound channel can take n more values.
func (p *Output[T]) CanAccept(n int) bool {
	p.mustBeBound()

	for _, ch := range p.chs {
		if ch.Free() < n {
			return false
		}
	}

	return true
}

// Write sends the value to every bound channel.
func (p *Output[T]) Write(v T) {
	p.mustBeBound()

	for _, ch := range p.chs {
		ch.Write(v)
	}
}

// Cycle counts simulated clock cycles from the start of a run.
type Cycle uint64

// A Module is a piece of hardware that has a name and can be advanced by one
// clock cycle.
type Module interface {
	Name() string
	Tick(now Cycle)
}

// A Link is the type-erased view of a channel that owners use to clock it and
// that state dumps use to report on it.
type Link interface {
	sim.Hookable

	Name() string
	Len() int
	Cap() int
	Latency() int
	Clock()
}

// Links is a group of channels owned by one module.
type Links []Link

// Clock clocks every channel in the group.
func (l Links) Clock() {
	for _, link := range l {
		link.Clock()
	}
}

// Drained returns true if no channel in the group holds a value.
func (l Links) Drained() bool {
	for _, link := range l {
		if link.Len() > 0 {
			return false
		}
	}

	return true
}

// AcceptHook registers the hook on every channel in the group.
func (l Links) AcceptHook(hook sim.Hook) {
	for _, link := range l {
		link.AcceptHook(hook)
	}
}
