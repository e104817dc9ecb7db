package core

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"
)

// HookPosChannelWrite marks when a value is written into a channel.
var HookPosChannelWrite = &sim.HookPos{Name: "Channel Write"}

// HookPosChannelRead marks when a value is read out of a channel.
var HookPosChannelRead = &sim.HookPos{Name: "Channel Read"}

type entry[T any] struct {
	value     T
	remaining int
}

// A Channel is a bounded FIFO in which every value becomes visible to the
// reader a fixed number of cycles after it is written. Channels are the only
// way modules talk to each other.
type Channel[T any] struct {
	sim.HookableBase

	name     string
	capacity int
	latency  int
	entries  []entry[T]
}

// NewChannel creates a channel that holds at most capacity values and delays
// each value by latency cycles.
func NewChannel[T any](name string, capacity, latency int) *Channel[T] {
	if capacity <= 0 {
		panic(fmt.Sprintf("channel %s: capacity must be positive, got %d",
			name, capacity))
	}

	if latency < 0 {
		panic(fmt.Sprintf("channel %s: latency must not be negative, got %d",
			name, latency))
	}

	return &Channel[T]{
		name:     name,
		capacity: capacity,
		latency:  latency,
	}
}

// NewPipe creates a channel sized to sustain one value per cycle through the
// given latency.
func NewPipe[T any](name string, latency int) *Channel[T] {
	return NewChannel[T](name, latency+1, latency)
}

// Name returns the name of the channel.
func (c *Channel[T]) Name() string {
	return c.name
}

// Len returns the number of values in the channel, ready or not.
func (c *Channel[T]) Len() int {
	return len(c.entries)
}

// Cap returns the capacity of the channel.
func (c *Channel[T]) Cap() int {
	return c.capacity
}

// Free returns how many more values can be written before the channel is
// full.
func (c *Channel[T]) Free() int {
	return c.capacity - len(c.entries)
}

// Latency returns the number of cycles between a write and its visibility.
func (c *Channel[T]) Latency() int {
	return c.latency
}

// IsEmpty returns true if there is no value that can be read this cycle.
func (c *Channel[T]) IsEmpty() bool {
	return len(c.entries) == 0 || c.entries[0].remaining != 0
}

// IsFull returns true if no more value can be written.
func (c *Channel[T]) IsFull() bool {
	return len(c.entries) >= c.capacity
}

// Write appends a value to the channel.
func (c *Channel[T]) Write(v T) {
	if c.IsFull() {
		panic(fmt.Sprintf("channel %s: write to a full channel (size %d of %d)",
			c.name, len(c.entries), c.capacity))
	}

	c.entries = append(c.entries, entry[T]{value: v, remaining: c.latency})

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    HookPosChannelWrite,
		Item:   v,
	})
}

// Read removes and returns the value at the front of the channel.
func (c *Channel[T]) Read() T {
	v := c.Peek()

	var zero entry[T]
	c.entries[0] = zero
	c.entries = c.entries[1:]

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    HookPosChannelRead,
		Item:   v,
	})

	return v
}

// Peek returns the value at the front of the channel without removing it.
func (c *Channel[T]) Peek() T {
	if len(c.entries) == 0 {
		panic(fmt.Sprintf("channel %s: read from an empty channel", c.name))
	}

	if c.entries[0].remaining != 0 {
		panic(fmt.Sprintf("channel %s: read before the value is ready "+
			"(%d cycles left)", c.name, c.entries[0].remaining))
	}

	return c.entries[0].value
}

// At returns the idx-th value in the channel, counting from the front,
// regardless of whether it is ready.
func (c *Channel[T]) At(idx int) T {
	if idx < 0 || idx >= len(c.entries) {
		panic(fmt.Sprintf("channel %s: index %d out of range (size %d)",
			c.name, idx, len(c.entries)))
	}

	return c.entries[idx].value
}

// Clock moves every value in the channel one cycle closer to being ready.
// It must run once per cycle, after all modules have run.
func (c *Channel[T]) Clock() {
	for i := range c.entries {
		if c.entries[i].remaining > 0 {
			c.entries[i].remaining--
		}
	}
}
