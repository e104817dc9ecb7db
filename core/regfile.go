package core

import "fmt"

// RegWrite is a write request carrying both the address and the data.
type RegWrite[T any] struct {
	Addr int
	Data T
}

type inflight[T any] struct {
	addr      int
	data      T
	remaining int
}

// A RegisterFile is a memory with one read path and one write path. Each
// path keeps a small window of in-flight requests that models its latency.
type RegisterFile[T any] struct {
	name         string
	readLatency  int
	writeLatency int

	rows   []T
	reads  []inflight[T]
	writes []inflight[T]

	ReadAddr *Input[int]
	ReadData *Output[T]
	Write    *Input[RegWrite[T]]
}

// NewRegisterFile creates a register file with every row set to zero.
func NewRegisterFile[T any](
	name string,
	depth, readLatency, writeLatency int,
	zero T,
) *RegisterFile[T] {
	if readLatency < 1 || writeLatency < 1 {
		panic(fmt.Sprintf("register file %s: latencies must be at least 1", name))
	}

	rf := &RegisterFile[T]{
		name:         name,
		readLatency:  readLatency,
		writeLatency: writeLatency,
		rows:         make([]T, depth),
		ReadAddr:     NewInput[int](name + ".ReadAddr"),
		ReadData:     NewOutput[T](name + ".ReadData"),
		Write:        NewInput[RegWrite[T]](name + ".Write"),
	}

	for i := range rf.rows {
		rf.rows[i] = zero
	}

	return rf
}

// Name returns the name of the register file.
func (rf *RegisterFile[T]) Name() string {
	return rf.name
}

// Depth returns the number of rows.
func (rf *RegisterFile[T]) Depth() int {
	return len(rf.rows)
}

// Load seeds the first rows of the register file. The remaining rows keep
// their current value.
func (rf *RegisterFile[T]) Load(rows []T) error {
	if len(rows) > len(rf.rows) {
		return fmt.Errorf("register file %s: %d rows do not fit in depth %d",
			rf.name, len(rows), len(rf.rows))
	}

	copy(rf.rows, rows)

	return nil
}

// Peek returns a row without going through the read pipeline.
func (rf *RegisterFile[T]) Peek(addr int) T {
	rf.mustBeInRange(addr, "peek")
	return rf.rows[addr]
}

// Poke sets a row without going through the write pipeline.
func (rf *RegisterFile[T]) Poke(addr int, v T) {
	rf.mustBeInRange(addr, "poke")
	rf.rows[addr] = v
}

// Idle returns true if no read or write is in flight.
func (rf *RegisterFile[T]) Idle() bool {
	return len(rf.reads) == 0 && len(rf.writes) == 0
}

// Tick advances the write pipeline and then the read pipeline by one cycle.
func (rf *RegisterFile[T]) Tick(_ Cycle) {
	rf.doWrite()
	rf.doRead()
}

func (rf *RegisterFile[T]) doWrite() {
	if len(rf.writes) > 0 && rf.writes[0].remaining == 0 {
		w := rf.writes[0]
		rf.mustBeInRange(w.addr, "write")
		rf.rows[w.addr] = w.data
		rf.writes = rf.writes[1:]
	}

	age(rf.writes)

	if len(rf.writes) <= rf.writeLatency && !rf.Write.IsEmpty() {
		req := rf.Write.Read()
		rf.writes = append(rf.writes, inflight[T]{
			addr:      req.Addr,
			data:      req.Data,
			remaining: rf.writeLatency - 1,
		})
	}
}

func (rf *RegisterFile[T]) doRead() {
	if len(rf.reads) > 0 && rf.reads[0].remaining == 0 && !rf.ReadData.IsFull() {
		r := rf.reads[0]
		rf.mustBeInRange(r.addr, "read")
		rf.ReadData.Write(rf.rows[r.addr])
		rf.reads = rf.reads[1:]
	}

	age(rf.reads)

	if len(rf.reads) <= rf.readLatency && !rf.ReadAddr.IsEmpty() {
		rf.reads = append(rf.reads, inflight[T]{
			addr:      rf.ReadAddr.Read(),
			remaining: rf.readLatency - 1,
		})
	}
}

func age[T any](q []inflight[T]) {
	for i := range q {
		if q[i].remaining > 0 {
			q[i].remaining--
		}
	}
}

func (rf *RegisterFile[T]) mustBeInRange(addr int, op string) {
	if addr < 0 || addr >= len(rf.rows) {
		panic(fmt.Sprintf("register file %s: %s address %d out of range (depth %d)",
			rf.name, op, addr, len(rf.rows)))
	}
}
