// Package state holds the architectural register file and memory the
// pipeline commits results into.
package state

// NoPending marks a register as not currently renamed to any ROB entry.
const NoPending = -1

// Register is one architectural register: its committed value and the
// ROB tag of the instruction currently renamed to write it, if any.
type Register struct {
	Value   int64
	Pending int // ROB tag, or NoPending
}

// RegisterFile is the fixed 32-register architectural state.
type RegisterFile struct {
	Regs [32]Register
}

// NewRegisterFile returns a register file with every register
// unrenamed and zero-valued.
func NewRegisterFile() *RegisterFile {
	rf := &RegisterFile{}
	for i := range rf.Regs {
		rf.Regs[i].Pending = NoPending
	}
	return rf
}

// Value returns the committed value of register r.
func (rf *RegisterFile) Value(r int) int64 {
	return rf.Regs[r].Value
}

// Memory is sparse word-addressed memory; an unwritten address reads as 0.
type Memory struct {
	cells map[int64]int64
}

// NewMemory returns an empty memory.
func NewMemory() *Memory {
	return &Memory{cells: make(map[int64]int64)}
}

// Read returns the value stored at addr, or 0 if never written.
func (m *Memory) Read(addr int64) int64 {
	return m.cells[addr]
}

// Write stores value at addr.
func (m *Memory) Write(addr, value int64) {
	m.cells[addr] = value
}

// Set initializes addr to value without affecting any other semantics;
// used to load configured initial memory state before a run starts.
func (m *Memory) Set(addr, value int64) {
	m.cells[addr] = value
}

// NonZero returns every address whose value is non-zero, for reporting.
func (m *Memory) NonZero() map[int64]int64 {
	out := make(map[int64]int64, len(m.cells))
	for addr, v := range m.cells {
		if v != 0 {
			out[addr] = v
		}
	}
	return out
}
