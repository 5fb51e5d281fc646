// Package rob implements the reorder buffer: the circular queue of
// in-flight instructions that enforces in-order commit over
// out-of-order execution and write-result.
package rob

import "github.com/oisee/robsim/internal/isa"

// EntryType distinguishes a register-writing entry from a store, which
// commits by writing memory instead of a register.
type EntryType uint8

const (
	EntryRegister EntryType = iota
	EntryStore
)

// Entry is one in-flight instruction's commit-time record.
type Entry struct {
	Busy       bool
	Ready      bool // write-result has produced Value
	Type       EntryType
	Dest       int   // destination register (EntryRegister) or unused (EntryStore)
	Addr       int64 // store address (EntryStore only)
	Value      int64
	InstrIndex int // index into the program, for tracing
	Op         isa.Op
}

// ROB is a fixed-capacity circular reorder buffer.
type ROB struct {
	entries    []Entry
	head, tail int
	count      int
}

// New returns an empty ROB with the given number of slots.
func New(capacity int) *ROB {
	return &ROB{entries: make([]Entry, capacity)}
}

// Capacity returns the number of ROB slots.
func (r *ROB) Capacity() int { return len(r.entries) }

// Len returns the number of occupied slots.
func (r *ROB) Len() int { return r.count }

// Full reports whether the ROB has no free slot.
func (r *ROB) Full() bool { return r.count == len(r.entries) }

// Empty reports whether the ROB holds no in-flight instruction.
func (r *ROB) Empty() bool { return r.count == 0 }

// Alloc reserves the next tail slot for a newly-issued instruction and
// returns its tag. Caller must check !Full() first.
func (r *ROB) Alloc(e Entry) int {
	tag := r.tail
	e.Busy = true
	r.entries[tag] = e
	r.tail = (r.tail + 1) % len(r.entries)
	r.count++
	return tag
}

// At returns a pointer to the entry for tag, for in-place mutation
// during write-result.
func (r *ROB) At(tag int) *Entry {
	return &r.entries[tag]
}

// HeadTag returns the tag of the oldest in-flight entry; only valid
// when !Empty().
func (r *ROB) HeadTag() int {
	return r.head
}

// CommitHead retires the oldest entry and advances head. Caller must
// check the head entry is Busy && Ready first.
func (r *ROB) CommitHead() Entry {
	e := r.entries[r.head]
	r.entries[r.head] = Entry{}
	r.head = (r.head + 1) % len(r.entries)
	r.count--
	return e
}
