// Package rs implements the reservation-station pools: ADD/SUB,
// MUL/DIV, and LOAD/STORE, each a fixed-size array of stations.
package rs

import "github.com/oisee/robsim/internal/isa"

// Operand is a tagged union: either a Ready value or a Waiting ROB tag.
// Using a tagged union instead of a sentinel (-1 tag meaning "ready")
// keeps "waiting on tag 0" distinguishable from "not waiting at all".
type Operand struct {
	ready bool
	value int64
	tag   int
}

// Ready constructs a resolved operand.
func Ready(value int64) Operand { return Operand{ready: true, value: value} }

// Waiting constructs an operand pending the result tagged by tag.
func Waiting(tag int) Operand { return Operand{ready: false, tag: tag} }

// IsReady reports whether the operand already holds a value.
func (o Operand) IsReady() bool { return o.ready }

// Value returns the resolved value; only meaningful when IsReady is true.
func (o Operand) Value() int64 { return o.value }

// Tag returns the ROB tag being waited on; only meaningful when IsReady is false.
func (o Operand) Tag() int { return o.tag }

// Resolve fills in the operand's value if it was waiting on tag.
func (o *Operand) Resolve(tag int, value int64) {
	if !o.ready && o.tag == tag {
		o.ready = true
		o.value = value
	}
}

// Station is one reservation-station slot.
type Station struct {
	Busy         bool
	Op           isa.Op
	Vj, Vk       Operand // first/second source operand
	Addr         int64   // computed effective address, LOAD/STORE only
	AddrSet      bool    // whether Addr has been computed yet
	Dest         int     // ROB tag this station will broadcast to
	RemainCycles int     // cycles of execution remaining, counted down once operands resolve
	InstrIndex   int     // index into the program, for tracing
}

// Pool is a fixed-size array of stations for one functional-unit class.
type Pool struct {
	Stations []Station
}

// NewPool returns a pool with the given number of free stations.
func NewPool(n int) *Pool {
	return &Pool{Stations: make([]Station, n)}
}

// FindFree returns the index of the first non-busy station in
// declaration order, or -1 if the pool is full.
func (p *Pool) FindFree() int {
	for i := range p.Stations {
		if !p.Stations[i].Busy {
			return i
		}
	}
	return -1
}

// Broadcast resolves any waiting operand across every station in the
// pool that matches tag, mirroring the CDB's simultaneous fan-out.
func (p *Pool) Broadcast(tag int, value int64) {
	for i := range p.Stations {
		s := &p.Stations[i]
		if !s.Busy {
			continue
		}
		s.Vj.Resolve(tag, value)
		s.Vk.Resolve(tag, value)
	}
}

// ReadyToExecute reports whether station i is busy, still has cycles
// left to count down, and has the operands its op needs resolved.
func (p *Pool) ReadyToExecute(i int) bool {
	s := &p.Stations[i]
	if !s.Busy || s.RemainCycles == 0 {
		return false
	}
	if isa.IsArithmetic(s.Op) {
		return s.Vj.IsReady() && s.Vk.IsReady()
	}
	// LOAD/STORE: Vj carries the base register. SW additionally needs
	// its store-source operand (Vk) resolved before it can execute.
	if s.Op == isa.SW {
		return s.Vj.IsReady() && s.Vk.IsReady()
	}
	return s.Vj.IsReady()
}

// Clear resets station i to its zero, non-busy state.
func (p *Pool) Clear(i int) {
	p.Stations[i] = Station{}
}
