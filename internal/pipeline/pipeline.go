// Package pipeline is the cycle driver: the Tomasulo/ROB state machine
// that runs Commit, Write-Result, Execute, and Issue in that fixed
// order every cycle.
package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/oisee/robsim/internal/isa"
	"github.com/oisee/robsim/internal/rob"
	"github.com/oisee/robsim/internal/rs"
	"github.com/oisee/robsim/internal/state"
)

// Unset marks a status timestamp that hasn't happened yet.
const Unset = -1

// Config is the functional-unit and ROB sizing the simulator is built
// with. The reference configuration is AddSub=3, MulDiv=2,
// LoadStore=3, ROBDepth=6.
type Config struct {
	AddSub    int
	MulDiv    int
	LoadStore int
	ROBDepth  int
}

// Status is the per-instruction timestamp log row.
type Status struct {
	Instr        isa.Instruction
	Issue        int
	ExecComplete int
	WriteResult  int
	Commit       int
}

// Simulator owns every piece of architectural and microarchitectural
// state and advances it one cycle at a time.
type Simulator struct {
	cfg     Config
	program []isa.Instruction
	pc      int
	cycle   int

	Regs *state.RegisterFile
	Mem  *state.Memory

	ROB       *rob.ROB
	addSub    *rs.Pool
	mulDiv    *rs.Pool
	loadStore *rs.Pool

	Status []Status

	// Diagnostics receives human-readable warnings (unknown opcode
	// already filtered out by the parser; division by zero surfaces
	// here) the way the CLI wires it to stderr.
	Diagnostics io.Writer
}

// New builds a simulator for program, with regs/mem as the initial
// architectural state (may be nil for zeroed defaults).
func New(cfg Config, program []isa.Instruction, regs *state.RegisterFile, mem *state.Memory) *Simulator {
	if regs == nil {
		regs = state.NewRegisterFile()
	}
	if mem == nil {
		mem = state.NewMemory()
	}
	status := make([]Status, len(program))
	for i, instr := range program {
		status[i] = Status{Instr: instr, Issue: Unset, ExecComplete: Unset, WriteResult: Unset, Commit: Unset}
	}
	return &Simulator{
		cfg:         cfg,
		program:     program,
		Regs:        regs,
		Mem:         mem,
		ROB:         rob.New(cfg.ROBDepth),
		addSub:      rs.NewPool(cfg.AddSub),
		mulDiv:      rs.NewPool(cfg.MulDiv),
		loadStore:   rs.NewPool(cfg.LoadStore),
		Status:      status,
		Diagnostics: io.Discard,
	}
}

// Cycle returns the number of cycles executed so far.
func (s *Simulator) Cycle() int { return s.cycle }

// AddSub, MulDiv, and LoadStore expose the three reservation-station
// pools read-only, for trace rendering.
func (s *Simulator) AddSub() *rs.Pool    { return s.addSub }
func (s *Simulator) MulDiv() *rs.Pool    { return s.mulDiv }
func (s *Simulator) LoadStore() *rs.Pool { return s.loadStore }

// Done implements the Termination Oracle: complete iff the
// instruction queue is drained, every station is idle, and the ROB
// holds nothing in flight.
func (s *Simulator) Done() bool {
	return s.pc >= len(s.program) && s.ROB.Empty() &&
		poolIdle(s.addSub) && poolIdle(s.mulDiv) && poolIdle(s.loadStore)
}

func poolIdle(p *rs.Pool) bool {
	for i := range p.Stations {
		if p.Stations[i].Busy {
			return false
		}
	}
	return true
}

// Step advances exactly one cycle: it increments the cycle counter
// (so the first cycle is numbered 1), then runs Commit, Write-Result,
// Execute, and Issue in that order.
func (s *Simulator) Step() {
	s.cycle++
	s.commit()
	s.writeResult()
	s.execute()
	s.issue()
}

// Run steps the simulator until Done reports completion or ctx is
// cancelled, whichever comes first.
func (s *Simulator) Run(ctx context.Context) error {
	for !s.Done() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		s.Step()
	}
	return nil
}

func (s *Simulator) poolFor(op isa.Op) *rs.Pool {
	switch isa.PoolFor(op) {
	case isa.PoolAddSub:
		return s.addSub
	case isa.PoolMulDiv:
		return s.mulDiv
	default:
		return s.loadStore
	}
}

// issue admits the head of the instruction queue if a station and an
// ROB slot are both free.
func (s *Simulator) issue() {
	if s.pc >= len(s.program) {
		return
	}
	instr := s.program[s.pc]
	pool := s.poolFor(instr.Op)
	stationIdx := pool.FindFree()
	if stationIdx < 0 || s.ROB.Full() {
		return
	}

	entryType := rob.EntryRegister
	if instr.Op == isa.SW {
		entryType = rob.EntryStore
	}
	tag := s.ROB.Alloc(rob.Entry{
		Type:       entryType,
		Dest:       instr.Rd,
		InstrIndex: s.pc,
		Op:         instr.Op,
	})

	st := rs.Station{
		Busy:         true,
		Op:           instr.Op,
		Dest:         tag,
		InstrIndex:   s.pc,
		RemainCycles: isa.Latency(instr.Op),
	}

	switch instr.Op {
	case isa.SW:
		st.Vj = s.captureOperand(instr.Rs1)
		st.Vk = s.captureOperand(instr.Rs2)
		if st.Vj.IsReady() {
			addr := instr.Imm + st.Vj.Value()
			st.Addr, st.AddrSet = addr, true
			s.ROB.At(tag).Addr = addr
		}
	case isa.LW:
		st.Vj = s.captureOperand(instr.Rs1)
		if st.Vj.IsReady() {
			st.Addr, st.AddrSet = instr.Imm+st.Vj.Value(), true
		}
		s.Regs.Regs[instr.Rd].Pending = tag
	default: // ADD, SUB, MUL, DIV
		st.Vj = s.captureOperand(instr.Rs1)
		st.Vk = s.captureOperand(instr.Rs2)
		s.Regs.Regs[instr.Rd].Pending = tag
	}

	pool.Stations[stationIdx] = st
	s.Status[s.pc].Issue = s.cycle
	s.pc++
}

// captureOperand reads register r at issue time: if unrenamed, the
// value is immediately ready; if renamed and the renaming ROB entry
// has already produced its value, bypass it directly (no need to wait
// another cycle for the CDB); otherwise wait on that entry's tag.
func (s *Simulator) captureOperand(r int) rs.Operand {
	reg := &s.Regs.Regs[r]
	if reg.Pending == state.NoPending {
		return rs.Ready(reg.Value)
	}
	entry := s.ROB.At(reg.Pending)
	if entry.Busy && entry.Ready {
		return rs.Ready(entry.Value)
	}
	return rs.Waiting(reg.Pending)
}

// execute decrements every station whose operands are resolved and
// records exec-complete the cycle its counter reaches zero.
func (s *Simulator) execute() {
	for _, pool := range []*rs.Pool{s.addSub, s.mulDiv, s.loadStore} {
		for i := range pool.Stations {
			if !pool.ReadyToExecute(i) {
				continue
			}
			st := &pool.Stations[i]
			if (st.Op == isa.SW || st.Op == isa.LW) && !st.AddrSet && st.Vj.IsReady() {
				st.Addr = s.program[st.InstrIndex].Imm + st.Vj.Value()
				st.AddrSet = true
				if st.Op == isa.SW {
					s.ROB.At(st.Dest).Addr = st.Addr
				}
			}
			st.RemainCycles--
			if st.RemainCycles == 0 {
				s.Status[st.InstrIndex].ExecComplete = s.cycle
			}
		}
	}
}

// writeResult computes and publishes the result of every busy station
// whose countdown reached zero in an earlier cycle's Execute phase, then
// frees the station.
func (s *Simulator) writeResult() {
	for _, pool := range []*rs.Pool{s.addSub, s.mulDiv, s.loadStore} {
		for i := range pool.Stations {
			st := &pool.Stations[i]
			if !st.Busy || st.RemainCycles != 0 {
				continue
			}
			value := s.computeResult(st)
			entry := s.ROB.At(st.Dest)
			entry.Value = value
			entry.Ready = true

			if st.Op != isa.SW {
				s.addSub.Broadcast(st.Dest, value)
				s.mulDiv.Broadcast(st.Dest, value)
				s.loadStore.Broadcast(st.Dest, value)
				s.resolveStoreAddresses(st.Dest, value)
			}

			s.Status[st.InstrIndex].WriteResult = s.cycle
			pool.Clear(i)
		}
	}
}

// resolveStoreAddresses finishes computing the effective address of
// any store still waiting on tag for its base register.
func (s *Simulator) resolveStoreAddresses(tag int, value int64) {
	for i := range s.loadStore.Stations {
		st := &s.loadStore.Stations[i]
		if !st.Busy || st.Op != isa.SW || st.AddrSet {
			continue
		}
		if st.Vj.IsReady() {
			st.Addr = s.program[st.InstrIndex].Imm + st.Vj.Value()
			st.AddrSet = true
			s.ROB.At(st.Dest).Addr = st.Addr
		}
	}
}

func (s *Simulator) computeResult(st *rs.Station) int64 {
	switch st.Op {
	case isa.ADD:
		return st.Vj.Value() + st.Vk.Value()
	case isa.SUB:
		return st.Vj.Value() - st.Vk.Value()
	case isa.MUL:
		return st.Vj.Value() * st.Vk.Value()
	case isa.DIV:
		if st.Vk.Value() == 0 {
			fmt.Fprintln(s.Diagnostics, "Warning: Division by zero detected!")
			return 0
		}
		return st.Vj.Value() / st.Vk.Value()
	case isa.LW:
		return s.Mem.Read(st.Addr)
	case isa.SW:
		return st.Vk.Value()
	default:
		panic(fmt.Sprintf("pipeline: unknown op %v", st.Op))
	}
}

// commit retires the ROB head if it is ready. At most one retirement
// happens per cycle.
func (s *Simulator) commit() {
	if s.ROB.Empty() {
		return
	}
	tag := s.ROB.HeadTag()
	head := s.ROB.At(tag)
	if !head.Busy || !head.Ready {
		return
	}

	switch head.Type {
	case rob.EntryRegister:
		reg := &s.Regs.Regs[head.Dest]
		if reg.Pending == tag {
			reg.Value = head.Value
			reg.Pending = state.NoPending
		}
	case rob.EntryStore:
		s.Mem.Write(head.Addr, head.Value)
	}

	s.Status[head.InstrIndex].Commit = s.cycle
	s.ROB.CommitHead()
}
