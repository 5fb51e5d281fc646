// Package refmodel is the sequential reference interpreter the
// pipeline's final state is checked against (spec property P6):
// execute the same program in program order, one instruction fully
// completing before the next begins, with DIV-by-zero yielding 0.
//
// Adapted from the brute-force equivalence checker's execSeq helper,
// generalized from an 8-bit Z80 state to this module's register file
// and memory.
package refmodel

import (
	"github.com/oisee/robsim/internal/isa"
	"github.com/oisee/robsim/internal/state"
)

// Run applies prog to regs/mem in order, mutating them in place.
func Run(prog []isa.Instruction, regs *state.RegisterFile, mem *state.Memory) {
	for _, instr := range prog {
		exec(instr, regs, mem)
	}
}

func exec(instr isa.Instruction, regs *state.RegisterFile, mem *state.Memory) {
	switch instr.Op {
	case isa.ADD:
		regs.Regs[instr.Rd].Value = regs.Value(instr.Rs1) + regs.Value(instr.Rs2)
	case isa.SUB:
		regs.Regs[instr.Rd].Value = regs.Value(instr.Rs1) - regs.Value(instr.Rs2)
	case isa.MUL:
		regs.Regs[instr.Rd].Value = regs.Value(instr.Rs1) * regs.Value(instr.Rs2)
	case isa.DIV:
		divisor := regs.Value(instr.Rs2)
		if divisor == 0 {
			regs.Regs[instr.Rd].Value = 0
			return
		}
		regs.Regs[instr.Rd].Value = regs.Value(instr.Rs1) / divisor
	case isa.LW:
		addr := instr.Imm + regs.Value(instr.Rs1)
		regs.Regs[instr.Rd].Value = mem.Read(addr)
	case isa.SW:
		addr := instr.Imm + regs.Value(instr.Rs1)
		mem.Write(addr, regs.Value(instr.Rs2))
	}
}
