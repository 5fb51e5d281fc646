// Package asm parses the line-oriented text assembly format:
//
//	ADD rd rs1 rs2
//	SUB rd rs1 rs2
//	MUL rd rs1 rs2
//	DIV rd rs1 rs2
//	LW  rd rs1 imm
//	SW  rs2 rs1 imm
//
// Blank lines and lines starting with '#' (after trimming leading
// whitespace) are ignored. An unrecognized opcode produces a
// Diagnostic and the line is skipped, not a hard parse error.
package asm

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/oisee/robsim/internal/isa"
)

// Diagnostic describes a skipped or malformed line.
type Diagnostic struct {
	Line    int
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: %s", d.Line, d.Message)
}

// Program is a parsed instruction stream plus the set of register
// indices the source text actually mentioned (spec §6: final register
// report is limited to registers referenced by the program).
type Program struct {
	Instructions []isa.Instruction
	UsedRegs     map[int]bool
	Diagnostics  []Diagnostic
}

// Parse reads assembly text from r and returns the decoded program.
// Unknown opcodes and malformed operand lists are recorded as
// Diagnostics and the offending line is skipped; Parse only returns a
// non-nil error for an underlying I/O failure.
func Parse(r io.Reader) (*Program, error) {
	prog := &Program{UsedRegs: make(map[int]bool)}
	scanner := bufio.NewScanner(r)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		mnemonic := strings.ToUpper(fields[0])
		args := fields[1:]

		inst, diag, ok := parseLine(mnemonic, args)
		if !ok {
			prog.Diagnostics = append(prog.Diagnostics, Diagnostic{Line: lineNo, Message: diag})
			continue
		}

		markUsed(prog.UsedRegs, mnemonic, inst)
		prog.Instructions = append(prog.Instructions, inst)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("asm: reading input: %w", err)
	}
	return prog, nil
}

func markUsed(used map[int]bool, mnemonic string, inst isa.Instruction) {
	switch mnemonic {
	case "SW":
		used[inst.Rs1] = true
		used[inst.Rs2] = true
	case "LW":
		used[inst.Rd] = true
		used[inst.Rs1] = true
	default:
		used[inst.Rd] = true
		used[inst.Rs1] = true
		used[inst.Rs2] = true
	}
}

func parseLine(mnemonic string, args []string) (isa.Instruction, string, bool) {
	switch mnemonic {
	case "ADD", "SUB", "MUL", "DIV":
		if len(args) != 3 {
			return isa.Instruction{}, fmt.Sprintf("%s requires 3 register operands, got %d", mnemonic, len(args)), false
		}
		rd, ok1 := parseReg(args[0])
		rs1, ok2 := parseReg(args[1])
		rs2, ok3 := parseReg(args[2])
		if !ok1 || !ok2 || !ok3 {
			return isa.Instruction{}, fmt.Sprintf("%s: invalid register operand", mnemonic), false
		}
		return isa.Instruction{Op: opFor(mnemonic), Rd: rd, Rs1: rs1, Rs2: rs2}, "", true

	case "LW":
		if len(args) != 3 {
			return isa.Instruction{}, "LW requires rd rs1 imm", false
		}
		rd, ok1 := parseReg(args[0])
		rs1, ok2 := parseReg(args[1])
		imm, ok3 := parseImm(args[2])
		if !ok1 || !ok2 || !ok3 {
			return isa.Instruction{}, "LW: invalid operand", false
		}
		return isa.Instruction{Op: isa.LW, Rd: rd, Rs1: rs1, Imm: imm}, "", true

	case "SW":
		if len(args) != 3 {
			return isa.Instruction{}, "SW requires rs_src rs1 imm", false
		}
		rsrc, ok1 := parseReg(args[0])
		rs1, ok2 := parseReg(args[1])
		imm, ok3 := parseImm(args[2])
		if !ok1 || !ok2 || !ok3 {
			return isa.Instruction{}, "SW: invalid operand", false
		}
		return isa.Instruction{Op: isa.SW, Rs1: rs1, Rs2: rsrc, Imm: imm}, "", true

	default:
		return isa.Instruction{}, fmt.Sprintf("unknown opcode %q", mnemonic), false
	}
}

func opFor(mnemonic string) isa.Op {
	switch mnemonic {
	case "ADD":
		return isa.ADD
	case "SUB":
		return isa.SUB
	case "MUL":
		return isa.MUL
	default:
		return isa.DIV
	}
}

func parseReg(tok string) (int, bool) {
	if len(tok) < 2 || (tok[0] != 'R' && tok[0] != 'r') {
		return 0, false
	}
	n, err := strconv.Atoi(tok[1:])
	if err != nil || n < 0 || n > 31 {
		return 0, false
	}
	return n, true
}

func parseImm(tok string) (int64, bool) {
	n, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
