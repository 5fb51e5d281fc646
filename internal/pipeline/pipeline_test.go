package pipeline

import (
	"bytes"
	"testing"

	"github.com/oisee/robsim/internal/isa"
	"github.com/oisee/robsim/internal/state"
)

func refConfig() Config {
	return Config{AddSub: 3, MulDiv: 2, LoadStore: 3, ROBDepth: 6}
}

func refRegs() *state.RegisterFile {
	rf := state.NewRegisterFile()
	vals := map[int]int64{0: 5, 1: 3, 2: 2, 3: 3, 4: 2, 5: 5}
	for r, v := range vals {
		rf.Regs[r].Value = v
	}
	return rf
}

func runToCompletion(t *testing.T, s *Simulator, maxCycles int) {
	t.Helper()
	for i := 0; i < maxCycles; i++ {
		if s.Done() {
			return
		}
		s.Step()
	}
	t.Fatalf("did not terminate within %d cycles", maxCycles)
}

func TestScenario1SingleAdd(t *testing.T) {
	prog := []isa.Instruction{{Op: isa.ADD, Rd: 6, Rs1: 0, Rs2: 1}}
	s := New(refConfig(), prog, refRegs(), state.NewMemory())
	runToCompletion(t, s, 50)

	if got := s.Regs.Value(6); got != 8 {
		t.Errorf("R6 = %d, want 8", got)
	}
	st := s.Status[0]
	if st.Issue != 1 || st.ExecComplete != 3 || st.WriteResult != 4 || st.Commit != 5 {
		t.Errorf("status = %+v, want issue=1 exec=3 write=4 commit=5", st)
	}
}

func TestScenario2CDBBypass(t *testing.T) {
	prog := []isa.Instruction{
		{Op: isa.ADD, Rd: 6, Rs1: 0, Rs2: 1},
		{Op: isa.SUB, Rd: 7, Rs1: 6, Rs2: 2},
	}
	s := New(refConfig(), prog, refRegs(), state.NewMemory())
	runToCompletion(t, s, 50)

	if got := s.Regs.Value(6); got != 8 {
		t.Errorf("R6 = %d, want 8", got)
	}
	if got := s.Regs.Value(7); got != 6 {
		t.Errorf("R7 = %d, want 6", got)
	}
	if s.Status[1].ExecComplete != 5 {
		t.Errorf("second instr exec_complete = %d, want 5", s.Status[1].ExecComplete)
	}
}

func TestScenario3MulThenAdd(t *testing.T) {
	prog := []isa.Instruction{
		{Op: isa.MUL, Rd: 6, Rs1: 0, Rs2: 1},
		{Op: isa.ADD, Rd: 7, Rs1: 6, Rs2: 2},
	}
	s := New(refConfig(), prog, refRegs(), state.NewMemory())
	runToCompletion(t, s, 60)

	if got := s.Regs.Value(6); got != 15 {
		t.Errorf("R6 = %d, want 15", got)
	}
	if got := s.Regs.Value(7); got != 17 {
		t.Errorf("R7 = %d, want 17", got)
	}
}

func TestScenario4Load(t *testing.T) {
	prog := []isa.Instruction{{Op: isa.LW, Rd: 6, Rs1: 0, Imm: 100}}
	mem := state.NewMemory()
	mem.Set(105, 10)
	s := New(refConfig(), prog, refRegs(), mem)
	runToCompletion(t, s, 50)

	if got := s.Regs.Value(6); got != 10 {
		t.Errorf("R6 = %d, want 10", got)
	}
	// Latency floor (P2): exec_complete - issue >= latency(LW) == 2,
	// and write_result == exec_complete + 1.
	if got := s.Status[0].ExecComplete; got != s.Status[0].Issue+2 {
		t.Errorf("exec_complete = %d, want issue+2 = %d", got, s.Status[0].Issue+2)
	}
	if got := s.Status[0].WriteResult; got != s.Status[0].ExecComplete+1 {
		t.Errorf("write_result = %d, want exec_complete+1 = %d", got, s.Status[0].ExecComplete+1)
	}
}

func TestScenario5DivThenAdd(t *testing.T) {
	prog := []isa.Instruction{
		{Op: isa.DIV, Rd: 6, Rs1: 1, Rs2: 2},
		{Op: isa.ADD, Rd: 7, Rs1: 6, Rs2: 3},
	}
	s := New(refConfig(), prog, refRegs(), state.NewMemory())
	runToCompletion(t, s, 80)

	if got := s.Regs.Value(6); got != 1 {
		t.Errorf("R6 = %d, want 1", got)
	}
	if got := s.Regs.Value(7); got != 4 {
		t.Errorf("R7 = %d, want 4", got)
	}
}

func TestScenario6StoreAfterDependency(t *testing.T) {
	prog := []isa.Instruction{
		{Op: isa.ADD, Rd: 6, Rs1: 0, Rs2: 1},
		{Op: isa.SW, Rs1: 4, Rs2: 6, Imm: 201},
	}
	s := New(refConfig(), prog, refRegs(), state.NewMemory())
	runToCompletion(t, s, 50)

	if got := s.Mem.Read(203); got != 8 {
		t.Errorf("memory[203] = %d, want 8", got)
	}
	if s.Status[1].Commit <= s.Status[0].Commit {
		t.Errorf("store committed (%d) before/at its dependency (%d)", s.Status[1].Commit, s.Status[0].Commit)
	}
}

func TestDivisionByZeroDiagnostic(t *testing.T) {
	prog := []isa.Instruction{{Op: isa.DIV, Rd: 6, Rs1: 0, Rs2: 5}}
	regs := refRegs()
	regs.Regs[5].Value = 0
	var diag bytes.Buffer
	s := New(refConfig(), prog, regs, state.NewMemory())
	s.Diagnostics = &diag
	runToCompletion(t, s, 50)

	if got := s.Regs.Value(6); got != 0 {
		t.Errorf("R6 = %d, want 0 on div-by-zero", got)
	}
	if diag.Len() == 0 {
		t.Error("expected a division-by-zero diagnostic")
	}
}

func TestROBFullStallsIssue(t *testing.T) {
	prog := make([]isa.Instruction, 5)
	for i := range prog {
		prog[i] = isa.Instruction{Op: isa.MUL, Rd: 10 + i, Rs1: 0, Rs2: 1}
	}
	cfg := Config{AddSub: 3, MulDiv: 5, LoadStore: 3, ROBDepth: 2}
	s := New(cfg, prog, refRegs(), state.NewMemory())

	s.Step() // issues instr 0
	s.Step() // issues instr 1, ROB now full
	if s.pc != 2 {
		t.Fatalf("pc = %d after 2 steps with ROB depth 2, want 2 (stalled)", s.pc)
	}
	s.Step() // ROB still full (nothing has committed yet), issue stalls
	if s.pc != 2 {
		t.Fatalf("pc = %d, want still 2 (ROB full should stall issue)", s.pc)
	}
	runToCompletion(t, s, 200)
}

func TestRSPoolFullStallsIssue(t *testing.T) {
	prog := make([]isa.Instruction, 3)
	for i := range prog {
		prog[i] = isa.Instruction{Op: isa.MUL, Rd: 10 + i, Rs1: 0, Rs2: 1}
	}
	cfg := Config{AddSub: 3, MulDiv: 1, LoadStore: 3, ROBDepth: 6}
	s := New(cfg, prog, refRegs(), state.NewMemory())

	s.Step() // issues instr 0, mul pool (size 1) now full
	if s.pc != 1 {
		t.Fatalf("pc = %d after 1 step with 1 mul station, want 1", s.pc)
	}
	s.Step()
	if s.pc != 1 {
		t.Fatalf("pc = %d, want still 1 (RS pool full should stall issue)", s.pc)
	}
	runToCompletion(t, s, 200)
}

func TestWAWRenameSuppression(t *testing.T) {
	prog := []isa.Instruction{
		{Op: isa.ADD, Rd: 6, Rs1: 0, Rs2: 1}, // R6 = 8, slow-ish but only latency 2
		{Op: isa.MUL, Rd: 6, Rs1: 2, Rs2: 3}, // R6 = 6, same dest, later writer
	}
	s := New(refConfig(), prog, refRegs(), state.NewMemory())
	runToCompletion(t, s, 80)

	if got := s.Regs.Value(6); got != 6 {
		t.Errorf("R6 = %d, want 6 (second writer's value should win)", got)
	}
}

func TestMonotoneTimestamps(t *testing.T) {
	prog := []isa.Instruction{
		{Op: isa.MUL, Rd: 6, Rs1: 0, Rs2: 1},
		{Op: isa.ADD, Rd: 7, Rs1: 6, Rs2: 2},
		{Op: isa.DIV, Rd: 8, Rs1: 1, Rs2: 2},
	}
	s := New(refConfig(), prog, refRegs(), state.NewMemory())
	runToCompletion(t, s, 100)

	for i, st := range s.Status {
		if !(st.Issue <= st.ExecComplete && st.ExecComplete <= st.WriteResult && st.WriteResult <= st.Commit) {
			t.Errorf("instr %d: timestamps not monotone: %+v", i, st)
		}
	}
}
