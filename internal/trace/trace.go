// Package trace renders the pipeline's observable state as
// tab-aligned console tables: reservation stations, the ROB, register
// status, and the final instruction timeline — the console pretty
// printer spec explicitly keeps out of the core's hard problem.
package trace

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/oisee/robsim/internal/pipeline"
	"github.com/oisee/robsim/internal/rob"
	"github.com/oisee/robsim/internal/rs"
	"github.com/oisee/robsim/internal/state"
)

// PrintCycle writes the per-cycle station/ROB/register snapshot,
// mirroring the original simulator's per-cycle state dump.
func PrintCycle(w io.Writer, sim *pipeline.Simulator) {
	fmt.Fprintf(w, "\n=== Cycle %d ===\n", sim.Cycle())
	printStations(w, "Reservation Station ADD/SUB", sim.AddSub())
	printStations(w, "Reservation Station MUL/DIV", sim.MulDiv())
	printStations(w, "Reservation Station LOAD/STORE", sim.LoadStore())
	printROB(w, sim.ROB)
	printRegisters(w, sim.Regs)
}

func operandText(o rs.Operand) string {
	if o.IsReady() {
		return fmt.Sprintf("%d", o.Value())
	}
	return "-"
}

func operandTag(o rs.Operand) string {
	if o.IsReady() {
		return "-"
	}
	return fmt.Sprintf("#%d", o.Tag())
}

func printStations(w io.Writer, title string, pool *rs.Pool) {
	fmt.Fprintf(w, "\n%s:\n", title)
	tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', 0)
	fmt.Fprintln(tw, "#\tBusy\tOp\tVj\tVk\tQj\tQk\tRD")
	for i, st := range pool.Stations {
		if !st.Busy {
			fmt.Fprintf(tw, "%d\tNo\t-\t-\t-\t-\t-\t-\n", i)
			continue
		}
		fmt.Fprintf(tw, "%d\tYes\t%s\t%s\t%s\t%s\t%s\t#%d\n",
			i, st.Op, operandText(st.Vj), operandText(st.Vk), operandTag(st.Vj), operandTag(st.Vk), st.Dest)
	}
	tw.Flush()
}

func printROB(w io.Writer, r *rob.ROB) {
	fmt.Fprintln(w, "\nReorder Buffer:")
	tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', 0)
	fmt.Fprintln(tw, "#\tBusy\tReady\tType\tDest\tValue")
	for tag := 0; tag < r.Capacity(); tag++ {
		e := r.At(tag)
		typ := "arith"
		if e.Type == rob.EntryStore {
			typ = "store"
		}
		if !e.Busy {
			fmt.Fprintf(tw, "%d\tNo\t-\t-\t-\t-\n", tag)
			continue
		}
		dest := fmt.Sprintf("R%d", e.Dest)
		if e.Type == rob.EntryStore {
			dest = fmt.Sprintf("mem[%d]", e.Addr)
		}
		fmt.Fprintf(tw, "%d\tYes\t%v\t%s\t%s\t%d\n", tag, e.Ready, typ, dest, e.Value)
	}
	tw.Flush()
}

func printRegisters(w io.Writer, regs *state.RegisterFile) {
	fmt.Fprintln(w, "\nRegisters Status:")
	tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', 0)
	fmt.Fprintln(tw, "Reg\tValue\tPending")
	for i, r := range regs.Regs {
		pending := "-"
		if r.Pending != state.NoPending {
			pending = fmt.Sprintf("#%d", r.Pending)
		}
		fmt.Fprintf(tw, "R%d\t%d\t%s\n", i, r.Value, pending)
	}
	tw.Flush()
}

// PrintFinal writes the final timeline, referenced register values,
// and non-zero memory cells sorted by address.
func PrintFinal(w io.Writer, sim *pipeline.Simulator, usedRegs map[int]bool) {
	fmt.Fprintln(w, "\n=== Final Results ===")

	fmt.Fprintln(w, "\nInstruction Timeline:")
	tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', 0)
	fmt.Fprintln(tw, "Instr\tOp\tIssue\tExecComplete\tWriteResult\tCommit")
	for i, st := range sim.Status {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%d\n", i, st.Instr.Op, st.Issue, st.ExecComplete, st.WriteResult, st.Commit)
	}
	tw.Flush()

	fmt.Fprintln(w, "\nFinal Register Values (registers referenced by the program):")
	regIdxs := make([]int, 0, len(usedRegs))
	for r := range usedRegs {
		regIdxs = append(regIdxs, r)
	}
	sort.Ints(regIdxs)
	for _, r := range regIdxs {
		fmt.Fprintf(w, "R%d = %d\n", r, sim.Regs.Value(r))
	}

	fmt.Fprintln(w, "\nFinal Memory Values (non-zero cells):")
	nonZero := sim.Mem.NonZero()
	addrs := make([]int64, 0, len(nonZero))
	for addr := range nonZero {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	for _, addr := range addrs {
		fmt.Fprintf(w, "Memory[%d] = %d\n", addr, nonZero[addr])
	}
}
