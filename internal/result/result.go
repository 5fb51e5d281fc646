// Package result serializes a finished simulation run as JSON: the
// per-instruction timeline plus final non-zero memory and referenced
// register values.
package result

import (
	"encoding/json"
	"io"
	"sort"
	"strconv"

	"github.com/oisee/robsim/internal/isa"
	"github.com/oisee/robsim/internal/pipeline"
)

// TimelineRow is one instruction's cycle-timestamp record.
type TimelineRow struct {
	Index        int    `json:"index"`
	Op           string `json:"op"`
	Issue        int    `json:"issue"`
	ExecComplete int    `json:"exec_complete"`
	WriteResult  int    `json:"write_result"`
	Commit       int    `json:"commit"`
}

// Report is the full observable output of a completed run.
type Report struct {
	Cycles    int              `json:"cycles"`
	Timeline  []TimelineRow    `json:"timeline"`
	Registers map[string]int64 `json:"registers"`
	Memory    map[string]int64 `json:"memory"`
}

// Build assembles a Report from a simulator that has reached
// completion, reporting only the registers named in usedRegs (spec
// §6: "final register values for registers referenced by the
// program") and only non-zero memory cells. Memory is a map keyed by
// the decimal address, so it keeps no order: WriteJSON emits its keys
// in string order ("1000" before "203"), not numeric address order.
func Build(sim *pipeline.Simulator, usedRegs map[int]bool) Report {
	r := Report{Cycles: sim.Cycle()}

	for i, st := range sim.Status {
		r.Timeline = append(r.Timeline, TimelineRow{
			Index:        i,
			Op:           st.Instr.Op.String(),
			Issue:        st.Issue,
			ExecComplete: st.ExecComplete,
			WriteResult:  st.WriteResult,
			Commit:       st.Commit,
		})
	}

	r.Registers = make(map[string]int64, len(usedRegs))
	for reg := range usedRegs {
		r.Registers[isa.RegName(reg)] = sim.Regs.Value(reg)
	}

	nonZero := sim.Mem.NonZero()
	r.Memory = make(map[string]int64, len(nonZero))
	addrs := make([]int64, 0, len(nonZero))
	for addr := range nonZero {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	for _, addr := range addrs {
		r.Memory[strconv.FormatInt(addr, 10)] = nonZero[addr]
	}

	return r
}

// WriteJSON writes report to w as indented JSON, mirroring the
// teacher's result.WriteJSON helper.
func WriteJSON(w io.Writer, report Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
