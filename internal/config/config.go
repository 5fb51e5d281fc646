// Package config loads the simulator's configuration surface: the
// functional-unit/ROB sizing and an optional initial architectural
// state document.
package config

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/oisee/robsim/internal/pipeline"
	"github.com/oisee/robsim/internal/state"
)

// InitialState is the YAML document shape for --state:
//
//	registers:
//	  0: 5
//	  1: 3
//	memory:
//	  105: 10
type InitialState struct {
	Registers map[int]int64   `yaml:"registers"`
	Memory    map[int64]int64 `yaml:"memory"`
}

// LoadInitialState decodes an InitialState document from r.
func LoadInitialState(r io.Reader) (*InitialState, error) {
	var is InitialState
	if err := yaml.NewDecoder(r).Decode(&is); err != nil && err != io.EOF {
		return nil, fmt.Errorf("config: decoding initial state: %w", err)
	}
	return &is, nil
}

// Apply installs the document's register and memory values.
func (is *InitialState) Apply(regs *state.RegisterFile, mem *state.Memory) error {
	for r, v := range is.Registers {
		if r < 0 || r > 31 {
			return fmt.Errorf("config: register index %d out of range R0..R31", r)
		}
		regs.Regs[r].Value = v
	}
	for addr, v := range is.Memory {
		mem.Set(addr, v)
	}
	return nil
}

// DefaultConfig is the reference sizing from the specification:
// 3 add/sub stations, 2 mul/div stations, 3 load/store stations, ROB
// depth 6.
func DefaultConfig() pipeline.Config {
	return pipeline.Config{AddSub: 3, MulDiv: 2, LoadStore: 3, ROBDepth: 6}
}
