package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oisee/robsim/internal/asm"
	"github.com/oisee/robsim/internal/config"
	"github.com/oisee/robsim/internal/pipeline"
	"github.com/oisee/robsim/internal/refmodel"
	"github.com/oisee/robsim/internal/result"
	"github.com/oisee/robsim/internal/state"
	"github.com/oisee/robsim/internal/trace"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "robsim",
		Short: "Tomasulo/ROB out-of-order pipeline simulator",
	}

	var addSub, mulDiv, loadStore, robDepth int
	var statePath, output string
	var verbose bool

	runCmd := &cobra.Command{
		Use:   "run [program.asm]",
		Short: "Simulate a program to completion and print its final state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			prog, err := asm.Parse(f)
			if err != nil {
				return err
			}
			for _, d := range prog.Diagnostics {
				fmt.Fprintf(os.Stderr, "robsim: %s\n", d)
			}

			regs := state.NewRegisterFile()
			mem := state.NewMemory()
			if statePath != "" {
				sf, err := os.Open(statePath)
				if err != nil {
					return fmt.Errorf("opening state file: %w", err)
				}
				defer sf.Close()
				is, err := config.LoadInitialState(sf)
				if err != nil {
					return err
				}
				if err := is.Apply(regs, mem); err != nil {
					return err
				}
			}

			cfg := pipeline.Config{AddSub: addSub, MulDiv: mulDiv, LoadStore: loadStore, ROBDepth: robDepth}
			sim := pipeline.New(cfg, prog.Instructions, regs, mem)
			sim.Diagnostics = os.Stderr

			ctx := context.Background()
			if verbose {
				for !sim.Done() {
					sim.Step()
					trace.PrintCycle(os.Stdout, sim)
				}
			} else if err := sim.Run(ctx); err != nil {
				return fmt.Errorf("run: %w", err)
			}

			trace.PrintFinal(os.Stdout, sim, prog.UsedRegs)

			if output != "" {
				of, err := os.Create(output)
				if err != nil {
					return err
				}
				defer of.Close()
				report := result.Build(sim, prog.UsedRegs)
				if err := result.WriteJSON(of, report); err != nil {
					return err
				}
				fmt.Printf("Written to %s\n", output)
			}
			return nil
		},
	}
	runCmd.Flags().IntVar(&addSub, "add", 3, "Number of ADD/SUB reservation stations")
	runCmd.Flags().IntVar(&mulDiv, "mul", 2, "Number of MUL/DIV reservation stations")
	runCmd.Flags().IntVar(&loadStore, "loadstore", 3, "Number of LOAD/STORE reservation stations")
	runCmd.Flags().IntVar(&robDepth, "rob", 6, "Reorder buffer depth")
	runCmd.Flags().StringVar(&statePath, "state", "", "YAML file with initial register/memory state")
	runCmd.Flags().StringVar(&output, "output", "", "Write a JSON report to this path")
	runCmd.Flags().BoolVarP(&verbose, "trace", "v", false, "Print per-cycle state while running")

	var checkStatePath string
	checkCmd := &cobra.Command{
		Use:   "check [program.asm]",
		Short: "Cross-check the pipeline's final state against the sequential reference interpreter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			prog, err := asm.Parse(f)
			if err != nil {
				return err
			}

			pipeRegs := state.NewRegisterFile()
			pipeMem := state.NewMemory()
			refRegs := state.NewRegisterFile()
			refMem := state.NewMemory()
			if checkStatePath != "" {
				sf, err := os.Open(checkStatePath)
				if err != nil {
					return fmt.Errorf("opening state file: %w", err)
				}
				defer sf.Close()
				is, err := config.LoadInitialState(sf)
				if err != nil {
					return err
				}
				if err := is.Apply(pipeRegs, pipeMem); err != nil {
					return err
				}
				if err := is.Apply(refRegs, refMem); err != nil {
					return err
				}
			}

			cfg := pipeline.Config{AddSub: addSub, MulDiv: mulDiv, LoadStore: loadStore, ROBDepth: robDepth}
			sim := pipeline.New(cfg, prog.Instructions, pipeRegs, pipeMem)
			sim.Diagnostics = os.Stderr
			if err := sim.Run(context.Background()); err != nil {
				return fmt.Errorf("run: %w", err)
			}

			refmodel.Run(prog.Instructions, refRegs, refMem)

			mismatches := 0
			for r := 0; r < 32; r++ {
				if pipeRegs.Value(r) != refRegs.Value(r) {
					fmt.Printf("mismatch R%d: pipeline=%d reference=%d\n", r, pipeRegs.Value(r), refRegs.Value(r))
					mismatches++
				}
			}
			for addr, want := range refMem.NonZero() {
				if got := pipeMem.Read(addr); got != want {
					fmt.Printf("mismatch memory[%d]: pipeline=%d reference=%d\n", addr, got, want)
					mismatches++
				}
			}
			if mismatches > 0 {
				return fmt.Errorf("%d mismatches between pipeline and reference interpreter", mismatches)
			}
			fmt.Println("OK: pipeline final state matches the sequential reference interpreter")
			return nil
		},
	}
	checkCmd.Flags().IntVar(&addSub, "add", 3, "Number of ADD/SUB reservation stations")
	checkCmd.Flags().IntVar(&mulDiv, "mul", 2, "Number of MUL/DIV reservation stations")
	checkCmd.Flags().IntVar(&loadStore, "loadstore", 3, "Number of LOAD/STORE reservation stations")
	checkCmd.Flags().IntVar(&robDepth, "rob", 6, "Reorder buffer depth")
	checkCmd.Flags().StringVar(&checkStatePath, "state", "", "YAML file with initial register/memory state")

	rootCmd.AddCommand(runCmd, checkCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
