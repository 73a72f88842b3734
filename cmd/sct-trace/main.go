// Command sct-trace re-runs one fixed schedule of a registered program and
// prints its trace in the compact Sx-/Px-/-/C- notation, mirroring the
// teacher's small single-purpose cmd/trace binary.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/dendrite-sct/dendrite/action"
	"github.com/dendrite-sct/dendrite/conc"
	"github.com/dendrite-sct/dendrite/sched"
	"github.com/dendrite-sct/dendrite/sct"
)

var (
	programFlag = flag.String("program", "racy-write", "Registered program to trace")
	detailsFlag = flag.Bool("details", false, "Include per-step detail")
	memoryFlag  = flag.String("memory", "sc", "Memory model: sc, tso, pso")
)

var programs = map[string]conc.Program{
	"racy-write": func() conc.Instr {
		return conc.NewCRef("x", 0, func(cell conc.CRef) conc.Instr {
			return conc.NewMVar("d1", nil, false, func(done1 conc.MVar) conc.Instr {
				return conc.NewMVar("d2", nil, false, func(done2 conc.MVar) conc.Instr {
					return conc.Fork("writer1", func() conc.Instr {
						return conc.WriteCRef(cell, 1, func() conc.Instr {
							return conc.PutMVar(done1, struct{}{}, func() conc.Instr {
								return conc.Return(nil, nil)
							})
						})
					}, func(action.ThreadID) conc.Instr {
						return conc.Fork("writer2", func() conc.Instr {
							return conc.WriteCRef(cell, 2, func() conc.Instr {
								return conc.PutMVar(done2, struct{}{}, func() conc.Instr {
									return conc.Return(nil, nil)
								})
							})
						}, func(action.ThreadID) conc.Instr {
							return conc.TakeMVar(done1, func(any) conc.Instr {
								return conc.TakeMVar(done2, func(any) conc.Instr {
									return conc.ReadCRef(cell, func(v any) conc.Instr {
										return conc.Return(v, nil)
									})
								})
							})
						})
					})
				})
			})
		})
	},
	"deadlock-mvar": func() conc.Instr {
		return conc.NewMVar("box", nil, false, func(mv conc.MVar) conc.Instr {
			return conc.TakeMVar(mv, func(v any) conc.Instr {
				return conc.Return(v, nil)
			})
		})
	},
}

func memoryType(name string) (action.MemoryType, error) {
	switch strings.ToLower(name) {
	case "", "sc":
		return action.SequentialConsistency, nil
	case "tso":
		return action.TotalStoreOrder, nil
	case "pso":
		return action.PartialStoreOrder, nil
	default:
		return 0, fmt.Errorf("unknown memory model %q", name)
	}
}

func main() {
	flag.Parse()

	program, ok := programs[*programFlag]
	if !ok {
		log.Fatalf("no such program %q", *programFlag)
	}
	memType, err := memoryType(*memoryFlag)
	if err != nil {
		log.Fatal(err)
	}

	res, trace := conc.Run(memType, sched.NewRoundRobin(), program)

	fmt.Println(sct.RenderTrace(trace, *detailsFlag))
	fmt.Println()
	fmt.Printf("result: %s\n", sct.RenderFailure(res.Err))
	if res.Err == nil {
		fmt.Printf("value: %v\n", res.Value)
	}
}
