package main

import (
	"fmt"
	"sort"

	"github.com/dendrite-sct/dendrite/action"
	"github.com/dendrite-sct/dendrite/conc"
)

// Programs isn't driven by an interpreter the way the teacher's vm/interp
// layer loads .tw source files — dendrite scenarios describe how to explore
// a program, not the program itself (see DESIGN.md's "Open Question —
// where do programs come from?").
// So "run" picks a concurrent program out of a small built-in registry by
// name; scenario files supply the memory model, bound and execution cap.
var programRegistry = map[string]conc.Program{
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

func lookupProgram(name string) (conc.Program, error) {
	p, ok := programRegistry[name]
	if !ok {
		names := make([]string, 0, len(programRegistry))
		for n := range programRegistry {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("no such program %q, have: %v", name, names)
	}
	return p, nil
}
