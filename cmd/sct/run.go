package main

import (
	"fmt"
	"os"

	"github.com/gookit/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dendrite-sct/dendrite/scenario"
	"github.com/dendrite-sct/dendrite/sct"
)

var (
	programName string
	detailsFlag bool
)

var runCmd = &cobra.Command{
	Use:   "run SCENARIO.toml",
	Short: "Explore a program's schedules against a scenario",
	Args:  cobra.ExactArgs(1),
	Run:   runCommand,
}

func init() {
	runCmd.Flags().StringVar(&programName, "program", "racy-write", "Registered program to explore")
	runCmd.Flags().BoolVar(&detailsFlag, "details", false, "Show per-step trace detail for failing outcomes")
}

func runCommand(cmd *cobra.Command, args []string) {
	filename := args[0]

	scen, err := scenario.LoadFromFile(filename)
	if err != nil {
		log.Fatal().Err(err).Msg("couldn't load scenario")
	}

	program, err := lookupProgram(programName)
	if err != nil {
		log.Fatal().Err(err).Msg("couldn't resolve program")
	}

	memType, err := scen.MemoryType()
	if err != nil {
		log.Fatal().Err(err).Msg("bad memory model")
	}

	fmt.Fprintln(os.Stderr, color.Cyan.Sprint("Exploring schedules..."))

	rs := sct.RunSCT(sct.RunConfig{
		MemoryType:    memType,
		Bound:         scen.Bound(),
		MaxExecutions: scen.MaxExecutions(),
		Reporter:      &sct.ColorReporter{Writer: os.Stderr},
	}, program)

	fmt.Fprintf(os.Stderr, "\nrun %s: %d execution(s), %d distinct outcome(s)\n",
		rs.RunID, rs.Stats.Executions, len(rs.Outcomes))

	failing := rs.Failing()
	for _, o := range failing {
		fmt.Fprintln(os.Stderr, color.Red.Sprintf("  %s", sct.RenderFailure(o.Fail)))
		if detailsFlag {
			fmt.Fprintln(os.Stderr, sct.RenderTrace(o.Trace, true))
		}
	}

	matches := true
	if len(failing) > 0 {
		matches = scen.MatchesExpectedFailure(failing[0].Fail)
	} else {
		matches = scen.MatchesExpectedFailure(nil)
	}

	fmt.Fprintln(os.Stderr)
	if matches {
		fmt.Fprintln(os.Stderr, color.Green.Sprint("✓ scenario completed as expected"))
	} else {
		fmt.Fprintln(os.Stderr, color.Red.Sprint("✗ scenario result did not match expected_failure"))
		os.Exit(1)
	}
}
