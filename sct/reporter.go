package sct

import (
	"fmt"
	"io"
)

// Reporter handles progress reporting during a RunSCT exploration, lifted
// from the teacher's model.Reporter so RunSCT can stream human-readable
// progress without depending on any particular output sink.
type Reporter interface {
	Printf(format string, args ...interface{})
}

// SilentReporter discards every message.
type SilentReporter struct{}

func (SilentReporter) Printf(format string, args ...interface{}) {}

// ColorReporter writes plain progress lines to Writer; colorizing the
// summary itself (pass/fail, counts) is left to the caller once RunSCT
// returns, the same division of labour as the teacher's cmd/timewinder
// wrapping model.ColorReporter's raw Printf output in color.Sprint calls.
type ColorReporter struct {
	Writer io.Writer
}

func (r *ColorReporter) Printf(format string, args ...interface{}) {
	fmt.Fprintf(r.Writer, format, args...)
}
