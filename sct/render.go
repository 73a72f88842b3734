package sct

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dendrite-sct/dendrite/action"
)

// RenderTrace renders an execution trace using spec's compact per-step
// notation — Sx- (start thread x), Px- (preempt to x), - (continue), C-
// (commit) — followed by a key line naming every non-initial thread
// encountered, ascending by id. When details is true each step is also
// expanded onto its own line with its runnable-set size and action,
// mirroring the teacher's ShowDetails toggle in
// model.FormatPropertyViolation.
func RenderTrace(trace action.Trace, details bool) string {
	tokens := make([]string, 0, len(trace))
	named := map[int]string{}

	for i, step := range trace {
		tid := activeTidAt(trace, i)
		if tid.Num > 0 {
			named[tid.Num] = tid.String()
		}

		switch {
		case step.Action.Kind == action.KCommitCRef:
			tokens = append(tokens, "C-")
		case step.Decision.Kind == action.DStart:
			tokens = append(tokens, fmt.Sprintf("S%d-", tid.Num))
		case step.Decision.Kind == action.DSwitchTo:
			tokens = append(tokens, fmt.Sprintf("P%d-", tid.Num))
		default:
			tokens = append(tokens, "-")
		}
	}

	var b strings.Builder
	b.WriteString(strings.Join(tokens, " "))

	if len(named) > 0 {
		ids := make([]int, 0, len(named))
		for id := range named {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = fmt.Sprintf("%d=%s", id, named[id])
		}
		b.WriteString("\n")
		b.WriteString(strings.Join(parts, ", "))
	}

	if details {
		b.WriteString("\n\n")
		for i, step := range trace {
			tid := activeTidAt(trace, i)
			fmt.Fprintf(&b, "%3d. thread=%s action=%s runnable=%d\n", i+1, tid.String(), step.Action.String(), len(step.Runnable))
		}
	}

	return b.String()
}

// RenderFailure renders a terminal Failure using spec's bracketed tags.
func RenderFailure(f *action.Failure) string {
	if f == nil {
		return "ok"
	}
	return f.Tag()
}

func activeTidAt(trace action.Trace, i int) action.ThreadID {
	for trace[i].Decision.Kind == action.DContinue {
		i--
	}
	return trace[i].Decision.Tid
}
