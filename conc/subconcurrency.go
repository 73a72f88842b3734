package conc

import (
	"errors"

	"github.com/dendrite-sct/dendrite/action"
)

// runSubconcurrency drives body to completion on self's behalf without
// ever handing a step to the scheduler: spec.md §4.1 makes subconcurrency
// opaque to the trace, a single isolated unit, which requires self to be
// the only live thread and not already nested (so there is, by
// construction, nothing else that could ever satisfy a block or run a
// forked sibling). Catch/Throw inside body still work, since they resolve
// through the same scope stack as ordinary code; only Fork, ThrowTo, and
// an operation that would have to block are rejected as illegal.
func runSubconcurrency(rt *Runtime, self *thread, body Program) (value any, innerErr error, illegal error) {
	live := 0
	for _, t := range rt.threads {
		if !t.finished {
			live++
		}
	}
	if live != 1 || rt.subDepth > 0 {
		return nil, nil, action.NewFailure(action.FIllegalSubconcurrency, nil)
	}

	rt.subDepth++
	defer func() { rt.subDepth-- }()

	base := len(self.scopeStack)
	cur := body()
	for {
		for cur.isReturn && len(self.scopeStack) > base {
			frame := self.scopeStack[len(self.scopeStack)-1]
			self.scopeStack = self.scopeStack[:len(self.scopeStack)-1]
			cur = frame.onReturn(self, cur.retVal, cur.retErr)
		}
		if cur.isReturn {
			return cur.retVal, cur.retErr, nil
		}

		switch cur.look.Kind {
		case action.LFork:
			return nil, nil, action.NewFailure(action.FIllegalSubconcurrency, errors.New("fork is illegal inside a subconcurrency block"))
		case action.LThrowTo:
			return nil, nil, action.NewFailure(action.FIllegalSubconcurrency, errors.New("throwTo is illegal inside a subconcurrency block"))
		}

		result, _, ok := cur.perform(rt, self)
		if !ok {
			return nil, nil, action.NewFailure(action.FIllegalSubconcurrency, errors.New("blocking operation inside a subconcurrency block"))
		}
		cur = cur.cont(result)
	}
}
