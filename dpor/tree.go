package dpor

import "github.com/dendrite-sct/dendrite/action"

// node is one decision point in the schedule tree. Nodes live in Tree's
// arena slice and refer to each other by index rather than pointer, so the
// tree is walked and extended without ever creating a reference cycle
// (spec.md §9).
type node struct {
	parent    int // -1 for the root
	viaTid    action.ThreadID
	children  map[action.ThreadID]int
	backtrack map[action.ThreadID]bool
	sleep     map[action.ThreadID]bool
	runnable  []action.RunnableThread
}

func newNode(parent int, via action.ThreadID) *node {
	return &node{
		parent: parent, viaTid: via,
		children:  map[action.ThreadID]int{},
		backtrack: map[action.ThreadID]bool{},
		sleep:     map[action.ThreadID]bool{},
	}
}

// Tree is the arena of schedule-tree nodes explored so far, rooted at
// index 0.
type Tree struct {
	nodes []*node
}

func newTree() *Tree {
	return &Tree{nodes: []*node{newNode(-1, action.ThreadID{})}}
}

// pathTo reconstructs the sequence of thread ids chosen along the root-to-idx
// path, in execution order.
func (t *Tree) pathTo(idx int) []action.ThreadID {
	var rev []action.ThreadID
	for idx > 0 {
		n := t.nodes[idx]
		rev = append(rev, n.viaTid)
		idx = n.parent
	}
	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	return rev
}

// extend walks trace from the root, creating any nodes not already present,
// and returns the node index visited at each decision point (len(trace)+1
// entries: the node BEFORE step i is path[i]).
func (t *Tree) extend(trace action.Trace) []int {
	path := make([]int, len(trace)+1)
	cur := 0
	path[0] = 0
	for i := range trace {
		tid := activeTid(trace, i)
		n := t.nodes[cur]
		if n.runnable == nil {
			n.runnable = trace[i].Runnable
		}
		child, ok := n.children[tid]
		if !ok {
			t.nodes = append(t.nodes, newNode(cur, tid))
			child = len(t.nodes) - 1
			n.children[tid] = child
		}
		cur = child
		path[i+1] = cur
	}
	return path
}

// recordRaces inserts a backtracking point at the node preceding each race's
// earlier step, for the other thread involved, subject to bound and
// avoiding anything already explored or slept. It returns the number of
// races the bound rejected (a race that was real but not worth exploring
// under the current bound), for dpor.Statistics.ConservativeDiscards.
func (t *Tree) recordRaces(trace action.Trace, path []int, bound Bound) int {
	discards := 0
	for _, r := range findRaces(trace) {
		idx := path[r.before]
		n := t.nodes[idx]
		if _, done := n.children[r.other]; done {
			continue
		}
		if n.sleep[r.other] {
			continue
		}
		if bound != nil && !bound.Within(trace[:r.before], trace[r.before].Runnable, r.other) {
			discards++
			continue
		}
		n.backtrack[r.other] = true
	}
	return discards
}

// nextBacktrack finds any node with an unexplored backtracking alternative.
func (t *Tree) nextBacktrack() (idx int, tid action.ThreadID, ok bool) {
	for i, n := range t.nodes {
		for cand := range n.backtrack {
			if _, done := n.children[cand]; done {
				continue
			}
			if n.sleep[cand] {
				continue
			}
			return i, cand, true
		}
	}
	return 0, action.ThreadID{}, false
}
