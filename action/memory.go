package action

// MemoryType selects the relaxed-memory semantics applied to
// non-synchronised cell operations (spec.md §3, §4.2).
type MemoryType int

const (
	SequentialConsistency MemoryType = iota
	TotalStoreOrder
	PartialStoreOrder
)

func (m MemoryType) String() string {
	switch m {
	case SequentialConsistency:
		return "SequentialConsistency"
	case TotalStoreOrder:
		return "TotalStoreOrder"
	case PartialStoreOrder:
		return "PartialStoreOrder"
	}
	return "unknown"
}
