package utils

// SeenFilter drops repeated identities while merging result lists.
// It is not safe for concurrent use.
type SeenFilter struct {
	seen map[string]struct{}
}

// NewSeenFilter creates a filter pre-loaded with ids that are already present.
func NewSeenFilter(ids ...string) *SeenFilter {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return &SeenFilter{seen: seen}
}

// ShouldInclude reports whether id is new and remembers it.
func (f *SeenFilter) ShouldInclude(id string) bool {
	if _, ok := f.seen[id]; ok {
		return false
	}
	f.seen[id] = struct{}{}
	return true
}
