package utils

// Diff computes the set difference between an old and a new id list.
// added holds ids present only in next, removed holds ids present only in prev.
// Duplicates are collapsed; the order of first appearance is kept so batches are
// deterministic.
func Diff(prev, next []string) (added, removed []string) {
	prevSet := ToSet(prev)
	nextSet := ToSet(next)
	for _, id := range Dedupe(next) {
		if _, ok := prevSet[id]; !ok {
			added = append(added, id)
		}
	}
	for _, id := range Dedupe(prev) {
		if _, ok := nextSet[id]; !ok {
			removed = append(removed, id)
		}
	}
	return added, removed
}

// ToSet converts a slice of ids into a membership set.
func ToSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Dedupe returns ids with duplicates and empty strings removed, keeping order.
func Dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Contains reports whether id is in ids.
func Contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// WithID returns ids with id appended if it is not already present.
func WithID(ids []string, id string) []string {
	if Contains(ids, id) {
		return Dedupe(ids)
	}
	return append(Dedupe(ids), id)
}

// WithoutID returns ids with every occurrence of id removed.
func WithoutID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range Dedupe(ids) {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
