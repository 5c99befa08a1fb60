package detect

import "sort"

// Compare structurally diffs two flattened config snapshots. The key set
// is the sorted union of both sides: a key present only in the new
// snapshot is added, only in the old is removed, and present in both with
// different values is modified. Nothing else is emitted, so comparing
// identical snapshots yields nil regardless of map iteration order.
func Compare(oldCfg, newCfg map[string]string) []Difference {
	keys := unionKeys(oldCfg, newCfg)

	var diffs []Difference
	for _, key := range keys {
		oldValue, inOld := oldCfg[key]
		newValue, inNew := newCfg[key]
		switch {
		case !inOld:
			diffs = append(diffs, Difference{Key: key, Kind: DiffAdded, NewValue: newValue})
		case !inNew:
			diffs = append(diffs, Difference{Key: key, Kind: DiffRemoved, OldValue: oldValue})
		case oldValue != newValue:
			diffs = append(diffs, Difference{Key: key, Kind: DiffModified, OldValue: oldValue, NewValue: newValue})
		}
	}
	return diffs
}

// unionKeys returns the sorted union of both snapshots' keys.
func unionKeys(oldCfg, newCfg map[string]string) []string {
	seen := make(map[string]bool, len(oldCfg)+len(newCfg))
	keys := make([]string, 0, len(oldCfg)+len(newCfg))
	for k := range oldCfg {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	for k := range newCfg {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
