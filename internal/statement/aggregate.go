package statement

// Rollup computes each account's rolled-up balance: its own mapped sum plus
// the rolled-up balances of all descendants. Results are memoized per call
// so every node is computed exactly once regardless of fan-out, and the memo
// never outlives the call; mappings or uploads may change between calls.
func Rollup(tree *Tree, own map[int64]float64) map[int64]float64 {
	final := make(map[int64]float64, len(tree.Index))
	visited := make(map[int64]bool, len(tree.Index))

	var roll func(id int64) float64
	roll = func(id int64) float64 {
		if visited[id] {
			return final[id]
		}
		visited[id] = true
		total := own[id]
		for _, childID := range tree.Children[id] {
			total += roll(childID)
		}
		final[id] = total
		return total
	}

	for _, root := range tree.Roots {
		roll(root)
	}
	// Every account id appears in the result, even when a branch was not
	// reachable from any root.
	for id := range tree.Index {
		roll(id)
	}
	return final
}
