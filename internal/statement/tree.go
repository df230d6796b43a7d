// Package statement aggregates mapped ledger balances up the chart of
// accounts and derives the figures and note schedules of a financial
// statement.
package statement

import (
	"errors"
	"sort"

	"github.com/ledgerloom/ledgerloom/internal/coa"
)

// ErrCyclicAccounts indicates the parent graph is not a forest. Rollup
// refuses to run rather than loop forever on malformed data.
var ErrCyclicAccounts = errors.New("statement: account hierarchy contains a cycle")

// Tree is a flat arena of account records plus a parent->children adjacency
// index. Accounts reference each other by id only; no pointer cycles.
type Tree struct {
	Index    map[int64]coa.Account
	Children map[int64][]int64
	Roots    []int64
}

// NewTree builds the index from a flat account list and verifies the parent
// relation forms a forest.
func NewTree(accounts []coa.Account) (*Tree, error) {
	t := &Tree{
		Index:    make(map[int64]coa.Account, len(accounts)),
		Children: make(map[int64][]int64),
	}
	for _, a := range accounts {
		t.Index[a.ID] = a
	}
	for _, a := range accounts {
		if a.ParentID == nil {
			t.Roots = append(t.Roots, a.ID)
			continue
		}
		if _, ok := t.Index[*a.ParentID]; !ok {
			// Dangling parent reference; treat the node as a root so its
			// branch still contributes to the rollup.
			t.Roots = append(t.Roots, a.ID)
			continue
		}
		t.Children[*a.ParentID] = append(t.Children[*a.ParentID], a.ID)
	}
	sort.Slice(t.Roots, func(i, j int) bool { return t.Roots[i] < t.Roots[j] })
	for id := range t.Children {
		children := t.Children[id]
		sort.Slice(children, func(i, j int) bool { return children[i] < children[j] })
	}
	if err := t.detectCycle(); err != nil {
		return nil, err
	}
	return t, nil
}

// detectCycle walks every parent chain once. A node whose chain revisits
// itself, or that hangs off a cyclic chain, fails the whole build.
func (t *Tree) detectCycle() error {
	const (
		unseen = 0
		active = 1
		done   = 2
	)
	state := make(map[int64]int, len(t.Index))
	for id := range t.Index {
		if state[id] != unseen {
			continue
		}
		var chain []int64
		current := id
		for {
			if state[current] == done {
				break
			}
			if state[current] == active {
				return ErrCyclicAccounts
			}
			state[current] = active
			chain = append(chain, current)
			account, ok := t.Index[current]
			if !ok || account.ParentID == nil {
				break
			}
			parent := *account.ParentID
			if _, exists := t.Index[parent]; !exists {
				// Dangling parent reference; the node acts as a root.
				break
			}
			current = parent
		}
		for _, visited := range chain {
			state[visited] = done
		}
	}
	return nil
}
