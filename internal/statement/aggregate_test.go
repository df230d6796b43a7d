package statement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerloom/ledgerloom/internal/coa"
)

func ptr(v int64) *int64 { return &v }

func account(id int64, name string, parent *int64) coa.Account {
	return coa.Account{ID: id, Name: name, Type: coa.AccountTypeSubHead, CategoryType: coa.CategoryAsset, ParentID: parent}
}

func TestRollupInvariant(t *testing.T) {
	// Category -> two heads -> three sub-heads.
	accounts := []coa.Account{
		account(1, "Assets", nil),
		account(2, "Current Assets", ptr(1)),
		account(3, "Fixed Assets", ptr(1)),
		account(4, "Cash", ptr(2)),
		account(5, "Bank", ptr(2)),
		account(6, "Plant", ptr(3)),
	}
	tree, err := NewTree(accounts)
	require.NoError(t, err)

	own := map[int64]float64{4: 100, 5: 250, 6: 4000}
	balances := Rollup(tree, own)

	// aggregated(A) = own(A) + sum of aggregated children, for every node.
	for id := range tree.Index {
		expected := own[id]
		for _, child := range tree.Children[id] {
			expected += balances[child]
		}
		assert.Equal(t, expected, balances[id], "invariant broken at account %d", id)
	}
	assert.Equal(t, 4350.0, balances[1])
	assert.Equal(t, 350.0, balances[2])
	assert.Equal(t, 4000.0, balances[3])
}

func TestRollupArbitraryDepthAndFanOut(t *testing.T) {
	// A chain far deeper than the nominal three levels, with a wide
	// fan-out hanging off the middle.
	var accounts []coa.Account
	accounts = append(accounts, account(1, "Root", nil))
	for id := int64(2); id <= 20; id++ {
		accounts = append(accounts, account(id, "Chain", ptr(id-1)))
	}
	for id := int64(100); id < 150; id++ {
		accounts = append(accounts, account(id, "Leaf", ptr(10)))
	}
	tree, err := NewTree(accounts)
	require.NoError(t, err)

	own := map[int64]float64{20: 7}
	for id := int64(100); id < 150; id++ {
		own[id] = 2
	}
	balances := Rollup(tree, own)
	assert.Equal(t, 7.0+100.0, balances[1])
	assert.Equal(t, 7.0, balances[19])
	assert.Equal(t, 7.0+100.0, balances[10])
}

func TestRollupEveryAccountPresent(t *testing.T) {
	accounts := []coa.Account{
		account(1, "Assets", nil),
		account(2, "Unused Head", ptr(1)),
		// Orphan branch whose parent id does not exist.
		account(50, "Orphan", ptr(9999)),
	}
	tree, err := NewTree(accounts)
	require.NoError(t, err)

	balances := Rollup(tree, map[int64]float64{50: 5})
	require.Len(t, balances, 3)
	assert.Equal(t, 0.0, balances[1])
	assert.Equal(t, 0.0, balances[2])
	assert.Equal(t, 5.0, balances[50])
}

func TestNewTreeRejectsCycle(t *testing.T) {
	accounts := []coa.Account{
		account(1, "A", ptr(3)),
		account(2, "B", ptr(1)),
		account(3, "C", ptr(2)),
	}
	_, err := NewTree(accounts)
	assert.ErrorIs(t, err, ErrCyclicAccounts)
}

func TestNewTreeRejectsSelfParent(t *testing.T) {
	accounts := []coa.Account{account(1, "Selfie", ptr(1))}
	_, err := NewTree(accounts)
	assert.ErrorIs(t, err, ErrCyclicAccounts)
}

func TestNewTreeAcceptsForest(t *testing.T) {
	accounts := []coa.Account{
		account(1, "Assets", nil),
		account(2, "Liabilities", nil),
		account(3, "Cash", ptr(1)),
		account(4, "Loans", ptr(2)),
	}
	tree, err := NewTree(accounts)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, tree.Roots)
	assert.Equal(t, []int64{3}, tree.Children[1])
}
