package statement

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerloom/ledgerloom/internal/coa"
	"github.com/ledgerloom/ledgerloom/internal/trialbalance"
)

type fakeAccounts struct {
	accounts []coa.Account
}

func (f *fakeAccounts) ListAccounts(ctx context.Context) ([]coa.Account, error) {
	return f.accounts, nil
}

type fakeLedger struct {
	sums   map[int64]float64
	totals trialbalance.Totals
}

func (f *fakeLedger) MappedSums(ctx context.Context, workID int64) (map[int64]float64, error) {
	out := make(map[int64]float64, len(f.sums))
	for id, v := range f.sums {
		out[id] = v
	}
	return out, nil
}

func (f *fakeLedger) Totals(ctx context.Context, workID int64) (trialbalance.Totals, error) {
	return f.totals, nil
}

type fakeTemplates struct {
	template Template
	manual   map[string]string
}

func (f *fakeTemplates) GetTemplate(ctx context.Context, templateID int64) (Template, error) {
	if templateID != f.template.ID {
		return Template{}, ErrTemplateNotFound
	}
	return f.template, nil
}

func (f *fakeTemplates) ManualNotes(ctx context.Context, workID int64) (map[string]string, error) {
	if f.manual == nil {
		return map[string]string{}, nil
	}
	return f.manual, nil
}

func statementFixture() (*fakeAccounts, *fakeLedger, *fakeTemplates) {
	accounts := &fakeAccounts{accounts: []coa.Account{
		account(1, "Assets", nil),
		account(2, "Current Assets", ptr(1)),
		account(3, "Cash", ptr(2)),
		account(61, "Liabilities", nil),
		account(62, "Trade Payables", ptr(61)),
		account(81, "Equity", nil),
		account(82, "Share Capital", ptr(81)),
	}}
	ledger := &fakeLedger{
		sums:   map[int64]float64{3: 1000, 62: -400, 82: -600},
		totals: trialbalance.Totals{TotalDebit: 1000, TotalCredit: 1000},
	}
	templates := &fakeTemplates{template: Template{
		ID:            1,
		Name:          "Balance Sheet",
		StatementType: "balance_sheet",
		Definition: []byte(`[
			{"type": "header_block", "text": "Balance Sheet"},
			{"type": "financial_line_item", "account_head_id": 2, "label": "Current Assets", "note_ref": "CA"},
			{"type": "subtotal", "id": 1000, "label": "Total Assets", "mandatory": true}
		]`),
	}}
	return accounts, ledger, templates
}

func TestServiceAggregate(t *testing.T) {
	accounts, ledger, templates := statementFixture()
	svc := NewService(accounts, ledger, templates)

	agg, err := svc.Aggregate(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, agg.Balances[1])
	assert.Equal(t, 1000.0, agg.Balances[2])
	assert.Equal(t, -400.0, agg.Balances[61])
	assert.Equal(t, -600.0, agg.Balances[81])
}

func TestServiceGenerate(t *testing.T) {
	accounts, ledger, templates := statementFixture()
	svc := NewService(accounts, ledger, templates)

	out, err := svc.Generate(context.Background(), 7, 1)
	require.NoError(t, err)

	require.Len(t, out.Blocks, 3)
	assert.Equal(t, 1000.0, out.Balances[MetricTotalAssets])
	assert.Equal(t, -1000.0, out.Balances[MetricTotalEquityAndLiabilities])

	require.Len(t, out.Notes, 1)
	assert.Equal(t, 3, out.Notes[0].Number)
	assert.Equal(t, "CA", out.Notes[0].Ref)
	assert.Equal(t, 1000.0, out.Notes[0].Total)
	require.Len(t, out.Notes[0].Children, 1)
	assert.Equal(t, "Cash", out.Notes[0].Children[0].Name)

	assert.Equal(t, "Assets", out.AccountIndex[1].Name)
	assert.Equal(t, []int64{3}, out.ChildrenIndex[2])
}

func TestServiceGenerateUnknownTemplate(t *testing.T) {
	accounts, ledger, templates := statementFixture()
	svc := NewService(accounts, ledger, templates)

	_, err := svc.Generate(context.Background(), 7, 99)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestServiceGenerateRejectsCyclicAccounts(t *testing.T) {
	accounts, ledger, templates := statementFixture()
	accounts.accounts = []coa.Account{
		account(1, "A", ptr(2)),
		account(2, "B", ptr(1)),
	}
	svc := NewService(accounts, ledger, templates)

	_, err := svc.Generate(context.Background(), 7, 1)
	assert.ErrorIs(t, err, ErrCyclicAccounts)
}

func TestServiceValidateBalancedBooks(t *testing.T) {
	accounts, ledger, templates := statementFixture()
	svc := NewService(accounts, ledger, templates)

	v, err := svc.Validate(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, v.TrialBalance.TotalDebit)
	assert.Equal(t, 1000.0, v.TrialBalance.TotalCredit)
	assert.Equal(t, 1000.0, v.BalanceSheet.TotalAssets)
	assert.Equal(t, 1000.0, v.BalanceSheet.TotalEquityAndLiabilities)
	assert.Equal(t, 0.0, v.BalanceSheet.Difference)
}

func TestServiceValidateSurfacesImbalance(t *testing.T) {
	accounts, ledger, templates := statementFixture()
	ledger.sums[3] = 1100
	ledger.totals = trialbalance.Totals{TotalDebit: 1100, TotalCredit: 1000, Difference: 100}
	svc := NewService(accounts, ledger, templates)

	v, err := svc.Validate(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 100.0, v.BalanceSheet.Difference)
}
