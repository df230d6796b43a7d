package statement

import (
	"context"
	"math"

	"github.com/ledgerloom/ledgerloom/internal/coa"
	"github.com/ledgerloom/ledgerloom/internal/trialbalance"
)

// AccountSource supplies the full chart of accounts.
type AccountSource interface {
	ListAccounts(ctx context.Context) ([]coa.Account, error)
}

// LedgerSource supplies latest-version mapped sums and trial balance totals.
type LedgerSource interface {
	MappedSums(ctx context.Context, workID int64) (map[int64]float64, error)
	Totals(ctx context.Context, workID int64) (trialbalance.Totals, error)
}

// TemplateSource supplies report templates and manual note texts.
type TemplateSource interface {
	GetTemplate(ctx context.Context, templateID int64) (Template, error)
	ManualNotes(ctx context.Context, workID int64) (map[string]string, error)
}

// Service runs the aggregation pipeline for a work.
type Service struct {
	accounts  AccountSource
	ledger    LedgerSource
	templates TemplateSource
	metrics   MetricConfig
}

// NewService constructs the statement service with the default metric table.
func NewService(accounts AccountSource, ledger LedgerSource, templates TemplateSource) *Service {
	return &Service{accounts: accounts, ledger: ledger, templates: templates, metrics: DefaultMetricConfig()}
}

// WithMetricConfig overrides the derived-metric account table.
func (s *Service) WithMetricConfig(cfg MetricConfig) {
	s.metrics = cfg
}

// Aggregation carries rolled-up balances together with the indexes the
// renderer needs to resolve names and hierarchy.
type Aggregation struct {
	Balances map[int64]float64
	Tree     *Tree
}

// Aggregate loads the account forest and the latest-version mapped sums for
// the work, then rolls leaf balances up to every root. All state is read
// fresh from storage on every call.
func (s *Service) Aggregate(ctx context.Context, workID int64) (Aggregation, error) {
	accounts, err := s.accounts.ListAccounts(ctx)
	if err != nil {
		return Aggregation{}, err
	}
	tree, err := NewTree(accounts)
	if err != nil {
		return Aggregation{}, err
	}
	own, err := s.ledger.MappedSums(ctx, workID)
	if err != nil {
		return Aggregation{}, err
	}
	return Aggregation{Balances: Rollup(tree, own), Tree: tree}, nil
}

// Output is the contract handed to rendering: balances keyed by account and
// synthetic metric ids, the account and children indexes, and the notes.
type Output struct {
	Balances        map[int64]float64
	AccountIndex    map[int64]coa.Account
	ChildrenIndex   map[int64][]int64
	Blocks          []Block
	Notes           []Note
	NoteNumberByRef map[string]int
}

// Generate produces everything a renderer needs for one work and template.
func (s *Service) Generate(ctx context.Context, workID, templateID int64) (Output, error) {
	template, err := s.templates.GetTemplate(ctx, templateID)
	if err != nil {
		return Output{}, err
	}
	blocks, err := ParseTemplate(template.Definition)
	if err != nil {
		return Output{}, err
	}
	manual, err := s.templates.ManualNotes(ctx, workID)
	if err != nil {
		return Output{}, err
	}
	agg, err := s.Aggregate(ctx, workID)
	if err != nil {
		return Output{}, err
	}
	s.metrics.Apply(agg.Balances)
	notes, numberByRef := AssignNotes(blocks, agg.Balances, agg.Tree, manual)
	return Output{
		Balances:        agg.Balances,
		AccountIndex:    agg.Tree.Index,
		ChildrenIndex:   agg.Tree.Children,
		Blocks:          blocks,
		Notes:           notes,
		NoteNumberByRef: numberByRef,
	}, nil
}

// Validation reports the trial balance tally and the balance sheet tally for
// a work. Differences stay visible rather than failing generation; the
// engine always renders something and surfaces imbalance here.
type Validation struct {
	TrialBalance trialbalance.Totals
	BalanceSheet BalanceSheetTally
}

// BalanceSheetTally compares total assets against equity plus liabilities.
type BalanceSheetTally struct {
	TotalAssets               float64
	TotalEquityAndLiabilities float64
	Difference                float64
}

// Validate computes both tallies from the latest persisted state.
func (s *Service) Validate(ctx context.Context, workID int64) (Validation, error) {
	totals, err := s.ledger.Totals(ctx, workID)
	if err != nil {
		return Validation{}, err
	}
	agg, err := s.Aggregate(ctx, workID)
	if err != nil {
		return Validation{}, err
	}
	s.metrics.Apply(agg.Balances)
	assets := agg.Balances[MetricTotalAssets]
	equityAndLiabilities := agg.Balances[MetricTotalEquityAndLiabilities]
	return Validation{
		TrialBalance: totals,
		BalanceSheet: BalanceSheetTally{
			TotalAssets: assets,
			// Reported as magnitude; the signed figure is credit-negative.
			TotalEquityAndLiabilities: math.Abs(equityAndLiabilities),
			Difference:                assets + equityAndLiabilities,
		},
	}, nil
}
