package statement

// Synthetic ids for derived statement figures. They live in the same keyed
// space as account ids so template subtotal blocks can reference them.
const (
	MetricTotalEquityAndLiabilities int64 = 999
	MetricTotalAssets               int64 = 1000
	MetricTotalIncome               int64 = 1001
	MetricTotalExpenses             int64 = 1002
	MetricProfitBeforeTax           int64 = 1003
	MetricOperatingProfit           int64 = 2001
	MetricCashFromOperations        int64 = 2002
	MetricNetOperatingCash          int64 = 2003
	MetricNetInvestingCash          int64 = 2004
	MetricNetFinancingCash          int64 = 2005
	MetricNetCashFlow               int64 = 2006
)

// MetricConfig names the chart of accounts ids the derived formulas read.
// The coupling between formulas and fixed account ids is a business rule of
// the statement templates; the table makes it explicit and overridable
// without touching the formulas themselves.
//
// Sign convention: debit-side postings (assets, expenses) are positive,
// credit-side postings (liabilities, equity, income) are negative.
type MetricConfig struct {
	Assets              int64
	Income              int64
	InterestIncome      int64
	Expenses            int64
	InterestExpense     int64
	PurchaseFixedAssets int64
	Liabilities         int64
	Equity              int64
	ShortTermBorrowings int64
	LongTermBorrowings  int64
	Depreciation        int64
	Taxes               int64
	SaleFixedAssets     int64
	WorkingCapital      []int64
}

// DefaultMetricConfig matches the standard chart of accounts shipped with
// the application.
func DefaultMetricConfig() MetricConfig {
	return MetricConfig{
		Assets:              1,
		Income:              4,
		InterestIncome:      6,
		Expenses:            11,
		InterestExpense:     38,
		PurchaseFixedAssets: 55,
		Liabilities:         61,
		Equity:              81,
		ShortTermBorrowings: 88,
		LongTermBorrowings:  9902,
		Depreciation:        9991,
		Taxes:               9995,
		SaleFixedAssets:     9996,
		WorkingCapital:      []int64{62, 52, 57, 74},
	}
}

// Apply writes the derived figures into balances under their synthetic ids.
// Missing inputs contribute 0; the calculator never fails, it only produces
// consistent output when the expected leaf accounts exist.
func (c MetricConfig) Apply(balances map[int64]float64) {
	assets := balances[c.Assets]
	liabilities := balances[c.Liabilities]
	equity := balances[c.Equity]
	income := balances[c.Income]
	expenses := balances[c.Expenses]

	balances[MetricTotalEquityAndLiabilities] = equity + liabilities
	balances[MetricTotalAssets] = assets
	balances[MetricTotalIncome] = income
	balances[MetricTotalExpenses] = expenses

	// The sign convention nets income (negative) against expenses
	// (positive) correctly without explicit subtraction.
	pbt := income + expenses
	balances[MetricProfitBeforeTax] = pbt

	depreciation := balances[c.Depreciation]
	interestExp := balances[c.InterestExpense]
	interestInc := balances[c.InterestIncome]

	operatingProfit := pbt + depreciation + interestExp - interestInc
	balances[MetricOperatingProfit] = operatingProfit

	var workingCapital float64
	for _, id := range c.WorkingCapital {
		workingCapital += balances[id]
	}
	cashGenerated := operatingProfit + workingCapital
	balances[MetricCashFromOperations] = cashGenerated

	balances[MetricNetOperatingCash] = cashGenerated - balances[c.Taxes]
	balances[MetricNetInvestingCash] = balances[c.SaleFixedAssets] + interestInc - balances[c.PurchaseFixedAssets]
	balances[MetricNetFinancingCash] = balances[c.LongTermBorrowings] + balances[c.ShortTermBorrowings] - interestExp
	balances[MetricNetCashFlow] = balances[MetricNetOperatingCash] + balances[MetricNetInvestingCash] + balances[MetricNetFinancingCash]
}
