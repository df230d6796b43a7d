// Package coa models the chart of accounts hierarchy and its bulk import path.
package coa

import (
	"errors"
	"fmt"
	"time"
)

// AccountType enumerates the three levels of the chart of accounts.
type AccountType string

const (
	AccountTypeCategory AccountType = "CATEGORY"
	AccountTypeHead     AccountType = "HEAD"
	AccountTypeSubHead  AccountType = "SUB_HEAD"
)

// CategoryType enumerates the five statement categories. It is stored
// redundantly on every node so the statement layer never has to walk up
// to the root to classify a balance.
type CategoryType string

const (
	CategoryAsset     CategoryType = "ASSET"
	CategoryLiability CategoryType = "LIABILITY"
	CategoryEquity    CategoryType = "EQUITY"
	CategoryIncome    CategoryType = "INCOME"
	CategoryExpense   CategoryType = "EXPENSE"
)

// Account is one node in the chart of accounts. The parent relation forms
// a forest; only SUB_HEAD nodes may be mapping targets.
type Account struct {
	ID           int64
	Name         string
	Type         AccountType
	CategoryType CategoryType
	ParentID     *int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

var (
	// ErrAccountNotFound indicates the account id does not exist.
	ErrAccountNotFound = errors.New("coa: account not found")
	// ErrParentNotFound indicates the referenced parent does not exist.
	ErrParentNotFound = errors.New("coa: parent account not found")
)

// MissingColumnsError reports which required bulk-import columns are absent.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("coa: import is missing required columns: %v", e.Columns)
}

// displayNames maps the five standard category codes to presentation names
// used for CATEGORY root nodes. Unknown categories fall back to title case.
var displayNames = map[string]string{
	"ASSET":     "Assets",
	"LIABILITY": "Liabilities",
	"EQUITY":    "Equity",
	"INCOME":    "Income",
	"EXPENSE":   "Expenses",
}
