package coa

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ImportRow is one pre-parsed (category, head, sub-head) triple.
type ImportRow struct {
	Category string
	Head     string
	SubHead  string
}

// ImportResult summarises one bulk import run.
type ImportResult struct {
	SubHeadsProcessed int
}

// requiredColumns must all be present in the uploaded file.
var requiredColumns = []string{"Category", "HEAD", "Sub head"}

// ValidateColumns rejects the whole file when any required column is absent.
func ValidateColumns(columns []string) error {
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[strings.TrimSpace(c)] = true
	}
	var missing []string
	for _, c := range requiredColumns {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Columns: missing}
	}
	return nil
}

// cacheKey identifies an account within one import run. The cache prevents
// creating duplicate siblings when repeated rows name the same node before
// the transaction commits, so it is a correctness requirement, not a speed
// optimisation.
type cacheKey struct {
	name     string
	accType  AccountType
	parentID int64
}

// importCache is scoped to a single Import call and must not outlive it.
type importCache map[cacheKey]Account

// Importer ensures chart of accounts nodes exist for bulk-uploaded triples.
type Importer struct {
	repo RepositoryPort
}

// NewImporter constructs Importer.
func NewImporter(repo RepositoryPort) *Importer {
	return &Importer{repo: repo}
}

// Import ensures category, head, and sub-head nodes exist for every triple.
// The run is transactional: a failure anywhere rolls back all nodes created
// by this run.
func (i *Importer) Import(ctx context.Context, rows []ImportRow) (ImportResult, error) {
	var result ImportResult
	err := i.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		cache := make(importCache)
		titler := cases.Title(language.English)
		for idx, row := range rows {
			category := strings.ToUpper(strings.TrimSpace(row.Category))
			headName := strings.TrimSpace(row.Head)
			subHeadName := strings.TrimSpace(row.SubHead)
			if category == "" || headName == "" {
				return fmt.Errorf("coa: row %d missing category or head", idx)
			}

			rootName, ok := displayNames[category]
			if !ok {
				rootName = titler.String(strings.ToLower(category))
			}

			root, err := getOrCreate(ctx, tx, cache, rootName, AccountTypeCategory, CategoryType(category), nil)
			if err != nil {
				return err
			}
			head, err := getOrCreate(ctx, tx, cache, headName, AccountTypeHead, CategoryType(category), &root.ID)
			if err != nil {
				return err
			}

			if subHeadName == "" || strings.EqualFold(subHeadName, "nan") {
				continue
			}
			if _, err := getOrCreate(ctx, tx, cache, subHeadName, AccountTypeSubHead, CategoryType(category), &head.ID); err != nil {
				return err
			}
			result.SubHeadsProcessed++
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	return result, nil
}

// getOrCreate finds an account by identity key (name, type, parent) or
// creates it, consulting the run-scoped cache before touching storage.
func getOrCreate(ctx context.Context, tx TxRepository, cache importCache, name string, accType AccountType, catType CategoryType, parentID *int64) (Account, error) {
	key := cacheKey{name: name, accType: accType}
	if parentID != nil {
		key.parentID = *parentID
	}
	if cached, ok := cache[key]; ok {
		return cached, nil
	}

	account, err := tx.FindAccount(ctx, name, accType, parentID)
	if err == nil {
		cache[key] = account
		return account, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return Account{}, err
	}

	account, err = tx.InsertAccount(ctx, Account{
		Name:         name,
		Type:         accType,
		CategoryType: catType,
		ParentID:     parentID,
	})
	if err != nil {
		return Account{}, err
	}
	cache[key] = account
	return account, nil
}
