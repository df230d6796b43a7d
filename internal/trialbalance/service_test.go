package trialbalance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerloom/ledgerloom/internal/coa"
)

type versionKey struct {
	unitID  int64
	version int64
}

type fakeRepo struct {
	units          map[int64]int64 // unitID -> workID
	versions       map[versionKey]Version
	entries        map[int64]Entry
	mappings       map[int64]Mapping // entryID -> mapping
	nextEntryID    int64
	nextMappingID  int64
	conflictsLeft  int // injected InsertVersion conflicts
	versionCounter int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		units:         make(map[int64]int64),
		versions:      make(map[versionKey]Version),
		entries:       make(map[int64]Entry),
		mappings:      make(map[int64]Mapping),
		nextEntryID:   1,
		nextMappingID: 1,
	}
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &fakeTx{repo: f})
}

func (f *fakeRepo) UnitBelongsToWork(ctx context.Context, workID, unitID int64) error {
	if f.units[unitID] != workID {
		return ErrUnitNotFound
	}
	return nil
}

func (f *fakeRepo) ListVersions(ctx context.Context, unitID int64) ([]VersionInfo, error) {
	counts := make(map[int64]int64)
	for _, e := range f.entries {
		if e.UnitID == unitID {
			counts[e.VersionNumber]++
		}
	}
	var infos []VersionInfo
	for key, v := range f.versions {
		if key.unitID == unitID {
			infos = append(infos, VersionInfo{Version: v.VersionNumber, RowCount: counts[v.VersionNumber], UploadedAt: v.UploadedAt})
		}
	}
	for i := 0; i < len(infos); i++ {
		for j := i + 1; j < len(infos); j++ {
			if infos[j].Version > infos[i].Version {
				infos[i], infos[j] = infos[j], infos[i]
			}
		}
	}
	return infos, nil
}

func (f *fakeRepo) latest(workID int64) map[int64]int64 {
	latest := make(map[int64]int64)
	for key := range f.versions {
		if f.units[key.unitID] != workID {
			continue
		}
		if key.version > latest[key.unitID] {
			latest[key.unitID] = key.version
		}
	}
	return latest
}

func (f *fakeRepo) Totals(ctx context.Context, workID int64) (Totals, error) {
	latest := f.latest(workID)
	var t Totals
	for _, e := range f.entries {
		if latest[e.UnitID] == e.VersionNumber {
			t.TotalDebit += e.Debit
			t.TotalCredit += e.Credit
		}
	}
	t.Difference = t.TotalDebit - t.TotalCredit
	return t, nil
}

func (f *fakeRepo) UnmappedEntries(ctx context.Context, workID int64) ([]Entry, error) {
	latest := f.latest(workID)
	var out []Entry
	for _, e := range f.entries {
		if latest[e.UnitID] != e.VersionNumber {
			continue
		}
		if _, mapped := f.mappings[e.ID]; !mapped {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetEntry(ctx context.Context, entryID int64) (Entry, error) {
	e, ok := f.entries[entryID]
	if !ok {
		return Entry{}, ErrEntryNotFound
	}
	return e, nil
}

func (f *fakeRepo) UpsertMapping(ctx context.Context, entryID, accountID int64) (Mapping, error) {
	if m, ok := f.mappings[entryID]; ok {
		m.AccountID = accountID
		m.UpdatedAt = time.Now()
		f.mappings[entryID] = m
		return m, nil
	}
	m := Mapping{ID: f.nextMappingID, EntryID: entryID, AccountID: accountID, UpdatedAt: time.Now()}
	f.nextMappingID++
	f.mappings[entryID] = m
	return m, nil
}

type fakeTx struct {
	repo *fakeRepo
}

func (t *fakeTx) MaxVersion(ctx context.Context, unitID int64) (int64, error) {
	var max int64
	for key := range t.repo.versions {
		if key.unitID == unitID && key.version > max {
			max = key.version
		}
	}
	return max, nil
}

func (t *fakeTx) InsertVersion(ctx context.Context, version Version) error {
	if t.repo.conflictsLeft > 0 {
		t.repo.conflictsLeft--
		// Simulate the concurrent winner claiming the number first.
		t.repo.versionCounter++
		t.repo.versions[versionKey{version.UnitID, version.VersionNumber}] = Version{
			UnitID: version.UnitID, VersionNumber: version.VersionNumber, UploadedAt: time.Now(),
		}
		return ErrVersionConflict
	}
	key := versionKey{version.UnitID, version.VersionNumber}
	if _, exists := t.repo.versions[key]; exists {
		return ErrVersionConflict
	}
	version.UploadedAt = time.Now()
	t.repo.versions[key] = version
	return nil
}

func (t *fakeTx) InsertEntries(ctx context.Context, entries []Entry) error {
	for _, e := range entries {
		e.ID = t.repo.nextEntryID
		t.repo.nextEntryID++
		t.repo.entries[e.ID] = e
	}
	return nil
}

type fakeDirectory struct {
	accounts map[int64]coa.Account
}

func (f *fakeDirectory) GetAccount(ctx context.Context, id int64) (coa.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return coa.Account{}, coa.ErrAccountNotFound
	}
	return a, nil
}

func newTestService(repo *fakeRepo) *Service {
	dir := &fakeDirectory{accounts: map[int64]coa.Account{
		10: {ID: 10, Name: "Cash", Type: coa.AccountTypeSubHead, CategoryType: coa.CategoryAsset},
		11: {ID: 11, Name: "Bank", Type: coa.AccountTypeSubHead, CategoryType: coa.CategoryAsset},
		20: {ID: 20, Name: "Current Assets", Type: coa.AccountTypeHead, CategoryType: coa.CategoryAsset},
	}}
	return NewService(repo, dir)
}

func TestUploadAssignsMonotonicVersions(t *testing.T) {
	repo := newFakeRepo()
	repo.units[1] = 100
	svc := newTestService(repo)

	rows := []Row{{AccountName: "Cash In Hand", Debit: 500}}
	for want := int64(1); want <= 3; want++ {
		got, err := svc.Upload(context.Background(), 100, 1, rows)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	infos, err := svc.ListVersions(context.Background(), 100, 1)
	require.NoError(t, err)
	require.Len(t, infos, 3)
	assert.Equal(t, int64(3), infos[0].Version)
	assert.Equal(t, int64(1), infos[2].Version)
}

func TestUploadRecomputesClosingBalance(t *testing.T) {
	repo := newFakeRepo()
	repo.units[1] = 100
	svc := newTestService(repo)

	_, err := svc.Upload(context.Background(), 100, 1, []Row{
		{AccountName: "Sales", Debit: 0, Credit: 1500},
		{AccountName: "Debtors", Debit: 2000, Credit: 500},
	})
	require.NoError(t, err)

	var closings []float64
	for _, e := range repo.entries {
		closings = append(closings, e.ClosingBalance)
	}
	assert.ElementsMatch(t, []float64{-1500, 1500}, closings)
}

func TestUploadRejectsEmptyRowsAndUnknownUnit(t *testing.T) {
	repo := newFakeRepo()
	repo.units[1] = 100
	svc := newTestService(repo)

	_, err := svc.Upload(context.Background(), 100, 1, nil)
	assert.ErrorIs(t, err, ErrEmptyUpload)

	_, err = svc.Upload(context.Background(), 100, 2, []Row{{AccountName: "Cash", Debit: 1}})
	assert.ErrorIs(t, err, ErrUnitNotFound)

	// Unit exists but under another work.
	repo.units[2] = 999
	_, err = svc.Upload(context.Background(), 100, 2, []Row{{AccountName: "Cash", Debit: 1}})
	assert.ErrorIs(t, err, ErrUnitNotFound)

	assert.Empty(t, repo.versions, "no version may be created for rejected uploads")
}

func TestUploadRetriesOnVersionConflict(t *testing.T) {
	repo := newFakeRepo()
	repo.units[1] = 100
	repo.conflictsLeft = 2
	svc := newTestService(repo)

	version, err := svc.Upload(context.Background(), 100, 1, []Row{{AccountName: "Cash", Debit: 10}})
	require.NoError(t, err)
	// Two conflicting attempts burned versions 1 and 2.
	assert.Equal(t, int64(3), version)
}

func TestTotalsUseLatestVersionPerUnit(t *testing.T) {
	repo := newFakeRepo()
	repo.units[1] = 100
	repo.units[2] = 100
	svc := newTestService(repo)

	_, err := svc.Upload(context.Background(), 100, 1, []Row{{AccountName: "Old", Debit: 9999}})
	require.NoError(t, err)
	_, err = svc.Upload(context.Background(), 100, 1, []Row{{AccountName: "Cash", Debit: 1000}})
	require.NoError(t, err)
	_, err = svc.Upload(context.Background(), 100, 2, []Row{{AccountName: "Capital", Credit: 1000}})
	require.NoError(t, err)

	totals, err := svc.Totals(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, totals.TotalDebit)
	assert.Equal(t, 1000.0, totals.TotalCredit)
	assert.Equal(t, 0.0, totals.Difference)
}

func TestMapEntryIdempotentUpsert(t *testing.T) {
	repo := newFakeRepo()
	repo.units[1] = 100
	svc := newTestService(repo)
	_, err := svc.Upload(context.Background(), 100, 1, []Row{{AccountName: "Cash In Hand", Debit: 500}})
	require.NoError(t, err)

	first, err := svc.MapEntry(context.Background(), 1, 10)
	require.NoError(t, err)
	second, err := svc.MapEntry(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, repo.mappings, 1)

	// Retargeting updates the existing row rather than adding one.
	third, err := svc.MapEntry(context.Background(), 1, 11)
	require.NoError(t, err)
	assert.Equal(t, first.ID, third.ID)
	assert.Equal(t, int64(11), third.AccountID)
	assert.Len(t, repo.mappings, 1)
}

func TestMapEntryValidation(t *testing.T) {
	repo := newFakeRepo()
	repo.units[1] = 100
	svc := newTestService(repo)
	_, err := svc.Upload(context.Background(), 100, 1, []Row{{AccountName: "Cash In Hand", Debit: 500}})
	require.NoError(t, err)

	_, err = svc.MapEntry(context.Background(), 1, 20)
	assert.ErrorIs(t, err, ErrNotSubHead)

	_, err = svc.MapEntry(context.Background(), 1, 404)
	assert.ErrorIs(t, err, coa.ErrAccountNotFound)

	_, err = svc.MapEntry(context.Background(), 404, 10)
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestUnmappedEntriesAntiJoin(t *testing.T) {
	repo := newFakeRepo()
	repo.units[1] = 100
	svc := newTestService(repo)
	_, err := svc.Upload(context.Background(), 100, 1, []Row{
		{AccountName: "Cash In Hand", Debit: 500},
		{AccountName: "Petty Cash", Debit: 100},
	})
	require.NoError(t, err)

	unmapped, err := svc.UnmappedEntries(context.Background(), 100)
	require.NoError(t, err)
	assert.Len(t, unmapped, 2)

	_, err = svc.MapEntry(context.Background(), 1, 10)
	require.NoError(t, err)

	unmapped, err = svc.UnmappedEntries(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, unmapped, 1)
	assert.Equal(t, "Petty Cash", unmapped[0].AccountName)
}
