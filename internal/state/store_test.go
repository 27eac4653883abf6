package state

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"five-percent-bot-go/internal/models"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// renameFailFs fails renames onto files named target while err is set.
type renameFailFs struct {
	afero.Fs
	target string
	err    error
}

func (f *renameFailFs) Rename(oldname, newname string) error {
	if f.err != nil && filepath.Base(newname) == f.target {
		return f.err
	}
	return f.Fs.Rename(oldname, newname)
}

func newTestStore(t *testing.T) (*Store, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	store, err := NewStore(fs, "/state")
	require.NoError(t, err)
	return store, fs
}

func TestStore_FirstLaunch(t *testing.T) {
	store, _ := newTestStore(t)

	day, record, found, err := store.LoadLatest()

	assert.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, day)
	assert.Nil(t, record.Holdings)

	ran, err := store.HasRun("2024-05-01")
	assert.NoError(t, err)
	assert.False(t, ran)
}

func TestStore_PersistAndLoadLatest(t *testing.T) {
	store, fs := newTestStore(t)
	holdings := models.Holdings{"AAPL": 180.5, "MSFT": 410.25}

	require.NoError(t, store.Persist("2024-05-01", holdings))

	ran, err := store.HasRun("2024-05-01")
	require.NoError(t, err)
	assert.True(t, ran)

	day, record, found, err := store.LoadLatest()
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "2024-05-01", day)
	assert.Equal(t, holdings, record.Holdings)
	assert.Equal(t, "2024-05-01", record.Date)

	pointer, err := afero.ReadFile(fs, "/state/latest")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01\n", string(pointer))

	leftover, err := afero.Exists(fs, "/state/2024-05-01/record.json.tmp")
	require.NoError(t, err)
	assert.False(t, leftover)
}

func TestStore_PersistCopiesHoldings(t *testing.T) {
	store, _ := newTestStore(t)
	holdings := models.Holdings{"AAPL": 1}
	require.NoError(t, store.Persist("2024-05-01", holdings))

	holdings["TSLA"] = 2

	record, err := store.Load("2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, models.Holdings{"AAPL": 1}, record.Holdings)
}

func TestStore_PersistIsWriteOnce(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Persist("2024-05-01", models.Holdings{"AAPL": 1}))

	err := store.Persist("2024-05-01", models.Holdings{"MSFT": 2})

	assert.ErrorIs(t, err, ErrAlreadyPersisted)
	record, err := store.Load("2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, models.Holdings{"AAPL": 1}, record.Holdings)
}

func TestStore_LatestAdvances(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Persist("2024-05-01", models.Holdings{"AAPL": 1}))
	require.NoError(t, store.Persist("2024-05-02", models.Holdings{}))

	day, record, found, err := store.LoadLatest()
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "2024-05-02", day)
	assert.Empty(t, record.Holdings)
	assert.NotNil(t, record.Holdings)

	days, err := store.Days()
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-05-01", "2024-05-02"}, days)
}

func TestStore_PointerToMissingRecord(t *testing.T) {
	store, fs := newTestStore(t)
	require.NoError(t, afero.WriteFile(fs, "/state/latest", []byte("2024-05-03\n"), 0o644))

	_, _, found, err := store.LoadLatest()

	assert.False(t, found)
	assert.ErrorIs(t, err, ErrCorruptPointer)
}

func TestStore_GarbagePointer(t *testing.T) {
	store, fs := newTestStore(t)
	require.NoError(t, afero.WriteFile(fs, "/state/latest", []byte("yesterday"), 0o644))

	_, _, _, err := store.LoadLatest()

	assert.ErrorIs(t, err, ErrCorruptPointer)
}

func TestStore_InvalidDay(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.HasRun("../etc")
	assert.Error(t, err)

	err = store.Persist("2024/05/01", models.Holdings{})
	assert.Error(t, err)
}

func TestStore_StorageFailureIsReported(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := NewStore(fs, "/state")
	require.NoError(t, err)
	require.NoError(t, store.Persist("2024-05-01", models.Holdings{"AAPL": 1}))

	// Read-only view: reads succeed, writes fail.
	readOnly := &Store{fs: afero.NewReadOnlyFs(fs), dir: "/state", now: store.now}

	_, _, found, err := readOnly.LoadLatest()
	require.NoError(t, err)
	assert.True(t, found)

	err = readOnly.Persist("2024-05-02", models.Holdings{})
	assert.Error(t, err)

	// Nothing was committed for the failed day and the pointer did not move.
	ran, err := store.HasRun("2024-05-02")
	require.NoError(t, err)
	assert.False(t, ran)
	day, _, _, err := store.LoadLatest()
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", day)
}

func TestStore_DaysIgnoresStrayEntries(t *testing.T) {
	store, fs := newTestStore(t)
	require.NoError(t, store.Persist("2024-05-01", models.Holdings{}))
	require.NoError(t, fs.MkdirAll("/state/notes", 0o755))
	require.NoError(t, fs.MkdirAll("/state/2024-05-09", 0o755)) // no record inside

	days, err := store.Days()
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-05-01"}, days)

	_, err = store.Load("2024-05-09")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestStore_PointerFailureLeavesDayUncommitted(t *testing.T) {
	fs := &renameFailFs{Fs: afero.NewMemMapFs(), target: latestFile}
	store, err := NewStore(fs, "/state")
	require.NoError(t, err)
	require.NoError(t, store.Persist("2024-05-01", models.Holdings{"OLD": 1}))

	fs.err = errors.New("disk full")
	err = store.Persist("2024-05-02", models.Holdings{"OLD": 1, "NEW": 2})
	assert.ErrorContains(t, err, "disk full")

	ran, err := store.HasRun("2024-05-02")
	require.NoError(t, err)
	assert.False(t, ran)
	for _, path := range []string{"/state/2024-05-02/record.json", "/state/latest.tmp"} {
		exists, err := afero.Exists(fs, path)
		require.NoError(t, err)
		assert.False(t, exists, path)
	}
	day, record, _, err := store.LoadLatest()
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", day)
	assert.Equal(t, models.Holdings{"OLD": 1}, record.Holdings)

	// The retry commits the day.
	fs.err = nil
	require.NoError(t, store.Persist("2024-05-02", models.Holdings{"OLD": 1, "NEW": 2}))
	day, record, _, err = store.LoadLatest()
	require.NoError(t, err)
	assert.Equal(t, "2024-05-02", day)
	assert.Equal(t, models.Holdings{"OLD": 1, "NEW": 2}, record.Holdings)
}

func TestStore_RecordAheadOfPointerIsUncommitted(t *testing.T) {
	store, fs := newTestStore(t)
	require.NoError(t, store.Persist("2024-05-01", models.Holdings{"OLD": 1}))
	// A crash between the record and the pointer write leaves this behind.
	require.NoError(t, fs.MkdirAll("/state/2024-05-02", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/state/2024-05-02/record.json", []byte(`{"date":"2024-05-02","holdings":{"NEW":2}}`), 0o644))

	ran, err := store.HasRun("2024-05-02")
	require.NoError(t, err)
	assert.False(t, ran)
	days, err := store.Days()
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-05-01"}, days)

	require.NoError(t, store.Persist("2024-05-02", models.Holdings{"OLD": 1, "NEW": 3}))
	day, record, _, err := store.LoadLatest()
	require.NoError(t, err)
	assert.Equal(t, "2024-05-02", day)
	assert.Equal(t, models.Holdings{"OLD": 1, "NEW": 3}, record.Holdings)
}
