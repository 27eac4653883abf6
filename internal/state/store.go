package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"five-percent-bot-go/internal/models"
	"github.com/spf13/afero"
)

const (
	recordFile = "record.json"
	latestFile = "latest"
	tempSuffix = ".tmp"
	dirPerm    = 0o755
	filePerm   = 0o644
)

var (
	// ErrAlreadyPersisted is returned when a day's record already exists.
	ErrAlreadyPersisted = errors.New("daily record already persisted")
	// ErrCorruptPointer is returned when the latest pointer names a day without a record.
	ErrCorruptPointer = errors.New("latest pointer references a missing record")
)

// StoreInterface is the durable per-day state used by the engine.
type StoreInterface interface {
	HasRun(day string) (bool, error)
	LoadLatest() (string, models.DailyRecord, bool, error)
	Persist(day string, holdings models.Holdings) error
}

// Store keeps one directory per trading day holding a single JSON record,
// plus a "latest" file naming the most recently completed day.
//
//	<dir>/2024-05-01/record.json
//	<dir>/latest
//
// Only one writer may use a directory at a time.
type Store struct {
	fs  afero.Fs
	dir string
	now func() time.Time
}

var _ StoreInterface = (*Store)(nil)

// NewStore creates a store rooted at dir on fs.
func NewStore(fs afero.Fs, dir string) (*Store, error) {
	if err := fs.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &Store{fs: fs, dir: dir, now: time.Now}, nil
}

func validDay(day string) error {
	if _, err := time.Parse(models.DayLayout, day); err != nil {
		return fmt.Errorf("invalid trading day %q: %w", day, err)
	}
	return nil
}

func (s *Store) recordPath(day string) string {
	return filepath.Join(s.dir, day, recordFile)
}

// HasRun reports whether day has a committed record. A record newer than the
// latest pointer is left over from an interrupted Persist and does not count.
func (s *Store) HasRun(day string) (bool, error) {
	if err := validDay(day); err != nil {
		return false, err
	}
	ok, err := afero.Exists(s.fs, s.recordPath(day))
	if err != nil {
		return false, fmt.Errorf("failed to check record for %s: %w", day, err)
	}
	if !ok {
		return false, nil
	}
	latest, found, err := s.latestPointer()
	if err != nil {
		return false, err
	}
	return found && day <= latest, nil
}

// Load reads the record for day.
func (s *Store) Load(day string) (models.DailyRecord, error) {
	var record models.DailyRecord
	if err := validDay(day); err != nil {
		return record, err
	}
	data, err := afero.ReadFile(s.fs, s.recordPath(day))
	if err != nil {
		return record, fmt.Errorf("failed to read record for %s: %w", day, err)
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return record, fmt.Errorf("failed to parse record for %s: %w", day, err)
	}
	if record.Holdings == nil {
		record.Holdings = models.Holdings{}
	}
	return record, nil
}

func (s *Store) latestPointer() (string, bool, error) {
	data, err := afero.ReadFile(s.fs, filepath.Join(s.dir, latestFile))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read latest pointer: %w", err)
	}
	day := strings.TrimSpace(string(data))
	if err := validDay(day); err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrCorruptPointer, err)
	}
	return day, true, nil
}

// LoadLatest reads the latest pointer and the record it names.
// found is false when no cycle has completed yet.
func (s *Store) LoadLatest() (string, models.DailyRecord, bool, error) {
	day, found, err := s.latestPointer()
	if err != nil || !found {
		return "", models.DailyRecord{}, false, err
	}

	record, err := s.Load(day)
	if errors.Is(err, os.ErrNotExist) {
		return "", models.DailyRecord{}, false, fmt.Errorf("%w: %s", ErrCorruptPointer, day)
	}
	if err != nil {
		return "", models.DailyRecord{}, false, err
	}
	return day, record, true, nil
}

// Persist writes the record for day and then advances the latest pointer.
// A day is committed at most once. If the pointer cannot be advanced the
// record is removed again, so a failed Persist leaves the day uncommitted.
func (s *Store) Persist(day string, holdings models.Holdings) error {
	exists, err := s.HasRun(day)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrAlreadyPersisted, day)
	}

	record := models.DailyRecord{
		Date:      day,
		Holdings:  holdings.Clone(),
		CreatedAt: s.now().UTC().Format(time.RFC3339),
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	if err := s.fs.MkdirAll(filepath.Join(s.dir, day), dirPerm); err != nil {
		return fmt.Errorf("failed to create day directory: %w", err)
	}
	if err := s.writeAtomic(s.recordPath(day), data); err != nil {
		return fmt.Errorf("failed to write record for %s: %w", day, err)
	}
	// The pointer moves only after the record is complete on disk.
	if err := s.writeAtomic(filepath.Join(s.dir, latestFile), []byte(day+"\n")); err != nil {
		if rmErr := s.fs.RemoveAll(filepath.Join(s.dir, day)); rmErr != nil {
			return fmt.Errorf("failed to advance latest pointer to %s: %w (record not removed: %v)", day, err, rmErr)
		}
		return fmt.Errorf("failed to advance latest pointer to %s: %w", day, err)
	}
	return nil
}

func (s *Store) writeAtomic(path string, data []byte) error {
	tempPath := path + tempSuffix
	if err := afero.WriteFile(s.fs, tempPath, data, filePerm); err != nil {
		return err
	}
	if err := s.fs.Rename(tempPath, path); err != nil {
		_ = s.fs.Remove(tempPath)
		return err
	}
	return nil
}

// Days lists the committed trading days, oldest first.
func (s *Store) Days() ([]string, error) {
	latest, found, err := s.latestPointer()
	if err != nil || !found {
		return nil, err
	}
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list state directory: %w", err)
	}
	var days []string
	for _, entry := range entries {
		day := entry.Name()
		if !entry.IsDir() || validDay(day) != nil || day > latest {
			continue
		}
		if ok, _ := afero.Exists(s.fs, s.recordPath(day)); ok {
			days = append(days, day)
		}
	}
	sort.Strings(days)
	return days, nil
}
