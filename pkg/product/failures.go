package product

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"Label-Scanner-Backend/domain"
)

// FailureList is the pending-failures file: a JSON array of products whose
// ingestion failed, keyed by barcode.
type FailureList struct {
	path string
	mu   sync.Mutex
}

func NewFailureList(path string) *FailureList {
	return &FailureList{path: path}
}

func (l *FailureList) Path() string {
	return l.path
}

// All returns every pending entry. A missing file is an empty list.
func (l *FailureList) All() ([]domain.PendingFailure, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read()
}

// Append records f, replacing any entry with the same barcode.
func (l *FailureList) Append(f domain.PendingFailure) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	items, err := l.read()
	if err != nil {
		return err
	}
	items = without(items, f.Barcode)
	return l.write(append(items, f))
}

// Remove drops the entry for barcode and reports whether one existed.
func (l *FailureList) Remove(barcode string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	items, err := l.read()
	if err != nil {
		return false, err
	}
	kept := without(items, barcode)
	if len(kept) == len(items) {
		return false, nil
	}
	return true, l.write(kept)
}

func (l *FailureList) read() ([]domain.PendingFailure, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.PendingFailure{}, nil
	}
	if err != nil {
		return nil, err
	}

	items := []domain.PendingFailure{}
	if len(data) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// write replaces the file through a rename so readers never see a partial list.
func (l *FailureList) write(items []domain.PendingFailure) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".failed-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), l.path)
}

func without(items []domain.PendingFailure, barcode string) []domain.PendingFailure {
	kept := make([]domain.PendingFailure, 0, len(items))
	for _, it := range items {
		if it.Barcode != barcode {
			kept = append(kept, it)
		}
	}
	return kept
}
