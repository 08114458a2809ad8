package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Energma/tazz-cli/internal/errors"
)

// Store reads and writes the session store file. Every mutation loads the
// full document, changes it in memory, and writes the full document back;
// the mutex serializes writers within this process only.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a Store rooted at the given project root. The state
// directory is created if it does not exist; the store file itself is
// created lazily on first write.
func NewStore(projectRoot string) (*Store, error) {
	stateDir := StateDir(projectRoot)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, errors.NewStorageError("failed to create state directory", err).
			WithPath(stateDir).WithOp("mkdir")
	}
	return &Store{path: StorePath(projectRoot)}, nil
}

// Path returns the store file path.
func (s *Store) Path() string {
	return s.path
}

// document is the on-disk shape of the session store.
type document struct {
	Sessions    []Record  `json:"sessions"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// GetAll returns every record in the store. A missing store file yields an
// empty list.
func (s *Store) GetAll() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.Sessions, nil
}

// Get returns the record with the given id, or nil if no such record exists.
func (s *Store) Get(id string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range doc.Sessions {
		if doc.Sessions[i].ID == id {
			rec := doc.Sessions[i]
			return &rec, nil
		}
	}
	return nil, nil
}

// Save upserts a record by id and stamps its last-active timestamp. The
// store never holds two records with the same id.
func (s *Store) Save(record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	record.Touch()

	replaced := false
	for i := range doc.Sessions {
		if doc.Sessions[i].ID == record.ID {
			doc.Sessions[i] = *record
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Sessions = append(doc.Sessions, *record)
	}

	return s.flush(doc)
}

// Remove deletes the record with the given id. Removing an id that is not
// present is a no-op and leaves the store untouched.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	kept := doc.Sessions[:0]
	removed := false
	for _, rec := range doc.Sessions {
		if rec.ID == id {
			removed = true
			continue
		}
		kept = append(kept, rec)
	}
	if !removed {
		return nil
	}

	doc.Sessions = kept
	return s.flush(doc)
}

// UpdateStatus sets the status of the record with the given id and stamps
// its last-active timestamp. Returns a NotFoundError, with the store left
// unmodified, if the id is not present.
func (s *Store) UpdateStatus(id string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	for i := range doc.Sessions {
		if doc.Sessions[i].ID == id {
			doc.Sessions[i].Status = status
			doc.Sessions[i].Touch()
			return s.flush(doc)
		}
	}
	return errors.NewNotFoundError("session", id)
}

// load reads and parses the store file. A missing file is an empty store.
func (s *Store) load() (*document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &document{Sessions: []Record{}}, nil
		}
		return nil, errors.NewStorageError("failed to read session store", err).
			WithPath(s.path).WithOp("read")
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.NewStorageError("failed to parse session store",
			fmt.Errorf("%w: %v", errors.ErrStoreCorrupted, err)).
			WithPath(s.path).WithOp("read")
	}
	if doc.Sessions == nil {
		doc.Sessions = []Record{}
	}
	return &doc, nil
}

// flush stamps the document and writes it back atomically.
func (s *Store) flush(doc *document) error {
	doc.LastUpdated = time.Now().UTC()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.NewStorageError("failed to encode session store", err).
			WithPath(s.path).WithOp("write")
	}

	if err := atomicWriteFile(s.path, data, 0644); err != nil {
		return errors.NewStorageError("failed to write session store", err).
			WithPath(s.path).WithOp("write")
	}
	return nil
}

// atomicWriteFile writes data to a file atomically by writing to a
// temporary file in the same directory, then renaming. The target file is
// never observed in a partially-written state.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}
