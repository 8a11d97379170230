package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	on "github.com/panyam/otpnotes"
)

// FSNoteStore stores notes as JSON files under notes/<owner id>/<note id>.json.
// Since the owner is part of the path, a note can only ever be found through
// its owner.
type FSNoteStore struct {
	StoragePath string
	mu          sync.Mutex
}

func NewFSNoteStore(storagePath string) *FSNoteStore {
	return &FSNoteStore{StoragePath: storagePath}
}

func (s *FSNoteStore) ownerDir(ownerID string) (string, bool) {
	name, ok := safeName(ownerID)
	return filepath.Join(s.StoragePath, "notes", name), ok
}

func (s *FSNoteStore) notePath(id, ownerID string) (string, bool) {
	dir, ok := s.ownerDir(ownerID)
	if !ok {
		return "", false
	}
	name, ok := safeName(id)
	return filepath.Join(dir, name+".json"), ok
}

func (s *FSNoteStore) CreateNote(ctx context.Context, note *on.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	path, ok := s.notePath(note.ID, note.OwnerID)
	if !ok {
		return errors.New("invalid note or owner id")
	}
	return writeJSONFile(path, note)
}

// ListNotes returns the owner's notes oldest first
func (s *FSNoteStore) ListNotes(ctx context.Context, ownerID string) ([]*on.Note, error) {
	dir, ok := s.ownerDir(ownerID)
	if !ok {
		return []*on.Note{}, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*on.Note{}, nil
		}
		return nil, err
	}

	notes := make([]*on.Note, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		var note on.Note
		if err := readJSONFile(filepath.Join(dir, entry.Name()), &note); err != nil {
			continue
		}
		notes = append(notes, &note)
	}
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].CreatedAt.Before(notes[j].CreatedAt)
	})
	return notes, nil
}

func (s *FSNoteStore) GetNote(ctx context.Context, id, ownerID string) (*on.Note, error) {
	path, ok := s.notePath(id, ownerID)
	if !ok {
		return nil, on.ErrNoteNotFound
	}
	var note on.Note
	if err := readJSONFile(path, &note); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, on.ErrNoteNotFound
		}
		return nil, err
	}
	return &note, nil
}

func (s *FSNoteStore) SaveNote(ctx context.Context, note *on.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	path, ok := s.notePath(note.ID, note.OwnerID)
	if !ok {
		return on.ErrNoteNotFound
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return on.ErrNoteNotFound
		}
		return err
	}
	return writeJSONFile(path, note)
}

func (s *FSNoteStore) DeleteNote(ctx context.Context, id, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	path, ok := s.notePath(id, ownerID)
	if !ok {
		return on.ErrNoteNotFound
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return on.ErrNoteNotFound
		}
		return err
	}
	return nil
}
