package otpnotes

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	errNoteNotFound    = NewAuthError(ErrNotFound, ErrCodeNoteNotFound, "Note not found")
	errTitleAndContent = NewAuthError(ErrValidation, ErrCodeValidation, "Title and content required")
)

// NoteService is the owner scoped access layer over a NoteStore
type NoteService struct {
	Store NoteStore
	Now   func() time.Time
}

func (s *NoteService) EnsureDefaults() *NoteService {
	if s.Now == nil {
		s.Now = time.Now
	}
	return s
}

// Create stores a new note for ownerID. Title and content must be non blank.
func (s *NoteService) Create(ctx context.Context, title, content, ownerID string) (*Note, error) {
	s.EnsureDefaults()
	if strings.TrimSpace(title) == "" || strings.TrimSpace(content) == "" {
		return nil, errTitleAndContent
	}
	now := s.Now()
	note := &Note{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.CreateNote(ctx, note); err != nil {
		return nil, infraError("creating note", err)
	}
	return note, nil
}

// List returns every note owned by ownerID, in store order
func (s *NoteService) List(ctx context.Context, ownerID string) ([]*Note, error) {
	notes, err := s.Store.ListNotes(ctx, ownerID)
	if err != nil {
		return nil, infraError("listing notes", err)
	}
	if notes == nil {
		notes = []*Note{}
	}
	return notes, nil
}

// Update applies patch to a note owned by ownerID
func (s *NoteService) Update(ctx context.Context, id, ownerID string, patch NotePatch) (*Note, error) {
	s.EnsureDefaults()
	note, err := s.Store.GetNote(ctx, id, ownerID)
	if err != nil {
		return nil, noteError("loading note", err)
	}
	patch.Apply(note)
	note.UpdatedAt = s.Now()
	if err := s.Store.SaveNote(ctx, note); err != nil {
		return nil, noteError("saving note", err)
	}
	return note, nil
}

// Delete removes a note owned by ownerID. Notes of other owners are reported
// as not found.
func (s *NoteService) Delete(ctx context.Context, id, ownerID string) error {
	if err := s.Store.DeleteNote(ctx, id, ownerID); err != nil {
		return noteError("deleting note", err)
	}
	return nil
}

func noteError(op string, err error) error {
	if errors.Is(err, ErrNoteNotFound) {
		return errNoteNotFound
	}
	return infraError(op, err)
}
