package otpnotes

import (
	"net/http"

	"github.com/gorilla/mux"
)

type createNoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (a *App) onListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := a.Notes.List(r.Context(), AccountIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (a *App) onCreateNote(w http.ResponseWriter, r *http.Request) {
	var req createNoteRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	note, err := a.Notes.Create(r.Context(), req.Title, req.Content, AccountIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func (a *App) onUpdateNote(w http.ResponseWriter, r *http.Request) {
	var patch NotePatch
	if err := a.decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	note, err := a.Notes.Update(r.Context(), mux.Vars(r)["id"], AccountIDFromContext(r.Context()), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (a *App) onDeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := a.Notes.Delete(r.Context(), mux.Vars(r)["id"], AccountIDFromContext(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Note deleted successfully"})
}
