package grpc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	on "github.com/panyam/otpnotes"
)

// NotesServiceName is the gRPC service exposing the owner scoped note
// operations. Messages are google.protobuf.Struct documents with the same
// field names as the JSON API.
const NotesServiceName = "otpnotes.v1.Notes"

const (
	ListNotesMethod  = "/" + NotesServiceName + "/ListNotes"
	CreateNoteMethod = "/" + NotesServiceName + "/CreateNote"
	UpdateNoteMethod = "/" + NotesServiceName + "/UpdateNote"
	DeleteNoteMethod = "/" + NotesServiceName + "/DeleteNote"
)

// NotesService is implemented by NotesServer. Every method needs an
// authenticated account in the context.
type NotesService interface {
	ListNotes(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	CreateNote(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	UpdateNote(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	DeleteNote(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

// NotesServer serves NotesService over a NoteService
type NotesServer struct {
	Notes *on.NoteService
}

// RegisterNotesServer adds the notes service to s
func RegisterNotesServer(s grpc.ServiceRegistrar, srv NotesService) {
	s.RegisterService(&notesServiceDesc, srv)
}

var notesServiceDesc = grpc.ServiceDesc{
	ServiceName: NotesServiceName,
	HandlerType: (*NotesService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListNotes", Handler: unaryHandler(ListNotesMethod, NotesService.ListNotes)},
		{MethodName: "CreateNote", Handler: unaryHandler(CreateNoteMethod, NotesService.CreateNote)},
		{MethodName: "UpdateNote", Handler: unaryHandler(UpdateNoteMethod, NotesService.UpdateNote)},
		{MethodName: "DeleteNote", Handler: unaryHandler(DeleteNoteMethod, NotesService.DeleteNote)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "otpnotes/v1/notes",
}

func unaryHandler(fullMethod string, call func(NotesService, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(NotesService), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(NotesService), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func (s *NotesServer) owner(ctx context.Context) (string, error) {
	id := AccountIDFromContext(ctx)
	if id == "" {
		return "", status.Error(codes.Unauthenticated, "authentication required")
	}
	return id, nil
}

func (s *NotesServer) ListNotes(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return nil, err
	}
	notes, err := s.Notes.List(ctx, owner)
	if err != nil {
		return nil, statusFromError(ctx, err)
	}
	list := make([]any, 0, len(notes))
	for _, n := range notes {
		list = append(list, noteFields(n))
	}
	return structpb.NewStruct(map[string]any{"notes": list})
}

func (s *NotesServer) CreateNote(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return nil, err
	}
	f := in.GetFields()
	note, err := s.Notes.Create(ctx, f["title"].GetStringValue(), f["content"].GetStringValue(), owner)
	if err != nil {
		return nil, statusFromError(ctx, err)
	}
	return structpb.NewStruct(noteFields(note))
}

// UpdateNote applies the title and content fields present in the request
func (s *NotesServer) UpdateNote(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return nil, err
	}
	f := in.GetFields()
	var patch on.NotePatch
	if v, ok := f["title"]; ok {
		title := v.GetStringValue()
		patch.Title = &title
	}
	if v, ok := f["content"]; ok {
		content := v.GetStringValue()
		patch.Content = &content
	}
	note, err := s.Notes.Update(ctx, f["id"].GetStringValue(), owner, patch)
	if err != nil {
		return nil, statusFromError(ctx, err)
	}
	return structpb.NewStruct(noteFields(note))
}

func (s *NotesServer) DeleteNote(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Notes.Delete(ctx, in.GetFields()["id"].GetStringValue(), owner); err != nil {
		return nil, statusFromError(ctx, err)
	}
	return structpb.NewStruct(map[string]any{"message": "Note deleted successfully"})
}

// statusFromError maps note layer errors onto gRPC codes. Server faults only
// reach the log.
func statusFromError(ctx context.Context, err error) error {
	var authErr *on.AuthError
	switch {
	case errors.Is(err, on.ErrValidation) && errors.As(err, &authErr):
		return status.Error(codes.InvalidArgument, authErr.Message)
	case errors.Is(err, on.ErrNotFound):
		return status.Error(codes.NotFound, "Note not found")
	}
	slog.ErrorContext(ctx, "grpc note call failed", "error", err)
	return status.Error(codes.Internal, "Server error")
}

func noteFields(n *on.Note) map[string]any {
	return map[string]any{
		"id":         n.ID,
		"title":      n.Title,
		"content":    n.Content,
		"owner_id":   n.OwnerID,
		"created_at": n.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at": n.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func noteFromStruct(s *structpb.Struct) *on.Note {
	f := s.GetFields()
	n := &on.Note{
		ID:      f["id"].GetStringValue(),
		Title:   f["title"].GetStringValue(),
		Content: f["content"].GetStringValue(),
		OwnerID: f["owner_id"].GetStringValue(),
	}
	n.CreatedAt, _ = time.Parse(time.RFC3339Nano, f["created_at"].GetStringValue())
	n.UpdatedAt, _ = time.Parse(time.RFC3339Nano, f["updated_at"].GetStringValue())
	return n
}

// NotesClient calls NotesService. Attach a credential to ctx with
// CredentialToOutgoingContext.
type NotesClient struct {
	cc grpc.ClientConnInterface
}

func NewNotesClient(cc grpc.ClientConnInterface) *NotesClient {
	return &NotesClient{cc: cc}
}

func (c *NotesClient) call(ctx context.Context, method string, req map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *NotesClient) ListNotes(ctx context.Context) ([]*on.Note, error) {
	out, err := c.call(ctx, ListNotesMethod, map[string]any{})
	if err != nil {
		return nil, err
	}
	var notes []*on.Note
	for _, v := range out.GetFields()["notes"].GetListValue().GetValues() {
		notes = append(notes, noteFromStruct(v.GetStructValue()))
	}
	return notes, nil
}

func (c *NotesClient) CreateNote(ctx context.Context, title, content string) (*on.Note, error) {
	out, err := c.call(ctx, CreateNoteMethod, map[string]any{"title": title, "content": content})
	if err != nil {
		return nil, err
	}
	return noteFromStruct(out), nil
}

func (c *NotesClient) UpdateNote(ctx context.Context, id string, patch on.NotePatch) (*on.Note, error) {
	req := map[string]any{"id": id}
	if patch.Title != nil {
		req["title"] = *patch.Title
	}
	if patch.Content != nil {
		req["content"] = *patch.Content
	}
	out, err := c.call(ctx, UpdateNoteMethod, req)
	if err != nil {
		return nil, err
	}
	return noteFromStruct(out), nil
}

func (c *NotesClient) DeleteNote(ctx context.Context, id string) error {
	_, err := c.call(ctx, DeleteNoteMethod, map[string]any{"id": id})
	return err
}
