// Package router dispatches action requests to the store and always answers
// with exactly one Response.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pbaille/promptvault/internal/domain"
	"github.com/pbaille/promptvault/internal/store"
)

// Action names understood by the router
const (
	ActionSavePrompt        = "savePrompt"
	ActionGetPrompts        = "getPrompts"
	ActionGetPrompt         = "getPrompt"
	ActionUpdatePrompt      = "updatePrompt"
	ActionDeletePrompt      = "deletePrompt"
	ActionGetFolders        = "getFolders"
	ActionCreateFolder      = "createFolder"
	ActionDeleteFolder      = "deleteFolder"
	ActionGetTags           = "getTags"
	ActionCreateTag         = "createTag"
	ActionDeleteTag         = "deleteTag"
	ActionGetPreferences    = "getPreferences"
	ActionUpdatePreferences = "updatePreferences"
)

// ErrorKind classifies a failed response
type ErrorKind string

const (
	KindNotFound      ErrorKind = "not_found"
	KindValidation    ErrorKind = "validation"
	KindUnknownAction ErrorKind = "unknown_action"
	KindInternal      ErrorKind = "internal"
)

// ErrValidation marks a payload rejected before reaching the store
var ErrValidation = errors.New("validation failed")

// Request is a tagged action with its payload
type Request struct {
	Action      string          `json:"action"`
	ID          int64           `json:"id,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	Prompt      domain.Patch    `json:"prompt,omitempty"`
	Name        string          `json:"name,omitempty"`
	Color       string          `json:"color,omitempty"`
	Preferences domain.Patch    `json:"preferences,omitempty"`
	RequestID   string          `json:"requestId,omitempty"`
}

// Response is the single answer to a Request. Only the fields that were set
// are encoded.
type Response struct {
	Success     bool                `json:"success"`
	Message     string              `json:"message,omitempty"`
	Error       ErrorKind           `json:"error,omitempty"`
	RequestID   string              `json:"requestId,omitempty"`
	Prompt      *domain.Prompt      `json:"prompt,omitempty"`
	Prompts     []domain.Prompt     `json:"prompts,omitempty"`
	Folder      *domain.Folder      `json:"folder,omitempty"`
	Folders     []domain.Folder     `json:"folders,omitempty"`
	Tag         *domain.Tag         `json:"tag,omitempty"`
	Tags        []domain.Tag        `json:"tags,omitempty"`
	Preferences *domain.Preferences `json:"preferences,omitempty"`
}

// MarshalJSON keeps empty lists as [] so callers can tell "none" from "absent"
func (r Response) MarshalJSON() ([]byte, error) {
	out := map[string]any{"success": r.Success}
	if r.Message != "" {
		out["message"] = r.Message
	}
	if r.Error != "" {
		out["error"] = r.Error
	}
	if r.RequestID != "" {
		out["requestId"] = r.RequestID
	}
	if r.Prompt != nil {
		out["prompt"] = r.Prompt
	}
	if r.Prompts != nil {
		out["prompts"] = r.Prompts
	}
	if r.Folder != nil {
		out["folder"] = r.Folder
	}
	if r.Folders != nil {
		out["folders"] = r.Folders
	}
	if r.Tag != nil {
		out["tag"] = r.Tag
	}
	if r.Tags != nil {
		out["tags"] = r.Tags
	}
	if r.Preferences != nil {
		out["preferences"] = r.Preferences
	}
	return json.Marshal(out)
}

type handlerFunc func(ctx context.Context, req *Request) (Response, error)

// Router maps action names to store operations
type Router struct {
	store    *store.Store
	validate *validator.Validate
	log      *zap.Logger
	handlers map[string]handlerFunc
}

// New creates a Router over s. A nil logger disables logging.
func New(s *store.Store, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	r := &Router{store: s, validate: v, log: log}
	r.handlers = map[string]handlerFunc{
		ActionSavePrompt:        r.savePrompt,
		ActionGetPrompts:        r.getPrompts,
		ActionGetPrompt:         r.getPrompt,
		ActionUpdatePrompt:      r.updatePrompt,
		ActionDeletePrompt:      r.deletePrompt,
		ActionGetFolders:        r.getFolders,
		ActionCreateFolder:      r.createFolder,
		ActionDeleteFolder:      r.deleteFolder,
		ActionGetTags:           r.getTags,
		ActionCreateTag:         r.createTag,
		ActionDeleteTag:         r.deleteTag,
		ActionGetPreferences:    r.getPreferences,
		ActionUpdatePreferences: r.updatePreferences,
	}
	return r
}

// actions lists the registered action names
func (r *Router) actions() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}

// Handle dispatches req and returns its response. It never returns an error;
// failures are encoded in the Response.
func (r *Router) Handle(ctx context.Context, req Request) Response {
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}
	log := r.log.With(zap.String("request_id", req.RequestID), zap.String("action", req.Action))

	h, ok := r.handlers[req.Action]
	if !ok {
		log.Warn("unknown action")
		return Response{
			Error:     KindUnknownAction,
			Message:   "unknown action: " + req.Action,
			RequestID: req.RequestID,
		}
	}

	log.Debug("dispatch")
	resp, err := h(ctx, &req)
	if err != nil {
		resp = r.failure(log, err)
	} else {
		resp.Success = true
	}
	resp.RequestID = req.RequestID
	return resp
}

func (r *Router) failure(log *zap.Logger, err error) Response {
	var nf *store.NotFoundError
	switch {
	case errors.As(err, &nf):
		return Response{Error: KindNotFound, Message: notFoundMessage(nf.Kind)}
	case errors.Is(err, store.ErrNotFound):
		return Response{Error: KindNotFound, Message: "Not found"}
	case errors.Is(err, ErrValidation), errors.Is(err, store.ErrInvalid):
		log.Warn("rejected request", zap.Error(err))
		return Response{Error: KindValidation, Message: err.Error()}
	default:
		log.Error("request failed", zap.Error(err))
		return Response{Error: KindInternal, Message: err.Error()}
	}
}

func notFoundMessage(kind string) string {
	if kind == "" {
		return "Not found"
	}
	return strings.ToUpper(kind[:1]) + kind[1:] + " not found"
}

// check runs struct validation and converts failures to ErrValidation
func (r *Router) check(v any) error {
	err := r.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "required_without":
		return fe.Field() + " is required when " + lowerFirst(fe.Param()) + " is empty"
	case "hexcolor":
		return fe.Field() + " must be a hex color"
	default:
		return fe.Field() + " failed " + fe.Tag()
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
