package router

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pbaille/promptvault/internal/domain"
)

type folderInput struct {
	Name string `json:"name" validate:"required"`
}

type tagInput struct {
	Name  string `json:"name" validate:"required"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

func (r *Router) savePrompt(ctx context.Context, req *Request) (Response, error) {
	if len(req.Data) == 0 || string(req.Data) == "null" {
		return Response{}, fmt.Errorf("%w: data is required", ErrValidation)
	}
	var in domain.NewPrompt
	if err := json.Unmarshal(req.Data, &in); err != nil {
		return Response{}, fmt.Errorf("%w: decode data: %v", ErrValidation, err)
	}
	if err := r.check(in); err != nil {
		return Response{}, err
	}

	p, err := r.store.CreatePrompt(ctx, in)
	if err != nil {
		return Response{}, err
	}
	return Response{Prompt: p}, nil
}

func (r *Router) getPrompts(ctx context.Context, _ *Request) (Response, error) {
	prompts, err := r.store.ListPrompts(ctx)
	if err != nil {
		return Response{}, err
	}
	return Response{Prompts: prompts}, nil
}

func (r *Router) getPrompt(ctx context.Context, req *Request) (Response, error) {
	p, err := r.store.GetPrompt(ctx, req.ID)
	if err != nil {
		return Response{}, err
	}
	return Response{Prompt: p}, nil
}

func (r *Router) updatePrompt(ctx context.Context, req *Request) (Response, error) {
	patch := req.Prompt
	if patch == nil {
		patch = domain.Patch{}
	}
	p, err := r.store.UpdatePrompt(ctx, req.ID, patch)
	if err != nil {
		return Response{}, err
	}
	return Response{Prompt: p}, nil
}

func (r *Router) deletePrompt(ctx context.Context, req *Request) (Response, error) {
	return Response{}, r.store.DeletePrompt(ctx, req.ID)
}

func (r *Router) getFolders(ctx context.Context, _ *Request) (Response, error) {
	folders, err := r.store.ListFolders(ctx)
	if err != nil {
		return Response{}, err
	}
	return Response{Folders: folders}, nil
}

func (r *Router) createFolder(ctx context.Context, req *Request) (Response, error) {
	in := folderInput{Name: req.Name}
	if err := r.check(in); err != nil {
		return Response{}, err
	}
	f, err := r.store.CreateFolder(ctx, in.Name)
	if err != nil {
		return Response{}, err
	}
	return Response{Folder: f}, nil
}

func (r *Router) deleteFolder(ctx context.Context, req *Request) (Response, error) {
	return Response{}, r.store.DeleteFolder(ctx, req.ID)
}

func (r *Router) getTags(ctx context.Context, _ *Request) (Response, error) {
	tags, err := r.store.ListTags(ctx)
	if err != nil {
		return Response{}, err
	}
	return Response{Tags: tags}, nil
}

func (r *Router) createTag(ctx context.Context, req *Request) (Response, error) {
	in := tagInput{Name: req.Name, Color: req.Color}
	if err := r.check(in); err != nil {
		return Response{}, err
	}
	t, err := r.store.CreateTag(ctx, in.Name, in.Color)
	if err != nil {
		return Response{}, err
	}
	return Response{Tag: t}, nil
}

func (r *Router) deleteTag(ctx context.Context, req *Request) (Response, error) {
	return Response{}, r.store.DeleteTag(ctx, req.ID)
}

func (r *Router) getPreferences(ctx context.Context, _ *Request) (Response, error) {
	prefs, err := r.store.GetPreferences(ctx)
	if err != nil {
		return Response{}, err
	}
	return Response{Preferences: prefs}, nil
}

func (r *Router) updatePreferences(ctx context.Context, req *Request) (Response, error) {
	patch := req.Preferences
	if patch == nil {
		patch = domain.Patch{}
	}
	prefs, err := r.store.UpdatePreferences(ctx, patch)
	if err != nil {
		return Response{}, err
	}
	return Response{Preferences: prefs}, nil
}
