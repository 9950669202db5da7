package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/catdex/catdex/internal/breed"
	"github.com/catdex/catdex/internal/config"
	"github.com/catdex/catdex/internal/errors"
	"github.com/catdex/catdex/internal/logging"
	"github.com/catdex/catdex/internal/outcome"
	"github.com/catdex/catdex/internal/repository"
)

const defaultStatusLimit = 10

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	repo   *repository.Repository
	cfg    *config.Config
	logger *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(repo *repository.Repository, cfg *config.Config, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handlers{repo: repo, cfg: cfg, logger: logger}
}

// ListRequest represents the arguments for breeds_list.
type ListRequest struct {
	Refresh bool `json:"refresh,omitempty"`
}

// SearchRequest represents the arguments for breeds_search.
type SearchRequest struct {
	Query string `json:"query,omitempty"`
}

// IDRequest represents the arguments for tools addressing one breed.
type IDRequest struct {
	ID string `json:"id"`
}

// StatusRequest represents the arguments for breeds_status.
type StatusRequest struct {
	Limit int `json:"limit,omitempty"`
}

// BreedsOutput is the result of list-style tools.
type BreedsOutput struct {
	Breeds []breed.Breed `json:"breeds"`
	Count  int           `json:"count"`
}

func breedsOutput(b []breed.Breed) BreedsOutput {
	if b == nil {
		b = []breed.Breed{}
	}
	return BreedsOutput{Breeds: b, Count: len(b)}
}

// HandleList handles the breeds_list tool call. It drains the offline-first
// stream and answers with the last catalogue emitted.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeArgs[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	var (
		latest  []breed.Breed
		got     bool
		failure *outcome.Failure
	)
	for o := range h.repo.GetAllBreeds(ctx, input.Refresh) {
		o.Match(
			func(b []breed.Breed) { latest, got = b, true },
			func(f *outcome.Failure) { failure = f },
		)
	}

	if failure != nil {
		return errorResult(failureError(failure)), nil
	}
	if !got {
		return errorResult(errors.NewCanceled(ctx.Err())), nil
	}
	return successResult(breedsOutput(latest))
}

// HandleSearch handles the breeds_search tool call.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeArgs[SearchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.repo.Search(ctx, input.Query)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(breedsOutput(result))
}

// HandleGet handles the breeds_get tool call.
func (h *Handlers) HandleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errRes := h.decodeID(req)
	if errRes != nil {
		return errRes, nil
	}

	b, err := h.repo.FindBreed(ctx, id)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(b)
}

// HandleToggleFavorite handles the breeds_toggle_favorite tool call.
func (h *Handlers) HandleToggleFavorite(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errRes := h.decodeID(req)
	if errRes != nil {
		return errRes, nil
	}

	var failure *outcome.Failure
	h.repo.ToggleFavorite(ctx, id).Match(
		func(struct{}) {},
		func(f *outcome.Failure) { failure = f },
	)
	if failure != nil {
		return errorResult(failureError(failure)), nil
	}

	b, err := h.repo.FindBreed(ctx, id)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(b)
}

// HandleFavorites handles the breeds_favorites tool call.
func (h *Handlers) HandleFavorites(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := h.repo.Favorites(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(breedsOutput(result))
}

// HandleStatus handles the breeds_status tool call.
func (h *Handlers) HandleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeArgs[StatusRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Limit < 0 {
		return errorResult(errors.NewInvalidRequest("limit must not be negative")), nil
	}
	if input.Limit == 0 {
		input.Limit = defaultStatusLimit
	}

	st, err := h.repo.Status(ctx, input.Limit)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(st)
}

func (h *Handlers) decodeID(req mcp.CallToolRequest) (string, *mcp.CallToolResult) {
	input, err := decodeArgs[IDRequest](req)
	if err != nil {
		return "", errorResult(errors.NewInvalidRequest(err.Error()))
	}
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return "", errorResult(errors.NewInvalidRequest("id is required"))
	}
	return id, nil
}

// failureError turns an error outcome into an AppError carrying the
// outcome's message and the cause's code.
func failureError(f *outcome.Failure) error {
	return errors.WithMessage(f.Cause, f.Message)
}

// decodeArgs converts the loosely typed tool arguments into T by a JSON
// round trip. Missing arguments decode to T's zero value.
func decodeArgs[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	args := req.GetArguments()
	if len(args) == 0 {
		return result, nil
	}
	b, err := json.Marshal(args)
	if err != nil {
		return result, fmt.Errorf("encode arguments: %w", err)
	}
	if err := json.Unmarshal(b, &result); err != nil {
		return result, fmt.Errorf("invalid arguments: %w", err)
	}
	return result, nil
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Details are omitted for INTERNAL errors.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		errorObj := map[string]any{
			"code":    appErr.Code,
			"message": appErr.Message,
			"status":  appErr.Status,
		}
		if appErr.Code != errors.ErrInternal && appErr.Details != nil {
			errorObj["details"] = appErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
