package mediasource

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/micro-nova/amplipi-hub/internal/api"
	"github.com/micro-nova/amplipi-hub/internal/apperrors"
	"github.com/micro-nova/amplipi-hub/internal/audit"
)

// Recorder is the slice of the audit service the routes need.
type Recorder interface {
	RecordEvent(input audit.WriteEventInput) *audit.Event
}

// RegisterRoutes wires media library routes to the router.
func RegisterRoutes(router chi.Router, repo *Repository, recorder Recorder) {
	router.Method(http.MethodGet, "/v1/media/library", api.Handler(listItems(repo)))
	router.Method(http.MethodPost, "/v1/media/library", api.Handler(addItem(repo, recorder)))
	router.Method(http.MethodGet, "/v1/media/library/{item_id}", api.Handler(getItem(repo)))
	router.Method(http.MethodDelete, "/v1/media/library/{item_id}", api.Handler(deleteItem(repo, recorder)))
}

type itemResponse struct {
	Object string `json:"object"`
	Item
	Reference string `json:"reference"`
}

func renderItem(item *Item) itemResponse {
	return itemResponse{
		Object:    "media_item",
		Item:      *item,
		Reference: Reference(item.ItemID),
	}
}

// listItems returns the whole library.
// GET /v1/media/library
func listItems(repo *Repository) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		items, err := repo.List()
		if err != nil {
			return apperrors.NewInternalError("Failed to list media items")
		}
		rendered := make([]itemResponse, 0, len(items))
		for i := range items {
			rendered = append(rendered, renderItem(&items[i]))
		}
		return api.WriteList(w, r.URL.Path, rendered, false)
	}
}

// addItem registers a new library item.
// POST /v1/media/library
func addItem(repo *Repository, recorder Recorder) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		var body struct {
			Name     string `json:"name"`
			URL      string `json:"url"`
			MimeType string `json:"mime_type"`
		}
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return apperrors.NewValidationError("invalid request body", nil)
		}
		if body.Name == "" {
			return apperrors.NewValidationError("name is required", nil)
		}
		parsed, err := url.Parse(body.URL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return apperrors.NewValidationError("url must be an absolute http(s) URL", nil)
		}

		item, err := repo.Insert(body.Name, body.URL, body.MimeType)
		if err != nil {
			return apperrors.NewInternalError("Failed to add media item")
		}

		if recorder != nil {
			recorder.RecordEvent(audit.WriteEventInput{
				Type:    audit.EventMediaItemAdded,
				Message: "added media item " + item.Name,
				Payload: map[string]any{"item_id": item.ItemID},
			})
		}
		return api.WriteResource(w, http.StatusCreated, renderItem(item))
	}
}

// getItem returns a single library item.
// GET /v1/media/library/{item_id}
func getItem(repo *Repository) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		itemID := chi.URLParam(r, "item_id")
		item, err := repo.Get(itemID)
		if err != nil {
			return apperrors.NewInternalError("Failed to get media item")
		}
		if item == nil {
			return apperrors.NewNotFoundResource("media_item", itemID)
		}
		return api.WriteResource(w, http.StatusOK, renderItem(item))
	}
}

// deleteItem removes a library item.
// DELETE /v1/media/library/{item_id}
func deleteItem(repo *Repository, recorder Recorder) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		itemID := chi.URLParam(r, "item_id")
		deleted, err := repo.Delete(itemID)
		if err != nil {
			return apperrors.NewInternalError("Failed to delete media item")
		}
		if !deleted {
			return apperrors.NewNotFoundResource("media_item", itemID)
		}

		if recorder != nil {
			recorder.RecordEvent(audit.WriteEventInput{
				Type:    audit.EventMediaItemDeleted,
				Message: "deleted media item " + itemID,
				Payload: map[string]any{"item_id": itemID},
			})
		}
		return api.WriteAction(w, http.StatusOK, map[string]any{
			"object":  "media_item_deleted",
			"item_id": itemID,
		})
	}
}
