package mediasource

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/micro-nova/amplipi-hub/internal/apperrors"
)

// libraryPrefix is the media reference scheme for library items.
const libraryPrefix = "media-source://media_library/"

// Resolver turns opaque media references into playable URLs. Plain http(s)
// URLs pass through; media-source references resolve against the library.
type Resolver struct {
	repo *Repository
}

// NewResolver creates a Resolver backed by the given library.
func NewResolver(repo *Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve implements players.MediaResolver.
func (r *Resolver) Resolve(ctx context.Context, mediaID string) (string, error) {
	if itemID, ok := strings.CutPrefix(mediaID, libraryPrefix); ok {
		return r.resolveLibraryItem(itemID)
	}

	parsed, err := url.Parse(mediaID)
	if err == nil && (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != "" {
		return mediaID, nil
	}

	return "", apperrors.NewAppError(apperrors.ErrorCodeMediaUnresolvable,
		"media reference is neither a URL nor a library item: "+mediaID,
		http.StatusBadRequest, nil)
}

func (r *Resolver) resolveLibraryItem(itemID string) (string, error) {
	item, err := r.repo.Get(itemID)
	if err != nil {
		return "", apperrors.NewInternalError("Failed to resolve media item")
	}
	if item == nil {
		return "", apperrors.NewAppError(apperrors.ErrorCodeMediaItemNotFound,
			"media item not found: "+itemID, http.StatusNotFound,
			map[string]any{"item_id": itemID})
	}
	return item.URL, nil
}

// Reference builds the media-source reference for a library item.
func Reference(itemID string) string {
	return libraryPrefix + itemID
}
