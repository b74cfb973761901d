package audit

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/micro-nova/amplipi-hub/internal/api"
	"github.com/micro-nova/amplipi-hub/internal/apperrors"
)

var validEventLevels = map[string]EventLevel{
	"INFO":  EventLevelInfo,
	"WARN":  EventLevelWarn,
	"ERROR": EventLevelError,
}

// RegisterRoutes wires audit routes to the router.
func RegisterRoutes(router chi.Router, service *Service) {
	router.Method(http.MethodGet, "/v1/audit/events", api.Handler(queryEvents(service)))
	router.Method(http.MethodGet, "/v1/audit/events/{event_id}", api.Handler(getEvent(service)))
}

// queryEvents retrieves audit events with optional filters.
// GET /v1/audit/events
func queryEvents(service *Service) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		filters, err := parseQueryFilters(r)
		if err != nil {
			return err
		}

		events, _, hasMore, err := service.QueryEvents(filters)
		if err != nil {
			return apperrors.NewInternalError("Failed to query audit events")
		}

		return api.WriteList(w, r.URL.Path, events, hasMore)
	}
}

// getEvent retrieves a single audit event by ID.
// GET /v1/audit/events/{event_id}
func getEvent(service *Service) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		eventID := chi.URLParam(r, "event_id")

		event, err := service.GetEvent(eventID)
		if err != nil {
			var notFound *EventNotFoundError
			if errors.As(err, &notFound) {
				return apperrors.NewNotFoundResource("audit_event", eventID)
			}
			return apperrors.NewInternalError("Failed to get audit event")
		}

		return api.WriteResource(w, http.StatusOK, event)
	}
}

func parseQueryFilters(r *http.Request) (EventQueryFilters, error) {
	filters := EventQueryFilters{}
	query := r.URL.Query()

	if raw := query.Get("type"); raw != "" {
		filters.Type = &raw
	}
	if raw := query.Get("level"); raw != "" {
		level, ok := validEventLevels[raw]
		if !ok {
			return filters, apperrors.NewValidationError("level must be one of INFO, WARN, ERROR", nil)
		}
		filters.Level = &level
	}
	if raw := query.Get("player_id"); raw != "" {
		filters.PlayerID = &raw
	}
	if raw := query.Get("request_id"); raw != "" {
		filters.RequestID = &raw
	}
	if raw := query.Get("start_date"); raw != "" {
		filters.StartDate = &raw
	}
	if raw := query.Get("end_date"); raw != "" {
		filters.EndDate = &raw
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return filters, apperrors.NewValidationError("limit must be a positive integer", nil)
		}
		filters.Limit = limit
	}
	if raw := query.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return filters, apperrors.NewValidationError("offset must be a non-negative integer", nil)
		}
		filters.Offset = offset
	}

	return filters, nil
}
