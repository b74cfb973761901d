package players

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/micro-nova/amplipi-hub/internal/amplipi"
	"github.com/micro-nova/amplipi-hub/internal/api"
	"github.com/micro-nova/amplipi-hub/internal/apperrors"
	"github.com/micro-nova/amplipi-hub/internal/audit"
)

// Provider exposes the live player set. Implemented by the registry.
type Provider interface {
	Players() []MediaPlayer
	Player(uniqueID string) (MediaPlayer, bool)
}

// Recorder is the slice of the audit service the routes need.
type Recorder interface {
	RecordEvent(input audit.WriteEventInput) *audit.Event
}

// RegisterRoutes wires player routes to the router.
func RegisterRoutes(router chi.Router, provider Provider, recorder Recorder) {
	router.Method(http.MethodGet, "/v1/players", api.Handler(listPlayers(provider)))
	router.Method(http.MethodPost, "/v1/players/refresh", api.Handler(refreshPlayers(provider)))
	router.Method(http.MethodGet, "/v1/players/{unique_id}", api.Handler(getPlayer(provider)))

	commands := map[string]func(p MediaPlayer, r *http.Request) error{
		"select-source": func(p MediaPlayer, r *http.Request) error {
			var body struct {
				Source string `json:"source"`
			}
			if err := decodeJSON(r, &body); err != nil || body.Source == "" {
				return apperrors.NewValidationError("source is required", nil)
			}
			return p.SelectSource(r.Context(), body.Source)
		},
		"volume": func(p MediaPlayer, r *http.Request) error {
			var body struct {
				Level *float64 `json:"level"`
			}
			if err := decodeJSON(r, &body); err != nil || body.Level == nil {
				return apperrors.NewValidationError("level is required", nil)
			}
			if *body.Level < 0 || *body.Level > 1 {
				return apperrors.NewValidationError("level must be between 0.0 and 1.0", nil)
			}
			return p.SetVolume(r.Context(), body.Level)
		},
		"mute": func(p MediaPlayer, r *http.Request) error {
			var body struct {
				Mute *bool `json:"mute"`
			}
			if err := decodeJSON(r, &body); err != nil || body.Mute == nil {
				return apperrors.NewValidationError("mute is required", nil)
			}
			return p.SetMute(r.Context(), body.Mute)
		},
		"play-media": func(p MediaPlayer, r *http.Request) error {
			var body struct {
				MediaID string `json:"media_id"`
			}
			if err := decodeJSON(r, &body); err != nil || body.MediaID == "" {
				return apperrors.NewValidationError("media_id is required", nil)
			}
			return p.PlayMedia(r.Context(), body.MediaID)
		},
		"play":     func(p MediaPlayer, r *http.Request) error { return p.Play(r.Context()) },
		"pause":    func(p MediaPlayer, r *http.Request) error { return p.Pause(r.Context()) },
		"stop":     func(p MediaPlayer, r *http.Request) error { return p.Stop(r.Context()) },
		"next":     func(p MediaPlayer, r *http.Request) error { return p.NextTrack(r.Context()) },
		"previous": func(p MediaPlayer, r *http.Request) error { return p.PreviousTrack(r.Context()) },
		"turn-on":  func(p MediaPlayer, r *http.Request) error { return p.TurnOn(r.Context()) },
		"turn-off": func(p MediaPlayer, r *http.Request) error { return p.TurnOff(r.Context()) },
		"volume-up": func(p MediaPlayer, r *http.Request) error {
			return StepVolume(r.Context(), p, 1)
		},
		"volume-down": func(p MediaPlayer, r *http.Request) error {
			return StepVolume(r.Context(), p, -1)
		},
	}
	for name, apply := range commands {
		router.Method(http.MethodPost, "/v1/players/{unique_id}/"+name,
			api.Handler(playerCommand(provider, recorder, name, apply)))
	}
}

// listPlayers renders all players.
// GET /v1/players
func listPlayers(provider Provider) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		return api.WriteList(w, r.URL.Path, RenderAll(provider.Players()), false)
	}
}

// getPlayer renders a single player by unique ID.
// GET /v1/players/{unique_id}
func getPlayer(provider Provider) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		uniqueID := chi.URLParam(r, "unique_id")
		player, ok := provider.Player(uniqueID)
		if !ok {
			return playerNotFound(uniqueID)
		}
		return api.WriteResource(w, http.StatusOK, Render(player))
	}
}

// refreshPlayers forces a synchronous update of every player.
// POST /v1/players/refresh
func refreshPlayers(provider Provider) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		all := provider.Players()
		failed := 0
		for _, player := range all {
			if err := player.Update(r.Context()); err != nil {
				failed++
			}
		}
		return api.WriteAction(w, http.StatusOK, map[string]any{
			"object":       "refresh_result",
			"players":      len(all),
			"failed":       failed,
			"refreshed_at": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// playerCommand dispatches a command against a player, records the outcome
// in the audit log, and renders the resulting state.
func playerCommand(provider Provider, recorder Recorder, name string, apply func(p MediaPlayer, r *http.Request) error) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		uniqueID := chi.URLParam(r, "unique_id")
		player, ok := provider.Player(uniqueID)
		if !ok {
			return playerNotFound(uniqueID)
		}

		err := apply(player, r)
		recordCommand(recorder, r, uniqueID, name, err)
		if err != nil {
			return mapCommandError(err)
		}
		return api.WriteResource(w, http.StatusOK, Render(player))
	}
}

func recordCommand(recorder Recorder, r *http.Request, uniqueID, command string, cmdErr error) {
	if recorder == nil {
		return
	}
	input := audit.WriteEventInput{
		Type:     audit.EventPlayerCommand,
		PlayerID: &uniqueID,
		Message:  fmt.Sprintf("command %s on %s", command, uniqueID),
		Payload:  map[string]any{"command": command},
	}
	if requestID := api.GetRequestID(r); requestID != "" {
		input.RequestID = &requestID
	}
	if cmdErr != nil {
		level := audit.EventLevelError
		input.Type = audit.EventPlayerCommandFailed
		input.Level = &level
		input.Payload["error"] = cmdErr.Error()
	}
	recorder.RecordEvent(input)
}

// mapCommandError translates domain errors into the API error taxonomy.
func mapCommandError(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, ErrSourcesExhausted) {
		return apperrors.NewConflictError(apperrors.ErrorCodeSourcesExhausted, ErrSourcesExhausted.Error())
	}

	var timeout *amplipi.TimeoutError
	if errors.As(err, &timeout) {
		return apperrors.NewAppError(apperrors.ErrorCodeAmpliPiTimeout,
			"AmpliPi controller timed out", http.StatusGatewayTimeout, nil)
	}
	var unreachable *amplipi.UnreachableError
	if errors.As(err, &unreachable) {
		return apperrors.NewAppError(apperrors.ErrorCodeAmpliPiUnreachable,
			"AmpliPi controller is unreachable", http.StatusBadGateway, nil)
	}
	var rejected *amplipi.RejectedError
	if errors.As(err, &rejected) {
		return apperrors.NewAppError(apperrors.ErrorCodeAmpliPiRejected,
			fmt.Sprintf("AmpliPi controller rejected the request: %s", rejected.Detail),
			http.StatusBadGateway, map[string]any{"status_code": rejected.StatusCode})
	}

	return apperrors.NewInternalError("Command failed")
}

func playerNotFound(uniqueID string) *apperrors.AppError {
	return apperrors.NewAppError(apperrors.ErrorCodePlayerNotFound,
		"player not found: "+uniqueID, http.StatusNotFound, map[string]any{"unique_id": uniqueID})
}

func decodeJSON(r *http.Request, out any) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}
