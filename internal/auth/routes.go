package auth

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/micro-nova/amplipi-hub/internal/api"
	"github.com/micro-nova/amplipi-hub/internal/apperrors"
	"github.com/micro-nova/amplipi-hub/internal/config"
)

// RegisterRoutes wires auth routes to the router. Initial token pairs are
// minted out of band with the mint-token command; the API only refreshes.
func RegisterRoutes(router chi.Router, cfg config.Config) {
	router.Method(http.MethodPost, "/v1/auth/refresh", api.Handler(refresh(cfg)))
}

// refresh exchanges a refresh token for a new access token.
// POST /v1/auth/refresh
func refresh(cfg config.Config) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RefreshToken == "" {
			return apperrors.NewValidationError("refresh_token is required", nil)
		}

		accessToken, expiresIn, err := RefreshAccessToken(cfg, body.RefreshToken)
		if err != nil {
			if err == ErrTokenExpired {
				return apperrors.NewUnauthorizedError("Refresh token has expired", apperrors.ErrorCodeAuthTokenExpired)
			}
			return apperrors.NewUnauthorizedError("Invalid refresh token", apperrors.ErrorCodeAuthTokenInvalid)
		}

		return api.WriteResource(w, http.StatusOK, map[string]any{
			"object":       "token",
			"access_token": accessToken,
			"expires_in":   expiresIn,
			"token_type":   "Bearer",
		})
	}
}
