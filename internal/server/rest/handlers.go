package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/axiscapital/vault/internal/common"
	"github.com/axiscapital/vault/internal/logging"
	"github.com/axiscapital/vault/internal/server/models"
	"github.com/axiscapital/vault/internal/server/services"
)

const maxBodyBytes = 1 << 20

type ctxKey string

const identityKey ctxKey = "identity"

type handler struct {
	accounts AccountService
	db       Pinger
	metrics  *Metrics
	logger   logging.Logger
}

func identityFrom(ctx context.Context) (*models.Identity, bool) {
	i, ok := ctx.Value(identityKey).(*models.Identity)
	return i, ok && i != nil
}

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get(common.AuthorizationHeaderName))
	if header == "" {
		return "", errors.New("missing authorization")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// fail writes the mapped error and logs anything the caller cannot act on.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeError(w, status, msg)
}

func outcomeOf(err error) string {
	switch status, _ := statusFor(err); status {
	case http.StatusConflict:
		return outcomeDuplicate
	case http.StatusBadRequest:
		return outcomeInvalid
	case http.StatusUnauthorized, http.StatusForbidden:
		return outcomeFailure
	}
	return outcomeError
}

func (h *handler) requireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "could not validate credentials")
			return
		}

		identity, err := h.accounts.CurrentIdentity(r.Context(), token)
		if err != nil {
			h.fail(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		h.logger.Warn(r.Context(), "health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		h.metrics.AuthEvent("register", outcomeInvalid)
		return
	}

	risk, err := models.ParseRiskProfile(req.RiskProfile)
	if err != nil {
		h.metrics.AuthEvent("register", outcomeInvalid)
		writeError(w, http.StatusBadRequest, "invalid risk_profile: must be conservative, balanced or aggressive")
		return
	}

	identity, err := h.accounts.Register(r.Context(), services.RegisterInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		APIKey:      req.BinanceAPIKey,
		APISecret:   req.BinanceAPISecret,
		RiskProfile: risk,
	})
	if err != nil {
		h.metrics.AuthEvent("register", outcomeOf(err))
		h.fail(w, r, err)
		return
	}

	profile, err := h.accounts.Profile(identity)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.metrics.AuthEvent("register", outcomeSuccess)
	writeJSON(w, http.StatusCreated, toProfileResponse(profile))
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		h.metrics.AuthEvent("login", outcomeInvalid)
		return
	}

	res, err := h.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.metrics.AuthEvent("login", outcomeOf(err))
		h.fail(w, r, err)
		return
	}

	h.metrics.AuthEvent("login", outcomeSuccess)
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: res.Token,
		TokenType:   "bearer",
		ExpiresAt:   res.ExpiresAt,
		UserID:      res.Identity.ID,
		Username:    res.Identity.Username,
	})
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	token, err := bearerToken(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	if err := h.accounts.Logout(r.Context(), token); err != nil {
		h.metrics.AuthEvent("logout", outcomeOf(err))
		h.fail(w, r, err)
		return
	}

	h.metrics.AuthEvent("logout", outcomeSuccess)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) writeProfile(w http.ResponseWriter, r *http.Request, identity *models.Identity) {
	profile, err := h.accounts.Profile(identity)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())
	h.writeProfile(w, r, identity)
}

func (h *handler) updateMe(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	var req updateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	upd := services.ProfileUpdate{Email: req.Email}
	if req.RiskProfile != nil {
		risk := models.RiskProfile(*req.RiskProfile)
		upd.RiskProfile = &risk
	}

	updated, err := h.accounts.UpdateProfile(r.Context(), identity.ID, upd)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.writeProfile(w, r, updated)
}

func (h *handler) rotateKeys(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	var req rotateKeysRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.accounts.RotateSecrets(r.Context(), identity.ID, req.BinanceAPIKey, req.BinanceAPISecret)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	profile, err := h.accounts.Profile(updated)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rotateKeysResponse{
		Message:             "api keys updated",
		BinanceAPIKeyMasked: profile.MaskedAPIKey,
	})
}
