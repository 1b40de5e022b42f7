package rest

import (
	"time"

	"github.com/axiscapital/vault/internal/server/services"
)

type registerRequest struct {
	Username         string `json:"username"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	BinanceAPIKey    string `json:"binance_api_key"`
	BinanceAPISecret string `json:"binance_api_secret"`
	RiskProfile      string `json:"risk_profile"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	UserID      int64     `json:"user_id"`
	Username    string    `json:"username"`
}

type updateProfileRequest struct {
	Email       *string `json:"email"`
	RiskProfile *string `json:"risk_profile"`
}

type rotateKeysRequest struct {
	BinanceAPIKey    string `json:"binance_api_key"`
	BinanceAPISecret string `json:"binance_api_secret"`
}

type rotateKeysResponse struct {
	Message             string `json:"message"`
	BinanceAPIKeyMasked string `json:"binance_api_key_masked"`
}

type profileResponse struct {
	UserID              int64     `json:"user_id"`
	Username            string    `json:"username"`
	Email               string    `json:"email"`
	RiskProfile         string    `json:"risk_profile"`
	IsActive            bool      `json:"is_active"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
	BinanceAPIKeyMasked string    `json:"binance_api_key_masked"`
}

func toProfileResponse(p *services.Profile) profileResponse {
	return profileResponse{
		UserID:              p.ID,
		Username:            p.Username,
		Email:               p.Email,
		RiskProfile:         string(p.RiskProfile),
		IsActive:            p.IsActive,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
		BinanceAPIKeyMasked: p.MaskedAPIKey,
	}
}
