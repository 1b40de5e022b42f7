package models

import (
	"fmt"
	"time"
)

// RiskProfile is the trading risk appetite stored on an identity.
type RiskProfile string

const (
	RiskConservative RiskProfile = "conservative"
	RiskBalanced     RiskProfile = "balanced"
	RiskAggressive   RiskProfile = "aggressive"

	DefaultRiskProfile = RiskBalanced
)

// ParseRiskProfile accepts the three known profiles; an empty string
// yields the default.
func ParseRiskProfile(s string) (RiskProfile, error) {
	switch RiskProfile(s) {
	case "":
		return DefaultRiskProfile, nil
	case RiskConservative, RiskBalanced, RiskAggressive:
		return RiskProfile(s), nil
	}
	return "", fmt.Errorf("unknown risk profile %q", s)
}

func (r RiskProfile) Valid() bool {
	_, err := ParseRiskProfile(string(r))
	return err == nil && r != ""
}

// Identity is an account holder. PasswordHash and the two encrypted fields
// are never exposed outside the service layer.
type Identity struct {
	ID                 int64
	Username           string
	Email              string
	PasswordHash       string
	APIKeyEncrypted    string
	APISecretEncrypted string
	RiskProfile        RiskProfile
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
