package common

import "time"

// AuthorizationHeaderName carries the bearer token on inbound requests.
const AuthorizationHeaderName = "Authorization"

// DefaultAccessTokenTTL is the lifetime of a session token when none is configured.
const DefaultAccessTokenTTL = 24 * time.Hour
