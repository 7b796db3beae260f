package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// AuthorizationHeaderName carries "Bearer <token>" as an alternative to
// AccessTokenHeaderName.
const AuthorizationHeaderName = "authorization"

// UserAgentHeaderName is read by the server to fill audit entries.
const UserAgentHeaderName = "user-agent"

// DefaultTokenSize is the number of random bytes behind every opaque token
// (refresh, email verification, password reset).
const DefaultTokenSize = 32
