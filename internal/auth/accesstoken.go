package auth

import "time"

// accessTokenBytes sizes review-form access tokens. 32 random bytes encode
// to 43 URL-safe characters.
const accessTokenBytes = 32

// GenerateAccessToken generates an unguessable URL-safe secret for anonymous
// review-form access links.
func GenerateAccessToken() (string, error) {
	return GenerateRandomToken(accessTokenBytes)
}

// AccessTokenExpired reports whether a token expiry has passed. A nil expiry
// means the token never expires.
func AccessTokenExpired(expiresAt *time.Time, now time.Time) bool {
	return expiresAt != nil && now.After(*expiresAt)
}
