package transfer

import "github.com/golang-jwt/jwt/v5"

type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// OAuthState is carried through the provider redirect as a signed token so
// the callback can be tied back to the user who started it.
type OAuthState struct {
	UserID   int64  `json:"uid"`
	Platform string `json:"platform"`
	jwt.RegisteredClaims
}

type GoogleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}
