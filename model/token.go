// file: model/token.go

package model

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// BearerToken is the single long-lived token issued by the v2 login.
type BearerToken struct {
	Token     string `json:"token"`
	ExpiresIn string `json:"expires_in"`
}

// MessageResponse is the body of endpoints that only report success.
type MessageResponse struct {
	Message string `json:"message"`
}
