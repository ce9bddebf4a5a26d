package auth

// DevTokenRequest is the optional body of POST /v1/auth/dev.
type DevTokenRequest struct {
	UserID string `json:"user_id"`
}

type DevTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	UserID      string `json:"user_id"`
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
