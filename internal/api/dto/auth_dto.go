package dto

// Data Transfer Objects for the signup / token-exchange flow

// SignupRequest: payload for requesting a confirmation code
type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required,max=150"`
}

// SignupResponse echoes the accepted payload, mirroring the request fields.
type SignupResponse struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}

// TokenRequest: payload for exchanging a confirmation code for a bearer token
type TokenRequest struct {
	Username         string `json:"username" binding:"required,max=150"`
	ConfirmationCode string `json:"confirmation_code" binding:"required"`
}

// TokenResponse: the minted access token
type TokenResponse struct {
	Token string `json:"token"`
}
