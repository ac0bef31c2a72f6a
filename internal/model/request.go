package model

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=1,max=256"`
	Portal   string `json:"portal" validate:"omitempty,oneof=learner mentor admin"`
}

type LoginResponse struct {
	User      *UserProfile `json:"user"`
	Redirect  string       `json:"redirect"`
	ExpiresAt int64        `json:"expiresAt,omitempty"`
}
