package ports

import (
	"context"
)

const TokenTypeBearer = "bearer"

type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email"    validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,password"`
}

// LoginInput binds from JSON or from an OAuth2 password form.
type LoginInput struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

type EmailLoginInput struct {
	Email    string `json:"email"    validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
}

type TokenResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*TokenResult, error)
	Login(ctx context.Context, in LoginInput) (*TokenResult, error)
	LoginByEmail(ctx context.Context, in EmailLoginInput) (*TokenResult, error)
}
