package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Signup(ctx context.Context, req SignupRequest) (*SignupResult, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, rawToken string) error
	Authenticate(ctx context.Context, rawToken string) (*Session, error)
	AccountByID(ctx context.Context, id snowflake.ID) (*Account, error)
}

type SignupRequest struct {
	Email       string
	Password    string
	DisplayName string
}

type SignupResult struct {
	Account *Account
	Login   *LoginResult
}

type LoginRequest struct {
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

type LoginResult struct {
	Account   AccountView
	RawToken  string
	ExpiresAt time.Time
	SessionID snowflake.ID
}
