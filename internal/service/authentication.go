package service

import (
	"context"
	"errors"

	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/auth"
	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/model"
)

// ErrInvalidCredentials は認証失敗エラー
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthenticationService はログインとアカウント登録を行う
type AuthenticationService struct {
	users  UserService
	tokens *auth.Service
}

// NewAuthenticationService は新しい認証サービスを作成
func NewAuthenticationService(users UserService, tokens *auth.Service) *AuthenticationService {
	return &AuthenticationService{users: users, tokens: tokens}
}

// Login はユーザー認証とJWTトークン生成を行う
func (s *AuthenticationService) Login(ctx context.Context, username, password string) (*model.LoginResponse, error) {
	user, err := s.users.ValidatePassword(ctx, username, password)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrInvalidCredentials) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return s.respond(user)
}

// Register はアナリストロールの新規アカウントを作成してログイン状態にする
func (s *AuthenticationService) Register(ctx context.Context, req *model.RegisterRequest) (*model.LoginResponse, error) {
	user, err := s.users.CreateUser(ctx, &CreateUserRequest{
		Username: req.Username,
		Password: req.Password,
		Role:     model.RoleAnalyst,
	})
	if err != nil {
		return nil, err
	}
	return s.respond(user)
}

func (s *AuthenticationService) respond(user *model.User) (*model.LoginResponse, error) {
	token, expiresAt, err := s.tokens.IssueToken(user)
	if err != nil {
		return nil, err
	}

	userResponse := *user
	userResponse.Password = ""

	return &model.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      userResponse,
	}, nil
}
