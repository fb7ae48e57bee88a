package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/model"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	// ErrUserNotFound はユーザーが存在しない場合のエラー
	ErrUserNotFound = errors.New("user not found")

	// ErrUsernameTaken はユーザー名が既に使われている場合のエラー
	ErrUsernameTaken = errors.New("username already taken")
)

// UserService はユーザー管理サービスのインターフェース
type UserService interface {
	CreateUser(ctx context.Context, req *CreateUserRequest) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	ValidatePassword(ctx context.Context, username, password string) (*model.User, error)
}

// CreateUserRequest はユーザー作成リクエスト
type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"required"`
}

// userServiceImpl はユーザーサービスの実装
type userServiceImpl struct {
	db *gorm.DB
}

// NewUserService は新しいユーザーサービスを作成
func NewUserService(db *gorm.DB) UserService {
	return &userServiceImpl{db: db}
}

// CreateUser は新しいユーザーを作成
func (s *userServiceImpl) CreateUser(ctx context.Context, req *CreateUserRequest) (*model.User, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).Where("username = ?", req.Username).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if count > 0 {
		return nil, ErrUsernameTaken
	}

	hashedPassword, err := hashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:       uuid.NewString(),
		Username: req.Username,
		Password: hashedPassword,
		Role:     req.Role,
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// パスワードを除去してレスポンス
	user.Password = ""
	return user, nil
}

// GetUserByID はIDでユーザーを取得
func (s *userServiceImpl) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, id)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.Password = ""
	return &user, nil
}

// GetUserByUsername はユーザー名でユーザーを取得（パスワードハッシュを含む）
func (s *userServiceImpl) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// ValidatePassword はユーザー名とパスワードを検証
func (s *userServiceImpl) ValidatePassword(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	user.Password = ""
	return user, nil
}

// hashPassword はパスワードをハッシュ化
func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}
