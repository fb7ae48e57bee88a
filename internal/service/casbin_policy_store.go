package service

import (
	"context"
	"fmt"

	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/model"

	"gorm.io/gorm"
)

// CasbinPolicyStore は認可ポリシーの永続化を抽象化するインターフェース
type CasbinPolicyStore interface {
	LoadPolicies(ctx context.Context) ([]model.CasbinRule, error)
	SavePolicies(ctx context.Context, rules []model.CasbinRule) error
}

// CasbinDatabasePolicyStore はデータベースベースのポリシーストア実装
type CasbinDatabasePolicyStore struct {
	db *gorm.DB
}

// NewCasbinDatabasePolicyStore creates a new database-backed policy store
func NewCasbinDatabasePolicyStore(db *gorm.DB) *CasbinDatabasePolicyStore {
	return &CasbinDatabasePolicyStore{db: db}
}

// LoadPolicies は保存済みのポリシーを登録順に返す
func (s *CasbinDatabasePolicyStore) LoadPolicies(ctx context.Context) ([]model.CasbinRule, error) {
	var rules []model.CasbinRule
	if err := s.db.WithContext(ctx).Order("id").Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("failed to load policies: %w", err)
	}
	return rules, nil
}

// SavePolicies はポリシーを一括保存する
func (s *CasbinDatabasePolicyStore) SavePolicies(ctx context.Context, rules []model.CasbinRule) error {
	if len(rules) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&rules).Error; err != nil {
		return fmt.Errorf("failed to save policies: %w", err)
	}
	return nil
}
