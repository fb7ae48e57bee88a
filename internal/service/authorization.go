package service

import (
	"context"
	"fmt"

	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/model"

	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"
)

// 認可対象のリソースとアクション
const (
	ResourceSegments = "segments"
	ResourceUploads  = "uploads"
	ResourceData     = "data"

	ActionRead   = "read"
	ActionWrite  = "write"
	ActionDelete = "delete"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

// DefaultPolicies は初回起動時に保存されるポリシー
var DefaultPolicies = []model.CasbinRule{
	model.Permission(model.RoleViewer, ResourceSegments, ActionRead),
	model.Permission(model.RoleViewer, ResourceUploads, ActionRead),
	model.Permission(model.RoleAnalyst, ResourceUploads, ActionWrite),
	model.Permission(model.RoleAnalyst, ResourceUploads, ActionDelete),
	model.Permission(model.RoleAnalyst, ResourceData, ActionDelete),
	model.RoleInheritance(model.RoleAnalyst, model.RoleViewer),
	model.RoleInheritance(model.RoleAdmin, model.RoleAnalyst),
}

// AuthorizationService はロールベースの認可サービス
type AuthorizationService struct {
	enforcer *casbin.Enforcer
}

// NewAuthorizationService はポリシーストアからエンフォーサーを構築する。
// ストアが空の場合は DefaultPolicies を保存して使う。store が nil の場合は
// DefaultPolicies のみで動作する。
func NewAuthorizationService(ctx context.Context, store CasbinPolicyStore) (*AuthorizationService, error) {
	m, err := casbinmodel.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RBAC model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize RBAC enforcer: %w", err)
	}

	rules := DefaultPolicies
	if store != nil {
		rules, err = store.LoadPolicies(ctx)
		if err != nil {
			return nil, err
		}
		if len(rules) == 0 {
			rules = DefaultPolicies
			if err := store.SavePolicies(ctx, rules); err != nil {
				return nil, err
			}
		}
	}

	for _, rule := range rules {
		if err := addRule(enforcer, rule); err != nil {
			return nil, err
		}
	}

	return &AuthorizationService{enforcer: enforcer}, nil
}

func addRule(enforcer *casbin.Enforcer, rule model.CasbinRule) error {
	var err error
	switch rule.PType {
	case model.PolicyTypePermission:
		_, err = enforcer.AddPolicy(rule.V0, rule.V1, rule.V2)
	case model.PolicyTypeRole:
		_, err = enforcer.AddGroupingPolicy(rule.V0, rule.V1)
	default:
		return fmt.Errorf("unknown policy type %q", rule.PType)
	}
	if err != nil {
		return fmt.Errorf("failed to add policy %v: %w", rule, err)
	}
	return nil
}

// CheckPermission はユーザーのロールでリソースへのアクションが許可されるか判定する
func (s *AuthorizationService) CheckPermission(user *model.User, resource, action string) (bool, error) {
	allowed, err := s.enforcer.Enforce(user.Role, resource, action)
	if err != nil {
		return false, fmt.Errorf("RBAC permission check failed: %w", err)
	}
	return allowed, nil
}

// GetRolePermissions はロールが継承分も含めて持つ権限を返す
func (s *AuthorizationService) GetRolePermissions(role string) ([][]string, error) {
	permissions, err := s.enforcer.GetImplicitPermissionsForUser(role)
	if err != nil {
		return nil, fmt.Errorf("failed to get role permissions: %w", err)
	}
	return permissions, nil
}
