package model

import (
	"time"
)

// Casbin policy types
const (
	PolicyTypePermission = "p"
	PolicyTypeRole       = "g"
)

// CasbinRule is one persisted casbin line. For permissions V0/V1/V2 are
// role, object and action; for role inheritance V0 inherits from V1.
type CasbinRule struct {
	ID        uint      `gorm:"primaryKey"`
	PType     string    `gorm:"type:varchar(10);not null;index"`
	V0        string    `gorm:"type:varchar(100);not null"`
	V1        string    `gorm:"type:varchar(100);not null"`
	V2        string    `gorm:"type:varchar(100)"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (CasbinRule) TableName() string {
	return "casbin_policy_rules"
}

// Permission builds a "p" rule.
func Permission(role, object, action string) CasbinRule {
	return CasbinRule{PType: PolicyTypePermission, V0: role, V1: object, V2: action}
}

// RoleInheritance builds a "g" rule: role gets every permission of parent.
func RoleInheritance(role, parent string) CasbinRule {
	return CasbinRule{PType: PolicyTypeRole, V0: role, V1: parent}
}
