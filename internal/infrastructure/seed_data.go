package infrastructure

import (
	"context"
	"errors"
	"fmt"

	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/logging"
	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/model"
	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/service"
)

var log = logging.MustGetLogger("infrastructure")

// DemoPassword is the password of every seeded demo account.
const DemoPassword = "password123"

var demoUsers = []service.CreateUserRequest{
	{Username: "alice", Password: DemoPassword, Role: model.RoleAdmin},
	{Username: "bob", Password: DemoPassword, Role: model.RoleAnalyst},
	{Username: "charlie", Password: DemoPassword, Role: model.RoleViewer},
}

// SeedDataManager handles demo data initialization
type SeedDataManager struct {
	userService service.UserService
}

// NewSeedDataManager creates a new seed data manager
func NewSeedDataManager(userService service.UserService) *SeedDataManager {
	return &SeedDataManager{userService: userService}
}

// SeedAll creates one demo account per role. Existing accounts are left
// untouched, so seeding is safe to repeat on every start.
func (s *SeedDataManager) SeedAll(ctx context.Context) error {
	for _, req := range demoUsers {
		req := req
		user, err := s.userService.CreateUser(ctx, &req)
		if errors.Is(err, service.ErrUsernameTaken) {
			log.Debugf("Demo user %s already exists, skipping", req.Username)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to create demo user %s: %w", req.Username, err)
		}
		log.Infof("Created demo user: %s (role: %s, ID: %s)", user.Username, user.Role, user.ID)
	}
	return nil
}
