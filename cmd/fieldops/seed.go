package main

import (
	"context"
	"fmt"
	"strings"

	"fieldops/internal/config"
	"fieldops/internal/domain"
	"fieldops/internal/service"

	"go.uber.org/zap"
)

const seedUnitName = "Headquarters"

// seedAdmin creates the first superadmin, and a unit to hold it, on an empty directory.
func seedAdmin(ctx context.Context, cfg *config.Config, units service.UnitService, users service.UserService, log *zap.Logger) error {
	admins, err := users.ListUsers(ctx, service.ListUsersRequest{Role: domain.RoleSuperAdmin})
	if err != nil {
		return fmt.Errorf("list superadmins: %w", err)
	}
	if len(admins) > 0 {
		return nil
	}

	all, err := units.ListUnits(ctx)
	if err != nil {
		return fmt.Errorf("list units: %w", err)
	}
	var unit *domain.Unit
	for _, u := range all {
		if strings.EqualFold(u.Name, seedUnitName) {
			unit = u
			break
		}
	}
	if unit == nil {
		if unit, err = units.CreateUnit(ctx, service.CreateUnitRequest{Name: seedUnitName}); err != nil {
			return fmt.Errorf("create %s unit: %w", seedUnitName, err)
		}
	}

	admin, err := users.CreateUser(ctx, service.CreateUserRequest{
		FirstName: "System",
		LastName:  "Admin",
		Username:  cfg.Seed.AdminUsername,
		Password:  cfg.Seed.AdminPassword,
		Role:      domain.RoleSuperAdmin,
		UnitID:    unit.UnitID,
	})
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	log.Warn("Seeded superadmin account, change its password",
		zap.String("user_id", admin.UserID),
		zap.String("username", admin.Username),
	)
	return nil
}
