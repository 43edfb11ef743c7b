package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/storefront/storefront/internal/api"
	"github.com/storefront/storefront/internal/app"
	iauth "github.com/storefront/storefront/internal/auth"
	"github.com/storefront/storefront/internal/database"
	"github.com/storefront/storefront/internal/permissions"
	"github.com/storefront/storefront/internal/services"
	"github.com/storefront/storefront/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB     *gorm.DB
	JWT    *iauth.JWTService
	Router *gin.Engine
}

// bootstrapRuntime opens the permission store, seeds the catalog roles and builds the router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			if closeErr := stack.Shutdown(); closeErr != nil {
				log.Warn("bootstrap cleanup failed", zap.Error(closeErr))
			}
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := seedSuperAdmin(ctx, stack.DB, cfg.Seed.SuperAdmin, log); err != nil {
		return nil, err
	}

	stack.JWT, err = iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	stack.Router, err = api.NewRouter(stack.DB, stack.JWT, cfg)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown releases resources held by the stack.
func (s *runtimeStack) Shutdown() error {
	if s == nil {
		return nil
	}
	return closeDatabase(s.DB)
}

func initialiseDatabase(ctx context.Context, cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(ctx, db); err != nil {
		closeErr := closeDatabase(db)
		return nil, multierr.Append(fmt.Errorf("auto-migrate database: %w", err), closeErr)
	}

	logger.WithModule("database").Info("database connected", zap.String("driver", dbCfg.Driver))
	return db, nil
}

// seedSuperAdmin provisions the configured bootstrap account. Running it again leaves an existing
// account in place and only restores its super-admin role.
func seedSuperAdmin(ctx context.Context, db *gorm.DB, seed app.SuperAdminSeed, log *zap.Logger) error {
	if !seed.Enabled {
		return nil
	}
	username := strings.TrimSpace(seed.Username)
	if username == "" {
		return errors.New("seed super admin: username is required")
	}

	users, err := services.NewUserService(db)
	if err != nil {
		return err
	}

	existing, err := users.FindByUsername(ctx, username)
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		user, err := users.CreateUser(ctx, services.CreateUserInput{
			Username: username,
			Email:    seed.Email,
			Roles:    []string{permissions.RoleSuperAdmin},
		})
		if err != nil {
			return fmt.Errorf("seed super admin: %w", err)
		}
		log.Info("super admin created", zap.String("user_id", user.ID), zap.String("username", username))
		return nil
	case err != nil:
		return fmt.Errorf("seed super admin: %w", err)
	}

	for _, role := range existing.Roles {
		if role.Name == permissions.RoleSuperAdmin {
			return nil
		}
	}

	roles, err := services.NewRoleService(db)
	if err != nil {
		return err
	}
	if _, err := roles.Promote(ctx, existing.ID, permissions.RoleSuperAdmin); err != nil {
		return fmt.Errorf("seed super admin: %w", err)
	}
	log.Info("super admin role restored", zap.String("user_id", existing.ID), zap.String("username", username))
	return nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),
		Pool: database.PoolConfig{
			MaxOpenConns:    cfg.Database.Pool.MaxOpenConns,
			MaxIdleConns:    cfg.Database.Pool.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.Pool.ConnMaxLifetime,
		},
	}

	var vendor app.DBAuthConfig
	switch dbCfg.Driver {
	case "", "sqlite", "sqlite3":
		dbCfg.Driver = "sqlite"
		return dbCfg
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		vendor = cfg.Database.Postgres
	case "mysql", "mariadb":
		dbCfg.Driver = "mysql"
		vendor = cfg.Database.MySQL
	default:
		// Leave driver as-is to surface unsupported driver error during open.
		return dbCfg
	}

	dbCfg.Host = strings.TrimSpace(vendor.Host)
	dbCfg.Port = vendor.Port
	dbCfg.Name = strings.TrimSpace(vendor.Database)
	dbCfg.User = strings.TrimSpace(vendor.Username)
	dbCfg.Password = vendor.Password
	return dbCfg
}

func closeDatabase(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("obtain sql db: %w", err)
	}
	return sqlDB.Close()
}
