package repositories

import (
	"context"
	"errors"
	"server/internal/database"
	"server/internal/logger"
	. "server/internal/models"
	"server/internal/services"

	"gorm.io/gorm"
)

type AdminUserRepository interface {
	Create(ctx context.Context, user *AdminUser) error
	GetByEmail(ctx context.Context, email string) (*AdminUser, error)
}

type adminUserRepository struct {
	db  database.DB
	log logger.Logger
}

func NewAdminUser(db database.DB) AdminUserRepository {
	return &adminUserRepository{
		db:  db,
		log: logger.New("adminUserRepository"),
	}
}

func (r *adminUserRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := services.GetTransaction(ctx); ok {
		return tx
	}
	return r.db.SQLWithContext(ctx)
}

func (r *adminUserRepository) Create(ctx context.Context, user *AdminUser) error {
	log := r.log.Function("Create")

	if err := r.getDB(ctx).Create(user).Error; err != nil {
		return log.Err("failed to create admin user", err, "email", user.Email)
	}

	return nil
}

// GetByEmail returns the admin user with their organization preloaded, or
// nil when no such user exists. Session middleware calls this on every
// authenticated request.
func (r *adminUserRepository) GetByEmail(ctx context.Context, email string) (*AdminUser, error) {
	var user AdminUser
	err := r.getDB(ctx).Preload("Organization").First(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, r.log.Function("GetByEmail").Err("failed to get admin user", err, "email", email)
	}

	return &user, nil
}
