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

type OrganizationRepository interface {
	Create(ctx context.Context, organization *Organization) error
	GetByID(ctx context.Context, id string) (*Organization, error)
	GetByName(ctx context.Context, name string) (*Organization, error)
}

type organizationRepository struct {
	db  database.DB
	log logger.Logger
}

func NewOrganization(db database.DB) OrganizationRepository {
	return &organizationRepository{
		db:  db,
		log: logger.New("organizationRepository"),
	}
}

func (r *organizationRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := services.GetTransaction(ctx); ok {
		return tx
	}
	return r.db.SQLWithContext(ctx)
}

func (r *organizationRepository) Create(ctx context.Context, organization *Organization) error {
	log := r.log.Function("Create")

	if err := r.getDB(ctx).Create(organization).Error; err != nil {
		return log.Err("failed to create organization", err, "name", organization.Name)
	}

	return nil
}

func (r *organizationRepository) GetByID(ctx context.Context, id string) (*Organization, error) {
	var organization Organization
	err := r.getDB(ctx).First(&organization, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, r.log.Function("GetByID").Err("failed to get organization", err, "id", id)
	}

	return &organization, nil
}

func (r *organizationRepository) GetByName(ctx context.Context, name string) (*Organization, error) {
	var organization Organization
	err := r.getDB(ctx).First(&organization, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, r.log.Function("GetByName").Err("failed to get organization", err, "name", name)
	}

	return &organization, nil
}
