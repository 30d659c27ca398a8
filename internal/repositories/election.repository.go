package repositories

import (
	"context"
	"errors"
	"server/internal/apperrors"
	"server/internal/database"
	"server/internal/logger"
	. "server/internal/models"
	"server/internal/services"
	"time"

	"gorm.io/gorm"
)

const electionCacheExpiry = 24 * time.Hour

type ElectionRepository interface {
	Create(ctx context.Context, election *Election) error
	GetByID(ctx context.Context, id string) (*Election, error)
	GetForOrganization(ctx context.Context, organizationID, id string) (*Election, error)
	GetAllForOrganization(ctx context.Context, organizationID string) ([]*Election, error)
	Delete(ctx context.Context, organizationID, id string) error
}

type electionRepository struct {
	db  database.DB
	log logger.Logger
}

func NewElection(db database.DB) ElectionRepository {
	return &electionRepository{
		db:  db,
		log: logger.New("electionRepository"),
	}
}

func (r *electionRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := services.GetTransaction(ctx); ok {
		return tx
	}
	return r.db.SQLWithContext(ctx)
}

func (r *electionRepository) Create(ctx context.Context, election *Election) error {
	log := r.log.Function("Create")

	if err := r.getDB(ctx).Create(election).Error; err != nil {
		return log.Err("failed to create election", err, "organizationID", election.OrganizationID)
	}

	if err := r.addElectionToCache(ctx, election); err != nil {
		log.Warn("failed to add election to cache", "electionID", election.ID, "error", err)
	}

	return nil
}

// GetByID returns the election, or nil when it does not exist.
func (r *electionRepository) GetByID(ctx context.Context, id string) (*Election, error) {
	log := r.log.Function("GetByID")

	var election Election
	if found, err := database.NewCacheBuilder(r.db.Cache.Election, id).
		WithContext(ctx).
		Get(&election); err == nil && found {
		return &election, nil
	}

	err := r.getDB(ctx).First(&election, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, log.Err("failed to get election", err, "id", id)
	}

	if err := r.addElectionToCache(ctx, &election); err != nil {
		log.Warn("failed to add election to cache", "electionID", id, "error", err)
	}

	return &election, nil
}

// GetForOrganization is the only lookup admin-facing code should use: an
// election belonging to another organization comes back as nil, exactly
// like one that does not exist.
func (r *electionRepository) GetForOrganization(ctx context.Context, organizationID, id string) (*Election, error) {
	election, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if election == nil || election.OrganizationID != organizationID {
		return nil, nil
	}
	return election, nil
}

func (r *electionRepository) GetAllForOrganization(ctx context.Context, organizationID string) ([]*Election, error) {
	log := r.log.Function("GetAllForOrganization")

	var elections []*Election
	if err := r.getDB(ctx).
		Where("organization_id = ?", organizationID).
		Order("created_at").
		Find(&elections).Error; err != nil {
		return nil, log.Err("failed to get elections", err, "organizationID", organizationID)
	}

	return elections, nil
}

// Delete removes the election and, through the foreign key cascade, all of
// its voters and their activity.
func (r *electionRepository) Delete(ctx context.Context, organizationID, id string) error {
	log := r.log.Function("Delete")

	result := r.getDB(ctx).Unscoped().
		Where("organization_id = ?", organizationID).
		Delete(&Election{}, "id = ?", id)
	if result.Error != nil {
		return log.Err("failed to delete election", result.Error, "id", id)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("election %s not found", id)
	}

	if err := database.NewCacheBuilder(r.db.Cache.Election, id).Delete(); err != nil {
		log.Warn("failed to remove election from cache", "electionID", id, "error", err)
	}

	return nil
}

func (r *electionRepository) addElectionToCache(ctx context.Context, election *Election) error {
	return database.NewCacheBuilder(r.db.Cache.Election, election.ID).
		WithStruct(election).
		WithTTL(electionCacheExpiry).
		WithContext(ctx).
		Set()
}
