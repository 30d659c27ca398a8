package repositories

import (
	"context"
	"errors"
	"server/internal/database"
	"server/internal/logger"
	. "server/internal/models"
	"server/internal/services"
	"time"

	"gorm.io/gorm"
)

// VoterRepository is the persistence boundary the reconciliation engine
// writes through. Every operation is scoped to an election; voters are hard
// deleted so a later upload can reuse the same email.
type VoterRepository interface {
	GetAllForElection(ctx context.Context, electionID string) ([]Voter, error)
	GetByID(ctx context.Context, electionID, voterID string) (*Voter, error)
	GetByEmail(ctx context.Context, electionID, email string) (*Voter, error)
	GetByBallotToken(ctx context.Context, token string) (*Voter, error)
	Create(ctx context.Context, voter *Voter) error
	CreateBatch(ctx context.Context, voters []*Voter) error
	Delete(ctx context.Context, electionID, voterID string) error
	DeleteByEmails(ctx context.Context, electionID string, emails []string, onlyIfNotManual bool) error
	SetBallotEmailSent(ctx context.Context, voterID, token string, sentAt time.Time) error
	RecordActivity(ctx context.Context, voterID, activityName string, info map[string]any) error
}

type voterRepository struct {
	db  database.DB
	log logger.Logger
}

func NewVoter(db database.DB) VoterRepository {
	return &voterRepository{
		db:  db,
		log: logger.New("voterRepository"),
	}
}

func (r *voterRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := services.GetTransaction(ctx); ok {
		return tx
	}
	return r.db.SQLWithContext(ctx)
}

func (r *voterRepository) GetAllForElection(ctx context.Context, electionID string) ([]Voter, error) {
	log := r.log.Function("GetAllForElection")

	var voters []Voter
	if err := r.getDB(ctx).
		Where("election_id = ?", electionID).
		Order("created_at").
		Find(&voters).Error; err != nil {
		return nil, log.Err("failed to get voters", err, "electionID", electionID)
	}

	return voters, nil
}

func (r *voterRepository) GetByID(ctx context.Context, electionID, voterID string) (*Voter, error) {
	var voter Voter
	err := r.getDB(ctx).
		Where("election_id = ?", electionID).
		First(&voter, "id = ?", voterID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, r.log.Function("GetByID").
			Err("failed to get voter", err, "electionID", electionID, "voterID", voterID)
	}

	return &voter, nil
}

func (r *voterRepository) GetByEmail(ctx context.Context, electionID, email string) (*Voter, error) {
	var voter Voter
	err := r.getDB(ctx).
		Where("election_id = ? AND email = ?", electionID, email).
		First(&voter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, r.log.Function("GetByEmail").
			Err("failed to get voter by email", err, "electionID", electionID)
	}

	return &voter, nil
}

// GetByBallotToken is the voter login path: the emailed token is the only
// credential.
func (r *voterRepository) GetByBallotToken(ctx context.Context, token string) (*Voter, error) {
	if token == "" {
		return nil, nil
	}

	var voter Voter
	err := r.getDB(ctx).First(&voter, "ballot_url_token = ?", token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, r.log.Function("GetByBallotToken").Err("failed to get voter by ballot token", err)
	}

	return &voter, nil
}

func (r *voterRepository) Create(ctx context.Context, voter *Voter) error {
	log := r.log.Function("Create")

	if err := r.getDB(ctx).Create(voter).Error; err != nil {
		return log.Err("failed to create voter", err, "electionID", voter.ElectionID)
	}

	return nil
}

func (r *voterRepository) CreateBatch(ctx context.Context, voters []*Voter) error {
	log := r.log.Function("CreateBatch")

	if len(voters) == 0 {
		return nil
	}

	if err := r.getDB(ctx).Create(voters).Error; err != nil {
		return log.Err("failed to create voters", err, "count", len(voters))
	}

	return nil
}

func (r *voterRepository) Delete(ctx context.Context, electionID, voterID string) error {
	log := r.log.Function("Delete")

	if err := r.getDB(ctx).Unscoped().
		Where("election_id = ?", electionID).
		Delete(&Voter{}, "id = ?", voterID).Error; err != nil {
		return log.Err("failed to delete voter", err, "electionID", electionID, "voterID", voterID)
	}

	return nil
}

func (r *voterRepository) DeleteByEmails(ctx context.Context, electionID string, emails []string, onlyIfNotManual bool) error {
	log := r.log.Function("DeleteByEmails")

	if len(emails) == 0 {
		return nil
	}

	query := r.getDB(ctx).Unscoped().
		Where("election_id = ? AND email IN ?", electionID, emails)
	if onlyIfNotManual {
		query = query.Where("was_manually_added = ?", false)
	}

	if err := query.Delete(&Voter{}).Error; err != nil {
		return log.Err("failed to delete voters", err, "electionID", electionID, "count", len(emails))
	}

	return nil
}

// SetBallotEmailSent records a successful ballot email: token and sent
// timestamp are only ever written together, after the mail provider
// accepted the message.
func (r *voterRepository) SetBallotEmailSent(ctx context.Context, voterID, token string, sentAt time.Time) error {
	log := r.log.Function("SetBallotEmailSent")

	if err := r.getDB(ctx).Model(&Voter{}).
		Where("id = ?", voterID).
		Updates(map[string]any{
			"ballot_url_token":          token,
			"ballot_email_last_sent_at": sentAt,
		}).Error; err != nil {
		return log.Err("failed to record ballot email send", err, "voterID", voterID)
	}

	return nil
}

func (r *voterRepository) RecordActivity(ctx context.Context, voterID, activityName string, info map[string]any) error {
	log := r.log.Function("RecordActivity")

	activity := VoterActivity{
		VoterID:      voterID,
		ActivityName: activityName,
		Info:         info,
	}
	if err := r.getDB(ctx).Create(&activity).Error; err != nil {
		return log.Err("failed to record voter activity", err, "voterID", voterID, "activity", activityName)
	}

	return nil
}
