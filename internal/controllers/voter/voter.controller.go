package voterController

import (
	"context"
	"mime"
	"strings"
	"time"

	"server/internal/apperrors"
	"server/internal/database"
	"server/internal/events"
	"server/internal/logger"
	"server/internal/mailer"
	. "server/internal/models"
	"server/internal/repositories"
	"server/internal/services"
	"server/internal/voterfile"

	"github.com/google/uuid"
)

const (
	activityBallotEmailSent = "ballot_email_sent"
	activityBallotViewed    = "ballot_viewed"
)

type VoterController struct {
	electionRepo       repositories.ElectionRepository
	voterRepo          repositories.VoterRepository
	transactionService *services.TransactionService
	uploadLock         *database.UploadLock
	eventBus           *events.EventBus
	mailer             mailer.Mailer
	httpOrigin         string
	log                logger.Logger
}

func New(
	electionRepo repositories.ElectionRepository,
	voterRepo repositories.VoterRepository,
	transactionService *services.TransactionService,
	uploadLock *database.UploadLock,
	eventBus *events.EventBus,
	ballotMailer mailer.Mailer,
	httpOrigin string,
) *VoterController {
	return &VoterController{
		electionRepo:       electionRepo,
		voterRepo:          voterRepo,
		transactionService: transactionService,
		uploadLock:         uploadLock,
		eventBus:           eventBus,
		mailer:             ballotMailer,
		httpOrigin:         httpOrigin,
		log:                logger.New("VoterController"),
	}
}

// UploadSummary reports an applied voter roll upload.
type UploadSummary struct {
	Total    int `json:"total"`
	Inserted int `json:"inserted"`
	Deleted  int `json:"deleted"`
}

// UploadVoterRoll ingests a CSV or XML voter roll for an election and
// reconciles it against the stored roll.
//
// The upload runs in three phases: parse (format-specific), validate
// against the election definition, then reconcile under the election's
// upload lock inside one transaction. Any batch error leaves the stored
// roll untouched.
func (c *VoterController) UploadVoterRoll(
	ctx context.Context,
	organizationID, electionID, contentType string,
	data []byte,
	encodingName string,
) (*UploadSummary, error) {
	log := c.log.Function("UploadVoterRoll")

	election, err := c.getElection(ctx, organizationID, electionID)
	if err != nil {
		return nil, err
	}

	records, err := c.parseVoterRoll(contentType, data, encodingName)
	if err != nil {
		return nil, err
	}

	if err := voterfile.ValidateAgainstDefinition(records, &election.Definition); err != nil {
		return nil, err
	}

	summary := &UploadSummary{Total: len(records)}
	err = c.uploadLock.WithLock(ctx, election.ID, func() error {
		return c.transactionService.Execute(ctx, func(txCtx context.Context) error {
			existing, err := c.voterRepo.GetAllForElection(txCtx, election.ID)
			if err != nil {
				return err
			}

			plan := voterfile.Reconcile(records, existing)

			voters := make([]*Voter, 0, len(plan.ToInsert))
			for _, record := range plan.ToInsert {
				voters = append(voters, &Voter{
					ExternalID:       record.ExternalID,
					Email:            record.Email,
					Precinct:         record.Precinct,
					BallotStyle:      record.BallotStyle,
					WasManuallyAdded: false,
					ElectionID:       election.ID,
				})
			}

			if err := c.voterRepo.CreateBatch(txCtx, voters); err != nil {
				return err
			}
			if err := c.voterRepo.DeleteByEmails(txCtx, election.ID, plan.ToDeleteEmails, true); err != nil {
				return err
			}

			summary.Inserted = len(plan.ToInsert)
			summary.Deleted = len(plan.ToDeleteEmails)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info("Voter roll reconciled",
		"electionID", election.ID,
		"total", summary.Total,
		"inserted", summary.Inserted,
		"deleted", summary.Deleted)

	c.publishUploadEvent(election, summary)

	return summary, nil
}

func (c *VoterController) parseVoterRoll(contentType string, data []byte, encodingName string) ([]voterfile.VoterRecord, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, apperrors.BadRequest("unreadable content type %q", contentType)
	}

	switch mediaType {
	case "text/csv", "application/csv":
		return voterfile.ParseCSV(data, encodingName)
	case "text/xml", "application/xml":
		return voterfile.ParseXML(data)
	default:
		return nil, apperrors.BadRequest("unsupported voter file type %q; upload CSV or XML", mediaType)
	}
}

func (c *VoterController) GetVoters(ctx context.Context, organizationID, electionID string) ([]Voter, error) {
	election, err := c.getElection(ctx, organizationID, electionID)
	if err != nil {
		return nil, err
	}

	return c.voterRepo.GetAllForElection(ctx, election.ID)
}

// AddVoter adds a single voter outside bulk upload. Manually added voters
// are protected from reconciliation deletes.
func (c *VoterController) AddVoter(ctx context.Context, organizationID, electionID string, record voterfile.VoterRecord) (*Voter, error) {
	log := c.log.Function("AddVoter")

	election, err := c.getElection(ctx, organizationID, electionID)
	if err != nil {
		return nil, err
	}

	record.ExternalID = strings.TrimSpace(record.ExternalID)
	record.Email = strings.TrimSpace(record.Email)
	record.Precinct = strings.TrimSpace(record.Precinct)
	record.BallotStyle = strings.TrimSpace(record.BallotStyle)
	record.WasManuallyAdded = true

	// Manual adds get the same value checks a bulk upload would apply.
	if err := voterfile.ValidateRecord(record); err != nil {
		return nil, err
	}
	if err := voterfile.ValidateAgainstDefinition([]voterfile.VoterRecord{record}, &election.Definition); err != nil {
		return nil, err
	}

	voter := &Voter{
		ExternalID:       record.ExternalID,
		Email:            record.Email,
		Precinct:         record.Precinct,
		BallotStyle:      record.BallotStyle,
		WasManuallyAdded: true,
		ElectionID:       election.ID,
	}

	err = c.transactionService.Execute(ctx, func(txCtx context.Context) error {
		existing, err := c.voterRepo.GetByEmail(txCtx, election.ID, record.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperrors.Conflict("voter %s already exists for this election", record.Email)
		}

		return c.voterRepo.Create(txCtx, voter)
	})
	if err != nil {
		return nil, err
	}

	log.Info("Voter manually added", "electionID", election.ID, "voterID", voter.ID)
	return voter, nil
}

// RemoveVoter deletes a single manually added voter. Bulk-imported voters
// can only leave through reconciliation, so deleting one here is a
// conflict.
func (c *VoterController) RemoveVoter(ctx context.Context, organizationID, electionID, voterID string) error {
	log := c.log.Function("RemoveVoter")

	election, err := c.getElection(ctx, organizationID, electionID)
	if err != nil {
		return err
	}

	voter, err := c.voterRepo.GetByID(ctx, election.ID, voterID)
	if err != nil {
		return err
	}
	if voter == nil {
		return apperrors.NotFound("voter %s not found", voterID)
	}
	if !voter.WasManuallyAdded {
		return apperrors.Conflict("voter %s was imported from a voter file and cannot be removed individually", voter.Email)
	}

	if err := c.voterRepo.Delete(ctx, election.ID, voter.ID); err != nil {
		return log.Err("failed to remove voter", err, "voterID", voterID)
	}

	log.Info("Voter manually removed", "electionID", election.ID, "voterID", voterID)
	return nil
}

func (c *VoterController) getElection(ctx context.Context, organizationID, electionID string) (*Election, error) {
	election, err := c.electionRepo.GetForOrganization(ctx, organizationID, electionID)
	if err != nil {
		return nil, err
	}
	if election == nil {
		return nil, apperrors.NotFound("election %s not found", electionID)
	}
	return election, nil
}

func (c *VoterController) publishUploadEvent(election *Election, summary *UploadSummary) {
	event := events.Event{
		ID:             uuid.New().String(),
		Type:           "voter_upload",
		Channel:        events.ChannelVoterUpload,
		OrganizationID: election.OrganizationID,
		ElectionID:     election.ID,
		Data: map[string]any{
			"total":    summary.Total,
			"inserted": summary.Inserted,
			"deleted":  summary.Deleted,
		},
		Timestamp: time.Now().UTC(),
	}

	if err := c.eventBus.Publish(events.ChannelVoterUpload, event); err != nil {
		c.log.Function("publishUploadEvent").
			Er("failed to publish upload event", err, "electionID", election.ID)
	}
}
