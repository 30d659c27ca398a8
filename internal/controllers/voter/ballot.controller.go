package voterController

import (
	"context"
	"fmt"
	"time"

	"server/internal/apperrors"
	. "server/internal/models"
	"server/internal/utils"
)

// SendFailure identifies a voter whose ballot email the provider rejected.
type SendFailure struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// SendReport summarizes a batch ballot-email run. A run with failures is
// not an error: successful sends stand, and the failures are listed for a
// retry.
type SendReport struct {
	Sent   int           `json:"sent"`
	Failed []SendFailure `json:"failed"`
}

// SendBallotEmails emails every voter in the election a unique tokenized
// ballot link.
//
// Each voter gets a fresh token generated before dispatch, but the token
// and the sent timestamp are persisted only after the provider accepts the
// message — a voter is never marked sent on a failed send. One failure
// doesn't stop the rest of the batch.
func (c *VoterController) SendBallotEmails(ctx context.Context, organizationID, electionID, templateText string) (*SendReport, error) {
	log := c.log.Function("SendBallotEmails")

	election, err := c.getElection(ctx, organizationID, electionID)
	if err != nil {
		return nil, err
	}

	voters, err := c.voterRepo.GetAllForElection(ctx, election.ID)
	if err != nil {
		return nil, err
	}

	report := &SendReport{}
	for _, voter := range voters {
		if err := c.sendBallotEmail(ctx, voter, templateText); err != nil {
			log.Er("ballot email failed", err, "electionID", election.ID, "voterID", voter.ID)
			report.Failed = append(report.Failed, SendFailure{Email: voter.Email, Reason: err.Error()})
			continue
		}
		report.Sent++
	}

	log.Info("Ballot emails dispatched",
		"electionID", election.ID,
		"sent", report.Sent,
		"failed", len(report.Failed))

	return report, nil
}

func (c *VoterController) sendBallotEmail(ctx context.Context, voter Voter, templateText string) error {
	token, err := utils.GenerateBallotToken()
	if err != nil {
		return err
	}

	ballotURL := fmt.Sprintf("%s/ballot/%s", c.httpOrigin, token)
	if err := c.mailer.SendBallotEmail(ctx, voter.Email, templateText, ballotURL); err != nil {
		return err
	}

	sentAt := time.Now().UTC()
	return c.transactionService.Execute(ctx, func(txCtx context.Context) error {
		if err := c.voterRepo.SetBallotEmailSent(txCtx, voter.ID, token, sentAt); err != nil {
			return err
		}
		return c.voterRepo.RecordActivity(txCtx, voter.ID, activityBallotEmailSent, map[string]any{
			"sentAt": sentAt.Format(time.RFC3339),
		})
	})
}

// GetBallot resolves a voter's emailed token. The token is the voter's only
// credential; an unknown token is indistinguishable from a missing voter.
func (c *VoterController) GetBallot(ctx context.Context, token string) (*Voter, *Election, error) {
	voter, err := c.voterRepo.GetByBallotToken(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	if voter == nil {
		return nil, nil, apperrors.NotFound("ballot not found")
	}

	election, err := c.electionRepo.GetByID(ctx, voter.ElectionID)
	if err != nil {
		return nil, nil, err
	}
	if election == nil {
		return nil, nil, apperrors.NotFound("ballot not found")
	}

	if err := c.voterRepo.RecordActivity(ctx, voter.ID, activityBallotViewed, nil); err != nil {
		c.log.Function("GetBallot").Warn("failed to record ballot view", "voterID", voter.ID, "error", err)
	}

	return voter, election, nil
}
