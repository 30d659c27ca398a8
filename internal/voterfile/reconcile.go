package voterfile

import "server/internal/models"

// Plan is the reconciliation diff between an uploaded voter roll and the
// stored roll for an election.
type Plan struct {
	ToInsert       []VoterRecord
	ToDeleteEmails []string
}

// Reconcile computes the insert and delete sets for an upload.
//
// Records whose email is not yet stored are inserted. Stored voters absent
// from the upload are deleted, except manually added voters, which bulk
// reconciliation never removes. Voters present on both sides are left
// untouched, so re-uploading the same roll is a no-op. Emails are compared
// as exact strings.
//
// Reconcile is pure; the caller applies both sets in one transaction, under
// the election's upload lock.
func Reconcile(incoming []VoterRecord, existing []models.Voter) Plan {
	existingEmails := make(map[string]bool, len(existing))
	for _, voter := range existing {
		existingEmails[voter.Email] = true
	}

	incomingEmails := make(map[string]bool, len(incoming))
	for _, record := range incoming {
		incomingEmails[record.Email] = true
	}

	var plan Plan
	for _, record := range incoming {
		if !existingEmails[record.Email] {
			record.WasManuallyAdded = false
			plan.ToInsert = append(plan.ToInsert, record)
		}
	}

	for _, voter := range existing {
		if !voter.WasManuallyAdded && !incomingEmails[voter.Email] {
			plan.ToDeleteEmails = append(plan.ToDeleteEmails, voter.Email)
		}
	}

	return plan
}

// IsNoop reports whether applying the plan would change nothing.
func (p Plan) IsNoop() bool {
	return len(p.ToInsert) == 0 && len(p.ToDeleteEmails) == 0
}
