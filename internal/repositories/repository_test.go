package repositories

import (
	"context"
	"testing"
	"time"

	"server/internal/apperrors"
	"server/internal/database"
	. "server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) database.DB {
	t.Helper()

	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gormDB.Exec("PRAGMA foreign_keys = ON").Error)
	require.NoError(t, gormDB.AutoMigrate(
		&Organization{}, &AdminUser{}, &Election{}, &Voter{}, &VoterActivity{}))

	return database.DB{SQL: gormDB}
}

func seedElection(t *testing.T, db database.DB, organizationName string) *Election {
	t.Helper()

	organization := &Organization{Name: organizationName}
	require.NoError(t, db.SQL.Create(organization).Error)

	election := &Election{
		OrganizationID: organization.ID,
		Definition: ElectionDefinition{
			Precincts: []Precinct{{ID: "P1"}, {ID: "P2"}},
			BallotStyles: []BallotStyle{
				{ID: "BS1", Precincts: []string{"P1", "P2"}},
			},
		},
	}
	require.NoError(t, db.SQL.Create(election).Error)

	return election
}

func TestElectionRepository_GetForOrganization(t *testing.T) {
	db := newTestDB(t)
	repo := NewElection(db)
	ctx := context.Background()

	election := seedElection(t, db, "County A")
	other := seedElection(t, db, "County B")

	found, err := repo.GetForOrganization(ctx, election.OrganizationID, election.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, election.ID, found.ID)
	assert.True(t, found.Definition.HasPrecinct("P1"))

	// Another organization's election looks exactly like a missing one.
	crossTenant, err := repo.GetForOrganization(ctx, election.OrganizationID, other.ID)
	require.NoError(t, err)
	assert.Nil(t, crossTenant)

	missing, err := repo.GetForOrganization(ctx, election.OrganizationID, "no-such-id")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestElectionRepository_DeleteCascadesToVoters(t *testing.T) {
	db := newTestDB(t)
	electionRepo := NewElection(db)
	voterRepo := NewVoter(db)
	ctx := context.Background()

	election := seedElection(t, db, "County A")
	require.NoError(t, voterRepo.Create(ctx, &Voter{
		ExternalID:  "V-1",
		Email:       "a@example.com",
		Precinct:    "P1",
		BallotStyle: "BS1",
		ElectionID:  election.ID,
	}))

	require.NoError(t, electionRepo.Delete(ctx, election.OrganizationID, election.ID))

	var count int64
	require.NoError(t, db.SQL.Model(&Voter{}).Where("election_id = ?", election.ID).Count(&count).Error)
	assert.Zero(t, count)

	// Deleting again, as after losing a delete race, is a not-found.
	err := electionRepo.Delete(ctx, election.OrganizationID, election.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestVoterRepository_CreateBatchAndGetAll(t *testing.T) {
	db := newTestDB(t)
	repo := NewVoter(db)
	ctx := context.Background()

	election := seedElection(t, db, "County A")

	voters := []*Voter{
		{ExternalID: "V-1", Email: "a@example.com", Precinct: "P1", BallotStyle: "BS1", ElectionID: election.ID},
		{ExternalID: "V-2", Email: "b@example.com", Precinct: "P2", BallotStyle: "BS1", ElectionID: election.ID},
	}
	require.NoError(t, repo.CreateBatch(ctx, voters))
	require.NoError(t, repo.CreateBatch(ctx, nil))

	all, err := repo.GetAllForElection(ctx, election.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)

	emails := []string{all[0].Email, all[1].Email}
	assert.ElementsMatch(t, []string{"a@example.com", "b@example.com"}, emails)
}

func TestVoterRepository_DuplicateEmailRejectedPerElection(t *testing.T) {
	db := newTestDB(t)
	repo := NewVoter(db)
	ctx := context.Background()

	election := seedElection(t, db, "County A")
	otherElection := seedElection(t, db, "County B")

	require.NoError(t, repo.Create(ctx, &Voter{
		ExternalID: "V-1", Email: "a@example.com", Precinct: "P1", BallotStyle: "BS1", ElectionID: election.ID,
	}))

	err := repo.Create(ctx, &Voter{
		ExternalID: "V-2", Email: "a@example.com", Precinct: "P1", BallotStyle: "BS1", ElectionID: election.ID,
	})
	assert.Error(t, err)

	// The same email is fine in a different election.
	require.NoError(t, repo.Create(ctx, &Voter{
		ExternalID: "V-1", Email: "a@example.com", Precinct: "P1", BallotStyle: "BS1", ElectionID: otherElection.ID,
	}))
}

func TestVoterRepository_GetByEmailIsExactMatch(t *testing.T) {
	db := newTestDB(t)
	repo := NewVoter(db)
	ctx := context.Background()

	election := seedElection(t, db, "County A")
	require.NoError(t, repo.Create(ctx, &Voter{
		ExternalID: "V-1", Email: "Alice@example.com", Precinct: "P1", BallotStyle: "BS1", ElectionID: election.ID,
	}))

	found, err := repo.GetByEmail(ctx, election.ID, "Alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "V-1", found.ExternalID)

	missing, err := repo.GetByEmail(ctx, election.ID, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestVoterRepository_DeleteByEmailsProtectsManualVoters(t *testing.T) {
	db := newTestDB(t)
	repo := NewVoter(db)
	ctx := context.Background()

	election := seedElection(t, db, "County A")
	require.NoError(t, repo.CreateBatch(ctx, []*Voter{
		{ExternalID: "V-1", Email: "imported@example.com", Precinct: "P1", BallotStyle: "BS1", ElectionID: election.ID},
		{ExternalID: "V-2", Email: "manual@example.com", Precinct: "P1", BallotStyle: "BS1", WasManuallyAdded: true, ElectionID: election.ID},
	}))

	err := repo.DeleteByEmails(ctx, election.ID,
		[]string{"imported@example.com", "manual@example.com"}, true)
	require.NoError(t, err)

	remaining, err := repo.GetAllForElection(ctx, election.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "manual@example.com", remaining[0].Email)
	assert.True(t, remaining[0].WasManuallyAdded)
}

func TestVoterRepository_BallotTokenRoundTrip(t *testing.T) {
	db := newTestDB(t)
	repo := NewVoter(db)
	ctx := context.Background()

	election := seedElection(t, db, "County A")
	voter := &Voter{
		ExternalID: "V-1", Email: "a@example.com", Precinct: "P1", BallotStyle: "BS1", ElectionID: election.ID,
	}
	require.NoError(t, repo.Create(ctx, voter))

	// No token has been issued yet.
	none, err := repo.GetByBallotToken(ctx, "unknown-token")
	require.NoError(t, err)
	assert.Nil(t, none)

	empty, err := repo.GetByBallotToken(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, empty)

	sentAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SetBallotEmailSent(ctx, voter.ID, "tok-123", sentAt))

	found, err := repo.GetByBallotToken(ctx, "tok-123")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, voter.ID, found.ID)
	require.NotNil(t, found.BallotEmailLastSentAt)
	assert.WithinDuration(t, sentAt, *found.BallotEmailLastSentAt, time.Second)
}

func TestVoterRepository_RecordActivity(t *testing.T) {
	db := newTestDB(t)
	repo := NewVoter(db)
	ctx := context.Background()

	election := seedElection(t, db, "County A")
	voter := &Voter{
		ExternalID: "V-1", Email: "a@example.com", Precinct: "P1", BallotStyle: "BS1", ElectionID: election.ID,
	}
	require.NoError(t, repo.Create(ctx, voter))

	require.NoError(t, repo.RecordActivity(ctx, voter.ID, "ballot_email_sent", map[string]any{
		"sentAt": "2026-03-01T12:00:00Z",
	}))
	require.NoError(t, repo.RecordActivity(ctx, voter.ID, "ballot_viewed", nil))

	var activities []VoterActivity
	require.NoError(t, db.SQL.Where("voter_id = ?", voter.ID).Find(&activities).Error)
	require.Len(t, activities, 2)

	names := []string{activities[0].ActivityName, activities[1].ActivityName}
	assert.ElementsMatch(t, []string{"ballot_email_sent", "ballot_viewed"}, names)
}

func TestAdminUserRepository_GetByEmail(t *testing.T) {
	db := newTestDB(t)
	repo := NewAdminUser(db)
	ctx := context.Background()

	organization := &Organization{Name: "County A"}
	require.NoError(t, db.SQL.Create(organization).Error)
	require.NoError(t, db.SQL.Create(&AdminUser{
		Email:          "clerk@example.com",
		OrganizationID: organization.ID,
	}).Error)

	admin, err := repo.GetByEmail(ctx, "clerk@example.com")
	require.NoError(t, err)
	require.NotNil(t, admin)
	require.NotNil(t, admin.Organization)
	assert.Equal(t, "County A", admin.Organization.Name)

	unknown, err := repo.GetByEmail(ctx, "stranger@example.com")
	require.NoError(t, err)
	assert.Nil(t, unknown)
}
