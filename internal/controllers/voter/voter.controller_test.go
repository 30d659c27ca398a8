package voterController

import (
	"context"
	"errors"
	"sync"
	"testing"

	"server/config"
	"server/internal/apperrors"
	"server/internal/database"
	"server/internal/events"
	. "server/internal/models"
	"server/internal/repositories"
	"server/internal/services"
	"server/internal/voterfile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type stubMailer struct {
	mu      sync.Mutex
	sent    []string
	failFor map[string]error
}

func (m *stubMailer) SendBallotEmail(ctx context.Context, recipient, templateText, ballotURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.failFor[recipient]; ok {
		return err
	}
	m.sent = append(m.sent, recipient)
	return nil
}

type testEnv struct {
	controller *VoterController
	voterRepo  repositories.VoterRepository
	mailer     *stubMailer
	election   *Election
	db         database.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gormDB.Exec("PRAGMA foreign_keys = ON").Error)
	require.NoError(t, gormDB.AutoMigrate(
		&Organization{}, &AdminUser{}, &Election{}, &Voter{}, &VoterActivity{}))

	db := database.DB{SQL: gormDB}

	organization := &Organization{Name: "County A"}
	require.NoError(t, db.SQL.Create(organization).Error)

	election := &Election{
		OrganizationID: organization.ID,
		Definition: ElectionDefinition{
			Precincts: []Precinct{{ID: "P1"}, {ID: "P2"}},
			BallotStyles: []BallotStyle{
				{ID: "BS1", Precincts: []string{"P1", "P2"}},
				{ID: "BS2", Precincts: []string{"P2"}},
			},
		},
	}
	require.NoError(t, db.SQL.Create(election).Error)

	voterRepo := repositories.NewVoter(db)
	ballotMailer := &stubMailer{failFor: map[string]error{}}

	controller := New(
		repositories.NewElection(db),
		voterRepo,
		services.NewTransactionService(db),
		database.NewUploadLock(nil),
		events.New(nil, config.Config{}),
		ballotMailer,
		"https://vote.example.com",
	)

	return &testEnv{
		controller: controller,
		voterRepo:  voterRepo,
		mailer:     ballotMailer,
		election:   election,
		db:         db,
	}
}

func (e *testEnv) emails(t *testing.T) []string {
	t.Helper()

	voters, err := e.voterRepo.GetAllForElection(context.Background(), e.election.ID)
	require.NoError(t, err)

	emails := make([]string, 0, len(voters))
	for _, voter := range voters {
		emails = append(emails, voter.Email)
	}
	return emails
}

const csvRoll = "External ID,Email,Precinct,Ballot Style\n" +
	"V-1,a@example.com,P1,BS1\n" +
	"V-2,b@example.com,P2,BS2\n"

func TestUploadVoterRoll_InsertsNewRoll(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	summary, err := env.controller.UploadVoterRoll(
		ctx, env.election.OrganizationID, env.election.ID, "text/csv", []byte(csvRoll), "")
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Inserted)
	assert.Equal(t, 0, summary.Deleted)
	assert.ElementsMatch(t, []string{"a@example.com", "b@example.com"}, env.emails(t))
}

func TestUploadVoterRoll_IsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.controller.UploadVoterRoll(
		ctx, env.election.OrganizationID, env.election.ID, "text/csv", []byte(csvRoll), "")
	require.NoError(t, err)

	summary, err := env.controller.UploadVoterRoll(
		ctx, env.election.OrganizationID, env.election.ID, "text/csv", []byte(csvRoll), "")
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Inserted)
	assert.Equal(t, 0, summary.Deleted)
	assert.Len(t, env.emails(t), 2)
}

func TestUploadVoterRoll_ReconcilesAgainstStoredRoll(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.controller.UploadVoterRoll(
		ctx, env.election.OrganizationID, env.election.ID, "text/csv", []byte(csvRoll), "")
	require.NoError(t, err)

	// b@ disappears from the new file, c@ is new.
	updated := "External ID,Email,Precinct,Ballot Style\n" +
		"V-1,a@example.com,P1,BS1\n" +
		"V-3,c@example.com,P2,BS2\n"
	summary, err := env.controller.UploadVoterRoll(
		ctx, env.election.OrganizationID, env.election.ID, "text/csv", []byte(updated), "")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Inserted)
	assert.Equal(t, 1, summary.Deleted)
	assert.ElementsMatch(t, []string{"a@example.com", "c@example.com"}, env.emails(t))
}

func TestUploadVoterRoll_NeverDeletesManualVoters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.controller.AddVoter(ctx, env.election.OrganizationID, env.election.ID,
		voterfile.VoterRecord{ExternalID: "MAN-1", Email: "manual@example.com", Precinct: "P1", BallotStyle: "BS1"})
	require.NoError(t, err)

	summary, err := env.controller.UploadVoterRoll(
		ctx, env.election.OrganizationID, env.election.ID, "text/csv", []byte(csvRoll), "")
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Deleted)
	assert.ElementsMatch(t,
		[]string{"manual@example.com", "a@example.com", "b@example.com"}, env.emails(t))
}

func TestUploadVoterRoll_BatchErrorLeavesRollUntouched(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.controller.UploadVoterRoll(
		ctx, env.election.OrganizationID, env.election.ID, "text/csv", []byte(csvRoll), "")
	require.NoError(t, err)

	tests := []struct {
		name    string
		body    string
		matches func(error) bool
	}{
		{
			name: "unknown precinct",
			body: "External ID,Email,Precinct,Ballot Style\nV-9,z@example.com,P9,BS1\n",
			matches: func(err error) bool {
				var target *voterfile.ValidationError
				return errors.As(err, &target)
			},
		},
		{
			name: "duplicate emails",
			body: "External ID,Email,Precinct,Ballot Style\n" +
				"V-9,z@example.com,P1,BS1\nV-10,z@example.com,P1,BS1\n",
			matches: func(err error) bool {
				var target *voterfile.DuplicateEmailError
				return errors.As(err, &target)
			},
		},
		{
			name: "missing column",
			body: "External ID,Email,Precinct\nV-9,z@example.com,P1\n",
			matches: func(err error) bool {
				var target *voterfile.SchemaError
				return errors.As(err, &target)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.controller.UploadVoterRoll(
				ctx, env.election.OrganizationID, env.election.ID, "text/csv", []byte(tt.body), "")
			require.Error(t, err)
			assert.True(t, tt.matches(err))

			// The previously uploaded roll is untouched.
			assert.ElementsMatch(t, []string{"a@example.com", "b@example.com"}, env.emails(t))
		})
	}
}

func TestUploadVoterRoll_XML(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	body := `<VoterList xmlns="urn:example:voters">
  <Voter>
    <VoterIdentification Id="V-1"/>
    <Contact><AddressLine type="email">a@example.com</AddressLine></Contact>
    <BallotFormIdentifier>P1</BallotFormIdentifier>
    <PollingPlaceIdentifier IdNumber="BS1"/>
  </Voter>
  <Voter>
    <VoterIdentification Id="V-2"/>
    <Contact><AddressLine type="email">b@example.com</AddressLine></Contact>
    <BallotFormIdentifier>P2</BallotFormIdentifier>
    <PollingPlaceIdentifier IdNumber="BS2"/>
  </Voter>
</VoterList>`

	summary, err := env.controller.UploadVoterRoll(
		ctx, env.election.OrganizationID, env.election.ID, "application/xml", []byte(body), "")
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Inserted)
	assert.ElementsMatch(t, []string{"a@example.com", "b@example.com"}, env.emails(t))
}

func TestUploadVoterRoll_UnsupportedContentType(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.controller.UploadVoterRoll(
		context.Background(), env.election.OrganizationID, env.election.ID,
		"application/pdf", []byte("%PDF"), "")
	assert.True(t, apperrors.IsBadRequest(err))
}

func TestUploadVoterRoll_CrossTenantLooksMissing(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.controller.UploadVoterRoll(
		context.Background(), "some-other-organization", env.election.ID,
		"text/csv", []byte(csvRoll), "")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAddVoter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	voter, err := env.controller.AddVoter(ctx, env.election.OrganizationID, env.election.ID,
		voterfile.VoterRecord{ExternalID: "MAN-1", Email: "manual@example.com", Precinct: "P1", BallotStyle: "BS1"})
	require.NoError(t, err)
	assert.True(t, voter.WasManuallyAdded)

	// Same email again is a conflict.
	_, err = env.controller.AddVoter(ctx, env.election.OrganizationID, env.election.ID,
		voterfile.VoterRecord{ExternalID: "MAN-2", Email: "manual@example.com", Precinct: "P1", BallotStyle: "BS1"})
	assert.True(t, apperrors.IsConflict(err))

	// A record that fails the definition check is rejected up front.
	_, err = env.controller.AddVoter(ctx, env.election.OrganizationID, env.election.ID,
		voterfile.VoterRecord{ExternalID: "MAN-3", Email: "bad@example.com", Precinct: "P1", BallotStyle: "BS2"})
	var validationErr *voterfile.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestAddVoter_RejectsInvalidRecords(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		record voterfile.VoterRecord
	}{
		{
			name:   "invalid email",
			record: voterfile.VoterRecord{ExternalID: "MAN-1", Email: "not an email", Precinct: "P1", BallotStyle: "BS1"},
		},
		{
			name:   "empty email and external id",
			record: voterfile.VoterRecord{Precinct: "P1", BallotStyle: "BS1"},
		},
		{
			name:   "whitespace-only email",
			record: voterfile.VoterRecord{ExternalID: "MAN-1", Email: "   ", Precinct: "P1", BallotStyle: "BS1"},
		},
		{
			name:   "empty precinct and ballot style",
			record: voterfile.VoterRecord{ExternalID: "MAN-1", Email: "a@example.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.controller.AddVoter(ctx, env.election.OrganizationID, env.election.ID, tt.record)

			var validationErr *voterfile.ValidationError
			require.ErrorAs(t, err, &validationErr)

			// Nothing was persisted.
			assert.Empty(t, env.emails(t))
		})
	}
}

func TestAddVoter_TrimsFields(t *testing.T) {
	env := newTestEnv(t)

	voter, err := env.controller.AddVoter(context.Background(), env.election.OrganizationID, env.election.ID,
		voterfile.VoterRecord{ExternalID: " MAN-1 ", Email: " a@example.com ", Precinct: " P1 ", BallotStyle: " BS1 "})
	require.NoError(t, err)

	assert.Equal(t, "MAN-1", voter.ExternalID)
	assert.Equal(t, "a@example.com", voter.Email)
	assert.Equal(t, "P1", voter.Precinct)
	assert.Equal(t, "BS1", voter.BallotStyle)
}

func TestRemoveVoter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.controller.UploadVoterRoll(
		ctx, env.election.OrganizationID, env.election.ID, "text/csv", []byte(csvRoll), "")
	require.NoError(t, err)

	manual, err := env.controller.AddVoter(ctx, env.election.OrganizationID, env.election.ID,
		voterfile.VoterRecord{ExternalID: "MAN-1", Email: "manual@example.com", Precinct: "P1", BallotStyle: "BS1"})
	require.NoError(t, err)

	voters, err := env.controller.GetVoters(ctx, env.election.OrganizationID, env.election.ID)
	require.NoError(t, err)

	var imported Voter
	for _, voter := range voters {
		if !voter.WasManuallyAdded {
			imported = voter
			break
		}
	}
	require.NotEmpty(t, imported.ID)

	// Imported voters only leave through reconciliation.
	err = env.controller.RemoveVoter(ctx, env.election.OrganizationID, env.election.ID, imported.ID)
	assert.True(t, apperrors.IsConflict(err))

	require.NoError(t,
		env.controller.RemoveVoter(ctx, env.election.OrganizationID, env.election.ID, manual.ID))

	err = env.controller.RemoveVoter(ctx, env.election.OrganizationID, env.election.ID, manual.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSendBallotEmails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.controller.UploadVoterRoll(
		ctx, env.election.OrganizationID, env.election.ID, "text/csv", []byte(csvRoll), "")
	require.NoError(t, err)

	report, err := env.controller.SendBallotEmails(
		ctx, env.election.OrganizationID, env.election.ID, "Vote here: {{ballot_url}}")
	require.NoError(t, err)

	assert.Equal(t, 2, report.Sent)
	assert.Empty(t, report.Failed)
	assert.ElementsMatch(t, []string{"a@example.com", "b@example.com"}, env.mailer.sent)

	voters, err := env.voterRepo.GetAllForElection(ctx, env.election.ID)
	require.NoError(t, err)
	for _, voter := range voters {
		assert.NotNil(t, voter.BallotURLToken)
		assert.NotNil(t, voter.BallotEmailLastSentAt)
	}
}

func TestSendBallotEmails_PartialFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.controller.UploadVoterRoll(
		ctx, env.election.OrganizationID, env.election.ID, "text/csv", []byte(csvRoll), "")
	require.NoError(t, err)

	env.mailer.failFor["a@example.com"] = errors.New("mailbox unavailable")

	report, err := env.controller.SendBallotEmails(
		ctx, env.election.OrganizationID, env.election.ID, "Vote here: {{ballot_url}}")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Sent)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "a@example.com", report.Failed[0].Email)
	assert.Contains(t, report.Failed[0].Reason, "mailbox unavailable")

	// The failed voter was never marked sent; the successful one was.
	voters, err := env.voterRepo.GetAllForElection(ctx, env.election.ID)
	require.NoError(t, err)
	for _, voter := range voters {
		if voter.Email == "a@example.com" {
			assert.Nil(t, voter.BallotURLToken)
			assert.Nil(t, voter.BallotEmailLastSentAt)
		} else {
			assert.NotNil(t, voter.BallotURLToken)
		}
	}
}

func TestGetBallot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.controller.UploadVoterRoll(
		ctx, env.election.OrganizationID, env.election.ID, "text/csv", []byte(csvRoll), "")
	require.NoError(t, err)

	_, _, err = env.controller.GetBallot(ctx, "unknown-token")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = env.controller.SendBallotEmails(
		ctx, env.election.OrganizationID, env.election.ID, "Vote here: {{ballot_url}}")
	require.NoError(t, err)

	voters, err := env.voterRepo.GetAllForElection(ctx, env.election.ID)
	require.NoError(t, err)
	require.NotEmpty(t, voters)
	require.NotNil(t, voters[0].BallotURLToken)

	voter, election, err := env.controller.GetBallot(ctx, *voters[0].BallotURLToken)
	require.NoError(t, err)
	assert.Equal(t, voters[0].ID, voter.ID)
	assert.Equal(t, env.election.ID, election.ID)

	// The view is recorded against the voter.
	var activities []VoterActivity
	require.NoError(t, env.db.SQL.
		Where("voter_id = ? AND activity_name = ?", voter.ID, "ballot_viewed").
		Find(&activities).Error)
	assert.Len(t, activities, 1)
}
