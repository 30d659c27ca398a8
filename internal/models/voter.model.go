package models

import "time"

type Voter struct {
	BaseUUIDModel
	ExternalID  string `gorm:"type:varchar(200);not null;uniqueIndex:idx_voter_election_external_id" json:"externalId"`
	Email       string `gorm:"type:varchar(200);not null;uniqueIndex:idx_voter_election_email"       json:"email"`
	Precinct    string `gorm:"type:varchar(200);not null" json:"precinct"`    // must match Election.Definition
	BallotStyle string `gorm:"type:varchar(200);not null" json:"ballotStyle"` // must match Election.Definition

	WasManuallyAdded bool `gorm:"not null" json:"wasManuallyAdded"`

	ElectionID string `gorm:"type:varchar(64);not null;uniqueIndex:idx_voter_election_external_id;uniqueIndex:idx_voter_election_email" json:"electionId"`

	// Single-use credential for the voter's ballot link. Set only once a
	// ballot email has actually been accepted by the mail provider.
	BallotURLToken        *string    `gorm:"type:varchar(200);uniqueIndex" json:"-"`
	BallotEmailLastSentAt *time.Time `json:"ballotEmailLastSentAt"`

	Activities []VoterActivity `gorm:"foreignKey:VoterID;constraint:OnDelete:CASCADE" json:"activities,omitempty"`
}

type VoterActivity struct {
	BaseUUIDModel
	VoterID      string         `gorm:"type:varchar(64);not null;index"  json:"voterId"`
	ActivityName string         `gorm:"type:varchar(200);not null"       json:"activityName"`
	Info         map[string]any `gorm:"serializer:json"                  json:"info"`
}
