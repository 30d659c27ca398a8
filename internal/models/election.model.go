package models

// Precinct is a voting district a voter belongs to.
type Precinct struct {
	ID string `json:"id"`
}

// BallotStyle names a group of contest options offered to a subset of
// precincts.
type BallotStyle struct {
	ID        string   `json:"id"`
	Precincts []string `json:"precincts"`
}

// ElectionDefinition is the precinct/ballot-style document an election is
// created with. It is immutable once attached to an election; every uploaded
// voter record is checked against it.
type ElectionDefinition struct {
	Precincts    []Precinct    `json:"precincts"`
	BallotStyles []BallotStyle `json:"ballotStyles"`
}

func (d *ElectionDefinition) HasPrecinct(id string) bool {
	for _, precinct := range d.Precincts {
		if precinct.ID == id {
			return true
		}
	}
	return false
}

func (d *ElectionDefinition) GetBallotStyle(id string) (BallotStyle, bool) {
	for _, style := range d.BallotStyles {
		if style.ID == id {
			return style, true
		}
	}
	return BallotStyle{}, false
}

func (s BallotStyle) HasPrecinct(id string) bool {
	for _, precinctID := range s.Precincts {
		if precinctID == id {
			return true
		}
	}
	return false
}

type Election struct {
	BaseUUIDModel
	OrganizationID string             `gorm:"type:varchar(64);not null;index" json:"organizationId"`
	Definition     ElectionDefinition `gorm:"serializer:json"                 json:"definition"`

	Organization *Organization `gorm:"constraint:OnDelete:CASCADE"                         json:"organization,omitempty"`
	Voters       []Voter       `gorm:"foreignKey:ElectionID;constraint:OnDelete:CASCADE"   json:"voters,omitempty"`
}
