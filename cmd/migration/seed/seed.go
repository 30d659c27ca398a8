package seed

import (
	"server/config"
	"server/internal/logger"
	. "server/internal/models"

	"gorm.io/gorm"
)

// Seed loads a development organization with two admins, an election
// with a small precinct map, and a couple of manually added voters.
func Seed(db *gorm.DB, config config.Config, log logger.Logger) error {
	log = log.Function("seed")
	log.Info("Seeding development data")

	organization := Organization{Name: "Willow County Elections"}
	var existingOrg Organization
	if err := db.First(&existingOrg, "name = ?", organization.Name).Error; err == nil {
		log.Info("Development data already seeded", "organization", existingOrg.Name)
		return nil
	}
	if err := db.Create(&organization).Error; err != nil {
		return log.Err("failed to seed organization", err)
	}

	admins := []AdminUser{
		{
			Email:          "clerk@willow.example.com",
			OrganizationID: organization.ID,
		},
		{
			Email:          "deputy.clerk@willow.example.com",
			OrganizationID: organization.ID,
		},
	}
	for _, admin := range admins {
		log.Info("Seeding admin user", "email", admin.Email)
		if err := db.Create(&admin).Error; err != nil {
			log.Er("failed to seed admin user", err, "email", admin.Email)
		}
	}

	election := Election{
		OrganizationID: organization.ID,
		Definition: ElectionDefinition{
			Precincts: []Precinct{{ID: "P1"}, {ID: "P2"}, {ID: "P3"}},
			BallotStyles: []BallotStyle{
				{ID: "BS-General", Precincts: []string{"P1", "P2", "P3"}},
				{ID: "BS-School", Precincts: []string{"P2", "P3"}},
			},
		},
	}
	if err := db.Create(&election).Error; err != nil {
		return log.Err("failed to seed election", err)
	}

	voters := []Voter{
		{
			ExternalID:       "MAN-001",
			Email:            "jo.tester@example.com",
			Precinct:         "P1",
			BallotStyle:      "BS-General",
			WasManuallyAdded: true,
			ElectionID:       election.ID,
		},
		{
			ExternalID:       "MAN-002",
			Email:            "sam.tester@example.com",
			Precinct:         "P2",
			BallotStyle:      "BS-School",
			WasManuallyAdded: true,
			ElectionID:       election.ID,
		},
	}
	for _, voter := range voters {
		log.Info("Seeding voter", "email", voter.Email)
		if err := db.Create(&voter).Error; err != nil {
			log.Er("failed to seed voter", err, "email", voter.Email)
		}
	}

	return nil
}
