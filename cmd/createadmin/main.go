package main

import (
	"context"
	"flag"
	"os"

	"server/config"
	"server/internal/database"
	"server/internal/logger"
	. "server/internal/models"
	"server/internal/repositories"
)

// Admin accounts can only be created from the command line; there is no
// self-service signup. The named organization is created on first use.
func main() {
	log := logger.New("createadmin").Function("main")

	email := flag.String("email", "", "admin email address, as the identity provider reports it")
	organizationName := flag.String("organization", "", "organization the admin belongs to")
	flag.Parse()

	if *email == "" || *organizationName == "" {
		flag.Usage()
		os.Exit(2)
	}

	config, err := config.InitConfig()
	if err != nil {
		log.Er("failed to initialize config", err)
		os.Exit(1)
	}
	logger.Init(config.Environment)

	db, err := database.New(config)
	if err != nil {
		log.Er("failed to open database", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	organizationRepo := repositories.NewOrganization(db)
	adminUserRepo := repositories.NewAdminUser(db)

	organization, err := organizationRepo.GetByName(ctx, *organizationName)
	if err != nil {
		os.Exit(1)
	}
	if organization == nil {
		organization = &Organization{Name: *organizationName}
		if err := organizationRepo.Create(ctx, organization); err != nil {
			os.Exit(1)
		}
		log.Info("Organization created", "name", organization.Name, "id", organization.ID)
	}

	existing, err := adminUserRepo.GetByEmail(ctx, *email)
	if err != nil {
		os.Exit(1)
	}
	if existing != nil {
		log.Warn("Admin user already exists", "email", *email)
		os.Exit(1)
	}

	admin := &AdminUser{Email: *email, OrganizationID: organization.ID}
	if err := adminUserRepo.Create(ctx, admin); err != nil {
		os.Exit(1)
	}

	log.Info("Admin user created", "email", admin.Email, "organization", organization.Name)
}
