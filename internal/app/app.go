package app

import (
	"server/config"
	"server/internal/database"
	"server/internal/events"
	"server/internal/handlers/middleware"
	"server/internal/logger"
	"server/internal/mailer"
	"server/internal/repositories"
	"server/internal/services"
	"server/internal/websockets"

	authController "server/internal/controllers/auth"
	electionController "server/internal/controllers/election"
	voterController "server/internal/controllers/voter"
)

type App struct {
	Database   database.DB
	Middleware middleware.Middleware
	Websocket  *websockets.Manager
	EventBus   *events.EventBus
	Config     config.Config

	// Services
	TransactionService *services.TransactionService
	SessionService     *services.SessionService

	// Repositories
	OrganizationRepo repositories.OrganizationRepository
	AdminUserRepo    repositories.AdminUserRepository
	ElectionRepo     repositories.ElectionRepository
	VoterRepo        repositories.VoterRepository

	// Controllers
	AuthController     *authController.AuthController
	ElectionController *electionController.ElectionController
	VoterController    *voterController.VoterController
}

func New() (*App, error) {
	log := logger.New("app").Function("New")

	config, err := config.InitConfig()
	if err != nil {
		return &App{}, log.Err("failed to initialize config", err)
	}

	db, err := database.New(config)
	if err != nil {
		return &App{}, log.Err("failed to create database", err)
	}

	eventBus := events.New(db.Cache.Events, config)

	// Initialize services
	transactionService := services.NewTransactionService(db)
	sessionService := services.NewSessionService(db, config)

	// Initialize repositories
	organizationRepo := repositories.NewOrganization(db)
	adminUserRepo := repositories.NewAdminUser(db)
	electionRepo := repositories.NewElection(db)
	voterRepo := repositories.NewVoter(db)

	ballotMailer, err := newMailer(config)
	if err != nil {
		return &App{}, log.Err("failed to create mailer", err)
	}

	uploadLock := database.NewUploadLock(db.Cache.General)

	// Initialize controllers with repositories and services
	authController := authController.New(adminUserRepo, sessionService, config)
	electionController := electionController.New(electionRepo)
	voterController := voterController.New(
		electionRepo,
		voterRepo,
		transactionService,
		uploadLock,
		eventBus,
		ballotMailer,
		config.HTTPOrigin,
	)

	middleware := middleware.New(authController, config)

	websocket, err := websockets.New(db, eventBus, config)
	if err != nil {
		return &App{}, log.Err("failed to create websocket manager", err)
	}

	app := &App{
		Database:           db,
		Config:             config,
		Middleware:         middleware,
		TransactionService: transactionService,
		SessionService:     sessionService,
		OrganizationRepo:   organizationRepo,
		AdminUserRepo:      adminUserRepo,
		ElectionRepo:       electionRepo,
		VoterRepo:          voterRepo,
		AuthController:     authController,
		ElectionController: electionController,
		VoterController:    voterController,
		Websocket:          websocket,
		EventBus:           eventBus,
	}

	if err := app.validate(); err != nil {
		return &App{}, log.Err("failed to validate app", err)
	}

	return app, nil
}

// newMailer picks the SMTP mailer when the config names a mail host, and
// a logging no-op otherwise so development runs without a mail server.
func newMailer(config config.Config) (mailer.Mailer, error) {
	if config.SMTPHost == "" {
		return mailer.NewNoop(), nil
	}
	return mailer.NewSMTP(config)
}

func (a *App) validate() error {
	log := logger.New("app").Function("validate")
	if a.Database.SQL == nil {
		return log.ErrMsg("database is nil")
	}

	if a.Config == (config.Config{}) {
		return log.ErrMsg("config is nil")
	}

	nilChecks := []any{
		a.Websocket,
		a.EventBus,
		a.TransactionService,
		a.SessionService,
		a.AuthController,
		a.ElectionController,
		a.VoterController,
		a.OrganizationRepo,
		a.AdminUserRepo,
		a.ElectionRepo,
		a.VoterRepo,
	}

	for _, check := range nilChecks {
		if check == nil {
			return log.ErrMsg("nil check failed")
		}
	}

	return nil
}

func (a *App) Close() (err error) {
	if a.EventBus != nil {
		if closeErr := a.EventBus.Close(); closeErr != nil {
			err = closeErr
		}
	}

	if dbErr := a.Database.Close(); dbErr != nil {
		err = dbErr
	}

	return err
}
