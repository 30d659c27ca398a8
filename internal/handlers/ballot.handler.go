package handlers

import (
	"server/internal/app"
	voterController "server/internal/controllers/voter"
	"server/internal/logger"

	"github.com/gofiber/fiber/v2"
)

type BallotHandler struct {
	Handler
	controller voterController.VoterController
}

func NewBallotHandler(app app.App, router fiber.Router) *BallotHandler {
	log := logger.New("handlers").File("ballot_handler")
	return &BallotHandler{
		controller: *app.VoterController,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *BallotHandler) Register() {
	h.router.Get("/ballot/:token", h.getBallot)
}

// getBallot resolves the tokenized link from a voter's ballot email. The
// token is the voter's only credential, so the route needs no session.
func (h *BallotHandler) getBallot(c *fiber.Ctx) error {
	voter, election, err := h.controller.GetBallot(c.Context(), c.Params("token"))
	if err != nil {
		return respondError(c, err)
	}

	ballotStyle, _ := election.Definition.GetBallotStyle(voter.BallotStyle)

	return c.JSON(fiber.Map{
		"electionId": election.ID,
		"voter": fiber.Map{
			"email":    voter.Email,
			"precinct": voter.Precinct,
		},
		"ballotStyle": ballotStyle,
		"definition":  election.Definition,
	})
}
