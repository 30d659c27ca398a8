package handlers

import (
	"io"

	"server/internal/app"
	electionController "server/internal/controllers/election"
	"server/internal/logger"

	"github.com/gofiber/fiber/v2"
)

type ElectionHandler struct {
	Handler
	controller electionController.ElectionController
}

func NewElectionHandler(app app.App, router fiber.Router) *ElectionHandler {
	log := logger.New("handlers").File("election_handler")
	return &ElectionHandler{
		controller: *app.ElectionController,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *ElectionHandler) Register() {
	h.router.Post("/elections", h.createElection)
	h.router.Get("/elections", h.getElections)
	h.router.Get("/elections/:electionId", h.getElection)
	h.router.Delete("/elections/:electionId", h.deleteElection)
}

// createElection accepts the definition document either as a multipart
// file named "definition" or as the raw request body.
func (h *ElectionHandler) createElection(c *fiber.Ctx) error {
	admin := loggedInAdmin(c)

	definitionJSON, err := definitionBody(c)
	if err != nil {
		return respondError(c, err)
	}

	election, err := h.controller.CreateElection(c.Context(), admin.OrganizationID, definitionJSON)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(election)
}

func (h *ElectionHandler) getElections(c *fiber.Ctx) error {
	admin := loggedInAdmin(c)

	elections, err := h.controller.GetElections(c.Context(), admin.OrganizationID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(elections)
}

func (h *ElectionHandler) getElection(c *fiber.Ctx) error {
	admin := loggedInAdmin(c)

	election, err := h.controller.GetElection(c.Context(), admin.OrganizationID, c.Params("electionId"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(election)
}

func (h *ElectionHandler) deleteElection(c *fiber.Ctx) error {
	admin := loggedInAdmin(c)

	if err := h.controller.DeleteElection(c.Context(), admin.OrganizationID, c.Params("electionId")); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func definitionBody(c *fiber.Ctx) ([]byte, error) {
	fileHeader, err := c.FormFile("definition")
	if err != nil {
		return c.Body(), nil
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(file)
}
