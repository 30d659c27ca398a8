package handlers

import (
	"io"
	"mime/multipart"

	"server/internal/app"
	"server/internal/apperrors"
	voterController "server/internal/controllers/voter"
	"server/internal/logger"
	"server/internal/voterfile"

	"github.com/gofiber/fiber/v2"
)

type VoterHandler struct {
	Handler
	controller voterController.VoterController
}

func NewVoterHandler(app app.App, router fiber.Router) *VoterHandler {
	log := logger.New("handlers").File("voter_handler")
	return &VoterHandler{
		controller: *app.VoterController,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *VoterHandler) Register() {
	h.router.Put("/elections/:electionId/voters/file", h.uploadVoterRoll)
	h.router.Get("/elections/:electionId/voters", h.getVoters)
	h.router.Post("/elections/:electionId/voters", h.addVoter)
	h.router.Delete("/elections/:electionId/voters/:voterId", h.removeVoter)
	h.router.Post("/elections/:electionId/voters/emails", h.sendBallotEmails)
}

// uploadVoterRoll replaces the election's voter roll with the uploaded
// file. The file arrives as the multipart field "voters"; its declared
// content type selects the CSV or XML parser, and an optional "encoding"
// field names the text encoding for CSV files.
func (h *VoterHandler) uploadVoterRoll(c *fiber.Ctx) error {
	admin := loggedInAdmin(c)

	fileHeader, err := c.FormFile("voters")
	if err != nil {
		return respondError(c, apperrors.BadRequest("request has no voter file"))
	}

	data, err := readUpload(fileHeader)
	if err != nil {
		return respondError(c, err)
	}

	summary, err := h.controller.UploadVoterRoll(
		c.Context(),
		admin.OrganizationID,
		c.Params("electionId"),
		fileHeader.Header.Get("Content-Type"),
		data,
		c.FormValue("encoding"),
	)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(summary)
}

func (h *VoterHandler) getVoters(c *fiber.Ctx) error {
	admin := loggedInAdmin(c)

	voters, err := h.controller.GetVoters(c.Context(), admin.OrganizationID, c.Params("electionId"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(voters)
}

func (h *VoterHandler) addVoter(c *fiber.Ctx) error {
	admin := loggedInAdmin(c)

	var record voterfile.VoterRecord
	if err := c.BodyParser(&record); err != nil {
		return respondError(c, apperrors.BadRequest("voter is not valid JSON: %v", err))
	}

	voter, err := h.controller.AddVoter(c.Context(), admin.OrganizationID, c.Params("electionId"), record)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(voter)
}

func (h *VoterHandler) removeVoter(c *fiber.Ctx) error {
	admin := loggedInAdmin(c)

	err := h.controller.RemoveVoter(c.Context(), admin.OrganizationID, c.Params("electionId"), c.Params("voterId"))
	if err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *VoterHandler) sendBallotEmails(c *fiber.Ctx) error {
	admin := loggedInAdmin(c)

	var body struct {
		Template string `json:"template"`
	}
	if err := c.BodyParser(&body); err != nil {
		return respondError(c, apperrors.BadRequest("request body is not valid JSON: %v", err))
	}
	if body.Template == "" {
		return respondError(c, apperrors.BadRequest("request has no email template"))
	}

	report, err := h.controller.SendBallotEmails(
		c.Context(), admin.OrganizationID, c.Params("electionId"), body.Template)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(report)
}

func readUpload(fileHeader *multipart.FileHeader) ([]byte, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(file)
}
