package http

import (
	"strconv"

	"handyman_server/core/domain"
	in "handyman_server/core/port/in"
	"handyman_server/pkg/apperr"
	"handyman_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// EmailHandler handles HTTP requests for the email inbox
type EmailHandler struct {
	service in.InboxService
}

// NewEmailHandler creates a new EmailHandler
func NewEmailHandler(service in.InboxService) *EmailHandler {
	return &EmailHandler{service: service}
}

// Register registers email routes
func (h *EmailHandler) Register(router fiber.Router) {
	emails := router.Group("/emails")

	emails.Get("/", h.List)
	emails.Post("/", h.Ingest)
	emails.Get("/:id", h.Get)
}

// List lists emails with filters
// @Summary List emails
// @Tags Emails
// @Produce json
// @Param category query string false "Filter by category"
// @Param processed query bool false "Filter by processed flag"
// @Param responded query bool false "Filter by responded flag"
// @Param search query string false "Search subject and sender"
// @Param limit query int false "Limit (default 50)"
// @Param offset query int false "Offset"
// @Success 200 {array} domain.Email
// @Router /api/v1/emails [get]
func (h *EmailHandler) List(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return apperr.Unauthorized("authentication required")
	}

	page := GetPaginationParams(c, 50)
	filter := &domain.EmailFilter{
		UserID:    userID,
		Processed: QueryBool(c, "processed"),
		Responded: QueryBool(c, "responded"),
		Search:    QueryString(c, "search"),
		Limit:     page.Limit,
		Offset:    page.Offset,
	}

	if category := c.Query("category"); category != "" {
		cat := domain.ParseEmailCategory(category)
		filter.Category = &cat
	}

	emails, total, err := h.service.ListEmails(c.Context(), filter)
	if err != nil {
		return err
	}

	return response.OKWithMeta(c, emails, &response.Meta{
		Total:    total,
		PageSize: page.Limit,
		HasMore:  page.Offset+len(emails) < total,
	})
}

// Get retrieves an email by ID
// @Summary Get an email
// @Tags Emails
// @Produce json
// @Param id path int true "Email ID"
// @Success 200 {object} domain.Email
// @Router /api/v1/emails/{id} [get]
func (h *EmailHandler) Get(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return apperr.Unauthorized("authentication required")
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return apperr.BadRequest("invalid email ID")
	}

	email, err := h.service.GetEmail(c.Context(), userID, id)
	if err != nil {
		return err
	}

	return response.OK(c, email)
}

// Ingest registers a received email, optionally queueing automation
// @Summary Ingest an email
// @Tags Emails
// @Accept json
// @Produce json
// @Param request body in.IngestEmailRequest true "Email data"
// @Success 201 {object} domain.Email
// @Router /api/v1/emails [post]
func (h *EmailHandler) Ingest(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return apperr.Unauthorized("authentication required")
	}

	var req in.IngestEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}

	email, err := h.service.IngestEmail(c.Context(), userID, &req)
	if err != nil {
		return err
	}

	return response.Created(c, email)
}
