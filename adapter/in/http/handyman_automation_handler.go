package http

import (
	"context"
	"strconv"
	"time"

	"handyman_server/core/domain"
	in "handyman_server/core/port/in"
	"handyman_server/pkg/apperr"
	"handyman_server/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// AutomationHandler handles HTTP requests for the automation pipeline and
// the manager review flow.
type AutomationHandler struct {
	service in.AutomationService
}

// NewAutomationHandler creates a new AutomationHandler
func NewAutomationHandler(service in.AutomationService) *AutomationHandler {
	return &AutomationHandler{service: service}
}

// Register registers automation routes
func (h *AutomationHandler) Register(router fiber.Router) {
	automation := router.Group("/automation")

	automation.Post("/process/:emailId", h.Process)
	automation.Get("/metrics", h.Metrics)

	quotes := automation.Group("/quotes")
	quotes.Get("/", h.ListQuotes)
	quotes.Get("/:id", h.GetQuote)
	quotes.Post("/:id/approve", h.Approve)
	quotes.Post("/:id/reject", h.Reject)
	quotes.Post("/:id/send", h.Send)
}

// Process runs rule matching and quote generation for one email
// @Summary Process an email through the automation pipeline
// @Tags Automation
// @Produce json
// @Param emailId path int true "Email ID"
// @Success 200 {object} domain.PendingQuote
// @Router /api/v1/automation/process/{emailId} [post]
func (h *AutomationHandler) Process(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return apperr.Unauthorized("authentication required")
	}

	emailID, err := strconv.ParseInt(c.Params("emailId"), 10, 64)
	if err != nil {
		return apperr.BadRequest("invalid email ID")
	}

	quote, err := h.service.ProcessEmail(c.Context(), userID, emailID)
	if err != nil {
		return err
	}

	if quote == nil {
		return response.OK(c, fiber.Map{
			"email_id": emailID,
			"matched":  false,
		})
	}

	return response.OK(c, quote)
}

// ListQuotes lists pending quotes with filters
// @Summary List pending quotes
// @Tags Automation
// @Produce json
// @Param status query string false "Filter by status (pending, approved, rejected, sent)"
// @Param rule_id query int false "Filter by rule"
// @Param date_from query string false "Processed from (YYYY-MM-DD)"
// @Param date_to query string false "Processed to (YYYY-MM-DD)"
// @Param limit query int false "Limit (default 50)"
// @Param offset query int false "Offset"
// @Success 200 {array} domain.PendingQuote
// @Router /api/v1/automation/quotes [get]
func (h *AutomationHandler) ListQuotes(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return apperr.Unauthorized("authentication required")
	}

	page := GetPaginationParams(c, 50)
	filter := &domain.PendingQuoteFilter{
		UserID: userID,
		Limit:  page.Limit,
		Offset: page.Offset,
		RuleID: QueryInt64(c, "rule_id"),
	}

	if status := c.Query("status"); status != "" {
		s := domain.QuoteStatus(status)
		switch s {
		case domain.QuotePending, domain.QuoteApproved, domain.QuoteRejected, domain.QuoteSent:
			filter.Status = &s
		default:
			return apperr.BadRequest("invalid status filter")
		}
	}

	if from, err := parseDateQuery(c, "date_from"); err != nil {
		return err
	} else if from != nil {
		filter.DateFrom = from
	}
	if to, err := parseDateQuery(c, "date_to"); err != nil {
		return err
	} else if to != nil {
		// Inclusive end date
		end := to.AddDate(0, 0, 1)
		filter.DateTo = &end
	}

	quotes, total, err := h.service.ListPendingQuotes(c.Context(), filter)
	if err != nil {
		return err
	}

	return response.OKWithMeta(c, quotes, &response.Meta{
		Total:    total,
		PageSize: page.Limit,
		HasMore:  page.Offset+len(quotes) < total,
	})
}

// GetQuote retrieves a pending quote by ID
// @Summary Get a pending quote
// @Tags Automation
// @Produce json
// @Param id path int true "Quote ID"
// @Success 200 {object} domain.PendingQuote
// @Router /api/v1/automation/quotes/{id} [get]
func (h *AutomationHandler) GetQuote(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return apperr.Unauthorized("authentication required")
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return apperr.BadRequest("invalid quote ID")
	}

	quote, err := h.service.GetPendingQuote(c.Context(), userID, id)
	if err != nil {
		return err
	}

	return response.OK(c, quote)
}

type decisionRequest struct {
	Notes string `json:"notes"`
}

// Approve approves a pending quote
// @Summary Approve a pending quote
// @Tags Automation
// @Accept json
// @Produce json
// @Param id path int true "Quote ID"
// @Param request body decisionRequest false "Manager notes"
// @Success 200 {object} domain.PendingQuote
// @Router /api/v1/automation/quotes/{id}/approve [post]
func (h *AutomationHandler) Approve(c *fiber.Ctx) error {
	return h.decide(c, h.service.ApproveQuote)
}

// Reject rejects a pending quote
// @Summary Reject a pending quote
// @Tags Automation
// @Accept json
// @Produce json
// @Param id path int true "Quote ID"
// @Param request body decisionRequest false "Manager notes"
// @Success 200 {object} domain.PendingQuote
// @Router /api/v1/automation/quotes/{id}/reject [post]
func (h *AutomationHandler) Reject(c *fiber.Ctx) error {
	return h.decide(c, h.service.RejectQuote)
}

// Send marks an approved quote as sent to the client
// @Summary Send an approved quote
// @Tags Automation
// @Accept json
// @Produce json
// @Param id path int true "Quote ID"
// @Param request body decisionRequest false "Manager notes"
// @Success 200 {object} domain.PendingQuote
// @Router /api/v1/automation/quotes/{id}/send [post]
func (h *AutomationHandler) Send(c *fiber.Ctx) error {
	return h.decide(c, h.service.SendQuote)
}

func (h *AutomationHandler) decide(
	c *fiber.Ctx,
	action func(ctx context.Context, userID uuid.UUID, quoteID int64, notes string) (*domain.PendingQuote, error),
) error {
	userID, err := GetUserID(c)
	if err != nil {
		return apperr.Unauthorized("authentication required")
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return apperr.BadRequest("invalid quote ID")
	}

	var req decisionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperr.BadRequest("invalid request body")
		}
	}

	quote, err := action(c.Context(), userID, id, req.Notes)
	if err != nil {
		return err
	}

	return response.OK(c, quote)
}

// Metrics returns automation effectiveness metrics
// @Summary Get automation metrics
// @Tags Automation
// @Produce json
// @Param date_from query string false "Window start (YYYY-MM-DD)"
// @Param date_to query string false "Window end (YYYY-MM-DD)"
// @Param period query string false "Bucket period (monthly, daily)"
// @Success 200 {object} domain.AutomationMetrics
// @Router /api/v1/automation/metrics [get]
func (h *AutomationHandler) Metrics(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return apperr.Unauthorized("authentication required")
	}

	req := &in.MetricsRequest{
		DateFrom: c.Query("date_from"),
		DateTo:   c.Query("date_to"),
		Period:   c.Query("period"),
	}

	metrics, err := h.service.GetMetrics(c.Context(), userID, req)
	if err != nil {
		return err
	}

	return response.OK(c, metrics)
}

func parseDateQuery(c *fiber.Ctx, key string) (*time.Time, error) {
	val := c.Query(key)
	if val == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", val)
	if err != nil {
		return nil, apperr.BadRequest("invalid " + key + ", expected YYYY-MM-DD")
	}
	return &t, nil
}
