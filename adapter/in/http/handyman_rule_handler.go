package http

import (
	"strconv"

	in "handyman_server/core/port/in"
	"handyman_server/pkg/apperr"
	"handyman_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// RuleHandler handles HTTP requests for automation rule management
type RuleHandler struct {
	service in.RuleService
}

// NewRuleHandler creates a new RuleHandler
func NewRuleHandler(service in.RuleService) *RuleHandler {
	return &RuleHandler{service: service}
}

// Register registers rule routes
func (h *RuleHandler) Register(router fiber.Router) {
	rules := router.Group("/rules")

	rules.Get("/", h.List)
	rules.Post("/", h.Create)
	rules.Get("/:id", h.Get)
	rules.Put("/:id", h.Update)
	rules.Delete("/:id", h.Delete)

	rules.Post("/:id/activate", h.Activate)
	rules.Post("/:id/deactivate", h.Deactivate)
}

// List lists automation rules
// @Summary List automation rules
// @Tags Rules
// @Produce json
// @Param active query bool false "Only active rules"
// @Success 200 {array} domain.AutomationRule
// @Router /api/v1/rules [get]
func (h *RuleHandler) List(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return apperr.Unauthorized("authentication required")
	}

	activeOnly := c.QueryBool("active", false)

	rules, err := h.service.ListRules(c.Context(), userID, activeOnly)
	if err != nil {
		return err
	}

	return response.OKWithMeta(c, rules, &response.Meta{Total: len(rules)})
}

// Create creates an automation rule
// @Summary Create an automation rule
// @Tags Rules
// @Accept json
// @Produce json
// @Param request body in.CreateRuleRequest true "Rule data"
// @Success 201 {object} domain.AutomationRule
// @Router /api/v1/rules [post]
func (h *RuleHandler) Create(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return apperr.Unauthorized("authentication required")
	}

	var req in.CreateRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}

	rule, err := h.service.CreateRule(c.Context(), userID, &req)
	if err != nil {
		return err
	}

	return response.Created(c, rule)
}

// Get retrieves a rule by ID
// @Summary Get an automation rule
// @Tags Rules
// @Produce json
// @Param id path int true "Rule ID"
// @Success 200 {object} domain.AutomationRule
// @Router /api/v1/rules/{id} [get]
func (h *RuleHandler) Get(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return apperr.Unauthorized("authentication required")
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return apperr.BadRequest("invalid rule ID")
	}

	rule, err := h.service.GetRule(c.Context(), userID, id)
	if err != nil {
		return err
	}

	return response.OK(c, rule)
}

// Update patches a rule
// @Summary Update an automation rule
// @Tags Rules
// @Accept json
// @Produce json
// @Param id path int true "Rule ID"
// @Param request body in.UpdateRuleRequest true "Rule patch"
// @Success 200 {object} domain.AutomationRule
// @Router /api/v1/rules/{id} [put]
func (h *RuleHandler) Update(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return apperr.Unauthorized("authentication required")
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return apperr.BadRequest("invalid rule ID")
	}

	var req in.UpdateRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}

	rule, err := h.service.UpdateRule(c.Context(), userID, id, &req)
	if err != nil {
		return err
	}

	return response.OK(c, rule)
}

// Delete deletes a rule
// @Summary Delete an automation rule
// @Tags Rules
// @Param id path int true "Rule ID"
// @Success 204
// @Router /api/v1/rules/{id} [delete]
func (h *RuleHandler) Delete(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return apperr.Unauthorized("authentication required")
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return apperr.BadRequest("invalid rule ID")
	}

	if err := h.service.DeleteRule(c.Context(), userID, id); err != nil {
		return err
	}

	return response.NoContent(c)
}

// Activate enables a rule
// @Summary Activate an automation rule
// @Tags Rules
// @Produce json
// @Param id path int true "Rule ID"
// @Success 200 {object} domain.AutomationRule
// @Router /api/v1/rules/{id}/activate [post]
func (h *RuleHandler) Activate(c *fiber.Ctx) error {
	return h.setActive(c, true)
}

// Deactivate disables a rule
// @Summary Deactivate an automation rule
// @Tags Rules
// @Produce json
// @Param id path int true "Rule ID"
// @Success 200 {object} domain.AutomationRule
// @Router /api/v1/rules/{id}/deactivate [post]
func (h *RuleHandler) Deactivate(c *fiber.Ctx) error {
	return h.setActive(c, false)
}

func (h *RuleHandler) setActive(c *fiber.Ctx, active bool) error {
	userID, err := GetUserID(c)
	if err != nil {
		return apperr.Unauthorized("authentication required")
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return apperr.BadRequest("invalid rule ID")
	}

	rule, err := h.service.SetRuleActive(c.Context(), userID, id, active)
	if err != nil {
		return err
	}

	return response.OK(c, rule)
}
