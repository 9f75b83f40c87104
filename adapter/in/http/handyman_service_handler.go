package http

import (
	"strconv"

	in "handyman_server/core/port/in"
	"handyman_server/pkg/apperr"
	"handyman_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ServiceHandler handles HTTP requests for the service catalog
type ServiceHandler struct {
	service in.CatalogService
}

// NewServiceHandler creates a new ServiceHandler
func NewServiceHandler(service in.CatalogService) *ServiceHandler {
	return &ServiceHandler{service: service}
}

// Register registers catalog routes
func (h *ServiceHandler) Register(router fiber.Router) {
	services := router.Group("/services")

	services.Get("/", h.List)
	services.Post("/", h.Create)
	services.Get("/:id", h.Get)
	services.Put("/:id", h.Update)
	services.Delete("/:id", h.Delete)
}

// List lists catalog services
// @Summary List catalog services
// @Tags Services
// @Produce json
// @Param active query bool false "Only active services"
// @Success 200 {array} domain.Service
// @Router /api/v1/services [get]
func (h *ServiceHandler) List(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return apperr.Unauthorized("authentication required")
	}

	activeOnly := c.QueryBool("active", false)

	services, err := h.service.ListServices(c.Context(), userID, activeOnly)
	if err != nil {
		return err
	}

	return response.OKWithMeta(c, services, &response.Meta{Total: len(services)})
}

// Create creates a catalog service
// @Summary Create a catalog service
// @Tags Services
// @Accept json
// @Produce json
// @Param request body in.CreateServiceRequest true "Service data"
// @Success 201 {object} domain.Service
// @Router /api/v1/services [post]
func (h *ServiceHandler) Create(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return apperr.Unauthorized("authentication required")
	}

	var req in.CreateServiceRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}

	svc, err := h.service.CreateService(c.Context(), userID, &req)
	if err != nil {
		return err
	}

	return response.Created(c, svc)
}

// Get retrieves a catalog service by ID
// @Summary Get a catalog service
// @Tags Services
// @Produce json
// @Param id path int true "Service ID"
// @Success 200 {object} domain.Service
// @Router /api/v1/services/{id} [get]
func (h *ServiceHandler) Get(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return apperr.Unauthorized("authentication required")
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return apperr.BadRequest("invalid service ID")
	}

	svc, err := h.service.GetService(c.Context(), userID, id)
	if err != nil {
		return err
	}

	return response.OK(c, svc)
}

// Update patches a catalog service
// @Summary Update a catalog service
// @Tags Services
// @Accept json
// @Produce json
// @Param id path int true "Service ID"
// @Param request body in.UpdateServiceRequest true "Service patch"
// @Success 200 {object} domain.Service
// @Router /api/v1/services/{id} [put]
func (h *ServiceHandler) Update(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return apperr.Unauthorized("authentication required")
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return apperr.BadRequest("invalid service ID")
	}

	var req in.UpdateServiceRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}

	svc, err := h.service.UpdateService(c.Context(), userID, id, &req)
	if err != nil {
		return err
	}

	return response.OK(c, svc)
}

// Delete removes a catalog service
// @Summary Delete a catalog service
// @Tags Services
// @Param id path int true "Service ID"
// @Success 204
// @Router /api/v1/services/{id} [delete]
func (h *ServiceHandler) Delete(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return apperr.Unauthorized("authentication required")
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return apperr.BadRequest("invalid service ID")
	}

	if err := h.service.DeleteService(c.Context(), userID, id); err != nil {
		return err
	}

	return response.NoContent(c)
}
