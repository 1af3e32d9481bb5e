package handlers

import (
	"strconv"

	"foodlink/internal/adapters/persistence/repositories"
	"foodlink/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// CategoryHandler serves the seeded food category catalog
type CategoryHandler struct {
	categoryRepo repositories.CategoryRepository
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(categoryRepo repositories.CategoryRepository) *CategoryHandler {
	return &CategoryHandler{categoryRepo: categoryRepo}
}

// List lists all categories
// @Summary List categories
// @Tags Categories
// @Produce json
// @Success 200 {object} response.Response
// @Router /categories [get]
func (h *CategoryHandler) List(c *fiber.Ctx) error {
	categories, err := h.categoryRepo.List(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to get categories")
	}
	return response.Success(c, "Categories retrieved successfully", categories)
}

// Get gets a category by ID
// @Summary Get category
// @Tags Categories
// @Produce json
// @Param id path int true "Category ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /categories/{id} [get]
func (h *CategoryHandler) Get(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid category ID")
	}

	category, err := h.categoryRepo.GetByID(c.Context(), uint(id))
	if err != nil {
		if repositories.IsNotFound(err) {
			return response.NotFound(c, "Category not found")
		}
		return response.InternalServerError(c, "Failed to get category")
	}
	return response.Success(c, "Category retrieved successfully", category)
}
