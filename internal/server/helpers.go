package server

import (
	"inkwell/internal/auth"
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

// parseID extracts a route parameter as a positive uint.
func parseID(c *fiber.Ctx, param, label string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		return 0, models.NewValidationError("Invalid " + label)
	}
	return uint(id), nil
}

// Pagination holds parsed page/limit query parameters. Bounds are applied
// by PostService.
type Pagination struct {
	Page  int
	Limit int
}

// parsePagination reads page and limit; unparsable values fall back to the defaults.
func parsePagination(c *fiber.Ctx, defaultPage, defaultLimit int) Pagination {
	return Pagination{
		Page:  c.QueryInt("page", defaultPage),
		Limit: c.QueryInt("limit", defaultLimit),
	}
}

// sessionFrom returns the session AuthRequired attached, or nil.
func sessionFrom(c *fiber.Ctx) *auth.Session {
	s, _ := auth.SessionFromContext(c.UserContext())
	return s
}
