package utils

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

func parsePaginationFor(t *testing.T, query string) PaginationParams {
	t.Helper()

	app := fiber.New()
	var params PaginationParams
	app.Get("/", func(c *fiber.Ctx) error {
		params = ParsePagination(c)
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/"+query, nil)
	if _, err := app.Test(req, int((5 * time.Second).Milliseconds())); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return params
}

func TestParsePaginationDefaults(t *testing.T) {
	params := parsePaginationFor(t, "")
	if params.Page != 1 || params.Limit != 20 || params.Offset != 0 {
		t.Fatalf("unexpected defaults: %+v", params)
	}
}

func TestParsePaginationComputesOffset(t *testing.T) {
	params := parsePaginationFor(t, "?page=3&limit=10")
	if params.Page != 3 || params.Limit != 10 || params.Offset != 20 {
		t.Fatalf("unexpected params: %+v", params)
	}
}

func TestParsePaginationClampsBadInput(t *testing.T) {
	params := parsePaginationFor(t, "?page=-5&limit=9999")
	if params.Page != 1 || params.Limit != 100 {
		t.Fatalf("unexpected clamped params: %+v", params)
	}

	params = parsePaginationFor(t, "?page=abc&limit=xyz")
	if params.Page != 1 || params.Limit != 20 {
		t.Fatalf("unexpected fallback params: %+v", params)
	}
}
