package handlers

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockvel-tracker/internal/core/domain"
	"stockvel-tracker/internal/core/services"
)

func TestServiceError_StatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrLoanNotFound, fiber.StatusNotFound},
		{fmt.Errorf("wrapped: %w", domain.ErrMemberNotFound), fiber.StatusNotFound},
		{services.ErrAlreadyPaid, fiber.StatusConflict},
		{domain.ErrInvalidLoanTransition, fiber.StatusConflict},
		{domain.ErrOverpayment, fiber.StatusBadRequest},
		{services.ErrPeriodNotOpen, fiber.StatusBadRequest},
		{services.ErrNotLoanOwner, fiber.StatusForbidden},
		{domain.ErrNegativePool, fiber.StatusUnprocessableEntity},
		{services.ErrAvatarStorageDisabled, fiber.StatusServiceUnavailable},
		{errors.New("db down"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return serviceError(c, tt.err, "fallback") })

			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestParseAmount(t *testing.T) {
	amount, err := parseAmount("")
	require.NoError(t, err)
	assert.Nil(t, amount)

	amount, err = parseAmount("350.50")
	require.NoError(t, err)
	require.NotNil(t, amount)
	assert.Equal(t, "350.50", amount.StringFixed(2))

	_, err = parseAmount("R350")
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2024-06-03")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, 2024, d.Year())

	_, err = parseDate("03/06/2024")
	assert.Error(t, err)
}

func TestQueryYear(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		year, err := queryYear(c)
		if err != nil {
			return c.SendStatus(fiber.StatusBadRequest)
		}
		return c.SendString(fmt.Sprint(year))
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/?year=2024", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/?year=24", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
