package handlers

import (
	"errors"
	"log"
	"strconv"
	"time"

	"stockvel-tracker/internal/adapters/http/middleware"
	"stockvel-tracker/internal/core/domain"
	"stockvel-tracker/internal/core/services"
	"stockvel-tracker/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

var (
	notFoundErrors = []error{
		domain.ErrMemberNotFound,
		domain.ErrLoanNotFound,
		services.ErrUserNotFound,
		services.ErrNotificationNotFound,
		services.ErrSessionNotFound,
	}
	conflictErrors = []error{
		domain.ErrMemberAlreadyExists,
		domain.ErrInvalidLoanTransition,
		services.ErrAlreadyPaid,
		services.ErrLoanNotRepayable,
		services.ErrUserAlreadyExists,
		services.ErrMemberAlreadyUsed,
		services.ErrEmailAlreadyExists,
	}
	badRequestErrors = []error{
		domain.ErrInvalidInput,
		domain.ErrInvalidPeriod,
		domain.ErrInvalidPrincipal,
		domain.ErrInvalidTerm,
		domain.ErrInvalidLoanStatus,
		domain.ErrOverpayment,
		services.ErrInvalidAmount,
		services.ErrInvalidPaymentMethod,
		services.ErrPeriodNotOpen,
		services.ErrInvalidMemberStatus,
		services.ErrInvalidRole,
		services.ErrWeakPassword,
		services.ErrOldPasswordWrong,
	}
	forbiddenErrors = []error{
		services.ErrNotLoanOwner,
		services.ErrMemberNotActive,
		services.ErrCannotRemoveSelf,
		services.ErrCannotDeleteSelf,
		services.ErrCannotChangeOwnRole,
		services.ErrUserInactive,
	}
)

// serviceError maps a service error to its HTTP status. Unknown errors are
// logged and reported with the fallback message only.
func serviceError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case isAny(err, notFoundErrors):
		return response.NotFound(c, err.Error())
	case isAny(err, conflictErrors):
		return response.Conflict(c, err.Error())
	case isAny(err, badRequestErrors):
		return response.BadRequest(c, err.Error())
	case isAny(err, forbiddenErrors):
		return response.Forbidden(c, err.Error())
	case errors.Is(err, domain.ErrNegativePool):
		return response.UnprocessableEntity(c, err.Error())
	case errors.Is(err, services.ErrAvatarStorageDisabled):
		return response.ServiceUnavailable(c, err.Error())
	}

	log.Printf("❌ %s %s: %v", c.Method(), c.Path(), err)
	return response.InternalServerError(c, fallback)
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// currentUserID returns the signed-in user's ID set by the auth middleware
func currentUserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(middleware.LocalUserID).(uint)
	return id, ok && id != 0
}

// currentMemberID returns the signed-in user's member ID
func currentMemberID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(middleware.LocalMemberID).(uint)
	return id, ok && id != 0
}

// paramID parses a positive numeric path parameter
func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid " + name)
	}
	return uint(id), nil
}

// queryYear reads the year query parameter, defaulting to the current year
func queryYear(c *fiber.Ctx) (int, error) {
	raw := c.Query("year")
	if raw == "" {
		return time.Now().UTC().Year(), nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 2000 || year > 9999 {
		return 0, errors.New("invalid year")
	}
	return year, nil
}

// parseAmount reads an optional money string such as "350.00"
func parseAmount(raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, errors.New("invalid amount")
	}
	return &amount, nil
}

// parseDate reads an optional YYYY-MM-DD date
func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, errors.New("invalid date, expected YYYY-MM-DD")
	}
	return &t, nil
}
