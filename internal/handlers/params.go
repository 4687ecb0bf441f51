package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/shopspring/decimal"

	"github.com/ashmitsharp/contaspiccioli-api/internal/utils"
)

func paramID(c fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, utils.NewBadRequestError(fmt.Sprintf("invalid %s", name), c.Params(name))
	}
	return id, nil
}

func paramYear(c fiber.Ctx) (int, error) {
	year, err := strconv.Atoi(c.Params("year"))
	if err != nil || year < 2000 || year > 2100 {
		return 0, utils.NewBadRequestError("invalid year", c.Params("year"))
	}
	return year, nil
}

func paramMonth(c fiber.Ctx) (int, error) {
	month, err := strconv.Atoi(c.Params("month"))
	if err != nil || month < 1 || month > 12 {
		return 0, utils.NewBadRequestError("invalid month", c.Params("month"))
	}
	return month, nil
}

// queryInt returns def when the parameter is absent.
func queryInt(c fiber.Ctx, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, utils.NewBadRequestError(fmt.Sprintf("invalid %s", name), raw)
	}
	return v, nil
}

// queryDecimal returns nil when the parameter is absent.
func queryDecimal(c fiber.Ctx, name string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, utils.NewBadRequestError(fmt.Sprintf("invalid %s", name), raw)
	}
	return &v, nil
}

func requireQueryDecimal(c fiber.Ctx, name string) (decimal.Decimal, error) {
	v, err := queryDecimal(c, name)
	if err != nil {
		return decimal.Zero, err
	}
	if v == nil {
		return decimal.Zero, utils.NewBadRequestError(fmt.Sprintf("%s is required", name), nil)
	}
	return *v, nil
}

// parseDate accepts YYYY-MM-DD or RFC 3339.
func parseDate(field, raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, utils.NewBadRequestError(fmt.Sprintf("invalid %s, expected YYYY-MM-DD", field), raw)
}

func parseOptionalDate(field string, raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	t, err := parseDate(field, *raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func bindJSON(c fiber.Ctx, dst any) error {
	if err := c.Bind().JSON(dst); err != nil {
		return utils.NewBadRequestError("invalid request body", err.Error())
	}
	return nil
}

// now is replaced in tests.
var now = time.Now

func currentYear() int {
	return now().Year()
}
