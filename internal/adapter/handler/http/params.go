package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// uuidParam parses a UUID path parameter. On failure it writes the 400
// response itself and returns handled=true.
func uuidParam(c echo.Context, name string) (id uuid.UUID, handled bool, err error) {
	id, parseErr := uuid.Parse(c.Param(name))
	if parseErr != nil {
		return uuid.Nil, true, c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid " + name + ": expected a UUID",
			"code":  "INVALID_" + strings.ToUpper(name),
		})
	}
	return id, false, nil
}

// int64Param parses a numeric path parameter the same way.
func int64Param(c echo.Context, name string) (id int64, handled bool, err error) {
	id, parseErr := strconv.ParseInt(c.Param(name), 10, 64)
	if parseErr != nil {
		return 0, true, c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid " + name + ": expected an integer",
			"code":  "INVALID_" + strings.ToUpper(name),
		})
	}
	return id, false, nil
}

func queryInt(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
