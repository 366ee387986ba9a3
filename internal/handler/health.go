package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Health is used by load balancers to check the process is up.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status":    http.StatusOK,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}
