package v2controllers

import (
	"net/http"

	"github.com/gestiopro/gestiohub.go/lib/service"
	"github.com/labstack/echo/v4"
)

type HealthController struct {
	svc *service.GestiohubService
}

func NewHealthController(svc *service.GestiohubService) *HealthController {
	return &HealthController{svc: svc}
}

type HealthResponse struct {
	Result string `json:"result"`
}

// Check godoc
// @Summary      Check system health
// @Description  Pings the database and reports OK when it answers
// @Produce      json
// @Tags         Health
// @Success      200  {object}  HealthResponse
// @Failure      503  {object}  HealthResponse
// @Router       /health [get]
func (controller *HealthController) Check(c echo.Context) error {
	if err := controller.svc.DB.PingContext(c.Request().Context()); err != nil {
		c.Logger().Errorf("Health check failed: %v", err)
		return c.JSON(http.StatusServiceUnavailable, &HealthResponse{Result: "DOWN"})
	}
	return c.JSON(http.StatusOK, &HealthResponse{
		Result: "OK",
	})
}
