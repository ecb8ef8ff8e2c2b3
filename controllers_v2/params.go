package v2controllers

import (
	"net/http"
	"strconv"

	"github.com/gestiopro/gestiohub.go/lib/responses"
	"github.com/labstack/echo/v4"
)

var errBadArguments = echo.NewHTTPError(http.StatusBadRequest, responses.BadArgumentsError)

func entrepriseID(c echo.Context) int64 {
	return c.Get("EntrepriseID").(int64)
}

// pathID reads the :id route parameter.
func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.Logger().Debugf("Invalid id parameter %q", c.Param("id"))
		return 0, errBadArguments
	}
	return id, nil
}

func bindAndValidate(c echo.Context, body interface{}) error {
	if err := c.Bind(body); err != nil {
		c.Logger().Errorf("Failed to load request body: %v", err)
		return errBadArguments
	}
	if err := c.Validate(body); err != nil {
		c.Logger().Errorf("Invalid request body: %v", err)
		return errBadArguments
	}
	return nil
}
