package v2controllers

import (
	"net/http"

	"github.com/gestiopro/gestiohub.go/common"
	"github.com/gestiopro/gestiohub.go/db/models"
	"github.com/gestiopro/gestiohub.go/lib/service"
	"github.com/labstack/echo/v4"
)

// SerieController : numbering series and the legacy counters
type SerieController struct {
	svc *service.GestiohubService
}

func NewSerieController(svc *service.GestiohubService) *SerieController {
	return &SerieController{svc: svc}
}

type SeriesResponseBody struct {
	Series []models.SerieDocument `json:"series"`
}

type SetDefaultRequestBody struct {
	Type common.DocumentType `json:"type" validate:"required,oneof=DEVIS FACTURE AVOIR"`
}

type PreviewNumberResponseBody struct {
	Numero string `json:"numero"`
}

func (controller *SerieController) List(c echo.Context) error {
	series, err := controller.svc.ListSeries(c.Request().Context(), entrepriseID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &SeriesResponseBody{Series: series})
}

// Create godoc
// @Summary      Create a numbering serie
// @Description  Flagging the serie as default for a type removes the flag from the previous default
// @Accept       json
// @Produce      json
// @Tags         Serie
// @Param        serie  body      service.SerieInput  true  "Serie"
// @Success      201    {object}  models.SerieDocument
// @Failure      400    {object}  responses.ErrorResponse
// @Router       /v2/series [post]
// @Security     BearerAuth
func (controller *SerieController) Create(c echo.Context) error {
	var body service.SerieInput
	if err := bindAndValidate(c, &body); err != nil {
		return err
	}
	serie, err := controller.svc.CreateSerie(c.Request().Context(), entrepriseID(c), &body)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, serie)
}

func (controller *SerieController) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body service.SerieInput
	if err := bindAndValidate(c, &body); err != nil {
		return err
	}
	serie, err := controller.svc.UpdateSerie(c.Request().Context(), entrepriseID(c), id, &body)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, serie)
}

// Delete godoc
// @Summary      Delete a serie
// @Description  Refused while documents still reference the serie
// @Tags         Serie
// @Param        id  path  int  true  "serie id"
// @Success      204
// @Failure      400  {object}  responses.ErrorResponse
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /v2/series/{id} [delete]
// @Security     BearerAuth
func (controller *SerieController) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := controller.svc.DeleteSerie(c.Request().Context(), entrepriseID(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (controller *SerieController) SetDefault(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body SetDefaultRequestBody
	if err := bindAndValidate(c, &body); err != nil {
		return err
	}
	serie, err := controller.svc.SetDefaultSerie(c.Request().Context(), entrepriseID(c), id, body.Type)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, serie)
}

// Preview godoc
// @Summary      Show the next number of a serie without consuming it
// @Tags         Serie
// @Param        id    path      int     true   "serie id"
// @Param        type  query     string  false  "document type, defaults to the first type the serie applies to"
// @Success      200   {object}  PreviewNumberResponseBody
// @Router       /v2/series/{id}/preview [get]
// @Security     BearerAuth
func (controller *SerieController) Preview(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	numero, err := controller.svc.PreviewNextNumber(c.Request().Context(), entrepriseID(c), id, common.DocumentType(c.QueryParam("type")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &PreviewNumberResponseBody{Numero: numero})
}

func (controller *SerieController) GetLegacyNumbering(c echo.Context) error {
	settings, err := controller.svc.GetOrCreateSettings(c.Request().Context(), entrepriseID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, settings)
}

// UpdateLegacyNumbering godoc
// @Summary      Update the legacy prefixes and counters
// @Description  Used for a document type while no active default serie exists for it
// @Tags         Serie
// @Param        settings  body      service.LegacyNumberingInput  true  "Prefixes and counters, omitted fields are kept"
// @Success      200       {object}  models.EntrepriseSettings
// @Router       /v2/settings/numbering [put]
// @Security     BearerAuth
func (controller *SerieController) UpdateLegacyNumbering(c echo.Context) error {
	var body service.LegacyNumberingInput
	if err := bindAndValidate(c, &body); err != nil {
		return err
	}
	settings, err := controller.svc.UpdateLegacyNumbering(c.Request().Context(), entrepriseID(c), &body)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, settings)
}
