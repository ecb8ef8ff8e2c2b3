package v2controllers

import (
	"net/http"

	"github.com/gestiopro/gestiohub.go/common"
	"github.com/gestiopro/gestiohub.go/lib/service"
	"github.com/labstack/echo/v4"
)

// DocumentController : quotes, invoices and credit notes
type DocumentController struct {
	svc *service.GestiohubService
}

func NewDocumentController(svc *service.GestiohubService) *DocumentController {
	return &DocumentController{svc: svc}
}

type UpdateStatusRequestBody struct {
	Statut string `json:"statut" validate:"required"`
}

type GenerateNumberRequestBody struct {
	Type common.DocumentType `json:"type" validate:"required,oneof=DEVIS FACTURE AVOIR"`
}

// Create godoc
// @Summary      Create a document
// @Description  Numbers the document through its default serie, or the legacy counter when there is none
// @Accept       json
// @Produce      json
// @Tags         Document
// @Param        document  body      service.DocumentInput  true  "Document"
// @Success      201       {object}  models.Document
// @Failure      400       {object}  responses.ErrorResponse
// @Failure      500       {object}  responses.ErrorResponse
// @Router       /v2/documents [post]
// @Security     BearerAuth
func (controller *DocumentController) Create(c echo.Context) error {
	var body service.DocumentInput
	if err := bindAndValidate(c, &body); err != nil {
		return err
	}
	document, err := controller.svc.CreateDocument(c.Request().Context(), entrepriseID(c), &body)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, document)
}

func (controller *DocumentController) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	document, err := controller.svc.FindDocument(c.Request().Context(), entrepriseID(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, document)
}

func (controller *DocumentController) UpdateStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body UpdateStatusRequestBody
	if err := bindAndValidate(c, &body); err != nil {
		return err
	}
	document, err := controller.svc.UpdateDocumentStatus(c.Request().Context(), entrepriseID(c), id, body.Statut)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, document)
}

// AddPayment godoc
// @Summary      Record a payment on a document
// @Tags         Document
// @Param        id       path      int                   true  "document id"
// @Param        payment  body      service.PaymentInput  true  "Payment"
// @Success      201      {object}  models.Paiement
// @Failure      400      {object}  responses.ErrorResponse
// @Failure      404      {object}  responses.ErrorResponse
// @Router       /v2/documents/{id}/payments [post]
// @Security     BearerAuth
func (controller *DocumentController) AddPayment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body service.PaymentInput
	if err := bindAndValidate(c, &body); err != nil {
		return err
	}
	payment, err := controller.svc.AddPayment(c.Request().Context(), entrepriseID(c), id, &body)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, payment)
}

// Convert godoc
// @Summary      Convert an accepted quote into an invoice
// @Tags         Document
// @Param        id   path      int  true  "quote id"
// @Success      201  {object}  models.Document
// @Failure      400  {object}  responses.ErrorResponse
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /v2/documents/{id}/convert [post]
// @Security     BearerAuth
func (controller *DocumentController) Convert(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	invoice, err := controller.svc.ConvertQuoteToInvoice(c.Request().Context(), id, entrepriseID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, invoice)
}

// GenerateNumber godoc
// @Summary      Consume the next number of a document type
// @Tags         Document
// @Param        body  body      GenerateNumberRequestBody  true  "Document type"
// @Success      200   {object}  service.GeneratedNumber
// @Router       /v2/documents/number [post]
// @Security     BearerAuth
func (controller *DocumentController) GenerateNumber(c echo.Context) error {
	var body GenerateNumberRequestBody
	if err := bindAndValidate(c, &body); err != nil {
		return err
	}
	number, err := controller.svc.GenerateNumber(c.Request().Context(), entrepriseID(c), body.Type)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, number)
}
