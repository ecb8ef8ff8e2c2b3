package v2controllers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gestiopro/gestiohub.go/db/models"
	"github.com/gestiopro/gestiohub.go/lib/responses"
	"github.com/gestiopro/gestiohub.go/lib/service"
	"github.com/labstack/echo/v4"
)

// BankTransactionController : bank statement import and reconciliation
type BankTransactionController struct {
	svc *service.GestiohubService
}

func NewBankTransactionController(svc *service.GestiohubService) *BankTransactionController {
	return &BankTransactionController{svc: svc}
}

type ConfirmImportRequestBody struct {
	Token string `json:"token" validate:"required"`
}

type MatchRequestBody struct {
	DocumentID int64 `json:"document_id" validate:"required,gt=0"`
}

type AnomalyRequestBody struct {
	Notes string `json:"notes"`
}

type AutoMatchResponseBody struct {
	Matched int `json:"matched"`
}

type TransactionsResponseBody struct {
	Transactions []models.BankTransaction `json:"transactions"`
}

type OpenInvoicesResponseBody struct {
	Invoices []service.OpenInvoice `json:"invoices"`
}

// readStatement accepts a multipart "file" field or the raw request body.
func readStatement(c echo.Context) (string, error) {
	var reader io.Reader = c.Request().Body
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				return "", echo.NewHTTPError(http.StatusBadRequest, responses.MissingFileError)
			}
			return "", err
		}
		file, err := fileHeader.Open()
		if err != nil {
			return "", err
		}
		defer file.Close()
		reader = file
	}
	content, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	if len(content) == 0 {
		return "", echo.NewHTTPError(http.StatusBadRequest, responses.MissingFileError)
	}
	return string(content), nil
}

// Import godoc
// @Summary      Import a bank statement
// @Description  Parses a CSV statement, stores new transactions and runs the auto-matching on them
// @Accept       multipart/form-data,text/csv
// @Produce      json
// @Tags         Bank
// @Param        file  formData  file  false  "CSV statement"
// @Success      200   {object}  service.ImportResult
// @Failure      400   {object}  responses.ErrorResponse
// @Failure      500   {object}  responses.ErrorResponse
// @Router       /v2/bank/transactions/import [post]
// @Security     BearerAuth
func (controller *BankTransactionController) Import(c echo.Context) error {
	entrepriseID := entrepriseID(c)
	content, err := readStatement(c)
	if err != nil {
		return err
	}
	result, err := controller.svc.ImportCSV(c.Request().Context(), entrepriseID, content)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// Preview godoc
// @Summary      Preview a bank statement import
// @Description  Parses a CSV statement without storing it and returns a token to confirm the import
// @Accept       multipart/form-data,text/csv
// @Produce      json
// @Tags         Bank
// @Success      200  {object}  service.ImportPreview
// @Failure      400  {object}  responses.ErrorResponse
// @Router       /v2/bank/transactions/preview [post]
// @Security     BearerAuth
func (controller *BankTransactionController) Preview(c echo.Context) error {
	entrepriseID := entrepriseID(c)
	content, err := readStatement(c)
	if err != nil {
		return err
	}
	preview, err := controller.svc.PreviewImport(c.Request().Context(), entrepriseID, content)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, preview)
}

// Confirm godoc
// @Summary      Confirm a previewed import
// @Tags         Bank
// @Param        body  body      ConfirmImportRequestBody  true  "Preview token"
// @Success      200   {object}  service.ImportResult
// @Failure      404   {object}  responses.ErrorResponse
// @Router       /v2/bank/transactions/confirm [post]
// @Security     BearerAuth
func (controller *BankTransactionController) Confirm(c echo.Context) error {
	var body ConfirmImportRequestBody
	if err := bindAndValidate(c, &body); err != nil {
		return err
	}
	result, err := controller.svc.ConfirmImport(c.Request().Context(), entrepriseID(c), body.Token)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// AutoMatch godoc
// @Summary      Run the auto-matching on pending transactions
// @Tags         Bank
// @Success      200  {object}  AutoMatchResponseBody
// @Router       /v2/bank/transactions/automatch [post]
// @Security     BearerAuth
func (controller *BankTransactionController) AutoMatch(c echo.Context) error {
	matched, err := controller.svc.AutoMatch(c.Request().Context(), entrepriseID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &AutoMatchResponseBody{Matched: matched})
}

// List godoc
// @Summary      List bank transactions
// @Description  Most recent first, optionally filtered by statut
// @Tags         Bank
// @Param        statut  query     string  false  "PENDING, MATCHED, MANUAL, IGNORED or ANOMALY"
// @Param        limit   query     int     false  "page size"
// @Param        offset  query     int     false  "page offset"
// @Success      200     {object}  TransactionsResponseBody
// @Router       /v2/bank/transactions [get]
// @Security     BearerAuth
func (controller *BankTransactionController) List(c echo.Context) error {
	filter := service.TransactionFilter{Statut: c.QueryParam("statut")}
	for param, target := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if raw := c.QueryParam(param); raw != "" {
			value, err := strconv.Atoi(raw)
			if err != nil || value < 0 {
				return errBadArguments
			}
			*target = value
		}
	}
	transactions, err := controller.svc.ListTransactions(c.Request().Context(), entrepriseID(c), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &TransactionsResponseBody{Transactions: transactions})
}

func (controller *BankTransactionController) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	transaction, err := controller.svc.FindTransaction(c.Request().Context(), entrepriseID(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transaction)
}

// Match godoc
// @Summary      Match a transaction to a document by hand
// @Tags         Bank
// @Param        id    path      int               true  "transaction id"
// @Param        body  body      MatchRequestBody  true  "document to match"
// @Success      200   {object}  models.BankTransaction
// @Failure      404   {object}  responses.ErrorResponse
// @Router       /v2/bank/transactions/{id}/match [post]
// @Security     BearerAuth
func (controller *BankTransactionController) Match(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body MatchRequestBody
	if err := bindAndValidate(c, &body); err != nil {
		return err
	}
	transaction, err := controller.svc.ManualMatch(c.Request().Context(), entrepriseID(c), id, body.DocumentID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transaction)
}

func (controller *BankTransactionController) Ignore(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	transaction, err := controller.svc.IgnoreTransaction(c.Request().Context(), entrepriseID(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transaction)
}

// Anomaly godoc
// @Summary      Flag a transaction as an anomaly
// @Description  Notes are mandatory
// @Tags         Bank
// @Param        id    path      int                 true  "transaction id"
// @Param        body  body      AnomalyRequestBody  true  "notes"
// @Success      200   {object}  models.BankTransaction
// @Failure      400   {object}  responses.ErrorResponse
// @Router       /v2/bank/transactions/{id}/anomaly [post]
// @Security     BearerAuth
func (controller *BankTransactionController) Anomaly(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body AnomalyRequestBody
	if err := bindAndValidate(c, &body); err != nil {
		return err
	}
	transaction, err := controller.svc.MarkAsAnomaly(c.Request().Context(), entrepriseID(c), id, body.Notes)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transaction)
}

// Stats godoc
// @Summary      Reconciliation statistics
// @Tags         Bank
// @Success      200  {object}  service.Stats
// @Router       /v2/bank/stats [get]
// @Security     BearerAuth
func (controller *BankTransactionController) Stats(c echo.Context) error {
	stats, err := controller.svc.GetStats(c.Request().Context(), entrepriseID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// OpenInvoices godoc
// @Summary      Invoices still waiting for a payment
// @Tags         Bank
// @Success      200  {object}  OpenInvoicesResponseBody
// @Router       /v2/invoices/open [get]
// @Security     BearerAuth
func (controller *BankTransactionController) OpenInvoices(c echo.Context) error {
	invoices, err := controller.svc.ListOpenInvoices(c.Request().Context(), entrepriseID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &OpenInvoicesResponseBody{Invoices: invoices})
}
