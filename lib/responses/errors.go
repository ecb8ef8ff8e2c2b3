package responses

import (
	"errors"
	"net/http"

	"github.com/gestiopro/gestiohub.go/lib/service"
	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error          bool   `json:"error"`
	Code           int    `json:"code"`
	Message        string `json:"message"`
	Row            int    `json:"row,omitempty"`
	HttpStatusCode int    `json:"-"`
}

const (
	codeBadAuth      = 1
	codeParse        = 2
	codeNotFound     = 3
	codeInvalidState = 4
	codeConflict     = 5
	codeServer       = 6
	codeBadArguments = 8
)

var GeneralServerError = ErrorResponse{
	Error:          true,
	Code:           codeServer,
	Message:        "Une erreur est survenue. Veuillez réessayer plus tard",
	HttpStatusCode: 500,
}

var BadArgumentsError = ErrorResponse{
	Error:          true,
	Code:           codeBadArguments,
	Message:        "Paramètres invalides",
	HttpStatusCode: 400,
}

var BadAuthError = ErrorResponse{
	Error:          true,
	Code:           codeBadAuth,
	Message:        "bad auth",
	HttpStatusCode: 401,
}

var MissingFileError = ErrorResponse{
	Error:          true,
	Code:           codeBadArguments,
	Message:        "Aucun fichier CSV fourni",
	HttpStatusCode: 400,
}

// FromError maps a business error of the service layer to its response.
// The second return value is false for anything else.
func FromError(err error) (ErrorResponse, bool) {
	var parseErr *service.ParseError
	var notFound *service.NotFoundError
	var invalidState *service.InvalidStateError
	var conflict *service.ConflictError
	switch {
	case errors.As(err, &parseErr):
		return ErrorResponse{
			Error:          true,
			Code:           codeParse,
			Message:        parseErr.Error(),
			Row:            parseErr.Row,
			HttpStatusCode: http.StatusBadRequest,
		}, true
	case errors.As(err, &notFound):
		return ErrorResponse{
			Error:          true,
			Code:           codeNotFound,
			Message:        notFound.Error(),
			HttpStatusCode: http.StatusNotFound,
		}, true
	case errors.As(err, &invalidState):
		return ErrorResponse{
			Error:          true,
			Code:           codeInvalidState,
			Message:        invalidState.Error(),
			HttpStatusCode: http.StatusBadRequest,
		}, true
	case errors.As(err, &conflict):
		return ErrorResponse{
			Error:          true,
			Code:           codeConflict,
			Message:        conflict.Error(),
			HttpStatusCode: http.StatusBadRequest,
		}, true
	}
	return ErrorResponse{}, false
}

func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if resp, ok := FromError(err); ok {
		c.Logger().Info(err)
		c.JSON(resp.HttpStatusCode, resp)
		return
	}
	c.Logger().Error(err)
	if isErrAllowedForSentry(err) {
		if hub := sentryecho.GetHubFromContext(c); hub != nil {
			hub.WithScope(func(scope *sentry.Scope) {
				scope.SetExtra("EntrepriseID", c.Get("EntrepriseID"))
				hub.CaptureException(err)
			})
		}
	}
	if he, ok := err.(*echo.HTTPError); ok {
		c.JSON(he.Code, he.Message)
		return
	}
	c.JSON(GeneralServerError.HttpStatusCode, GeneralServerError)
}

// client errors are noise for sentry
func isErrAllowedForSentry(err error) bool {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code >= http.StatusInternalServerError
	}
	return true
}
