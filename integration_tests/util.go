package integration_tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gestiopro/gestiohub.go/db"
	"github.com/gestiopro/gestiohub.go/db/migrations"
	"github.com/gestiopro/gestiohub.go/lib/logging"
	"github.com/gestiopro/gestiohub.go/lib/responses"
	"github.com/gestiopro/gestiohub.go/lib/service"
	"github.com/gestiopro/gestiohub.go/lib/tokens"
	"github.com/gestiopro/gestiohub.go/lib/transport"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/uptrace/bun/migrate"
)

var testNow = time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

func GestiohubTestServiceInit() (svc *service.GestiohubService, err error) {
	c := &service.Config{
		DatabaseUri:         fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		JWTSecret:           []byte("SECRET"),
		StrictRateLimit:     1000,
		BurstRateLimit:      1000,
		ImportMaxRows:       100,
		ImportMaxBody:       "1M",
		ImportPreviewTTL:    60,
		MatchDateWindowDays: 3,
		MatchTolerance:      decimal.New(1, -2),
		NumberingMaxRetries: 5,
	}

	dbConn, err := db.Open(c)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	ctx := context.Background()
	migrator := migrate.NewMigrator(dbConn, migrations.Migrations)
	err = migrator.Init(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to init migrations: %w", err)
	}
	_, err = migrator.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	svc = service.NewGestiohubService(c, dbConn, logging.Logger(c.LogFilePath))
	svc.Now = func() time.Time { return testNow }
	return svc, nil
}

// newTestEcho wires the routes the way cmd/server does.
func newTestEcho(svc *service.GestiohubService) *echo.Echo {
	e := transport.InitEcho(svc.Config, svc.Logger)
	logMw := transport.CreateLoggingMiddleware(svc.Logger)
	strictRateLimitMiddleware := transport.CreateRateLimitMiddleware(svc.Config.StrictRateLimit, svc.Config.BurstRateLimit)
	secured := e.Group("", tokens.Middleware(svc.Config.JWTSecret), logMw)
	securedWithStrictRateLimit := e.Group("", tokens.Middleware(svc.Config.JWTSecret), strictRateLimitMiddleware, logMw)
	transport.RegisterV2Endpoints(svc, e, secured, securedWithStrictRateLimit)
	return e
}

// createEntreprises returns the ids and API tokens of count new entreprises.
func createEntreprises(svc *service.GestiohubService, count int) (ids []int64, accessTokens []string, err error) {
	for i := 0; i < count; i++ {
		entreprise, err := svc.CreateEntreprise(context.Background(), fmt.Sprintf("Entreprise %d", i+1))
		if err != nil {
			return nil, nil, err
		}
		token, err := tokens.GenerateAccessToken(svc.Config.JWTSecret, 3600, entreprise.ID)
		if err != nil {
			return nil, nil, err
		}
		ids = append(ids, entreprise.ID)
		accessTokens = append(accessTokens, token)
	}
	return ids, accessTokens, nil
}

type TestSuite struct {
	suite.Suite
	echo *echo.Echo
}

// request sends body as JSON, or as is when it is a string.
func (suite *TestSuite) request(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	contentType := echo.MIMEApplicationJSON
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
		contentType = "text/csv"
	default:
		var buf bytes.Buffer
		assert.NoError(suite.T(), json.NewEncoder(&buf).Encode(b))
		reader = &buf
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, contentType)
	if token != "" {
		req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", token))
	}
	rec := httptest.NewRecorder()
	suite.echo.ServeHTTP(rec, req)
	return rec
}

func (suite *TestSuite) uploadStatement(path, content, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "releve.csv")
	assert.NoError(suite.T(), err)
	_, err = part.Write([]byte(content))
	assert.NoError(suite.T(), err)
	assert.NoError(suite.T(), writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", token))
	rec := httptest.NewRecorder()
	suite.echo.ServeHTTP(rec, req)
	return rec
}

// decode asserts the status code and decodes the JSON body into target.
func (suite *TestSuite) decode(rec *httptest.ResponseRecorder, status int, target interface{}) {
	if !assert.Equal(suite.T(), status, rec.Code, rec.Body.String()) {
		return
	}
	assert.NoError(suite.T(), json.NewDecoder(rec.Body).Decode(target))
}

func checkErrResponse(suite *TestSuite, rec *httptest.ResponseRecorder, status int) *responses.ErrorResponse {
	errorResponse := &responses.ErrorResponse{}
	assert.Equal(suite.T(), status, rec.Code)
	assert.NoError(suite.T(), json.NewDecoder(rec.Body).Decode(errorResponse))
	return errorResponse
}

func invoiceBody(docType, statut, amount string, emission time.Time) *ExpectedDocumentRequestBody {
	return &ExpectedDocumentRequestBody{
		Type:         docType,
		Statut:       statut,
		DateEmission: emission,
		Lignes: []ExpectedLigneRequestBody{{
			Designation:    "Prestation",
			Quantite:       "1",
			PrixUnitaireHT: amount,
			TauxTVA:        "0",
		}},
	}
}
