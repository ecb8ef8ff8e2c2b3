package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/gestiopro/gestiohub.go/common"
	"github.com/gestiopro/gestiohub.go/db"
	"github.com/gestiopro/gestiohub.go/db/migrations"
	"github.com/gestiopro/gestiohub.go/db/models"
	"github.com/gestiopro/gestiohub.go/lib/logging"
	"github.com/gestiopro/gestiohub.go/lib/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/migrate"
)

var testNow = time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) *service.GestiohubService {
	t.Helper()
	ctx := context.Background()

	config := &service.Config{
		DatabaseUri:         fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		JWTSecret:           []byte("secret"),
		ImportMaxRows:       100,
		MatchDateWindowDays: 3,
		MatchTolerance:      decimal.RequireFromString("0.01"),
		NumberingMaxRetries: 5,
	}
	dbConn, err := db.Open(config)
	require.NoError(t, err)
	t.Cleanup(func() { dbConn.Close() })

	migrator := migrate.NewMigrator(dbConn, migrations.Migrations)
	require.NoError(t, migrator.Init(ctx))
	_, err = migrator.Migrate(ctx)
	require.NoError(t, err)

	svc := service.NewGestiohubService(config, dbConn, logging.Logger(""))
	svc.Now = func() time.Time { return testNow }
	return svc
}

func createEntreprise(t *testing.T, svc *service.GestiohubService, nom string) int64 {
	t.Helper()
	entreprise, err := svc.CreateEntreprise(context.Background(), nom)
	require.NoError(t, err)
	return entreprise.ID
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

// createDocument creates a single line document whose TTC equals amount.
func createDocument(t *testing.T, svc *service.GestiohubService, entrepriseID int64, docType common.DocumentType, statut, amount string, emission time.Time) *models.Document {
	t.Helper()
	doc, err := svc.CreateDocument(context.Background(), entrepriseID, &service.DocumentInput{
		Type:         docType,
		Statut:       statut,
		DateEmission: emission,
		Lignes: []service.DocumentLigneInput{{
			Designation:    "Prestation",
			Quantite:       decimal.NewFromInt(1),
			PrixUnitaireHT: decimal.RequireFromString(amount),
			TauxTVA:        decimal.Zero,
		}},
	})
	require.NoError(t, err)
	return doc
}

func createInvoice(t *testing.T, svc *service.GestiohubService, entrepriseID int64, amount string, emission time.Time) *models.Document {
	t.Helper()
	return createDocument(t, svc, entrepriseID, common.DocumentTypeFacture, common.DocumentStatusEnvoye, amount, emission)
}
