package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/gestiopro/gestiohub.go/common"
	"github.com/gestiopro/gestiohub.go/db/models"
	"github.com/gestiopro/gestiohub.go/lib/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createAcceptedQuote(t *testing.T, svc *service.GestiohubService, entrepriseID int64) *models.Document {
	t.Helper()
	due := day(2026, 4, 15)
	quote, err := svc.CreateDocument(context.Background(), entrepriseID, &service.DocumentInput{
		Type:               common.DocumentTypeDevis,
		Statut:             common.DocumentStatusAccepte,
		ClientID:           12,
		DateEmission:       day(2026, 2, 1),
		DateEcheance:       &due,
		Notes:              "Intervention sous 8 jours",
		ConditionsPaiement: "30 jours fin de mois",
		ValiditeJours:      30,
		Lignes: []service.DocumentLigneInput{
			{
				Designation:    "Main d'oeuvre",
				Description:    "Forfait déplacement inclus",
				Quantite:       decimal.RequireFromString("3.5"),
				PrixUnitaireHT: decimal.RequireFromString("45.00"),
				TauxTVA:        decimal.RequireFromString("10"),
			},
			{
				Designation:    "Mitigeur thermostatique",
				Quantite:       decimal.NewFromInt(2),
				PrixUnitaireHT: decimal.RequireFromString("89.90"),
				TauxTVA:        decimal.RequireFromString("20"),
				RemisePourcent: decimal.RequireFromString("10"),
			},
		},
	})
	require.NoError(t, err)
	return quote
}

func TestCreateDocumentComputesTotals(t *testing.T) {
	svc := newTestService(t)
	entrepriseID := createEntreprise(t, svc, "Plomberie Martin")
	quote := createAcceptedQuote(t, svc, entrepriseID)

	assert.Equal(t, "DEV00001", quote.Numero)
	require.Len(t, quote.Lignes, 2)
	// 3.5 x 45 = 157.50, tva 15.75
	assert.Equal(t, "157.5", quote.Lignes[0].TotalHT.String())
	assert.Equal(t, "15.75", quote.Lignes[0].TotalTVA.String())
	// 2 x 89.90 x 0.9 = 161.82, tva 32.364 -> 32.36
	assert.Equal(t, "161.82", quote.Lignes[1].TotalHT.String())
	assert.Equal(t, "32.36", quote.Lignes[1].TotalTVA.String())
	assert.Equal(t, "319.32", quote.TotalHT.String())
	assert.Equal(t, "48.11", quote.TotalTVA.String())
	assert.Equal(t, "367.43", quote.TotalTTC.String())
	assert.True(t, quote.TotalTTC.Equal(quote.MontantRestant))
}

func TestConvertQuoteToInvoice(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	entrepriseID := createEntreprise(t, svc, "Plomberie Martin")
	quote := createAcceptedQuote(t, svc, entrepriseID)

	invoice, err := svc.ConvertQuoteToInvoice(ctx, quote.ID, entrepriseID)
	require.NoError(t, err)

	invoice, err = svc.FindDocument(ctx, entrepriseID, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, "FAC00001", invoice.Numero)
	assert.Equal(t, common.DocumentTypeFacture, invoice.Type)
	assert.Equal(t, common.DocumentStatusEnvoye, invoice.Statut)
	assert.Equal(t, quote.ID, invoice.DevisID)
	assert.Equal(t, quote.ClientID, invoice.ClientID)
	assert.True(t, day(2026, 3, 10).Equal(invoice.DateEmission))
	assert.True(t, quote.DateEcheance.Time.Equal(invoice.DateEcheance.Time))
	assert.Equal(t, quote.Notes, invoice.Notes)
	assert.Equal(t, quote.ConditionsPaiement, invoice.ConditionsPaiement)
	assert.Equal(t, quote.ValiditeJours, invoice.ValiditeJours)
	assert.True(t, quote.TotalHT.Equal(invoice.TotalHT))
	assert.True(t, quote.TotalTVA.Equal(invoice.TotalTVA))
	assert.True(t, quote.TotalTTC.Equal(invoice.TotalTTC))
	assert.True(t, quote.TotalTTC.Equal(invoice.MontantRestant))
	assert.True(t, invoice.Acompte.IsZero())

	require.Len(t, invoice.Lignes, len(quote.Lignes))
	for i, ligne := range invoice.Lignes {
		source := quote.Lignes[i]
		assert.Equal(t, source.Ordre, ligne.Ordre)
		assert.Equal(t, source.Designation, ligne.Designation)
		assert.Equal(t, source.Description, ligne.Description)
		assert.True(t, source.Quantite.Equal(ligne.Quantite))
		assert.True(t, source.PrixUnitaireHT.Equal(ligne.PrixUnitaireHT))
		assert.True(t, source.TauxTVA.Equal(ligne.TauxTVA))
		assert.True(t, source.RemisePourcent.Equal(ligne.RemisePourcent))
		assert.True(t, source.TotalTTC.Equal(ligne.TotalTTC))
		assert.NotEqual(t, source.ID, ligne.ID)
	}
}

func TestConvertQuoteToInvoicePreconditions(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	entrepriseID := createEntreprise(t, svc, "Plomberie Martin")
	otherID := createEntreprise(t, svc, "Electricité Durand")

	quote := createAcceptedQuote(t, svc, entrepriseID)
	draft := createDocument(t, svc, entrepriseID, common.DocumentTypeDevis, common.DocumentStatusBrouillon, "10.00", day(2026, 3, 1))
	invoice := createInvoice(t, svc, entrepriseID, "10.00", day(2026, 3, 1))

	_, err := svc.ConvertQuoteToInvoice(ctx, quote.ID+1000, entrepriseID)
	assert.ErrorIs(t, err, service.ErrQuoteNotFound)
	assert.EqualError(t, err, "Devis introuvable")

	// another entity's quote does not exist for the caller
	_, err = svc.ConvertQuoteToInvoice(ctx, quote.ID, otherID)
	assert.ErrorIs(t, err, service.ErrQuoteNotFound)

	_, err = svc.ConvertQuoteToInvoice(ctx, invoice.ID, entrepriseID)
	assert.ErrorIs(t, err, service.ErrNotAQuote)
	assert.EqualError(t, err, "Ce document n'est pas un devis")

	_, err = svc.ConvertQuoteToInvoice(ctx, draft.ID, entrepriseID)
	assert.ErrorIs(t, err, service.ErrQuoteNotAccepted)
	assert.EqualError(t, err, "Seul un devis accepté peut être converti en facture")

	_, err = svc.ConvertQuoteToInvoice(ctx, quote.ID, entrepriseID)
	require.NoError(t, err)
	_, err = svc.ConvertQuoteToInvoice(ctx, quote.ID, entrepriseID)
	assert.ErrorIs(t, err, service.ErrQuoteAlreadyConverted)
	assert.EqualError(t, err, "Ce devis a déjà été converti en facture")
}

func TestConcurrentConversionSucceedsOnce(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	entrepriseID := createEntreprise(t, svc, "Plomberie Martin")
	quote := createAcceptedQuote(t, svc, entrepriseID)

	const calls = 5
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		converted int
	)
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ConvertQuoteToInvoice(ctx, quote.ID, entrepriseID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, service.ErrQuoteAlreadyConverted):
				converted++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, calls-1, converted)

	// the failed attempts did not consume invoice numbers
	generated, err := svc.GenerateNumber(ctx, entrepriseID, common.DocumentTypeFacture)
	require.NoError(t, err)
	assert.Equal(t, "FAC00002", generated.Numero)
}
