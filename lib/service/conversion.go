package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gestiopro/gestiohub.go/common"
	"github.com/gestiopro/gestiohub.go/db/models"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// ConvertQuoteToInvoice creates the invoice of an accepted quote. Header, lines and
// the number allocation commit together. The unique index on devis_id guards
// against two concurrent conversions of the same quote.
func (svc *GestiohubService) ConvertQuoteToInvoice(ctx context.Context, quoteID, entrepriseID int64) (*models.Document, error) {
	var invoice *models.Document
	err := svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		quote, err := loadDocumentForUpdate(ctx, tx, entrepriseID, quoteID)
		if errors.Is(err, ErrDocumentNotFound) {
			return ErrQuoteNotFound
		}
		if err != nil {
			return err
		}
		if quote.Type != common.DocumentTypeDevis {
			return ErrNotAQuote
		}
		if quote.Statut != common.DocumentStatusAccepte {
			return ErrQuoteNotAccepted
		}
		converted, err := tx.NewSelect().
			Model((*models.Document)(nil)).
			Where("document.entreprise_id = ?", entrepriseID).
			Where("document.devis_id = ?", quote.ID).
			Exists(ctx)
		if err != nil {
			return err
		}
		if converted {
			return ErrQuoteAlreadyConverted
		}

		generated, err := svc.generateNumberTx(ctx, tx, entrepriseID, common.DocumentTypeFacture)
		if err != nil {
			return err
		}
		invoice = invoiceFromQuote(quote, generated, dateOnly(svc.now()))
		if _, err := tx.NewInsert().Model(invoice).Exec(ctx); err != nil {
			if isUniqueViolation(err) {
				return ErrQuoteAlreadyConverted
			}
			return err
		}
		return insertLignes(ctx, tx, invoice)
	})
	if err != nil {
		return nil, err
	}
	svc.Logger.Infof("Converted devis %d into facture %s for entreprise %d", quoteID, invoice.Numero, entrepriseID)
	svc.publish(ctx, entrepriseID, common.EventQuoteConverted, invoice)
	return invoice, nil
}

func invoiceFromQuote(quote *models.Document, generated *GeneratedNumber, today time.Time) *models.Document {
	invoice := &models.Document{
		EntrepriseID:       quote.EntrepriseID,
		ClientID:           quote.ClientID,
		Numero:             generated.Numero,
		Type:               common.DocumentTypeFacture,
		Statut:             common.DocumentStatusEnvoye,
		DateEmission:       today,
		DateEcheance:       quote.DateEcheance,
		Notes:              quote.Notes,
		ConditionsPaiement: quote.ConditionsPaiement,
		ValiditeJours:      quote.ValiditeJours,
		TotalHT:            quote.TotalHT,
		TotalTVA:           quote.TotalTVA,
		TotalTTC:           quote.TotalTTC,
		MontantRestant:     quote.TotalTTC,
		Acompte:            decimal.Zero,
		DevisID:            quote.ID,
	}
	if generated.SerieID != nil {
		invoice.SerieID = *generated.SerieID
	}
	for _, l := range quote.Lignes {
		invoice.Lignes = append(invoice.Lignes, &models.DocumentLigne{
			Ordre:          l.Ordre,
			Designation:    l.Designation,
			Description:    l.Description,
			Quantite:       l.Quantite,
			PrixUnitaireHT: l.PrixUnitaireHT,
			TauxTVA:        l.TauxTVA,
			RemisePourcent: l.RemisePourcent,
			TotalHT:        l.TotalHT,
			TotalTVA:       l.TotalTVA,
			TotalTTC:       l.TotalTTC,
		})
	}
	return invoice
}
