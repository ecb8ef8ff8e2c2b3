package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/gestiopro/gestiohub.go/common"
	"github.com/gestiopro/gestiohub.go/db/models"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

var hundred = decimal.NewFromInt(100)

type DocumentLigneInput struct {
	Designation    string          `json:"designation" validate:"required"`
	Description    string          `json:"description"`
	Quantite       decimal.Decimal `json:"quantite"`
	PrixUnitaireHT decimal.Decimal `json:"prix_unitaire_ht"`
	TauxTVA        decimal.Decimal `json:"taux_tva"`
	RemisePourcent decimal.Decimal `json:"remise_pourcent"`
}

type DocumentInput struct {
	Type               common.DocumentType  `json:"type" validate:"required,oneof=DEVIS FACTURE AVOIR"`
	ClientID           int64                `json:"client_id"`
	Statut             string               `json:"statut"`
	DateEmission       time.Time            `json:"date_emission"`
	DateEcheance       *time.Time           `json:"date_echeance"`
	Notes              string               `json:"notes"`
	ConditionsPaiement string               `json:"conditions_paiement"`
	ValiditeJours      int                  `json:"validite_jours" validate:"min=0"`
	Lignes             []DocumentLigneInput `json:"lignes" validate:"required,min=1,dive"`
}

type PaymentInput struct {
	Montant      decimal.Decimal `json:"montant"`
	DatePaiement time.Time       `json:"date_paiement"`
	Mode         string          `json:"mode"`
}

// computeLigne fills the line totals: ht = qty x pu x (1 - remise/100), tva = ht x taux/100.
func computeLigne(ligne *models.DocumentLigne) {
	discount := decimal.NewFromInt(1).Sub(ligne.RemisePourcent.Div(hundred))
	ligne.TotalHT = ligne.Quantite.Mul(ligne.PrixUnitaireHT).Mul(discount).Round(2)
	ligne.TotalTVA = ligne.TotalHT.Mul(ligne.TauxTVA).Div(hundred).Round(2)
	ligne.TotalTTC = ligne.TotalHT.Add(ligne.TotalTVA)
}

func computeTotals(doc *models.Document) {
	doc.TotalHT, doc.TotalTVA, doc.TotalTTC = decimal.Zero, decimal.Zero, decimal.Zero
	for _, ligne := range doc.Lignes {
		doc.TotalHT = doc.TotalHT.Add(ligne.TotalHT)
		doc.TotalTVA = doc.TotalTVA.Add(ligne.TotalTVA)
		doc.TotalTTC = doc.TotalTTC.Add(ligne.TotalTTC)
	}
}

func validStatus(statut string) bool {
	for _, s := range common.DocumentStatuses {
		if s == statut {
			return true
		}
	}
	return false
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (svc *GestiohubService) CreateDocument(ctx context.Context, entrepriseID int64, input *DocumentInput) (*models.Document, error) {
	if !input.Type.Valid() {
		return nil, ErrInvalidDocumentType
	}
	if len(input.Lignes) == 0 {
		return nil, ErrDocumentWithoutLines
	}
	statut := input.Statut
	if statut == "" {
		statut = common.DocumentStatusBrouillon
	}
	if !validStatus(statut) {
		return nil, ErrInvalidDocumentStatus
	}

	doc := &models.Document{
		EntrepriseID:       entrepriseID,
		ClientID:           input.ClientID,
		Type:               input.Type,
		Statut:             statut,
		DateEmission:       dateOnly(input.DateEmission),
		Notes:              strings.TrimSpace(input.Notes),
		ConditionsPaiement: strings.TrimSpace(input.ConditionsPaiement),
		ValiditeJours:      input.ValiditeJours,
		Acompte:            decimal.Zero,
	}
	if input.DateEmission.IsZero() {
		doc.DateEmission = dateOnly(svc.now())
	}
	if input.DateEcheance != nil {
		doc.DateEcheance = bun.NullTime{Time: dateOnly(*input.DateEcheance)}
	}
	for i, l := range input.Lignes {
		ligne := &models.DocumentLigne{
			Ordre:          i + 1,
			Designation:    strings.TrimSpace(l.Designation),
			Description:    l.Description,
			Quantite:       l.Quantite,
			PrixUnitaireHT: l.PrixUnitaireHT,
			TauxTVA:        l.TauxTVA,
			RemisePourcent: l.RemisePourcent,
		}
		computeLigne(ligne)
		doc.Lignes = append(doc.Lignes, ligne)
	}
	computeTotals(doc)
	doc.MontantRestant = doc.TotalTTC

	err := svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		generated, err := svc.generateNumberTx(ctx, tx, entrepriseID, doc.Type)
		if err != nil {
			return err
		}
		doc.Numero = generated.Numero
		if generated.SerieID != nil {
			doc.SerieID = *generated.SerieID
		}
		if _, err := tx.NewInsert().Model(doc).Exec(ctx); err != nil {
			return err
		}
		return insertLignes(ctx, tx, doc)
	})
	if err != nil {
		return nil, err
	}
	svc.Logger.Infof("Created %s %s for entreprise %d", doc.Type, doc.Numero, entrepriseID)
	svc.publish(ctx, entrepriseID, common.EventDocumentCreated, doc)
	return doc, nil
}

func insertLignes(ctx context.Context, tx bun.Tx, doc *models.Document) error {
	if len(doc.Lignes) == 0 {
		return nil
	}
	for _, ligne := range doc.Lignes {
		ligne.DocumentID = doc.ID
	}
	_, err := tx.NewInsert().Model(&doc.Lignes).Exec(ctx)
	return err
}

func (svc *GestiohubService) FindDocument(ctx context.Context, entrepriseID, documentID int64) (*models.Document, error) {
	doc := &models.Document{}
	err := svc.DB.NewSelect().
		Model(doc).
		Relation("Lignes", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("ligne.ordre ASC")
		}).
		Relation("Paiements", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("paiement.id ASC")
		}).
		Where("document.id = ?", documentID).
		Where("document.entreprise_id = ?", entrepriseID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// loadDocumentForUpdate reads a document with its lines and payments, locking the header row on PostgreSQL.
func loadDocumentForUpdate(ctx context.Context, tx bun.Tx, entrepriseID, documentID int64) (*models.Document, error) {
	doc := &models.Document{}
	q := tx.NewSelect().
		Model(doc).
		Where("document.id = ?", documentID).
		Where("document.entreprise_id = ?", entrepriseID)
	if tx.Dialect().Name() == dialect.PG {
		q = q.For("UPDATE")
	}
	err := q.Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	err = tx.NewSelect().
		Model(&doc.Lignes).
		Where("ligne.document_id = ?", doc.ID).
		OrderExpr("ligne.ordre ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	err = tx.NewSelect().
		Model(&doc.Paiements).
		Where("paiement.document_id = ?", doc.ID).
		OrderExpr("paiement.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (svc *GestiohubService) UpdateDocumentStatus(ctx context.Context, entrepriseID, documentID int64, statut string) (*models.Document, error) {
	if !validStatus(statut) {
		return nil, ErrInvalidDocumentStatus
	}
	var doc *models.Document
	err := svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		d, err := loadDocumentForUpdate(ctx, tx, entrepriseID, documentID)
		if err != nil {
			return err
		}
		d.Statut = statut
		_, err = tx.NewUpdate().Model(d).Column("statut", "updated_at").WherePK().Exec(ctx)
		doc = d
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (svc *GestiohubService) AddPayment(ctx context.Context, entrepriseID, documentID int64, input *PaymentInput) (*models.Paiement, error) {
	if !input.Montant.IsPositive() {
		return nil, ErrInvalidPaymentAmount
	}
	mode := input.Mode
	if mode == "" {
		mode = common.PaymentModeManuel
	}
	date := input.DatePaiement
	if date.IsZero() {
		date = svc.now()
	}
	var paiement *models.Paiement
	err := svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		doc, err := loadDocumentForUpdate(ctx, tx, entrepriseID, documentID)
		if err != nil {
			return err
		}
		paiement, err = recordPayment(ctx, tx, doc, input.Montant.Round(2), dateOnly(date), mode, 0)
		return err
	})
	if err != nil {
		return nil, err
	}
	return paiement, nil
}

// recordPayment inserts a payment and refreshes the stored remaining balance of doc.
// doc.Paiements must be loaded. The document is marked PAYE once nothing remains due.
func recordPayment(ctx context.Context, tx bun.Tx, doc *models.Document, montant decimal.Decimal, date time.Time, mode string, bankTransactionID int64) (*models.Paiement, error) {
	paiement := &models.Paiement{
		EntrepriseID:      doc.EntrepriseID,
		DocumentID:        doc.ID,
		Montant:           montant,
		DatePaiement:      date,
		Mode:              mode,
		BankTransactionID: bankTransactionID,
	}
	if _, err := tx.NewInsert().Model(paiement).Exec(ctx); err != nil {
		return nil, err
	}
	doc.Paiements = append(doc.Paiements, paiement)
	doc.MontantRestant = doc.RemainingBalance()
	columns := []string{"montant_restant", "updated_at"}
	if !doc.MontantRestant.IsPositive() && doc.Type == common.DocumentTypeFacture {
		doc.Statut = common.DocumentStatusPaye
		columns = append(columns, "statut")
	}
	_, err := tx.NewUpdate().Model(doc).Column(columns...).WherePK().Exec(ctx)
	if err != nil {
		return nil, err
	}
	return paiement, nil
}
