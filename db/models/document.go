package models

import (
	"context"
	"time"

	"github.com/gestiopro/gestiohub.go/common"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Document : quote, invoice or credit note
type Document struct {
	bun.BaseModel `bun:"table:documents,alias:document"`

	ID                 int64               `json:"id" bun:",pk,autoincrement"`
	EntrepriseID       int64               `json:"entreprise_id" bun:",notnull"`
	ClientID           int64               `json:"client_id,omitempty" bun:",nullzero"`
	SerieID            int64               `json:"serie_id,omitempty" bun:",nullzero"`
	Numero             string              `json:"numero" bun:",notnull"`
	Type               common.DocumentType `json:"type" bun:",notnull"`
	Statut             string              `json:"statut" bun:",notnull,default:'BROUILLON'"`
	DateEmission       time.Time           `json:"date_emission" bun:",notnull"`
	DateEcheance       bun.NullTime        `json:"date_echeance"`
	Notes              string              `json:"notes,omitempty" bun:",nullzero"`
	ConditionsPaiement string              `json:"conditions_paiement,omitempty" bun:",nullzero"`
	ValiditeJours      int                 `json:"validite_jours,omitempty" bun:",nullzero"`
	TotalHT            decimal.Decimal     `json:"total_ht" bun:"total_ht,type:numeric(15,2),notnull"`
	TotalTVA           decimal.Decimal     `json:"total_tva" bun:"total_tva,type:numeric(15,2),notnull"`
	TotalTTC           decimal.Decimal     `json:"total_ttc" bun:"total_ttc,type:numeric(15,2),notnull"`
	MontantRestant     decimal.Decimal     `json:"montant_restant" bun:"type:numeric(15,2),notnull"`
	Acompte            decimal.Decimal     `json:"acompte" bun:"type:numeric(15,2),notnull"`
	DevisID            int64               `json:"devis_id,omitempty" bun:",nullzero"`
	Lignes             []*DocumentLigne    `json:"lignes,omitempty" bun:"rel:has-many,join:id=document_id"`
	Paiements          []*Paiement         `json:"paiements,omitempty" bun:"rel:has-many,join:id=document_id"`
	CreatedAt          time.Time           `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt          bun.NullTime        `json:"updated_at"`
}

func (d *Document) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.UpdateQuery:
		d.UpdatedAt = bun.NullTime{Time: time.Now()}
	}
	return nil
}

// RemainingBalance is the total TTC minus every recorded payment.
// Paiements must have been loaded.
func (d *Document) RemainingBalance() decimal.Decimal {
	remaining := d.TotalTTC
	for _, p := range d.Paiements {
		remaining = remaining.Sub(p.Montant)
	}
	return remaining
}

// DaysOverdue returns the number of whole days past the due date, 0 when not due yet.
func (d *Document) DaysOverdue(now time.Time) int {
	if d.DateEcheance.IsZero() {
		return 0
	}
	days := int(now.Sub(d.DateEcheance.Time).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

var _ bun.BeforeAppendModelHook = (*Document)(nil)

// DocumentLigne : document line item
type DocumentLigne struct {
	bun.BaseModel `bun:"table:document_lignes,alias:ligne"`

	ID             int64           `json:"id" bun:",pk,autoincrement"`
	DocumentID     int64           `json:"document_id" bun:",notnull"`
	Ordre          int             `json:"ordre" bun:",notnull"`
	Designation    string          `json:"designation" bun:",notnull"`
	Description    string          `json:"description,omitempty" bun:",nullzero"`
	Quantite       decimal.Decimal `json:"quantite" bun:"type:numeric(15,3),notnull"`
	PrixUnitaireHT decimal.Decimal `json:"prix_unitaire_ht" bun:"prix_unitaire_ht,type:numeric(15,2),notnull"`
	TauxTVA        decimal.Decimal `json:"taux_tva" bun:"taux_tva,type:numeric(5,2),notnull"`
	RemisePourcent decimal.Decimal `json:"remise_pourcent" bun:"type:numeric(5,2),notnull"`
	TotalHT        decimal.Decimal `json:"total_ht" bun:"total_ht,type:numeric(15,2),notnull"`
	TotalTVA       decimal.Decimal `json:"total_tva" bun:"total_tva,type:numeric(15,2),notnull"`
	TotalTTC       decimal.Decimal `json:"total_ttc" bun:"total_ttc,type:numeric(15,2),notnull"`
}

// Paiement : a payment received against a document
type Paiement struct {
	bun.BaseModel `bun:"table:paiements,alias:paiement"`

	ID                int64           `json:"id" bun:",pk,autoincrement"`
	EntrepriseID      int64           `json:"entreprise_id" bun:",notnull"`
	DocumentID        int64           `json:"document_id" bun:",notnull"`
	Montant           decimal.Decimal `json:"montant" bun:"type:numeric(15,2),notnull"`
	DatePaiement      time.Time       `json:"date_paiement" bun:",notnull"`
	Mode              string          `json:"mode" bun:",notnull"`
	BankTransactionID int64           `json:"bank_transaction_id,omitempty" bun:",nullzero"`
	CreatedAt         time.Time       `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
}
