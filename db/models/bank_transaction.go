package models

import (
	"context"
	"time"

	"github.com/gestiopro/gestiohub.go/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// BankTransaction : one line of an imported bank statement
type BankTransaction struct {
	bun.BaseModel `bun:"table:bank_transactions,alias:bank_transaction"`

	ID           int64           `json:"id" bun:",pk,autoincrement"`
	EntrepriseID int64           `json:"entreprise_id" bun:",notnull"`
	Date         time.Time       `json:"date" bun:",notnull"`
	Libelle      string          `json:"libelle" bun:",notnull"`
	Montant      decimal.Decimal `json:"montant" bun:"type:numeric(15,2),notnull"`
	Reference    string          `json:"reference,omitempty" bun:",nullzero"`
	Statut       string          `json:"statut" bun:",notnull,default:'PENDING'"`
	DocumentID   int64           `json:"document_id,omitempty" bun:",nullzero"`
	Document     *Document       `json:"-" bun:"rel:belongs-to,join:document_id=id"`
	Notes        string          `json:"notes,omitempty" bun:",nullzero"`
	LotImport    uuid.UUID       `json:"lot_import" bun:"type:uuid"`
	CreatedAt    time.Time       `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt    bun.NullTime    `json:"updated_at"`
}

func (t *BankTransaction) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.UpdateQuery:
		t.UpdatedAt = bun.NullTime{Time: time.Now()}
	}
	return nil
}

// Resolved reports whether the transaction left the PENDING state.
func (t *BankTransaction) Resolved() bool {
	return t.Statut != common.TransactionStatusPending
}

var _ bun.BeforeAppendModelHook = (*BankTransaction)(nil)
