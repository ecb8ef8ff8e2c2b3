package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Article : catalogue item
type Article struct {
	bun.BaseModel `bun:"table:articles,alias:article"`

	ID             int64           `json:"id" bun:",pk,autoincrement"`
	EntrepriseID   int64           `json:"entreprise_id" bun:",notnull"`
	Reference      string          `json:"reference" bun:",notnull"`
	Designation    string          `json:"designation" bun:",notnull"`
	PrixUnitaireHT decimal.Decimal `json:"prix_unitaire_ht" bun:"prix_unitaire_ht,type:numeric(15,2),notnull"`
	TauxTVA        decimal.Decimal `json:"taux_tva" bun:"taux_tva,type:numeric(5,2),notnull"`
	Stock          int64           `json:"stock" bun:",notnull,default:0"`
	Actif          bool            `json:"actif" bun:",notnull,default:true"`
	CreatedAt      time.Time       `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
}
