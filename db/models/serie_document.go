package models

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// SerieDocument : an independently counted numbering series
type SerieDocument struct {
	bun.BaseModel `bun:"table:serie_documents,alias:serie"`

	ID                int64        `json:"id" bun:",pk,autoincrement"`
	EntrepriseID      int64        `json:"entreprise_id" bun:",notnull"`
	Code              string       `json:"code" bun:",notnull"`
	Nom               string       `json:"nom" bun:",notnull"`
	FormatNumero      string       `json:"format_numero" bun:",notnull"`
	NextNumber        int64        `json:"next_number" bun:",notnull,default:1"`
	ResetPolicy       string       `json:"reset_policy" bun:",notnull,default:'NONE'"`
	LastReset         bun.NullTime `json:"last_reset"`
	PourDevis         bool         `json:"pour_devis" bun:",notnull,default:false"`
	PourFactures      bool         `json:"pour_factures" bun:",notnull,default:false"`
	PourAvoirs        bool         `json:"pour_avoirs" bun:",notnull,default:false"`
	EstDefautDevis    bool         `json:"est_defaut_devis" bun:",notnull,default:false"`
	EstDefautFactures bool         `json:"est_defaut_factures" bun:",notnull,default:false"`
	EstDefautAvoirs   bool         `json:"est_defaut_avoirs" bun:",notnull,default:false"`
	Actif             bool         `json:"actif" bun:",notnull,default:true"`
	Version           int64        `json:"-" bun:",notnull,default:0"`
	CreatedAt         time.Time    `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt         bun.NullTime `json:"updated_at"`
}

func (s *SerieDocument) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.UpdateQuery:
		s.UpdatedAt = bun.NullTime{Time: time.Now()}
	}
	return nil
}

var _ bun.BeforeAppendModelHook = (*SerieDocument)(nil)
