package models

import (
	"github.com/uptrace/bun"
)

// EntrepriseSettings : per-entity legacy numbering counters
type EntrepriseSettings struct {
	bun.BaseModel `bun:"table:entreprise_settings,alias:settings"`

	ID                 int64  `json:"id" bun:",pk,autoincrement"`
	EntrepriseID       int64  `json:"entreprise_id" bun:",notnull,unique"`
	PrefixDevis        string `json:"prefix_devis" bun:",notnull"`
	PrefixFactures     string `json:"prefix_factures" bun:",notnull"`
	PrefixAvoirs       string `json:"prefix_avoirs" bun:",notnull"`
	NextNumberDevis    int64  `json:"next_number_devis" bun:",notnull,default:1"`
	NextNumberFactures int64  `json:"next_number_factures" bun:",notnull,default:1"`
	NextNumberAvoirs   int64  `json:"next_number_avoirs" bun:",notnull,default:1"`
	Version            int64  `json:"-" bun:",notnull,default:0"`
}
