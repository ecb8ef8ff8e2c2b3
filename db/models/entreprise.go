package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Entreprise : tenant root. Every other table is scoped by its id.
type Entreprise struct {
	bun.BaseModel `bun:"table:entreprises,alias:entreprise"`

	ID        int64     `json:"id" bun:",pk,autoincrement"`
	Nom       string    `json:"nom" bun:",notnull"`
	CreatedAt time.Time `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
}
