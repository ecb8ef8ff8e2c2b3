package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

type index struct {
	name    string
	table   string
	columns []string
	unique  bool
	where   string
}

var indexes = []index{
	// identical statement lines imported twice must not create duplicates
	{name: "bank_transactions_dedup_idx", table: "bank_transactions", columns: []string{"entreprise_id", "date", "montant", "libelle"}, unique: true},
	{name: "bank_transactions_statut_idx", table: "bank_transactions", columns: []string{"entreprise_id", "statut"}},
	{name: "documents_entreprise_type_idx", table: "documents", columns: []string{"entreprise_id", "type", "date_emission"}},
	// a quote converts to at most one invoice
	{name: "documents_devis_id_idx", table: "documents", columns: []string{"devis_id"}, unique: true},
	{name: "document_lignes_document_idx", table: "document_lignes", columns: []string{"document_id", "ordre"}},
	{name: "paiements_document_idx", table: "paiements", columns: []string{"document_id"}},
	{name: "serie_documents_code_idx", table: "serie_documents", columns: []string{"entreprise_id", "code"}, unique: true},
	// at most one default series per document type and entity
	{name: "serie_documents_defaut_devis_idx", table: "serie_documents", columns: []string{"entreprise_id"}, unique: true, where: "est_defaut_devis"},
	{name: "serie_documents_defaut_factures_idx", table: "serie_documents", columns: []string{"entreprise_id"}, unique: true, where: "est_defaut_factures"},
	{name: "serie_documents_defaut_avoirs_idx", table: "serie_documents", columns: []string{"entreprise_id"}, unique: true, where: "est_defaut_avoirs"},
	{name: "articles_reference_idx", table: "articles", columns: []string{"entreprise_id", "reference"}, unique: true},
}

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		for _, idx := range indexes {
			q := db.NewCreateIndex().
				Table(idx.table).
				Index(idx.name).
				Column(idx.columns...).
				IfNotExists()
			if idx.unique {
				q = q.Unique()
			}
			if idx.where != "" {
				q = q.Where(idx.where)
			}
			if _, err := q.Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		for _, idx := range indexes {
			if _, err := db.NewDropIndex().Index(idx.name).IfExists().Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}
