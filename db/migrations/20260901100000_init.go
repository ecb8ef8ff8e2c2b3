package migrations

import (
	"context"

	"github.com/gestiopro/gestiohub.go/db/models"
	"github.com/uptrace/bun"
)

/* Since this init will reflect the latest model fields when run on a fresh db
make sure that when you add/remove columns in subsequent migrations IfNotExists/IfExists is used
otherwise it's going to result in errors.
*/
func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		tables := []interface{}{
			(*models.Entreprise)(nil),
			(*models.EntrepriseSettings)(nil),
			(*models.SerieDocument)(nil),
			(*models.Document)(nil),
			(*models.DocumentLigne)(nil),
			(*models.Paiement)(nil),
			(*models.BankTransaction)(nil),
			(*models.Article)(nil),
		}
		for _, model := range tables {
			if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		tables := []interface{}{
			(*models.Article)(nil),
			(*models.BankTransaction)(nil),
			(*models.Paiement)(nil),
			(*models.DocumentLigne)(nil),
			(*models.Document)(nil),
			(*models.SerieDocument)(nil),
			(*models.EntrepriseSettings)(nil),
			(*models.Entreprise)(nil),
		}
		for _, model := range tables {
			if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}
