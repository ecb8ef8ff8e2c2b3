package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/gestiopro/gestiohub.go/db/models"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

const (
	defaultPrefixDevis    = "DEV"
	defaultPrefixFactures = "FAC"
	defaultPrefixAvoirs   = "AV"
)

type LegacyNumberingInput struct {
	PrefixDevis        *string `json:"prefix_devis"`
	PrefixFactures     *string `json:"prefix_factures"`
	PrefixAvoirs       *string `json:"prefix_avoirs"`
	NextNumberDevis    *int64  `json:"next_number_devis" validate:"omitempty,min=1"`
	NextNumberFactures *int64  `json:"next_number_factures" validate:"omitempty,min=1"`
	NextNumberAvoirs   *int64  `json:"next_number_avoirs" validate:"omitempty,min=1"`
}

func (svc *GestiohubService) GetOrCreateSettings(ctx context.Context, entrepriseID int64) (*models.EntrepriseSettings, error) {
	var settings *models.EntrepriseSettings
	err := svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		s, err := getOrCreateSettingsTx(ctx, tx, entrepriseID)
		settings = s
		return err
	})
	return settings, err
}

// getOrCreateSettingsTx inserts the defaults when missing and returns the row locked on PostgreSQL.
// Concurrent first callers race on the unique entreprise_id and all end up reading the same row.
func getOrCreateSettingsTx(ctx context.Context, tx bun.Tx, entrepriseID int64) (*models.EntrepriseSettings, error) {
	defaults := &models.EntrepriseSettings{
		EntrepriseID:       entrepriseID,
		PrefixDevis:        defaultPrefixDevis,
		PrefixFactures:     defaultPrefixFactures,
		PrefixAvoirs:       defaultPrefixAvoirs,
		NextNumberDevis:    1,
		NextNumberFactures: 1,
		NextNumberAvoirs:   1,
	}
	_, err := tx.NewInsert().
		Model(defaults).
		On("CONFLICT (entreprise_id) DO NOTHING").
		Returning("NULL").
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	settings := &models.EntrepriseSettings{}
	q := tx.NewSelect().Model(settings).Where("settings.entreprise_id = ?", entrepriseID).Limit(1)
	if tx.Dialect().Name() == dialect.PG {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return settings, nil
}

func (svc *GestiohubService) UpdateLegacyNumbering(ctx context.Context, entrepriseID int64, input *LegacyNumberingInput) (*models.EntrepriseSettings, error) {
	var settings *models.EntrepriseSettings
	err := svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		s, err := getOrCreateSettingsTx(ctx, tx, entrepriseID)
		if err != nil {
			return err
		}
		if input.PrefixDevis != nil {
			s.PrefixDevis = strings.TrimSpace(*input.PrefixDevis)
		}
		if input.PrefixFactures != nil {
			s.PrefixFactures = strings.TrimSpace(*input.PrefixFactures)
		}
		if input.PrefixAvoirs != nil {
			s.PrefixAvoirs = strings.TrimSpace(*input.PrefixAvoirs)
		}
		if input.NextNumberDevis != nil {
			s.NextNumberDevis = *input.NextNumberDevis
		}
		if input.NextNumberFactures != nil {
			s.NextNumberFactures = *input.NextNumberFactures
		}
		if input.NextNumberAvoirs != nil {
			s.NextNumberAvoirs = *input.NextNumberAvoirs
		}
		res, err := tx.NewUpdate().
			Model(s).
			Column("prefix_devis", "prefix_factures", "prefix_avoirs", "next_number_devis", "next_number_factures", "next_number_avoirs").
			Set("version = version + 1").
			WherePK().
			Where("version = ?", s.Version).
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errCounterMoved
		}
		s.Version++
		settings = s
		return nil
	})
	return settings, err
}
