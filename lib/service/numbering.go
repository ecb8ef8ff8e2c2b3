package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gestiopro/gestiohub.go/common"
	"github.com/gestiopro/gestiohub.go/db/models"
	"github.com/gestiopro/gestiohub.go/lib/numbering"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

type GeneratedNumber struct {
	Numero  string `json:"numero"`
	SerieID *int64 `json:"serie_id"`
}

// numberingColumns maps a document type to the columns holding its series flags and legacy counter.
type numberingColumns struct {
	appliesTo     string
	isDefault     string
	legacyCounter string
	legacyPrefix  func(*models.EntrepriseSettings) string
	legacyNext    func(*models.EntrepriseSettings) int64
	serieFlags    func(*models.SerieDocument) (appliesTo, isDefault *bool)
}

var numberingByType = map[common.DocumentType]numberingColumns{
	common.DocumentTypeDevis: {
		appliesTo:     "pour_devis",
		isDefault:     "est_defaut_devis",
		legacyCounter: "next_number_devis",
		legacyPrefix:  func(s *models.EntrepriseSettings) string { return s.PrefixDevis },
		legacyNext:    func(s *models.EntrepriseSettings) int64 { return s.NextNumberDevis },
		serieFlags: func(s *models.SerieDocument) (*bool, *bool) {
			return &s.PourDevis, &s.EstDefautDevis
		},
	},
	common.DocumentTypeFacture: {
		appliesTo:     "pour_factures",
		isDefault:     "est_defaut_factures",
		legacyCounter: "next_number_factures",
		legacyPrefix:  func(s *models.EntrepriseSettings) string { return s.PrefixFactures },
		legacyNext:    func(s *models.EntrepriseSettings) int64 { return s.NextNumberFactures },
		serieFlags: func(s *models.SerieDocument) (*bool, *bool) {
			return &s.PourFactures, &s.EstDefautFactures
		},
	},
	common.DocumentTypeAvoir: {
		appliesTo:     "pour_avoirs",
		isDefault:     "est_defaut_avoirs",
		legacyCounter: "next_number_avoirs",
		legacyPrefix:  func(s *models.EntrepriseSettings) string { return s.PrefixAvoirs },
		legacyNext:    func(s *models.EntrepriseSettings) int64 { return s.NextNumberAvoirs },
		serieFlags: func(s *models.SerieDocument) (*bool, *bool) {
			return &s.PourAvoirs, &s.EstDefautAvoirs
		},
	},
}

func columnsFor(docType common.DocumentType) (numberingColumns, error) {
	cols, ok := numberingByType[docType]
	if !ok {
		return numberingColumns{}, ErrInvalidDocumentType
	}
	return cols, nil
}

// GenerateNumber allocates the next number for docType in its own transaction.
func (svc *GestiohubService) GenerateNumber(ctx context.Context, entrepriseID int64, docType common.DocumentType) (*GeneratedNumber, error) {
	var generated *GeneratedNumber
	err := svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		g, err := svc.generateNumberTx(ctx, tx, entrepriseID, docType)
		generated = g
		return err
	})
	if err != nil {
		return nil, err
	}
	return generated, nil
}

// generateNumberTx allocates a number inside the caller's transaction. The counter
// increment is rolled back together with the caller's work.
func (svc *GestiohubService) generateNumberTx(ctx context.Context, tx bun.Tx, entrepriseID int64, docType common.DocumentType) (*GeneratedNumber, error) {
	cols, err := columnsFor(docType)
	if err != nil {
		return nil, err
	}

	var serieID int64
	err = tx.NewSelect().
		Model((*models.SerieDocument)(nil)).
		Column("serie.id").
		Where("serie.entreprise_id = ?", entrepriseID).
		Where("serie.actif = ?", true).
		Where("?TableAlias.? = ?", bun.Ident(cols.isDefault), true).
		Where("?TableAlias.? = ?", bun.Ident(cols.appliesTo), true).
		OrderExpr("serie.id ASC").
		Limit(1).
		Scan(ctx, &serieID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		numero, err := svc.nextLegacyNumber(ctx, tx, entrepriseID, cols)
		if err != nil {
			return nil, err
		}
		return &GeneratedNumber{Numero: numero}, nil
	case err != nil:
		return nil, err
	}

	numero, err := svc.nextSerieNumber(ctx, tx, entrepriseID, serieID, docType)
	if err != nil {
		return nil, err
	}
	return &GeneratedNumber{Numero: numero, SerieID: &serieID}, nil
}

// nextSerieNumber consumes one number of a series. The row is locked on PostgreSQL
// and the write is a compare-and-swap on version, retried when another writer won.
func (svc *GestiohubService) nextSerieNumber(ctx context.Context, tx bun.Tx, entrepriseID, serieID int64, docType common.DocumentType) (string, error) {
	var numero string
	operation := func() error {
		serie, err := lockSerie(ctx, tx, entrepriseID, serieID)
		if err != nil {
			return backoff.Permanent(err)
		}
		now := svc.now()
		counter, reset := nextCounter(serie, now)

		q := tx.NewUpdate().
			Table("serie_documents").
			Set("next_number = ?", counter+1).
			Set("version = version + 1").
			Set("updated_at = ?", now)
		if reset {
			q = q.Set("last_reset = ?", now)
		}
		res, err := q.
			Where("id = ?", serie.ID).
			Where("entreprise_id = ?", entrepriseID).
			Where("version = ?", serie.Version).
			Exec(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errCounterMoved
		}
		numero = numbering.Format(serie.FormatNumero, serie.Code, docType, counter, now)
		return nil
	}
	if err := backoff.Retry(operation, svc.counterBackoff(ctx)); err != nil {
		return "", err
	}
	return numero, nil
}

func (svc *GestiohubService) nextLegacyNumber(ctx context.Context, tx bun.Tx, entrepriseID int64, cols numberingColumns) (string, error) {
	var numero string
	operation := func() error {
		settings, err := getOrCreateSettingsTx(ctx, tx, entrepriseID)
		if err != nil {
			return backoff.Permanent(err)
		}
		counter := cols.legacyNext(settings)
		res, err := tx.NewUpdate().
			Table("entreprise_settings").
			Set("? = ?", bun.Ident(cols.legacyCounter), counter+1).
			Set("version = version + 1").
			Where("id = ?", settings.ID).
			Where("version = ?", settings.Version).
			Exec(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errCounterMoved
		}
		numero = numbering.FormatLegacy(cols.legacyPrefix(settings), counter)
		return nil
	}
	if err := backoff.Retry(operation, svc.counterBackoff(ctx)); err != nil {
		return "", err
	}
	return numero, nil
}

func (svc *GestiohubService) counterBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond
	return backoff.WithContext(backoff.WithMaxRetries(b, svc.numberingRetries()), ctx)
}

func lockSerie(ctx context.Context, tx bun.Tx, entrepriseID, serieID int64) (*models.SerieDocument, error) {
	serie := &models.SerieDocument{}
	q := tx.NewSelect().
		Model(serie).
		Where("serie.id = ?", serieID).
		Where("serie.entreprise_id = ?", entrepriseID)
	if tx.Dialect().Name() == dialect.PG {
		q = q.For("UPDATE")
	}
	err := q.Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSerieNotFound
	}
	return serie, err
}

// nextCounter returns the counter value to use at now and whether the series resets.
func nextCounter(serie *models.SerieDocument, now time.Time) (int64, bool) {
	if numbering.NeedsReset(serie.ResetPolicy, serie.LastReset.Time, now) {
		return 1, true
	}
	if serie.NextNumber < 1 {
		return 1, false
	}
	return serie.NextNumber, false
}
