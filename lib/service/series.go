package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/gestiopro/gestiohub.go/common"
	"github.com/gestiopro/gestiohub.go/db/models"
	"github.com/gestiopro/gestiohub.go/lib/numbering"
	"github.com/uptrace/bun"
)

type SerieInput struct {
	Code              string `json:"code" validate:"required,max=20"`
	Nom               string `json:"nom" validate:"max=100"`
	FormatNumero      string `json:"format_numero" validate:"max=100"`
	NextNumber        int64  `json:"next_number" validate:"omitempty,min=1"`
	ResetPolicy       string `json:"reset_policy" validate:"omitempty,oneof=NONE ANNUEL MENSUEL"`
	PourDevis         bool   `json:"pour_devis"`
	PourFactures      bool   `json:"pour_factures"`
	PourAvoirs        bool   `json:"pour_avoirs"`
	EstDefautDevis    bool   `json:"est_defaut_devis"`
	EstDefautFactures bool   `json:"est_defaut_factures"`
	EstDefautAvoirs   bool   `json:"est_defaut_avoirs"`
	Actif             *bool  `json:"actif"`
}

func (input *SerieInput) defaults() map[common.DocumentType]bool {
	return map[common.DocumentType]bool{
		common.DocumentTypeDevis:   input.EstDefautDevis,
		common.DocumentTypeFacture: input.EstDefautFactures,
		common.DocumentTypeAvoir:   input.EstDefautAvoirs,
	}
}

func (input *SerieInput) applyTo(serie *models.SerieDocument) error {
	serie.Code = strings.TrimSpace(input.Code)
	if serie.Code == "" {
		return ErrSerieCodeRequired
	}
	serie.Nom = strings.TrimSpace(input.Nom)
	if serie.Nom == "" {
		serie.Nom = serie.Code
	}
	serie.FormatNumero = strings.TrimSpace(input.FormatNumero)
	if serie.FormatNumero == "" {
		serie.FormatNumero = numbering.DefaultFormat
	}
	if input.NextNumber > 0 {
		serie.NextNumber = input.NextNumber
	}
	if serie.NextNumber < 1 {
		serie.NextNumber = 1
	}
	serie.ResetPolicy = input.ResetPolicy
	if serie.ResetPolicy == "" {
		serie.ResetPolicy = common.ResetPolicyNone
	}
	if !numbering.ValidResetPolicy(serie.ResetPolicy) {
		return ErrInvalidResetPolicy
	}
	serie.PourDevis = input.PourDevis
	serie.PourFactures = input.PourFactures
	serie.PourAvoirs = input.PourAvoirs
	// a default series always applies to its type
	for docType, isDefault := range input.defaults() {
		appliesTo, def := numberingByType[docType].serieFlags(serie)
		*def = isDefault
		if isDefault {
			*appliesTo = true
		}
	}
	if input.Actif != nil {
		serie.Actif = *input.Actif
	}
	return nil
}

func (svc *GestiohubService) CreateSerie(ctx context.Context, entrepriseID int64, input *SerieInput) (*models.SerieDocument, error) {
	serie := &models.SerieDocument{EntrepriseID: entrepriseID, Actif: true}
	if err := input.applyTo(serie); err != nil {
		return nil, err
	}

	err := svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		// the settings row serializes default reassignments of one entity
		if _, err := getOrCreateSettingsTx(ctx, tx, entrepriseID); err != nil {
			return err
		}
		if err := ensureSerieCodeFree(ctx, tx, entrepriseID, serie.Code, 0); err != nil {
			return err
		}
		if err := clearDefaults(ctx, tx, entrepriseID, input.defaults(), 0); err != nil {
			return err
		}
		if _, err := tx.NewInsert().Model(serie).Exec(ctx); err != nil {
			if isUniqueViolation(err) {
				return ErrSerieCodeExists
			}
			return err
		}
		// actif has a database default of true, inactive series are written explicitly
		if !serie.Actif {
			_, err := tx.NewUpdate().Table("serie_documents").Set("actif = ?", false).Where("id = ?", serie.ID).Exec(ctx)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return serie, nil
}

func (svc *GestiohubService) UpdateSerie(ctx context.Context, entrepriseID, serieID int64, input *SerieInput) (*models.SerieDocument, error) {
	var serie *models.SerieDocument
	err := svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := getOrCreateSettingsTx(ctx, tx, entrepriseID); err != nil {
			return err
		}
		s, err := lockSerie(ctx, tx, entrepriseID, serieID)
		if err != nil {
			return err
		}
		if err := input.applyTo(s); err != nil {
			return err
		}
		if err := ensureSerieCodeFree(ctx, tx, entrepriseID, s.Code, s.ID); err != nil {
			return err
		}
		if err := clearDefaults(ctx, tx, entrepriseID, input.defaults(), s.ID); err != nil {
			return err
		}
		_, err = tx.NewUpdate().
			Model(s).
			Column("code", "nom", "format_numero", "next_number", "reset_policy",
				"pour_devis", "pour_factures", "pour_avoirs",
				"est_defaut_devis", "est_defaut_factures", "est_defaut_avoirs",
				"actif", "updated_at").
			Set("version = version + 1").
			WherePK().
			Exec(ctx)
		if isUniqueViolation(err) {
			return ErrSerieCodeExists
		}
		if err != nil {
			return err
		}
		s.Version++
		serie = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return serie, nil
}

// SetDefaultSerie makes serieID the only default series of docType.
func (svc *GestiohubService) SetDefaultSerie(ctx context.Context, entrepriseID, serieID int64, docType common.DocumentType) (*models.SerieDocument, error) {
	cols, err := columnsFor(docType)
	if err != nil {
		return nil, err
	}
	var serie *models.SerieDocument
	err = svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := getOrCreateSettingsTx(ctx, tx, entrepriseID); err != nil {
			return err
		}
		s, err := lockSerie(ctx, tx, entrepriseID, serieID)
		if err != nil {
			return err
		}
		if err := clearDefaults(ctx, tx, entrepriseID, map[common.DocumentType]bool{docType: true}, s.ID); err != nil {
			return err
		}
		_, err = tx.NewUpdate().
			Table("serie_documents").
			Set("? = ?", bun.Ident(cols.isDefault), true).
			Set("? = ?", bun.Ident(cols.appliesTo), true).
			Set("version = version + 1").
			Set("updated_at = ?", svc.now()).
			Where("id = ?", s.ID).
			Where("entreprise_id = ?", entrepriseID).
			Exec(ctx)
		if err != nil {
			return err
		}
		appliesTo, isDefault := cols.serieFlags(s)
		*appliesTo, *isDefault = true, true
		s.Version++
		serie = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return serie, nil
}

// DeleteSerie refuses to remove a series that numbered documents.
func (svc *GestiohubService) DeleteSerie(ctx context.Context, entrepriseID, serieID int64) error {
	return svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := lockSerie(ctx, tx, entrepriseID, serieID); err != nil {
			return err
		}
		used, err := tx.NewSelect().
			Model((*models.Document)(nil)).
			Where("document.entreprise_id = ?", entrepriseID).
			Where("document.serie_id = ?", serieID).
			Exists(ctx)
		if err != nil {
			return err
		}
		if used {
			return ErrSerieInUse
		}
		_, err = tx.NewDelete().
			Model((*models.SerieDocument)(nil)).
			Where("id = ?", serieID).
			Where("entreprise_id = ?", entrepriseID).
			Exec(ctx)
		return err
	})
}

func (svc *GestiohubService) ListSeries(ctx context.Context, entrepriseID int64) ([]models.SerieDocument, error) {
	series := []models.SerieDocument{}
	err := svc.DB.NewSelect().
		Model(&series).
		Where("serie.entreprise_id = ?", entrepriseID).
		OrderExpr("serie.code ASC").
		Scan(ctx)
	return series, err
}

func (svc *GestiohubService) FindSerie(ctx context.Context, entrepriseID, serieID int64) (*models.SerieDocument, error) {
	serie := &models.SerieDocument{}
	err := svc.DB.NewSelect().
		Model(serie).
		Where("serie.id = ?", serieID).
		Where("serie.entreprise_id = ?", entrepriseID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSerieNotFound
	}
	if err != nil {
		return nil, err
	}
	return serie, nil
}

// PreviewNextNumber renders the number the series would issue now without consuming it.
// An empty docType previews the first type the series applies to.
func (svc *GestiohubService) PreviewNextNumber(ctx context.Context, entrepriseID, serieID int64, docType common.DocumentType) (string, error) {
	serie, err := svc.FindSerie(ctx, entrepriseID, serieID)
	if err != nil {
		return "", err
	}
	if docType == "" {
		docType = common.DocumentTypeFacture
		for _, t := range common.DocumentTypes {
			if appliesTo, _ := numberingByType[t].serieFlags(serie); *appliesTo {
				docType = t
				break
			}
		}
	}
	cols, err := columnsFor(docType)
	if err != nil {
		return "", err
	}
	if appliesTo, _ := cols.serieFlags(serie); !*appliesTo {
		return "", ErrSerieNotApplicable
	}
	now := svc.now()
	counter, _ := nextCounter(serie, now)
	return numbering.Format(serie.FormatNumero, serie.Code, docType, counter, now), nil
}

func ensureSerieCodeFree(ctx context.Context, tx bun.Tx, entrepriseID int64, code string, exceptID int64) error {
	exists, err := tx.NewSelect().
		Model((*models.SerieDocument)(nil)).
		Where("serie.entreprise_id = ?", entrepriseID).
		Where("serie.code = ?", code).
		Where("serie.id <> ?", exceptID).
		Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return ErrSerieCodeExists
	}
	return nil
}

// clearDefaults drops the default flag of every other series for the requested types.
// It runs before the new default is written so the partial unique indexes never see two defaults.
func clearDefaults(ctx context.Context, tx bun.Tx, entrepriseID int64, types map[common.DocumentType]bool, exceptID int64) error {
	for _, docType := range common.DocumentTypes {
		if !types[docType] {
			continue
		}
		col := bun.Ident(numberingByType[docType].isDefault)
		_, err := tx.NewUpdate().
			Table("serie_documents").
			Set("? = ?", col, false).
			Set("version = version + 1").
			Where("entreprise_id = ?", entrepriseID).
			Where("? = ?", col, true).
			Where("id <> ?", exceptID).
			Exec(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}
