package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gestiopro/gestiohub.go/db/models"
	"github.com/gestiopro/gestiohub.go/lib/bankcsv"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

type ImportPreview struct {
	Token      string           `json:"token"`
	Records    []bankcsv.Record `json:"records"`
	Duplicates int              `json:"duplicates"`
	ExpiresAt  time.Time        `json:"expires_at"`
}

// tokens are only valid for the entity that created them
func previewKey(entrepriseID int64, token string) string {
	return fmt.Sprintf("%d:%s", entrepriseID, token)
}

// PreviewImport parses a statement and keeps the batch in memory until it is confirmed.
func (svc *GestiohubService) PreviewImport(ctx context.Context, entrepriseID int64, content string) (*ImportPreview, error) {
	records, err := svc.parser().Parse(content)
	if err != nil {
		return nil, err
	}
	preview := &ImportPreview{
		Token:   uuid.NewString(),
		Records: records,
	}
	for _, record := range records {
		exists, err := svc.DB.NewSelect().
			Model((*models.BankTransaction)(nil)).
			Where("bank_transaction.entreprise_id = ?", entrepriseID).
			Where("bank_transaction.date = ?", dateOnly(record.Date)).
			Where("bank_transaction.montant = ?", record.Montant.Round(2)).
			Where("bank_transaction.libelle = ?", record.Libelle).
			Exists(ctx)
		if err != nil {
			return nil, err
		}
		if exists {
			preview.Duplicates++
		}
	}
	svc.Previews.Set(previewKey(entrepriseID, preview.Token), records, cache.DefaultExpiration)
	_, expiresAt, _ := svc.Previews.GetWithExpiration(previewKey(entrepriseID, preview.Token))
	preview.ExpiresAt = expiresAt
	return preview, nil
}

// ConfirmImport imports a previewed batch. A token can be confirmed once.
func (svc *GestiohubService) ConfirmImport(ctx context.Context, entrepriseID int64, token string) (*ImportResult, error) {
	key := previewKey(entrepriseID, token)
	cached, found := svc.Previews.Get(key)
	if !found {
		return nil, ErrPreviewNotFound
	}
	svc.Previews.Delete(key)
	return svc.ImportTransactions(ctx, entrepriseID, cached.([]bankcsv.Record))
}
