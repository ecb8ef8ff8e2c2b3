package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/gestiopro/gestiohub.go/db/models"
)

func (svc *GestiohubService) CreateEntreprise(ctx context.Context, nom string) (*models.Entreprise, error) {
	entreprise := &models.Entreprise{Nom: strings.TrimSpace(nom)}
	if _, err := svc.DB.NewInsert().Model(entreprise).Exec(ctx); err != nil {
		return nil, err
	}
	return entreprise, nil
}

func (svc *GestiohubService) FindEntreprise(ctx context.Context, entrepriseID int64) (*models.Entreprise, error) {
	entreprise := &models.Entreprise{}
	err := svc.DB.NewSelect().Model(entreprise).Where("id = ?", entrepriseID).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEntrepriseNotFound
	}
	if err != nil {
		return nil, err
	}
	return entreprise, nil
}
