package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/gestiopro/gestiohub.go/db/models"
	"github.com/shopspring/decimal"
)

type ArticleInput struct {
	Reference      string          `json:"reference" validate:"required,max=50"`
	Designation    string          `json:"designation" validate:"required"`
	PrixUnitaireHT decimal.Decimal `json:"prix_unitaire_ht"`
	TauxTVA        decimal.Decimal `json:"taux_tva"`
	Stock          int64           `json:"stock"`
}

func (svc *GestiohubService) CreateArticle(ctx context.Context, entrepriseID int64, input *ArticleInput) (*models.Article, error) {
	article := &models.Article{
		EntrepriseID:   entrepriseID,
		Reference:      strings.TrimSpace(input.Reference),
		Designation:    strings.TrimSpace(input.Designation),
		PrixUnitaireHT: input.PrixUnitaireHT.Round(2),
		TauxTVA:        input.TauxTVA,
		Stock:          input.Stock,
		Actif:          true,
	}
	exists, err := svc.DB.NewSelect().
		Model((*models.Article)(nil)).
		Where("article.entreprise_id = ?", entrepriseID).
		Where("article.reference = ?", article.Reference).
		Exists(ctx)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrArticleReferenceTaken
	}
	if _, err := svc.DB.NewInsert().Model(article).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrArticleReferenceTaken
		}
		return nil, err
	}
	return article, nil
}

// ListArticles returns the articles of the entity, optionally restricted to one reference.
func (svc *GestiohubService) ListArticles(ctx context.Context, entrepriseID int64, reference string) ([]models.Article, error) {
	articles := []models.Article{}
	q := svc.DB.NewSelect().
		Model(&articles).
		Where("article.entreprise_id = ?", entrepriseID).
		OrderExpr("article.reference ASC")
	if reference != "" {
		q = q.Where("article.reference = ?", reference)
	}
	err := q.Scan(ctx)
	return articles, err
}

func (svc *GestiohubService) FindArticle(ctx context.Context, entrepriseID, articleID int64) (*models.Article, error) {
	article := &models.Article{}
	err := svc.DB.NewSelect().
		Model(article).
		Where("article.id = ?", articleID).
		Where("article.entreprise_id = ?", entrepriseID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrArticleNotFound
	}
	if err != nil {
		return nil, err
	}
	return article, nil
}
