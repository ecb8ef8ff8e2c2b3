package v2controllers

import (
	"net/http"

	"github.com/gestiopro/gestiohub.go/db/models"
	"github.com/gestiopro/gestiohub.go/lib/service"
	"github.com/labstack/echo/v4"
)

type ArticleController struct {
	svc *service.GestiohubService
}

func NewArticleController(svc *service.GestiohubService) *ArticleController {
	return &ArticleController{svc: svc}
}

type ArticlesResponseBody struct {
	Articles []models.Article `json:"articles"`
}

// List godoc
// @Summary      List the catalogue of the entreprise
// @Tags         Article
// @Param        reference  query     string  false  "exact reference"
// @Success      200        {object}  ArticlesResponseBody
// @Router       /v2/articles [get]
// @Security     BearerAuth
func (controller *ArticleController) List(c echo.Context) error {
	articles, err := controller.svc.ListArticles(c.Request().Context(), entrepriseID(c), c.QueryParam("reference"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &ArticlesResponseBody{Articles: articles})
}

func (controller *ArticleController) Create(c echo.Context) error {
	var body service.ArticleInput
	if err := bindAndValidate(c, &body); err != nil {
		return err
	}
	article, err := controller.svc.CreateArticle(c.Request().Context(), entrepriseID(c), &body)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, article)
}

func (controller *ArticleController) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	article, err := controller.svc.FindArticle(c.Request().Context(), entrepriseID(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, article)
}
