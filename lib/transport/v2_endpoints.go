package transport

import (
	v2controllers "github.com/gestiopro/gestiohub.go/controllers_v2"
	"github.com/gestiopro/gestiohub.go/lib/service"
	"github.com/labstack/echo/v4"
)

func RegisterV2Endpoints(svc *service.GestiohubService, e *echo.Echo, secured *echo.Group, securedWithStrictRateLimit *echo.Group) {
	e.GET("/health", v2controllers.NewHealthController(svc).Check)

	bankCtrl := v2controllers.NewBankTransactionController(svc)
	// imports parse and match whole statements, keep them on the strict limiter
	securedWithStrictRateLimit.POST("/v2/bank/transactions/import", bankCtrl.Import)
	securedWithStrictRateLimit.POST("/v2/bank/transactions/preview", bankCtrl.Preview)
	securedWithStrictRateLimit.POST("/v2/bank/transactions/confirm", bankCtrl.Confirm)
	securedWithStrictRateLimit.POST("/v2/bank/transactions/automatch", bankCtrl.AutoMatch)
	secured.GET("/v2/bank/transactions", bankCtrl.List)
	secured.GET("/v2/bank/transactions/:id", bankCtrl.Get)
	secured.POST("/v2/bank/transactions/:id/match", bankCtrl.Match)
	secured.POST("/v2/bank/transactions/:id/ignore", bankCtrl.Ignore)
	secured.POST("/v2/bank/transactions/:id/anomaly", bankCtrl.Anomaly)
	secured.GET("/v2/bank/stats", bankCtrl.Stats)
	secured.GET("/v2/invoices/open", bankCtrl.OpenInvoices)

	documentCtrl := v2controllers.NewDocumentController(svc)
	secured.POST("/v2/documents", documentCtrl.Create)
	secured.POST("/v2/documents/number", documentCtrl.GenerateNumber)
	secured.GET("/v2/documents/:id", documentCtrl.Get)
	secured.PUT("/v2/documents/:id/status", documentCtrl.UpdateStatus)
	secured.POST("/v2/documents/:id/payments", documentCtrl.AddPayment)
	secured.POST("/v2/documents/:id/convert", documentCtrl.Convert)

	serieCtrl := v2controllers.NewSerieController(svc)
	secured.GET("/v2/series", serieCtrl.List)
	secured.POST("/v2/series", serieCtrl.Create)
	secured.PUT("/v2/series/:id", serieCtrl.Update)
	secured.DELETE("/v2/series/:id", serieCtrl.Delete)
	secured.POST("/v2/series/:id/default", serieCtrl.SetDefault)
	secured.GET("/v2/series/:id/preview", serieCtrl.Preview)
	secured.GET("/v2/settings/numbering", serieCtrl.GetLegacyNumbering)
	secured.PUT("/v2/settings/numbering", serieCtrl.UpdateLegacyNumbering)

	articleCtrl := v2controllers.NewArticleController(svc)
	secured.GET("/v2/articles", articleCtrl.List)
	secured.POST("/v2/articles", articleCtrl.Create)
	secured.GET("/v2/articles/:id", articleCtrl.Get)
}
