package integration_tests

import (
	"time"

	"github.com/gestiopro/gestiohub.go/db/models"
	"github.com/shopspring/decimal"
)

type ExpectedLigneRequestBody struct {
	Designation    string `json:"designation"`
	Quantite       string `json:"quantite"`
	PrixUnitaireHT string `json:"prix_unitaire_ht"`
	TauxTVA        string `json:"taux_tva"`
	RemisePourcent string `json:"remise_pourcent,omitempty"`
}

type ExpectedDocumentRequestBody struct {
	Type         string                     `json:"type"`
	Statut       string                     `json:"statut,omitempty"`
	DateEmission time.Time                  `json:"date_emission"`
	Lignes       []ExpectedLigneRequestBody `json:"lignes"`
}

type ExpectedImportResponseBody struct {
	BatchID  string                   `json:"batch_id"`
	Imported []models.BankTransaction `json:"imported"`
	Skipped  int                      `json:"skipped"`
	Matched  int                      `json:"matched"`
}

type ExpectedPreviewResponseBody struct {
	Token      string `json:"token"`
	Duplicates int    `json:"duplicates"`
	Records    []struct {
		Libelle string          `json:"libelle"`
		Montant decimal.Decimal `json:"montant"`
	} `json:"records"`
}

type ExpectedTransactionsResponseBody struct {
	Transactions []models.BankTransaction `json:"transactions"`
}

type ExpectedStatsResponseBody struct {
	Total     int    `json:"total"`
	Matched   int    `json:"matched"`
	Pending   int    `json:"pending"`
	Anomalies int    `json:"anomalies"`
	Ignored   int    `json:"ignored"`
	MatchRate string `json:"matchRate"`
}

type ExpectedOpenInvoicesResponseBody struct {
	Invoices []struct {
		ID          int64           `json:"id"`
		Numero      string          `json:"numero"`
		Remaining   decimal.Decimal `json:"remaining"`
		DaysOverdue int             `json:"daysOverdue"`
	} `json:"invoices"`
}

type ExpectedNumberResponseBody struct {
	Numero  string `json:"numero"`
	SerieID *int64 `json:"serie_id"`
}

type ExpectedSerieRequestBody struct {
	Code              string `json:"code"`
	FormatNumero      string `json:"format_numero,omitempty"`
	ResetPolicy       string `json:"reset_policy,omitempty"`
	PourFactures      bool   `json:"pour_factures"`
	EstDefautFactures bool   `json:"est_defaut_factures"`
}
