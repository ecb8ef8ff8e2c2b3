package common

type DocumentType string

const (
	DocumentTypeDevis   DocumentType = "DEVIS"
	DocumentTypeFacture DocumentType = "FACTURE"
	DocumentTypeAvoir   DocumentType = "AVOIR"
)

var DocumentTypes = []DocumentType{DocumentTypeDevis, DocumentTypeFacture, DocumentTypeAvoir}

func (t DocumentType) Valid() bool {
	switch t {
	case DocumentTypeDevis, DocumentTypeFacture, DocumentTypeAvoir:
		return true
	}
	return false
}

// Short code used by the {TYPE} token of numbering templates.
func (t DocumentType) ShortCode() string {
	switch t {
	case DocumentTypeDevis:
		return "DEV"
	case DocumentTypeFacture:
		return "FAC"
	case DocumentTypeAvoir:
		return "AV"
	}
	return ""
}

const (
	DocumentStatusBrouillon = "BROUILLON"
	DocumentStatusEnvoye    = "ENVOYE"
	DocumentStatusAccepte   = "ACCEPTE"
	DocumentStatusRefuse    = "REFUSE"
	DocumentStatusPaye      = "PAYE"
	DocumentStatusAnnule    = "ANNULE"

	TransactionStatusPending = "PENDING"
	TransactionStatusMatched = "MATCHED"
	TransactionStatusManual  = "MANUAL"
	TransactionStatusIgnored = "IGNORED"
	TransactionStatusAnomaly = "ANOMALY"

	ResetPolicyNone    = "NONE"
	ResetPolicyAnnual  = "ANNUEL"
	ResetPolicyMonthly = "MENSUEL"

	PaymentModeVirement = "VIREMENT"
	PaymentModeManuel   = "MANUEL"

	EventTransactionsImported = "bank_transaction.imported"
	EventTransactionMatched   = "bank_transaction.matched"
	EventDocumentCreated      = "document.created"
	EventQuoteConverted       = "devis.converted"
)

var DocumentStatuses = []string{
	DocumentStatusBrouillon,
	DocumentStatusEnvoye,
	DocumentStatusAccepte,
	DocumentStatusRefuse,
	DocumentStatusPaye,
	DocumentStatusAnnule,
}
