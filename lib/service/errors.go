package service

import (
	"errors"
	"strings"

	"github.com/gestiopro/gestiohub.go/lib/bankcsv"
	"github.com/uptrace/bun/driver/pgdriver"
)

// ParseError is returned when an uploaded statement can not be read.
type ParseError = bankcsv.ParseError

// NotFoundError means the referenced record does not exist for the calling entity.
type NotFoundError struct {
	Resource string
	Message  string
}

func (e *NotFoundError) Error() string { return e.Message }

// InvalidStateError means the record exists but the operation is not allowed in its current state.
type InvalidStateError struct {
	Message string
}

func (e *InvalidStateError) Error() string { return e.Message }

// ConflictError means a uniqueness rule would be broken.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

var (
	ErrQuoteNotFound         = &NotFoundError{Resource: "devis", Message: "Devis introuvable"}
	ErrDocumentNotFound      = &NotFoundError{Resource: "document", Message: "Document introuvable"}
	ErrTransactionNotFound   = &NotFoundError{Resource: "transaction", Message: "Transaction introuvable"}
	ErrSerieNotFound         = &NotFoundError{Resource: "serie", Message: "Série introuvable"}
	ErrArticleNotFound       = &NotFoundError{Resource: "article", Message: "Article introuvable"}
	ErrEntrepriseNotFound    = &NotFoundError{Resource: "entreprise", Message: "Entreprise introuvable"}
	ErrPreviewNotFound       = &NotFoundError{Resource: "import", Message: "Aperçu d'import introuvable ou expiré"}
	ErrNotAQuote             = &InvalidStateError{Message: "Ce document n'est pas un devis"}
	ErrQuoteNotAccepted      = &InvalidStateError{Message: "Seul un devis accepté peut être converti en facture"}
	ErrQuoteAlreadyConverted = &InvalidStateError{Message: "Ce devis a déjà été converti en facture"}
	ErrSerieInUse            = &InvalidStateError{Message: "Cette série est utilisée par des documents, désactivez-la plutôt"}
	ErrSerieNotApplicable    = &InvalidStateError{Message: "Cette série ne s'applique pas à ce type de document"}
	ErrAnomalyNotesRequired  = &InvalidStateError{Message: "Une note est requise pour signaler une anomalie"}
	ErrTransactionResolved   = &InvalidStateError{Message: "Cette transaction est déjà traitée et ne peut plus être modifiée"}
	ErrInvalidDocumentType   = &InvalidStateError{Message: "Type de document invalide"}
	ErrInvalidDocumentStatus = &InvalidStateError{Message: "Statut de document invalide"}
	ErrInvalidResetPolicy    = &InvalidStateError{Message: "Politique de remise à zéro invalide"}
	ErrSerieCodeRequired     = &InvalidStateError{Message: "Le code de la série est requis"}
	ErrInvalidPaymentAmount  = &InvalidStateError{Message: "Le montant du paiement doit être positif"}
	ErrDocumentWithoutLines  = &InvalidStateError{Message: "Un document doit contenir au moins une ligne"}
	ErrSerieCodeExists       = &ConflictError{Message: "Ce code de série existe déjà"}
	ErrArticleReferenceTaken = &ConflictError{Message: "Cette référence d'article existe déjà"}
)

// errCounterMoved signals a lost compare-and-swap on a numbering counter.
var errCounterMoved = errors.New("numbering counter was updated concurrently")

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
