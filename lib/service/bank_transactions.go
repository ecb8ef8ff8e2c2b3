package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/gestiopro/gestiohub.go/common"
	"github.com/gestiopro/gestiohub.go/db/models"
	"github.com/gestiopro/gestiohub.go/lib/bankcsv"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

type ImportResult struct {
	BatchID  uuid.UUID                `json:"batch_id"`
	Imported []models.BankTransaction `json:"imported"`
	Skipped  int                      `json:"skipped"`
	Matched  int                      `json:"matched"`
}

type Stats struct {
	Total     int    `json:"total"`
	Matched   int    `json:"matched"`
	Pending   int    `json:"pending"`
	Anomalies int    `json:"anomalies"`
	Ignored   int    `json:"ignored"`
	MatchRate string `json:"matchRate"`
}

type TransactionFilter struct {
	Statut string
	Limit  int
	Offset int
}

type OpenInvoice struct {
	*models.Document
	Remaining   decimal.Decimal `json:"remaining"`
	DaysOverdue int             `json:"daysOverdue"`
}

func (svc *GestiohubService) ImportCSV(ctx context.Context, entrepriseID int64, content string) (*ImportResult, error) {
	records, err := svc.parser().Parse(content)
	if err != nil {
		return nil, err
	}
	return svc.ImportTransactions(ctx, entrepriseID, records)
}

func (svc *GestiohubService) parser() *bankcsv.Parser {
	maxRows := svc.importMaxRows()
	if maxRows <= 0 {
		maxRows = bankcsv.DefaultMaxRows
	}
	return bankcsv.NewParser(maxRows)
}

// ImportTransactions inserts the records that are not known yet as PENDING and runs AutoMatch.
// A record is known when the entity already has a transaction with the same date, amount and label.
func (svc *GestiohubService) ImportTransactions(ctx context.Context, entrepriseID int64, records []bankcsv.Record) (*ImportResult, error) {
	result := &ImportResult{BatchID: uuid.New(), Imported: []models.BankTransaction{}}

	err := svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for _, record := range records {
			transaction := models.BankTransaction{
				EntrepriseID: entrepriseID,
				Date:         dateOnly(record.Date),
				Libelle:      strings.TrimSpace(record.Libelle),
				Montant:      record.Montant.Round(2),
				Reference:    record.Reference,
				Statut:       common.TransactionStatusPending,
				LotImport:    result.BatchID,
			}
			exists, err := tx.NewSelect().
				Model((*models.BankTransaction)(nil)).
				Where("bank_transaction.entreprise_id = ?", entrepriseID).
				Where("bank_transaction.date = ?", transaction.Date).
				Where("bank_transaction.montant = ?", transaction.Montant).
				Where("bank_transaction.libelle = ?", transaction.Libelle).
				Exists(ctx)
			if err != nil {
				return err
			}
			if exists {
				result.Skipped++
				continue
			}
			if _, err := tx.NewInsert().Model(&transaction).Exec(ctx); err != nil {
				return err
			}
			result.Imported = append(result.Imported, transaction)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	svc.Logger.Infof("Imported %d bank transactions for entreprise %d (%d skipped, batch %s)", len(result.Imported), entrepriseID, result.Skipped, result.BatchID)

	matched, err := svc.AutoMatch(ctx, entrepriseID)
	if err != nil {
		return nil, err
	}
	result.Matched = matched

	// statuses changed during the auto-match
	if len(result.Imported) > 0 {
		err = svc.DB.NewSelect().
			Model(&result.Imported).
			Where("bank_transaction.entreprise_id = ?", entrepriseID).
			Where("bank_transaction.lot_import = ?", result.BatchID).
			OrderExpr("bank_transaction.id ASC").
			Scan(ctx)
		if err != nil {
			return nil, err
		}
	}
	svc.publish(ctx, entrepriseID, common.EventTransactionsImported, result)
	return result, nil
}

// AutoMatch tries to link every PENDING transaction of the entity to an invoice and
// returns how many were matched. Resolved transactions are never re-evaluated.
func (svc *GestiohubService) AutoMatch(ctx context.Context, entrepriseID int64) (int, error) {
	pending := []models.BankTransaction{}
	err := svc.DB.NewSelect().
		Model(&pending).
		Where("bank_transaction.entreprise_id = ?", entrepriseID).
		Where("bank_transaction.statut = ?", common.TransactionStatusPending).
		OrderExpr("bank_transaction.date ASC, bank_transaction.id ASC").
		Scan(ctx)
	if err != nil {
		return 0, err
	}

	matched := 0
	for i := range pending {
		transaction := &pending[i]
		ok, err := svc.autoMatchTransaction(ctx, transaction)
		if err != nil {
			svc.Logger.Errorf("Auto-match failed for bank transaction %d: %v", transaction.ID, err)
			return matched, err
		}
		if ok {
			matched++
			svc.publish(ctx, entrepriseID, common.EventTransactionMatched, transaction)
		}
	}
	if matched > 0 {
		svc.Logger.Infof("Auto-matched %d/%d pending bank transactions for entreprise %d", matched, len(pending), entrepriseID)
	}
	return matched, nil
}

func (svc *GestiohubService) autoMatchTransaction(ctx context.Context, transaction *models.BankTransaction) (bool, error) {
	matched := false
	err := svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		documentID, err := svc.findMatchingInvoice(ctx, tx, transaction)
		if err != nil || documentID == 0 {
			return err
		}
		matched, err = svc.applyMatch(ctx, tx, transaction, documentID, common.TransactionStatusMatched)
		return err
	})
	return matched, err
}

// findMatchingInvoice runs the amount/date pass and then the label pass. It returns 0 when
// neither finds an invoice.
func (svc *GestiohubService) findMatchingInvoice(ctx context.Context, tx bun.Tx, transaction *models.BankTransaction) (int64, error) {
	window := svc.matchWindow()
	from := transaction.Date.Add(-window)
	to := transaction.Date.Add(window + 24*time.Hour)

	candidates := []models.Document{}
	err := tx.NewSelect().
		Model(&candidates).
		Relation("Paiements").
		Where("document.entreprise_id = ?", transaction.EntrepriseID).
		Where("document.type = ?", common.DocumentTypeFacture).
		Where("document.date_emission >= ?", from).
		Where("document.date_emission < ?", to).
		OrderExpr("document.date_emission ASC, document.id ASC").
		Scan(ctx)
	if err != nil {
		return 0, err
	}
	tolerance := svc.matchTolerance()
	for i := range candidates {
		remaining := candidates[i].RemainingBalance()
		if remaining.IsPositive() && remaining.Sub(transaction.Montant).Abs().LessThanOrEqual(tolerance) {
			return candidates[i].ID, nil
		}
	}

	// label pass: an invoice number quoted in the bank label
	invoices := []models.Document{}
	err = tx.NewSelect().
		Model(&invoices).
		Column("id", "numero").
		Where("document.entreprise_id = ?", transaction.EntrepriseID).
		Where("document.type = ?", common.DocumentTypeFacture).
		OrderExpr("document.id ASC").
		Scan(ctx)
	if err != nil {
		return 0, err
	}
	for _, invoice := range invoices {
		if invoice.Numero != "" && strings.Contains(transaction.Libelle, invoice.Numero) {
			return invoice.ID, nil
		}
	}
	return 0, nil
}

// transitionsFrom lists the statuses a transaction may leave to reach a given status.
// MATCHED, MANUAL and IGNORED are terminal; an ANOMALY is resolved by a manual match.
var transitionsFrom = map[string][]string{
	common.TransactionStatusMatched: {common.TransactionStatusPending},
	common.TransactionStatusManual:  {common.TransactionStatusPending, common.TransactionStatusAnomaly},
	common.TransactionStatusIgnored: {common.TransactionStatusPending},
	common.TransactionStatusAnomaly: {common.TransactionStatusPending},
}

func canTransition(from, to string) bool {
	for _, statut := range transitionsFrom[to] {
		if statut == from {
			return true
		}
	}
	return false
}

// applyMatch links the transaction to the document and books the payment it represents.
// It returns false when the transaction left the statuses the match may start from.
func (svc *GestiohubService) applyMatch(ctx context.Context, tx bun.Tx, transaction *models.BankTransaction, documentID int64, statut string) (bool, error) {
	doc, err := loadDocumentForUpdate(ctx, tx, transaction.EntrepriseID, documentID)
	if err != nil {
		return false, err
	}

	from := transitionsFrom[statut]
	res, err := tx.NewUpdate().
		Table("bank_transactions").
		Set("statut = ?", statut).
		Set("document_id = ?", doc.ID).
		Set("updated_at = ?", svc.now()).
		Where("id = ?", transaction.ID).
		Where("entreprise_id = ?", transaction.EntrepriseID).
		Where("statut IN (?)", bun.In(from)).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}
	transaction.Statut = statut
	transaction.DocumentID = doc.ID

	if !transaction.Montant.IsPositive() {
		return true, nil
	}
	remaining := doc.RemainingBalance()
	if !remaining.IsPositive() {
		return true, nil
	}
	booked, err := tx.NewSelect().
		Model((*models.Paiement)(nil)).
		Where("paiement.entreprise_id = ?", transaction.EntrepriseID).
		Where("paiement.bank_transaction_id = ?", transaction.ID).
		Exists(ctx)
	if err != nil || booked {
		return true, err
	}
	montant := decimal.Min(transaction.Montant, remaining)
	if _, err := recordPayment(ctx, tx, doc, montant, transaction.Date, common.PaymentModeVirement, transaction.ID); err != nil {
		return false, err
	}
	return true, nil
}

// ManualMatch links a pending transaction, or one flagged as an anomaly, to any document
// of the entity whatever the document status.
func (svc *GestiohubService) ManualMatch(ctx context.Context, entrepriseID, transactionID, documentID int64) (*models.BankTransaction, error) {
	var transaction *models.BankTransaction
	err := svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		t, err := loadTransactionForUpdate(ctx, tx, entrepriseID, transactionID)
		if err != nil {
			return err
		}
		if !canTransition(t.Statut, common.TransactionStatusManual) {
			return ErrTransactionResolved
		}
		applied, err := svc.applyMatch(ctx, tx, t, documentID, common.TransactionStatusManual)
		if err != nil {
			return err
		}
		if !applied {
			return ErrTransactionResolved
		}
		transaction = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	svc.publish(ctx, entrepriseID, common.EventTransactionMatched, transaction)
	return transaction, nil
}

func (svc *GestiohubService) IgnoreTransaction(ctx context.Context, entrepriseID, transactionID int64) (*models.BankTransaction, error) {
	return svc.setTransactionStatus(ctx, entrepriseID, transactionID, common.TransactionStatusIgnored, "")
}

func (svc *GestiohubService) MarkAsAnomaly(ctx context.Context, entrepriseID, transactionID int64, notes string) (*models.BankTransaction, error) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil, ErrAnomalyNotesRequired
	}
	return svc.setTransactionStatus(ctx, entrepriseID, transactionID, common.TransactionStatusAnomaly, notes)
}

func (svc *GestiohubService) setTransactionStatus(ctx context.Context, entrepriseID, transactionID int64, statut, notes string) (*models.BankTransaction, error) {
	var transaction *models.BankTransaction
	err := svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		t, err := loadTransactionForUpdate(ctx, tx, entrepriseID, transactionID)
		if err != nil {
			return err
		}
		if !canTransition(t.Statut, statut) {
			return ErrTransactionResolved
		}
		t.Statut = statut
		columns := []string{"statut", "updated_at"}
		if notes != "" {
			t.Notes = notes
			columns = append(columns, "notes")
		}
		res, err := tx.NewUpdate().
			Model(t).
			Column(columns...).
			WherePK().
			Where("statut IN (?)", bun.In(transitionsFrom[statut])).
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrTransactionResolved
		}
		transaction = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return transaction, nil
}

func loadTransactionForUpdate(ctx context.Context, tx bun.Tx, entrepriseID, transactionID int64) (*models.BankTransaction, error) {
	transaction := &models.BankTransaction{}
	q := tx.NewSelect().
		Model(transaction).
		Where("bank_transaction.id = ?", transactionID).
		Where("bank_transaction.entreprise_id = ?", entrepriseID)
	if tx.Dialect().Name() == dialect.PG {
		q = q.For("UPDATE")
	}
	err := q.Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return transaction, nil
}

func (svc *GestiohubService) FindTransaction(ctx context.Context, entrepriseID, transactionID int64) (*models.BankTransaction, error) {
	transaction := &models.BankTransaction{}
	err := svc.DB.NewSelect().
		Model(transaction).
		Where("bank_transaction.id = ?", transactionID).
		Where("bank_transaction.entreprise_id = ?", entrepriseID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return transaction, nil
}

func (svc *GestiohubService) ListTransactions(ctx context.Context, entrepriseID int64, filter TransactionFilter) ([]models.BankTransaction, error) {
	transactions := []models.BankTransaction{}
	q := svc.DB.NewSelect().
		Model(&transactions).
		Where("bank_transaction.entreprise_id = ?", entrepriseID).
		OrderExpr("bank_transaction.date DESC, bank_transaction.id DESC")
	if filter.Statut != "" {
		q = q.Where("bank_transaction.statut = ?", filter.Statut)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	err := q.Scan(ctx)
	return transactions, err
}

func (svc *GestiohubService) GetStats(ctx context.Context, entrepriseID int64) (*Stats, error) {
	var counts []struct {
		Statut string `bun:"statut"`
		Count  int    `bun:"count"`
	}
	err := svc.DB.NewSelect().
		Model((*models.BankTransaction)(nil)).
		Column("statut").
		ColumnExpr("count(*) AS count").
		Where("bank_transaction.entreprise_id = ?", entrepriseID).
		Group("statut").
		Scan(ctx, &counts)
	if err != nil {
		return nil, err
	}

	stats := &Stats{}
	for _, c := range counts {
		stats.Total += c.Count
		switch c.Statut {
		case common.TransactionStatusMatched, common.TransactionStatusManual:
			stats.Matched += c.Count
		case common.TransactionStatusPending:
			stats.Pending += c.Count
		case common.TransactionStatusAnomaly:
			stats.Anomalies += c.Count
		case common.TransactionStatusIgnored:
			stats.Ignored += c.Count
		}
	}
	stats.MatchRate = matchRate(stats.Matched, stats.Total)
	return stats, nil
}

// matchRate is the matched percentage with one decimal, "0" without transactions.
func matchRate(matched, total int) string {
	if total == 0 {
		return "0"
	}
	return decimal.NewFromInt(int64(matched)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(total))).
		StringFixed(1)
}

// ListOpenInvoices returns the invoices that still expect money, oldest first.
func (svc *GestiohubService) ListOpenInvoices(ctx context.Context, entrepriseID int64) ([]OpenInvoice, error) {
	invoices := []models.Document{}
	err := svc.DB.NewSelect().
		Model(&invoices).
		Relation("Paiements").
		Where("document.entreprise_id = ?", entrepriseID).
		Where("document.type = ?", common.DocumentTypeFacture).
		Where("document.statut <> ?", common.DocumentStatusAnnule).
		OrderExpr("document.date_emission ASC, document.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	now := svc.now()
	open := []OpenInvoice{}
	for i := range invoices {
		remaining := invoices[i].RemainingBalance()
		if !remaining.IsPositive() {
			continue
		}
		open = append(open, OpenInvoice{
			Document:    &invoices[i],
			Remaining:   remaining,
			DaysOverdue: invoices[i].DaysOverdue(now),
		})
	}
	return open, nil
}
