package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gestiopro/gestiohub.go/common"
	"github.com/gestiopro/gestiohub.go/lib/service"
	"github.com/gestiopro/gestiohub.go/rabbitmq/mock_rabbitmq"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statement = "Date;Libellé;Montant;Référence\n" +
	"05/03/2026;VIR SEPA DUPONT SARL;1 200,00;REF-1\n" +
	"06/03/2026;PRLV EDF;-84,30;\n"

func TestImportIsIdempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	entrepriseID := createEntreprise(t, svc, "Plomberie Martin")

	first, err := svc.ImportCSV(ctx, entrepriseID, statement)
	require.NoError(t, err)
	assert.Len(t, first.Imported, 2)
	assert.Equal(t, 0, first.Skipped)
	for _, transaction := range first.Imported {
		assert.Equal(t, first.BatchID, transaction.LotImport)
		assert.Equal(t, common.TransactionStatusPending, transaction.Statut)
	}

	second, err := svc.ImportCSV(ctx, entrepriseID, statement)
	require.NoError(t, err)
	assert.Empty(t, second.Imported)
	assert.Equal(t, 2, second.Skipped)

	transactions, err := svc.ListTransactions(ctx, entrepriseID, service.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, transactions, 2)
	// newest first
	assert.Equal(t, "PRLV EDF", transactions[0].Libelle)
	assert.True(t, decimal.RequireFromString("-84.30").Equal(transactions[0].Montant))
}

func TestImportRejectsWholeBatchOnParseError(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	entrepriseID := createEntreprise(t, svc, "Plomberie Martin")

	_, err := svc.ImportCSV(ctx, entrepriseID, statement+"31/02/2026;VIR;10,00;\n")
	var parseErr *service.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, 4, parseErr.Row)

	transactions, err := svc.ListTransactions(ctx, entrepriseID, service.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, transactions)
}

func TestAutoMatchTolerance(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected string
	}{
		{"exact amount same day", "03/03/2026;VIR CLIENT;1200,00;", common.TransactionStatusMatched},
		{"within tolerance", "04/03/2026;VIR CLIENT;1200,01;", common.TransactionStatusMatched},
		{"below within tolerance", "04/03/2026;VIR CLIENT;1199,99;", common.TransactionStatusMatched},
		{"three days later", "06/03/2026;VIR CLIENT;1200,00;", common.TransactionStatusMatched},
		{"three days earlier", "28/02/2026;VIR CLIENT;1200,00;", common.TransactionStatusMatched},
		{"off by two cents", "04/03/2026;VIR CLIENT;1200,02;", common.TransactionStatusPending},
		{"four days later", "07/03/2026;VIR CLIENT;1200,00;", common.TransactionStatusPending},
		{"four days earlier", "27/02/2026;VIR CLIENT;1200,00;", common.TransactionStatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t)
			ctx := context.Background()
			entrepriseID := createEntreprise(t, svc, "Plomberie Martin")
			invoice := createInvoice(t, svc, entrepriseID, "1200.00", day(2026, 3, 3))

			result, err := svc.ImportCSV(ctx, entrepriseID, "Date;Libellé;Montant\n"+tt.line+"\n")
			require.NoError(t, err)
			require.Len(t, result.Imported, 1)
			transaction := result.Imported[0]
			assert.Equal(t, tt.expected, transaction.Statut)
			if tt.expected == common.TransactionStatusMatched {
				assert.Equal(t, 1, result.Matched)
				assert.Equal(t, invoice.ID, transaction.DocumentID)
			} else {
				assert.Equal(t, 0, result.Matched)
				assert.Zero(t, transaction.DocumentID)
			}
		})
	}
}

func TestMatchRecordsPayment(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	entrepriseID := createEntreprise(t, svc, "Plomberie Martin")
	invoice := createInvoice(t, svc, entrepriseID, "1200.00", day(2026, 3, 3))

	_, err := svc.ImportCSV(ctx, entrepriseID, statement)
	require.NoError(t, err)

	doc, err := svc.FindDocument(ctx, entrepriseID, invoice.ID)
	require.NoError(t, err)
	require.Len(t, doc.Paiements, 1)
	assert.True(t, decimal.NewFromInt(1200).Equal(doc.Paiements[0].Montant))
	assert.Equal(t, common.PaymentModeVirement, doc.Paiements[0].Mode)
	assert.NotZero(t, doc.Paiements[0].BankTransactionID)
	assert.True(t, doc.MontantRestant.IsZero())
	assert.Equal(t, common.DocumentStatusPaye, doc.Statut)

	// a paid invoice is no longer a candidate
	result, err := svc.ImportCSV(ctx, entrepriseID, "Date;Libellé;Montant\n04/03/2026;VIR AUTRE;1200,00\n")
	require.NoError(t, err)
	assert.Equal(t, common.TransactionStatusPending, result.Imported[0].Statut)
}

func TestAutoMatchComparesRemainingBalance(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	entrepriseID := createEntreprise(t, svc, "Plomberie Martin")
	invoice := createInvoice(t, svc, entrepriseID, "100.00", day(2026, 3, 2))
	_, err := svc.AddPayment(ctx, entrepriseID, invoice.ID, &service.PaymentInput{
		Montant:      decimal.NewFromInt(60),
		DatePaiement: day(2026, 3, 2),
	})
	require.NoError(t, err)

	// the full amount no longer matches, the balance does
	result, err := svc.ImportCSV(ctx, entrepriseID, "Date;Libellé;Montant\n"+
		"03/03/2026;VIR TOTAL;100,00\n"+
		"04/03/2026;VIR SOLDE;40,00\n")
	require.NoError(t, err)
	require.Len(t, result.Imported, 2)
	assert.Equal(t, common.TransactionStatusPending, result.Imported[0].Statut)
	assert.Equal(t, common.TransactionStatusMatched, result.Imported[1].Statut)
	assert.Equal(t, invoice.ID, result.Imported[1].DocumentID)

	doc, err := svc.FindDocument(ctx, entrepriseID, invoice.ID)
	require.NoError(t, err)
	assert.Len(t, doc.Paiements, 2)
	assert.True(t, doc.MontantRestant.IsZero())
	assert.Equal(t, common.DocumentStatusPaye, doc.Statut)
}

func TestAutoMatchLabelFallback(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	entrepriseID := createEntreprise(t, svc, "Plomberie Martin")
	createInvoice(t, svc, entrepriseID, "300.00", day(2026, 1, 10))
	second := createInvoice(t, svc, entrepriseID, "450.00", day(2026, 1, 12))
	require.Equal(t, "FAC00002", second.Numero)

	result, err := svc.ImportCSV(ctx, entrepriseID, "Date;Libellé;Montant\n09/03/2026;REGLEMENT FACTURE FAC00002 MERCI;200,00\n")
	require.NoError(t, err)
	transaction := result.Imported[0]
	assert.Equal(t, common.TransactionStatusMatched, transaction.Statut)
	assert.Equal(t, second.ID, transaction.DocumentID)

	doc, err := svc.FindDocument(ctx, entrepriseID, second.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(250).Equal(doc.MontantRestant))
	assert.Equal(t, common.DocumentStatusEnvoye, doc.Statut)
}

func TestAutoMatchLeavesResolvedTransactionsAlone(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	entrepriseID := createEntreprise(t, svc, "Plomberie Martin")

	result, err := svc.ImportCSV(ctx, entrepriseID, "Date;Libellé;Montant\n"+
		"02/03/2026;VIR A;100,00\n"+
		"02/03/2026;VIR B;200,00\n"+
		"02/03/2026;VIR C;300,00\n")
	require.NoError(t, err)
	require.Len(t, result.Imported, 3)
	a, b, c := result.Imported[0], result.Imported[1], result.Imported[2]

	_, err = svc.IgnoreTransaction(ctx, entrepriseID, a.ID)
	require.NoError(t, err)
	_, err = svc.MarkAsAnomaly(ctx, entrepriseID, b.ID, "Virement en double")
	require.NoError(t, err)
	first := createInvoice(t, svc, entrepriseID, "999.00", day(2025, 12, 1))
	_, err = svc.ManualMatch(ctx, entrepriseID, c.ID, first.ID)
	require.NoError(t, err)

	// invoices that would now match every transaction
	createInvoice(t, svc, entrepriseID, "100.00", day(2026, 3, 2))
	createInvoice(t, svc, entrepriseID, "200.00", day(2026, 3, 2))
	createInvoice(t, svc, entrepriseID, "300.00", day(2026, 3, 2))

	for i := 0; i < 2; i++ {
		matched, err := svc.AutoMatch(ctx, entrepriseID)
		require.NoError(t, err)
		assert.Equal(t, 0, matched)
	}

	ignored, err := svc.FindTransaction(ctx, entrepriseID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, common.TransactionStatusIgnored, ignored.Statut)
	assert.Zero(t, ignored.DocumentID)

	anomaly, err := svc.FindTransaction(ctx, entrepriseID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, common.TransactionStatusAnomaly, anomaly.Statut)
	assert.Equal(t, "Virement en double", anomaly.Notes)

	manual, err := svc.FindTransaction(ctx, entrepriseID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, common.TransactionStatusManual, manual.Statut)
	assert.Equal(t, first.ID, manual.DocumentID)
}

func TestManualMatch(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	entrepriseID := createEntreprise(t, svc, "Plomberie Martin")
	otherID := createEntreprise(t, svc, "Electricité Durand")
	invoice := createInvoice(t, svc, entrepriseID, "500.00", day(2025, 11, 2))
	foreign := createInvoice(t, svc, otherID, "500.00", day(2025, 11, 2))

	result, err := svc.ImportCSV(ctx, entrepriseID, "Date;Libellé;Montant\n09/03/2026;CHQ 4411;500,00\n")
	require.NoError(t, err)
	transaction := result.Imported[0]
	require.Equal(t, common.TransactionStatusPending, transaction.Statut)

	_, err = svc.ManualMatch(ctx, entrepriseID, transaction.ID, foreign.ID)
	assert.ErrorIs(t, err, service.ErrDocumentNotFound)
	_, err = svc.ManualMatch(ctx, entrepriseID, transaction.ID+1000, invoice.ID)
	assert.ErrorIs(t, err, service.ErrTransactionNotFound)

	matched, err := svc.ManualMatch(ctx, entrepriseID, transaction.ID, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, common.TransactionStatusManual, matched.Statut)
	assert.Equal(t, invoice.ID, matched.DocumentID)

	// a manual match is final
	_, err = svc.ManualMatch(ctx, entrepriseID, transaction.ID, invoice.ID)
	assert.ErrorIs(t, err, service.ErrTransactionResolved)
	doc, err := svc.FindDocument(ctx, entrepriseID, invoice.ID)
	require.NoError(t, err)
	assert.Len(t, doc.Paiements, 1)
	assert.Equal(t, common.DocumentStatusPaye, doc.Statut)
}

func TestResolvedTransactionsRejectManualOperations(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	entrepriseID := createEntreprise(t, svc, "Plomberie Martin")
	paid := createInvoice(t, svc, entrepriseID, "1200.00", day(2026, 3, 4))
	manualInvoice := createInvoice(t, svc, entrepriseID, "75.00", day(2025, 10, 1))
	other := createInvoice(t, svc, entrepriseID, "640.00", day(2025, 10, 1))

	result, err := svc.ImportCSV(ctx, entrepriseID, "Date;Libellé;Montant\n"+
		"04/03/2026;VIR DUPONT;1200,00\n"+
		"05/03/2026;CHQ 8812;75,00\n"+
		"06/03/2026;FRAIS TENUE COMPTE;-12,00\n")
	require.NoError(t, err)
	require.Len(t, result.Imported, 3)
	matched, manual, ignored := result.Imported[0], result.Imported[1], result.Imported[2]
	require.Equal(t, common.TransactionStatusMatched, matched.Statut)
	require.Equal(t, paid.ID, matched.DocumentID)

	_, err = svc.ManualMatch(ctx, entrepriseID, manual.ID, manualInvoice.ID)
	require.NoError(t, err)
	_, err = svc.IgnoreTransaction(ctx, entrepriseID, ignored.ID)
	require.NoError(t, err)

	expected := map[int64]struct {
		statut     string
		documentID int64
	}{
		matched.ID: {common.TransactionStatusMatched, paid.ID},
		manual.ID:  {common.TransactionStatusManual, manualInvoice.ID},
		ignored.ID: {common.TransactionStatusIgnored, 0},
	}
	for id, want := range expected {
		_, err = svc.ManualMatch(ctx, entrepriseID, id, other.ID)
		assert.ErrorIs(t, err, service.ErrTransactionResolved)
		_, err = svc.IgnoreTransaction(ctx, entrepriseID, id)
		assert.ErrorIs(t, err, service.ErrTransactionResolved)
		_, err = svc.MarkAsAnomaly(ctx, entrepriseID, id, "Virement contesté")
		assert.ErrorIs(t, err, service.ErrTransactionResolved)

		transaction, err := svc.FindTransaction(ctx, entrepriseID, id)
		require.NoError(t, err)
		assert.Equal(t, want.statut, transaction.Statut)
		assert.Equal(t, want.documentID, transaction.DocumentID)
		assert.Empty(t, transaction.Notes)
	}

	doc, err := svc.FindDocument(ctx, entrepriseID, paid.ID)
	require.NoError(t, err)
	require.Len(t, doc.Paiements, 1)
	assert.Equal(t, matched.ID, doc.Paiements[0].BankTransactionID)
	assert.Equal(t, common.DocumentStatusPaye, doc.Statut)

	doc, err = svc.FindDocument(ctx, entrepriseID, manualInvoice.ID)
	require.NoError(t, err)
	assert.Len(t, doc.Paiements, 1)
	assert.Equal(t, common.DocumentStatusPaye, doc.Statut)

	doc, err = svc.FindDocument(ctx, entrepriseID, other.ID)
	require.NoError(t, err)
	assert.Empty(t, doc.Paiements)
	assert.True(t, decimal.NewFromInt(640).Equal(doc.MontantRestant))
}

func TestAnomalyIsResolvedByManualMatch(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	entrepriseID := createEntreprise(t, svc, "Plomberie Martin")
	invoice := createInvoice(t, svc, entrepriseID, "380.00", day(2025, 9, 15))

	result, err := svc.ImportCSV(ctx, entrepriseID, "Date;Libellé;Montant\n09/03/2026;VIR INCONNU;380,00\n")
	require.NoError(t, err)
	transaction := result.Imported[0]
	require.Equal(t, common.TransactionStatusPending, transaction.Statut)

	_, err = svc.MarkAsAnomaly(ctx, entrepriseID, transaction.ID, "Emetteur inconnu")
	require.NoError(t, err)
	_, err = svc.MarkAsAnomaly(ctx, entrepriseID, transaction.ID, "Autre note")
	assert.ErrorIs(t, err, service.ErrTransactionResolved)
	_, err = svc.IgnoreTransaction(ctx, entrepriseID, transaction.ID)
	assert.ErrorIs(t, err, service.ErrTransactionResolved)

	resolved, err := svc.ManualMatch(ctx, entrepriseID, transaction.ID, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, common.TransactionStatusManual, resolved.Statut)
	assert.Equal(t, "Emetteur inconnu", resolved.Notes)

	doc, err := svc.FindDocument(ctx, entrepriseID, invoice.ID)
	require.NoError(t, err)
	require.Len(t, doc.Paiements, 1)
	assert.Equal(t, common.DocumentStatusPaye, doc.Statut)
}

func TestMarkAsAnomalyRequiresNotes(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	entrepriseID := createEntreprise(t, svc, "Plomberie Martin")

	result, err := svc.ImportCSV(ctx, entrepriseID, statement)
	require.NoError(t, err)

	_, err = svc.MarkAsAnomaly(ctx, entrepriseID, result.Imported[0].ID, "   ")
	var invalidState *service.InvalidStateError
	assert.ErrorAs(t, err, &invalidState)

	transaction, err := svc.FindTransaction(ctx, entrepriseID, result.Imported[0].ID)
	require.NoError(t, err)
	assert.Equal(t, common.TransactionStatusPending, transaction.Statut)
}

func TestGetStats(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	entrepriseID := createEntreprise(t, svc, "Plomberie Martin")

	stats, err := svc.GetStats(ctx, entrepriseID)
	require.NoError(t, err)
	assert.Equal(t, &service.Stats{MatchRate: "0"}, stats)

	invoice := createInvoice(t, svc, entrepriseID, "100.00", day(2026, 3, 1))
	result, err := svc.ImportCSV(ctx, entrepriseID, "Date;Libellé;Montant\n"+
		"02/03/2026;VIR A;100,00\n"+
		"02/03/2026;VIR B;75,00\n"+
		"02/03/2026;VIR C;12,00\n")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Matched)
	_, err = svc.ManualMatch(ctx, entrepriseID, result.Imported[1].ID, invoice.ID)
	require.NoError(t, err)

	stats, err = svc.GetStats(ctx, entrepriseID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Matched)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 0, stats.Anomalies)
	assert.Equal(t, "66.7", stats.MatchRate)

	_, err = svc.ManualMatch(ctx, entrepriseID, result.Imported[2].ID, invoice.ID)
	require.NoError(t, err)
	stats, err = svc.GetStats(ctx, entrepriseID)
	require.NoError(t, err)
	assert.Equal(t, "100.0", stats.MatchRate)
}

func TestListOpenInvoices(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	entrepriseID := createEntreprise(t, svc, "Plomberie Martin")

	due := day(2026, 2, 28)
	overdue, err := svc.CreateDocument(ctx, entrepriseID, &service.DocumentInput{
		Type:         common.DocumentTypeFacture,
		Statut:       common.DocumentStatusEnvoye,
		DateEmission: day(2026, 1, 29),
		DateEcheance: &due,
		Lignes: []service.DocumentLigneInput{{
			Designation:    "Remplacement chauffe-eau",
			Quantite:       decimal.NewFromInt(1),
			PrixUnitaireHT: decimal.NewFromInt(1000),
			TauxTVA:        decimal.NewFromInt(20),
		}},
	})
	require.NoError(t, err)
	paid := createInvoice(t, svc, entrepriseID, "50.00", day(2026, 3, 1))
	_, err = svc.AddPayment(ctx, entrepriseID, paid.ID, &service.PaymentInput{Montant: decimal.NewFromInt(50)})
	require.NoError(t, err)
	createDocument(t, svc, entrepriseID, common.DocumentTypeDevis, common.DocumentStatusEnvoye, "80.00", day(2026, 3, 1))

	_, err = svc.AddPayment(ctx, entrepriseID, overdue.ID, &service.PaymentInput{Montant: decimal.NewFromInt(200)})
	require.NoError(t, err)

	open, err := svc.ListOpenInvoices(ctx, entrepriseID)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, overdue.ID, open[0].ID)
	assert.True(t, decimal.NewFromInt(1000).Equal(open[0].Remaining))
	// 28/02 to 10/03 14:30
	assert.Equal(t, 10, open[0].DaysOverdue)
}

func TestPreviewAndConfirmImport(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	entrepriseID := createEntreprise(t, svc, "Plomberie Martin")
	otherID := createEntreprise(t, svc, "Electricité Durand")

	_, err := svc.ImportCSV(ctx, entrepriseID, "Date;Libellé;Montant\n06/03/2026;PRLV EDF;-84,30\n")
	require.NoError(t, err)

	preview, err := svc.PreviewImport(ctx, entrepriseID, statement)
	require.NoError(t, err)
	assert.Len(t, preview.Records, 2)
	assert.Equal(t, 1, preview.Duplicates)
	assert.NotEmpty(t, preview.Token)

	// the token belongs to the entity that previewed
	_, err = svc.ConfirmImport(ctx, otherID, preview.Token)
	assert.ErrorIs(t, err, service.ErrPreviewNotFound)

	result, err := svc.ConfirmImport(ctx, entrepriseID, preview.Token)
	require.NoError(t, err)
	assert.Len(t, result.Imported, 1)
	assert.Equal(t, 1, result.Skipped)

	_, err = svc.ConfirmImport(ctx, entrepriseID, preview.Token)
	assert.ErrorIs(t, err, service.ErrPreviewNotFound)
}

func TestImportPublishesEvents(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	entrepriseID := createEntreprise(t, svc, "Plomberie Martin")
	createInvoice(t, svc, entrepriseID, "1200.00", day(2026, 3, 3))

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	events := mock_rabbitmq.NewMockClient(ctrl)
	svc.Events = events

	events.EXPECT().
		PublishEvent(gomock.Any(), common.EventTransactionMatched, gomock.Any()).
		Times(1).
		Return(nil)
	events.EXPECT().
		PublishEvent(gomock.Any(), common.EventTransactionsImported, gomock.Any()).
		Times(1).
		DoAndReturn(func(_ context.Context, _ string, payload interface{}) error {
			event := payload.(*service.Event)
			assert.Equal(t, entrepriseID, event.EntrepriseID)
			assert.Len(t, event.Data.(*service.ImportResult).Imported, 2)
			return nil
		})

	_, err := svc.ImportCSV(ctx, entrepriseID, statement)
	require.NoError(t, err)
}

func TestFailedPublishDoesNotFailOperation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	entrepriseID := createEntreprise(t, svc, "Plomberie Martin")
	invoice := createInvoice(t, svc, entrepriseID, "210.00", day(2025, 12, 20))

	result, err := svc.ImportCSV(ctx, entrepriseID, "Date;Libellé;Montant\n09/03/2026;CHQ 1207;210,00\n")
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	events := mock_rabbitmq.NewMockClient(ctrl)
	svc.Events = events
	events.EXPECT().
		PublishEvent(gomock.Any(), common.EventTransactionMatched, gomock.Any()).
		Times(1).
		Return(errors.New("amqp: trying to publish during reconnect"))

	matched, err := svc.ManualMatch(ctx, entrepriseID, result.Imported[0].ID, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, common.TransactionStatusManual, matched.Statut)
}
