package bankcsv

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestParseFrenchExport(t *testing.T) {
	content := "Date;Libellé;Montant;Référence\n" +
		"05/03/2026;VIR SEPA CLIENT DUPONT FAC-2026-00012;1 234,56;REF1\n" +
		"06/03/2026;PRLV EDF;-89,9;\n"

	records, err := Parse(content)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), records[0].Date)
	assert.Equal(t, "VIR SEPA CLIENT DUPONT FAC-2026-00012", records[0].Libelle)
	assert.True(t, decimal.RequireFromString("1234.56").Equal(records[0].Montant))
	assert.Equal(t, "REF1", records[0].Reference)
	assert.Equal(t, 2, records[0].Row)

	assert.True(t, decimal.RequireFromString("-89.90").Equal(records[1].Montant))
	assert.Equal(t, "", records[1].Reference)
	assert.Equal(t, 3, records[1].Row)
}

func TestParseEnglishHeadersAndISODates(t *testing.T) {
	content := "date;description;amount\n2026-01-31;Card payment;12.5\n"

	records, err := Parse(content)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), records[0].Date)
	assert.Equal(t, "12.50", records[0].Montant.StringFixed(2))
}

func TestParseSingleDigitDayAndMonth(t *testing.T) {
	records, err := Parse("date;libelle;montant\n1/2/2026;X;1\n")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), records[0].Date)
}

func TestParseStripsBOMAndDecodesWindows1252(t *testing.T) {
	encoded, err := charmap.Windows1252.NewEncoder().String("Date;Libellé;Montant\n05/03/2026;Réglement facture;10,00\n")
	require.NoError(t, err)

	records, err := Parse(encoded)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Réglement facture", records[0].Libelle)

	records, err = Parse("\xEF\xBB\xBFDate;libelle;montant\n05/03/2026;A;1\n")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestParseHeaderIsCaseSensitive(t *testing.T) {
	_, err := Parse("DATE;libelle;montant\n05/03/2026;A;1\n")
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, 1, parseErr.Row)
	assert.Equal(t, ColumnDate, parseErr.Column)
}

func TestParseRejectsWholeBatchOnInvalidDate(t *testing.T) {
	cases := []string{"31/02/2026", "2026/03/05", "05-03-2026", "", "5 mars 2026"}
	for _, date := range cases {
		t.Run(date, func(t *testing.T) {
			content := "date;libelle;montant\n05/03/2026;OK;1\n" + date + ";KO;2\n"
			records, err := Parse(content)
			assert.Nil(t, records)
			var parseErr *ParseError
			require.True(t, errors.As(err, &parseErr))
			assert.Equal(t, 3, parseErr.Row)
			assert.Equal(t, ColumnDate, parseErr.Column)
		})
	}
}

func TestParseRejectsInvalidAmount(t *testing.T) {
	_, err := Parse("date;libelle;montant\n05/03/2026;A;douze\n")
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, 2, parseErr.Row)
	assert.Equal(t, ColumnMontant, parseErr.Column)
	assert.Equal(t, "douze", parseErr.Value)
}

func TestParseEmptyInput(t *testing.T) {
	_, err := Parse("")
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))

	records, err := Parse("date;libelle;montant\n")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseRowCeiling(t *testing.T) {
	content := "date;libelle;montant\n05/03/2026;A;1\n05/03/2026;B;2\n05/03/2026;C;3\n"
	_, err := NewParser(2).Parse(content)
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, 4, parseErr.Row)

	records, err := NewParser(0).Parse(content)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestParseAmount(t *testing.T) {
	cases := map[string]string{
		"1 234,56":     "1234.56",
		"1\u00a0000,5": "1000.50",
		"-12,345":      "-12.35",
		"42":           "42.00",
		"0.1":          "0.10",
	}
	for in, expected := range cases {
		amount, err := ParseAmount(in)
		require.NoError(t, err, in)
		assert.Equal(t, expected, amount.StringFixed(2), in)
	}
}
