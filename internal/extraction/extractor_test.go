package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-books-must-balance/internal/accounts"
	"github.com/Veraticus/the-books-must-balance/internal/config"
	"github.com/Veraticus/the-books-must-balance/internal/knowledge"
	"github.com/Veraticus/the-books-must-balance/internal/model"
)

const clientID = "client-1"

const jaWithHeader = `Gemeinde Muster - Jahresabrechnung 2024
Bezeichnung    Total    Politische Gemeinde    ref. Kirche
Total Steuerertrag    120'000.00    80'000.00    20'000.00
Total Restanzen    22'500.00    15'000.00    3'000.00
`

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := NewExtractor(config.Default().Extraction, accounts.MustDefault())
	require.NoError(t, err)
	return e
}

func doc(id, filename string, docType model.DocumentType, text string) model.Document {
	return model.Document{
		ID:         id,
		ClientID:   clientID,
		Filename:   filename,
		Text:       text,
		Type:       docType,
		Confidence: 1.0,
		Status:     model.DocumentStatusOK,
	}
}

func confirmed(t *testing.T, key model.KnowledgeKey, subject string, value any) model.ClientKnowledge {
	t.Helper()
	k, err := model.NewClientKnowledge(clientID, key, subject, value)
	require.NoError(t, err)
	k.Confirmed = true
	return k
}

func itemByTag(t *testing.T, items []model.ExtractedItem, tag model.ItemTag) model.ExtractedItem {
	t.Helper()
	for _, it := range items {
		if it.Tag == tag {
			return it
		}
	}
	require.Failf(t, "item not found", "tag %s", tag)
	return model.ExtractedItem{}
}

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(decimal.RequireFromString(want)), "want %s, got %s", want, got)
}

func TestExtract_DefaultHeaderColumn(t *testing.T) {
	e := newTestExtractor(t)

	res, err := e.Extract(context.Background(), doc("d1", "JA_2024.txt", model.DocumentTypeJA, jaWithHeader), nil)
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Empty(t, res.Missing)
	assert.False(t, res.Degraded)

	current := itemByTag(t, res.Items, model.TagCurrentYearTotal)
	assertAmount(t, "15000", current.Amount)
	assert.Equal(t, model.SideTax, current.Side)
	assert.Equal(t, model.ClassAsset, current.Class)
	assert.Equal(t, model.ColumnSourceDefaultHeader, current.ColumnSource)
	assert.Equal(t, config.ColumnPolitischeGemeinde, current.ColumnName)
	assert.Equal(t, 3, current.Column)
	assert.Equal(t, model.SignSourceConvention, current.SignSource)
	assert.Equal(t, "2024", current.Period)
	assert.InDelta(t, 1.0, current.Confidence, 0.0001)

	assessment := itemByTag(t, res.Items, model.TagAssessmentTotal)
	assertAmount(t, "80000", assessment.Amount)
}

func TestExtract_ColumnPreferenceOverride(t *testing.T) {
	e := newTestExtractor(t)
	snap := knowledge.NewSnapshot(clientID, confirmed(t, model.KeyColumnPreference, "JA",
		model.ColumnPreference{ColumnName: config.ColumnRefKirche, DocumentType: model.DocumentTypeJA}))

	res, err := e.Extract(context.Background(), doc("d1", "JA_2024.txt", model.DocumentTypeJA, jaWithHeader), snap)
	require.NoError(t, err)

	current := itemByTag(t, res.Items, model.TagCurrentYearTotal)
	assertAmount(t, "3000", current.Amount)
	assert.Equal(t, model.ColumnSourceOverride, current.ColumnSource)
	assert.Equal(t, 4, current.Column)
}

func TestExtract_ColumnPreferenceByIndex(t *testing.T) {
	e := newTestExtractor(t)
	text := "Total Restanzen    1    2    3    9'999.00\n"
	snap := knowledge.NewSnapshot(clientID, confirmed(t, model.KeyColumnPreference, "",
		model.ColumnPreference{Column: 5}))

	res, err := e.Extract(context.Background(), doc("d1", "ja.txt", model.DocumentTypeJA, text), snap)
	require.NoError(t, err)

	current := itemByTag(t, res.Items, model.TagCurrentYearTotal)
	assertAmount(t, "9999", current.Amount)
	assert.Equal(t, model.ColumnSourceOverride, current.ColumnSource)
}

func TestExtract_DefaultPosition(t *testing.T) {
	e := newTestExtractor(t)
	text := "Total Restanzen    22'500.00    15'000.00\n"

	res, err := e.Extract(context.Background(), doc("d1", "ja.txt", model.DocumentTypeJA, text), nil)
	require.NoError(t, err)

	current := itemByTag(t, res.Items, model.TagCurrentYearTotal)
	assertAmount(t, "15000", current.Amount)
	assert.Equal(t, model.ColumnSourceDefaultPosition, current.ColumnSource)
	assert.InDelta(t, confidencePosition, current.Confidence, 0.0001)
	assert.Equal(t, []string{string(model.TagAssessmentTotal)}, res.Missing)
}

func TestExtract_SingleValueLine(t *testing.T) {
	e := newTestExtractor(t)
	text := "Nachsteuern 2024\nTotal Nachsteuern:    500.00\n"

	res, err := e.Extract(context.Background(), doc("d1", "nast.txt", model.DocumentTypeNAST, text), nil)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)

	item := res.Items[0]
	assert.Equal(t, model.TagNachsteuerTotal, item.Tag)
	assertAmount(t, "500", item.Amount)
	assert.Equal(t, model.ColumnSourceSingleValue, item.ColumnSource)
}

func TestExtract_PriorYearSignAndWeight(t *testing.T) {
	e := newTestExtractor(t)
	text := `Steuerrestanzen 2023
Bezeichnung    Total    Politische Gemeinde
Total Restanzenvortrag    6'000.00    5'000.00
Total Restanzen    8'000.00    7'000.00
`

	res, err := e.Extract(context.Background(), doc("d1", "SR_2023.txt", model.DocumentTypeSR, text), nil)
	require.NoError(t, err)
	require.Len(t, res.Items, 2)

	reversal := itemByTag(t, res.Items, model.TagPriorYearReversal)
	assertAmount(t, "-5000", reversal.Amount)
	assert.Equal(t, model.ClassAsset, reversal.Class)

	booking := itemByTag(t, res.Items, model.TagPriorYearNewBooking)
	assertAmount(t, "7000", booking.Amount)
}

func TestExtract_PriorYearReversalPrintedNegative(t *testing.T) {
	e := newTestExtractor(t)
	text := `Steuerrestanzen 2023
Bezeichnung    Total    Politische Gemeinde
Total Restanzenvortrag    -5'500.00    -5'000.00
Total Restanzen    8'000.00    7'000.00
`

	for _, filename := range []string{"SR_2023.txt", "SR_2023_Minusbetrag.txt"} {
		t.Run(filename, func(t *testing.T) {
			res, err := e.Extract(context.Background(), doc("d1", filename, model.DocumentTypeSR, text), nil)
			require.NoError(t, err)

			reversal := itemByTag(t, res.Items, model.TagPriorYearReversal)
			assertAmount(t, "-5000", reversal.Amount)
			assert.Equal(t, model.ClassAsset, reversal.Class)
		})
	}
}

func TestExtract_NumberedRows(t *testing.T) {
	e := newTestExtractor(t)
	text := `Jahresabrechnung 2024
Bezeichnung    Total    Politische Gemeinde    ref. Kirche
44    Total Steuerertrag    120'000.00    80'000.00    20'000.00
45    Total Restanzen    22'500.00    15'000.00    3'000.00
`

	tests := []struct {
		name       string
		prefs      []model.ClientKnowledge
		want       string
		wantColumn int
		wantName   string
		wantSource model.ColumnSource
	}{
		{
			name:       "default header",
			want:       "15000",
			wantColumn: 3,
			wantName:   config.ColumnPolitischeGemeinde,
			wantSource: model.ColumnSourceDefaultHeader,
		},
		{
			name: "preference by name",
			prefs: []model.ClientKnowledge{confirmed(t, model.KeyColumnPreference, "JA",
				model.ColumnPreference{ColumnName: config.ColumnRefKirche, DocumentType: model.DocumentTypeJA})},
			want:       "3000",
			wantColumn: 4,
			wantName:   config.ColumnRefKirche,
			wantSource: model.ColumnSourceOverride,
		},
		{
			name: "preference by header position",
			prefs: []model.ClientKnowledge{confirmed(t, model.KeyColumnPreference, "",
				model.ColumnPreference{Column: 2})},
			want:       "22500",
			wantColumn: 2,
			wantName:   "Total",
			wantSource: model.ColumnSourceOverride,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r knowledge.Reader
			if len(tt.prefs) > 0 {
				r = knowledge.NewSnapshot(clientID, tt.prefs...)
			}

			res, err := e.Extract(context.Background(), doc("d1", "JA_2024.txt", model.DocumentTypeJA, text), r)
			require.NoError(t, err)

			current := itemByTag(t, res.Items, model.TagCurrentYearTotal)
			assertAmount(t, tt.want, current.Amount)
			assert.Equal(t, tt.wantColumn, current.Column)
			assert.Equal(t, tt.wantName, current.ColumnName)
			assert.Equal(t, tt.wantSource, current.ColumnSource)
			assert.Equal(t, "Total Restanzen", current.Label)
		})
	}
}

func TestExtract_NumberedHeader(t *testing.T) {
	e := newTestExtractor(t)
	text := `Jahresabrechnung 2024
Nr.    Bezeichnung    Total    Politische Gemeinde
45    Total Restanzen    16'000.00    15'000.00
Total Steuerertrag    90'000.00    80'000.00
`

	res, err := e.Extract(context.Background(), doc("d1", "JA_2024.txt", model.DocumentTypeJA, text), nil)
	require.NoError(t, err)

	current := itemByTag(t, res.Items, model.TagCurrentYearTotal)
	assertAmount(t, "15000", current.Amount)
	assert.Equal(t, 4, current.Column)

	assessment := itemByTag(t, res.Items, model.TagAssessmentTotal)
	assertAmount(t, "80000", assessment.Amount)
	assert.Equal(t, 4, assessment.Column)
}

func TestExtract_SignPrecedence(t *testing.T) {
	e := newTestExtractor(t)

	tests := []struct {
		name       string
		filename   string
		line       string
		want       string
		signSource model.SignSource
		class      model.BalanceClass
	}{
		{
			name:       "convention",
			filename:   "JA_2024.txt",
			line:       "Total Restanzen    1'200.00",
			want:       "1200",
			signSource: model.SignSourceConvention,
			class:      model.ClassAsset,
		},
		{
			name:       "filename marker",
			filename:   "JA_2024_Minusbetrag.txt",
			line:       "Total Restanzen    1'200.00",
			want:       "-1200",
			signSource: model.SignSourceFilename,
			class:      model.ClassLiability,
		},
		{
			name:       "explicit minus wins",
			filename:   "JA_2024.txt",
			line:       "Total Restanzen    -1'200.00",
			want:       "-1200",
			signSource: model.SignSourceExplicit,
			class:      model.ClassLiability,
		},
		{
			name:       "trailing minus",
			filename:   "JA_2024_Minusbetrag.txt",
			line:       "Total Restanzen    300.00-",
			want:       "-300",
			signSource: model.SignSourceExplicit,
			class:      model.ClassLiability,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.Extract(context.Background(), doc("d1", tt.filename, model.DocumentTypeJA, tt.line), nil)
			require.NoError(t, err)

			item := itemByTag(t, res.Items, model.TagCurrentYearTotal)
			assertAmount(t, tt.want, item.Amount)
			assert.Equal(t, tt.signSource, item.SignSource)
			assert.Equal(t, tt.class, item.Class)
		})
	}
}

func TestExtract_FirstOccurrenceOnly(t *testing.T) {
	e := newTestExtractor(t)
	text := "Total Restanzen    100.00\nTotal Restanzen    999.00\n"

	res, err := e.Extract(context.Background(), doc("d1", "ja.txt", model.DocumentTypeJA, text), nil)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assertAmount(t, "100", res.Items[0].Amount)
}

func TestExtract_ZeroBalanceIsResolved(t *testing.T) {
	e := newTestExtractor(t)

	res, err := e.Extract(context.Background(), doc("d1", "ja.txt", model.DocumentTypeJA, "Total Restanzen    0.00"), nil)
	require.NoError(t, err)

	item := itemByTag(t, res.Items, model.TagCurrentYearTotal)
	assert.True(t, item.Resolved)
	assert.True(t, item.Amount.IsZero())
}

func TestExtract_MissingTargets(t *testing.T) {
	e := newTestExtractor(t)

	res, err := e.Extract(context.Background(), doc("d1", "ja.txt", model.DocumentTypeJA, "Jahresabrechnung\nnichts"), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.ElementsMatch(t, []string{string(model.TagCurrentYearTotal), string(model.TagAssessmentTotal)}, res.Missing)
}

func TestExtract_NonNumericCellSkipsTarget(t *testing.T) {
	e := newTestExtractor(t)
	text := "Total Restanzen    n/a    siehe Beilage\n"

	res, err := e.Extract(context.Background(), doc("d1", "ja.txt", model.DocumentTypeJA, text), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Contains(t, res.Missing, string(model.TagCurrentYearTotal))
}

func TestExtract_DegradedKnowledgeFallsBackToDefaults(t *testing.T) {
	e := newTestExtractor(t)
	snap := knowledge.DegradedSnapshot(clientID, errors.New("database is locked"))

	res, err := e.Extract(context.Background(), doc("d1", "JA_2024.txt", model.DocumentTypeJA, jaWithHeader), snap)
	require.NoError(t, err)
	assert.True(t, res.Degraded)

	current := itemByTag(t, res.Items, model.TagCurrentYearTotal)
	assertAmount(t, "15000", current.Amount)
	assert.True(t, current.Degraded)
	assert.Equal(t, model.ColumnSourceDefaultHeader, current.ColumnSource)
	assert.Less(t, current.Confidence, 1.0)
}

func TestExtract_FilenameClassificationLowersConfidence(t *testing.T) {
	e := newTestExtractor(t)
	d := doc("d1", "ja.txt", model.DocumentTypeJA, jaWithHeader)
	d.Confidence = 0.5

	res, err := e.Extract(context.Background(), d, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, itemByTag(t, res.Items, model.TagCurrentYearTotal).Confidence, 0.0001)
}

func TestExtract_LedgerSingle(t *testing.T) {
	e := newTestExtractor(t)
	text := `Kontoauszug 2024
Konto 1012.00 Steuerforderungen
Datum    Text    Soll    Haben    Saldo
01.01.2024    Saldovortrag        45'000.00
15.03.2024    Zahlung        2'500.00    42'500.00
31.12.2024    Endsaldo            17'500.00
`

	res, err := e.Extract(context.Background(), doc("f1", "fibu_1012.txt", model.DocumentTypeFibuSingle, text), nil)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)

	item := res.Items[0]
	assert.Equal(t, model.SideFibu, item.Side)
	assert.Equal(t, model.TagLedgerEndBalance, item.Tag)
	assert.Equal(t, "1012.00", item.Account)
	assert.Equal(t, model.ClassAsset, item.Class)
	assert.Equal(t, "Endsaldo", item.Label)
	assertAmount(t, "17500", item.Amount)
	assert.InDelta(t, 1.0, item.Confidence, 0.0001)
}

func TestExtract_LedgerContraAccountBooking(t *testing.T) {
	e := newTestExtractor(t)
	text := `Kontoauszug 2024
Konto 1012.00 Steuerforderungen
Datum    Text    Soll    Haben    Saldo
01.01.2024    Saldovortrag        20'000.00
31.12.2024    Umbuchung auf Konto 2002.00        2'500.00    17'500.00
31.12.2024    Endsaldo            17'500.00
`

	res, err := e.Extract(context.Background(), doc("f1", "fibu_1012.txt", model.DocumentTypeFibuSingle, text), nil)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Empty(t, res.Missing)

	item := res.Items[0]
	assert.Equal(t, "1012.00", item.Account)
	assert.Equal(t, model.ClassAsset, item.Class)
	assert.Equal(t, "Endsaldo", item.Label)
	assertAmount(t, "17500", item.Amount)
}

func TestExtract_LedgerCombined(t *testing.T) {
	e := newTestExtractor(t)
	text := `Kontoauszug 2024
Konto 1012.00 Steuerforderungen
Saldovortrag    10'000.00
Endsaldo    17'500.00
Konto 2002.00 Steuerverpflichtungen
Saldovortrag    300.00
Saldo per 31.12.2024    800.00
`

	res, err := e.Extract(context.Background(), doc("f1", "fibu.txt", model.DocumentTypeFibuCombined, text), nil)
	require.NoError(t, err)
	require.Len(t, res.Items, 2)

	assert.Equal(t, "1012.00", res.Items[0].Account)
	assertAmount(t, "17500", res.Items[0].Amount)
	assert.Equal(t, "2002.00", res.Items[1].Account)
	assert.Equal(t, model.ClassLiability, res.Items[1].Class)
	assertAmount(t, "800", res.Items[1].Amount)
}

func TestExtract_LedgerWithoutEndBalanceLine(t *testing.T) {
	e := newTestExtractor(t)
	text := `Konto 1012.00
Saldovortrag    45'000.00
Zahlung    1'000.00    44'000.00
`

	res, err := e.Extract(context.Background(), doc("f1", "fibu.txt", model.DocumentTypeFibuSingle, text), nil)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assertAmount(t, "44000", res.Items[0].Amount)
	assert.InDelta(t, confidenceLedgerNoEnd, res.Items[0].Confidence, 0.0001)
}

func TestExtract_LedgerOnlyOpeningBalance(t *testing.T) {
	e := newTestExtractor(t)
	text := "Konto 1012.00\nSaldovortrag    45'000.00\n"

	res, err := e.Extract(context.Background(), doc("f1", "fibu.txt", model.DocumentTypeFibuSingle, text), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Equal(t, []string{"1012.00"}, res.Missing)
}

func TestExtract_LedgerZeroBalanceResolved(t *testing.T) {
	e := newTestExtractor(t)
	text := "Konto 2002.00\nSchlusssaldo    0.00\n"

	res, err := e.Extract(context.Background(), doc("f1", "fibu.txt", model.DocumentTypeFibuSingle, text), nil)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.True(t, res.Items[0].Resolved)
}

func TestExtract_LedgerLearnedAccount(t *testing.T) {
	e := newTestExtractor(t)
	text := "Konto 1099.50 Steuerguthaben alt\nEndsaldo    1'250.00\n"
	snap := knowledge.NewSnapshot(clientID, confirmed(t, model.KeyTypicalAccount, "1099.50",
		model.TypicalAccount{Account: "1099.50", Class: model.ClassAsset, DocumentCount: 2}))

	res, err := e.Extract(context.Background(), doc("f1", "fibu.txt", model.DocumentTypeFibuSingle, text), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Items)

	res, err = e.Extract(context.Background(), doc("f1", "fibu.txt", model.DocumentTypeFibuSingle, text), snap)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "1099.50", res.Items[0].Account)
	assertAmount(t, "1250", res.Items[0].Amount)
}

func TestExtract_ExcludedTypeYieldsNothing(t *testing.T) {
	e := newTestExtractor(t)

	res, err := e.Extract(context.Background(), doc("q1", "qst.txt", model.DocumentTypeIgnored, "Quellensteuer"), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}

func TestExtract_CancelledContext(t *testing.T) {
	e := newTestExtractor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Extract(ctx, doc("d1", "ja.txt", model.DocumentTypeJA, jaWithHeader), nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewExtractor_RejectsInvalidDefaultColumn(t *testing.T) {
	cfg := config.Default().Extraction
	cfg.DefaultColumns = map[string]int{"JA": 0}

	_, err := NewExtractor(cfg, accounts.MustDefault())
	require.Error(t, err)
}
