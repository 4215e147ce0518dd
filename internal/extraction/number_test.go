package extraction

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		want     string
		negative bool
		wantErr  bool
	}{
		{name: "apostrophe thousands", input: "1'234.50", want: "1234.5"},
		{name: "typographic apostrophe", input: "17’500.00", want: "17500"},
		{name: "modifier apostrophe", input: "2ʼ000", want: "2000"},
		{name: "decimal comma", input: "1'234,75", want: "1234.75"},
		{name: "plain integer", input: "500", want: "500"},
		{name: "leading minus", input: "-5'000.00", want: "-5000", negative: true},
		{name: "trailing minus", input: "5'000.00-", want: "-5000", negative: true},
		{name: "unicode minus", input: "−12.30", want: "-12.3", negative: true},
		{name: "explicit plus", input: "+7.00", want: "7"},
		{name: "dot thousands", input: "1.234.567", want: "1234567"},
		{name: "dot thousands with decimal comma", input: "1.234,50", want: "1234.5"},
		{name: "leading decimal", input: ".50", want: "0.5"},
		{name: "zero", input: "0.00", want: "0"},
		{name: "empty", input: "", wantErr: true},
		{name: "letters", input: "CHF", wantErr: true},
		{name: "date", input: "31.12.2024", wantErr: true},
		{name: "short group", input: "1'23", wantErr: true},
		{name: "long leading group", input: "1234'567", wantErr: true},
		{name: "sign only", input: "-", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrNotAnAmount)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Value.Equal(decimal.RequireFromString(tt.want)), "got %s", got.Value)
			assert.Equal(t, tt.negative, got.Negative)
		})
	}
}

func TestSplitCells(t *testing.T) {
	cells := splitCells("Total Restanzen\t17'500.00   15'000.00  ref. Kirche")
	assert.Equal(t, []string{"Total Restanzen", "17'500.00", "15'000.00", "ref. Kirche"}, cells)
	assert.Nil(t, splitCells("   "))
}

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, "total restanzen", normalizeLabel("45 Total   Restanzen:"))
	assert.Equal(t, "total restanzenvortrag", normalizeLabel(" TOTAL Restanzenvortrag "))
}

func TestFindPeriod(t *testing.T) {
	assert.Equal(t, "2024", findPeriod("JA_2024.txt", nil))
	assert.Equal(t, "2023", findPeriod("steuer.txt", []string{"Gemeinde Muster", "Abrechnung 2023"}))
	assert.Empty(t, findPeriod("steuer.txt", []string{"Konto 1012.00"}))
}
