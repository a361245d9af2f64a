package extraction_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docintake/internal/domain"
	"docintake/internal/extraction"
	"docintake/internal/port"
	"docintake/mocks"
)

func TestMatchFilename(t *testing.T) {
	tests := []struct {
		filename string
		want     domain.DocumentType
		ok       bool
	}{
		{"Acme_Monthly_Financials_2024-05.pdf", domain.TypeMonthlyFinancials, true},
		{"financials_2024_03.xlsx", domain.TypeMonthlyFinancials, true},
		{"Q3 Financial Package.pdf", domain.TypeQuarterlyFinancials, true},
		{"FY2023 audited.pdf", domain.TypeAnnualFinancials, true},
		{"Covenant Cert March.pdf", domain.TypeCovenantCompliance, true},
		{"BBC-0424.pdf", domain.TypeBorrowingBase, true},
		{"AR Aging 31-May.xlsx", domain.TypeARAging, true},
		{"inventory.csv", domain.TypeInventoryReport, true},
		{"Fund II Capital Call #4.pdf", domain.TypeCapitalCall, true},
		{"drawdown.pdf", domain.TypeCapitalCall, true},
		{"distribution 2024.pdf", domain.TypeDistributionNotice, true},
		{"NAV statement.pdf", domain.TypeNAVStatement, true},
		{"Invoice-991.pdf", domain.TypeInvoice, true},
		{"Chase bank statement.pdf", domain.TypeBankStatement, true},
		{"COI 2024.pdf", domain.TypeInsuranceCertificate, true},
		{"scan_0001.pdf", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got, ok := extraction.MatchFilename(tt.filename)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchFilename_FirstMatchWins(t *testing.T) {
	// Matches both the covenant and the monthly patterns; monthly is listed first.
	got, ok := extraction.MatchFilename("monthly financials covenant.pdf")
	require.True(t, ok)
	assert.Equal(t, domain.TypeMonthlyFinancials, got)
}

func TestParseClassification(t *testing.T) {
	assert.Equal(t, domain.TypeBorrowingBase, extraction.ParseClassification("borrowing_base"))
	assert.Equal(t, domain.TypeBorrowingBase, extraction.ParseClassification("  \"Borrowing_Base\".\n"))
	assert.Equal(t, domain.TypeOther, extraction.ParseClassification("recipe"))
	assert.Equal(t, domain.TypeOther, extraction.ParseClassification(""))
	// Known types outside the classification set are not accepted.
	assert.Equal(t, domain.TypeOther, extraction.ParseClassification("ucc_filing"))
}

func TestClassificationLabels_IsACopy(t *testing.T) {
	labels := extraction.ClassificationLabels()
	require.NotEmpty(t, labels)
	labels[0] = "tampered"
	assert.NotEqual(t, domain.DocumentType("tampered"), extraction.ClassificationLabels()[0])
	assert.Contains(t, labels, domain.TypeOther)
}

func TestTypeDetector_FilenameSkipsOCR(t *testing.T) {
	structured := new(mocks.MockStructuredExtractor)
	semantic := new(mocks.MockSemanticExtractor)
	det := extraction.NewTypeDetector(semantic, nil)
	src := extraction.NewSource(nil, "application/pdf", "bbc_may.pdf", domain.TypeUnknown, structured)

	got, err := det.Detect(context.Background(), src)

	require.NoError(t, err)
	assert.Equal(t, domain.TypeBorrowingBase, got)
	structured.AssertNotCalled(t, "OCR", mock.Anything, mock.Anything, mock.Anything)
	semantic.AssertNotCalled(t, "DetectType", mock.Anything, mock.Anything, mock.Anything)
}

func TestTypeDetector_EmptyTextIsUnknown(t *testing.T) {
	structured := new(mocks.MockStructuredExtractor)
	semantic := new(mocks.MockSemanticExtractor)
	structured.On("OCR", mock.Anything, mock.Anything, mock.Anything).Return(&port.OCRResult{Text: ""}, nil)

	got, err := extraction.NewTypeDetector(semantic, nil).
		Detect(context.Background(), extraction.NewSource(nil, "image/png", "scan.png", "", structured))

	require.NoError(t, err)
	assert.Equal(t, domain.TypeUnknown, got)
}

func TestTypeDetector_CoercesUnknownLabels(t *testing.T) {
	structured := new(mocks.MockStructuredExtractor)
	semantic := new(mocks.MockSemanticExtractor)
	structured.On("OCR", mock.Anything, mock.Anything, mock.Anything).Return(&port.OCRResult{Text: "hello"}, nil)
	semantic.On("DetectType", mock.Anything, "hello", "scan.png").Return(domain.TypeUCCFiling, nil)

	got, err := extraction.NewTypeDetector(semantic, nil).
		Detect(context.Background(), extraction.NewSource(nil, "image/png", "scan.png", "", structured))

	require.NoError(t, err)
	assert.Equal(t, domain.TypeOther, got)
}

func TestTypeDetector_ClassifierErrorPropagates(t *testing.T) {
	structured := new(mocks.MockStructuredExtractor)
	semantic := new(mocks.MockSemanticExtractor)
	structured.On("OCR", mock.Anything, mock.Anything, mock.Anything).Return(&port.OCRResult{Text: "hello"}, nil)
	semantic.On("DetectType", mock.Anything, mock.Anything, mock.Anything).Return(domain.DocumentType(""), errors.New("503"))

	_, err := extraction.NewTypeDetector(semantic, nil).
		Detect(context.Background(), extraction.NewSource(nil, "image/png", "scan.png", "", structured))
	assert.EqualError(t, err, "503")
}
