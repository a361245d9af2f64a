package extraction

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"docintake/internal/domain"
	"docintake/internal/port"
)

type filenamePattern struct {
	docType  domain.DocumentType
	patterns []*regexp.Regexp
}

// filenamePatterns is checked in order; the first matching type wins.
var filenamePatterns = []filenamePattern{
	{domain.TypeMonthlyFinancials, compileAll(`monthly.*financial`, `financials.*\d{4}[-_]\d{2}`)},
	{domain.TypeQuarterlyFinancials, compileAll(`quarterly.*financial`, `q[1-4].*financial`)},
	{domain.TypeAnnualFinancials, compileAll(`annual.*financial`, `audited.*financial`, `fy\d{4}`)},
	{domain.TypeCovenantCompliance, compileAll(`covenant`, `compliance.*cert`)},
	{domain.TypeBorrowingBase, compileAll(`bbc`, `borrowing.*base`, `bb.*cert`)},
	{domain.TypeARAging, compileAll(`aging`, `ar.*schedule`, `receivables`)},
	{domain.TypeInventoryReport, compileAll(`inventory`)},
	{domain.TypeCapitalCall, compileAll(`capital.*call`, `call.*notice`, `drawdown`)},
	{domain.TypeDistributionNotice, compileAll(`distribution`, `dist.*notice`)},
	{domain.TypeNAVStatement, compileAll(`nav`, `net.*asset`)},
	{domain.TypeInvoice, compileAll(`invoice`, `bill`)},
	{domain.TypeBankStatement, compileAll(`bank.*statement`, `account.*statement`)},
	{domain.TypeInsuranceCertificate, compileAll(`insurance`, `coi`, `certificate.*insurance`)},
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?i)` + e)
	}
	return out
}

// MatchFilename returns the first document type whose pattern matches name.
func MatchFilename(name string) (domain.DocumentType, bool) {
	if name == "" {
		return "", false
	}
	lower := strings.ToLower(name)
	for _, fp := range filenamePatterns {
		for _, re := range fp.patterns {
			if re.MatchString(lower) {
				return fp.docType, true
			}
		}
	}
	return "", false
}

var classificationLabels = []domain.DocumentType{
	domain.TypeMonthlyFinancials,
	domain.TypeQuarterlyFinancials,
	domain.TypeAnnualFinancials,
	domain.TypeCovenantCompliance,
	domain.TypeBorrowingBase,
	domain.TypeARAging,
	domain.TypeCapitalCall,
	domain.TypeDistributionNotice,
	domain.TypeNAVStatement,
	domain.TypeInvoice,
	domain.TypeBankStatement,
	domain.TypeInsuranceCertificate,
	domain.TypeOther,
}

// ClassificationLabels returns the closed set a classifier may answer with.
func ClassificationLabels() []domain.DocumentType {
	out := make([]domain.DocumentType, len(classificationLabels))
	copy(out, classificationLabels)
	return out
}

// ParseClassification maps a classifier reply onto the classification set.
// Unrecognised replies map to domain.TypeOther.
func ParseClassification(reply string) domain.DocumentType {
	label := strings.ToLower(strings.TrimSpace(reply))
	label = strings.Trim(label, "\"'`.")
	for _, t := range classificationLabels {
		if string(t) == label {
			return t
		}
	}
	return domain.TypeOther
}

// TypeDetector resolves a document type: filename patterns first, then the
// semantic classifier over the document text.
type TypeDetector struct {
	semantic port.SemanticExtractor
	logger   *zap.Logger
}

// NewTypeDetector creates a TypeDetector.
func NewTypeDetector(semantic port.SemanticExtractor, logger *zap.Logger) *TypeDetector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TypeDetector{semantic: semantic, logger: logger}
}

// Detect returns the type for the document behind src. Empty text yields
// domain.TypeUnknown. Classifier failures are returned to the caller.
func (d *TypeDetector) Detect(ctx context.Context, src *Source) (domain.DocumentType, error) {
	if t, ok := MatchFilename(src.Filename); ok {
		d.logger.Debug("extraction.TypeDetector: matched filename",
			zap.String("filename", src.Filename), zap.String("document_type", string(t)))
		return t, nil
	}

	text, err := src.Text(ctx)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return domain.TypeUnknown, nil
	}

	t, err := d.semantic.DetectType(ctx, text, src.Filename)
	if err != nil {
		return "", err
	}
	if t != ParseClassification(string(t)) {
		t = domain.TypeOther
	}
	d.logger.Info("extraction.TypeDetector: classified",
		zap.String("filename", src.Filename), zap.String("document_type", string(t)))
	return t, nil
}
