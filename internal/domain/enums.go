package domain

// DocumentStatus is the lifecycle state of a document.
type DocumentStatus string

const (
	StatusPending     DocumentStatus = "pending"
	StatusProcessing  DocumentStatus = "processing"
	StatusProcessed   DocumentStatus = "processed"
	StatusNeedsReview DocumentStatus = "needs_review"
	StatusFailed      DocumentStatus = "failed"
)

// IsTerminal reports whether no automatic transition leaves s.
func (s DocumentStatus) IsTerminal() bool {
	switch s {
	case StatusProcessed, StatusNeedsReview, StatusFailed:
		return true
	}
	return false
}

// DocumentType classifies an ingested document.
type DocumentType string

const (
	// Financial statements
	TypeMonthlyFinancials    DocumentType = "monthly_financials"
	TypeQuarterlyFinancials  DocumentType = "quarterly_financials"
	TypeAnnualFinancials     DocumentType = "annual_financials"
	TypeManagementAccounts   DocumentType = "management_accounts"
	TypeBoardDeck            DocumentType = "board_deck"
	TypeCovenantCompliance   DocumentType = "covenant_compliance"
	TypeCovenantCalculations DocumentType = "covenant_calculations"
	TypeCureNotice           DocumentType = "cure_notice"

	// Asset-based lending
	TypeBorrowingBase       DocumentType = "borrowing_base"
	TypeARAging             DocumentType = "ar_aging"
	TypeInventoryReport     DocumentType = "inventory_report"
	TypeConcentrationReport DocumentType = "concentration_report"

	// Fund documents
	TypeCapitalCall        DocumentType = "capital_call"
	TypeDistributionNotice DocumentType = "distribution_notice"
	TypeNAVStatement       DocumentType = "nav_statement"
	TypeInvestorStatement  DocumentType = "investor_statement"
	TypeFeeCalculation     DocumentType = "fee_calculation"

	// Legal and compliance
	TypeAmendment            DocumentType = "amendment"
	TypeWaiverRequest        DocumentType = "waiver_request"
	TypeUCCFiling            DocumentType = "ucc_filing"
	TypeInsuranceCertificate DocumentType = "insurance_certificate"
	TypeOrganizationalDoc    DocumentType = "organizational_doc"

	// Valuation
	TypeThirdPartyValuation DocumentType = "third_party_valuation"
	TypeCollateralAppraisal DocumentType = "collateral_appraisal"
	TypeMarkToMarket        DocumentType = "mark_to_market"

	// Banking
	TypeBankStatement    DocumentType = "bank_statement"
	TypeLockboxReport    DocumentType = "lockbox_report"
	TypeWireConfirmation DocumentType = "wire_confirmation"
	TypeInvoice          DocumentType = "invoice"

	TypeOther   DocumentType = "other"
	TypeUnknown DocumentType = "unknown"
)

var documentTypes = map[DocumentType]struct{}{
	TypeMonthlyFinancials: {}, TypeQuarterlyFinancials: {}, TypeAnnualFinancials: {},
	TypeManagementAccounts: {}, TypeBoardDeck: {}, TypeCovenantCompliance: {},
	TypeCovenantCalculations: {}, TypeCureNotice: {}, TypeBorrowingBase: {},
	TypeARAging: {}, TypeInventoryReport: {}, TypeConcentrationReport: {},
	TypeCapitalCall: {}, TypeDistributionNotice: {}, TypeNAVStatement: {},
	TypeInvestorStatement: {}, TypeFeeCalculation: {}, TypeAmendment: {},
	TypeWaiverRequest: {}, TypeUCCFiling: {}, TypeInsuranceCertificate: {},
	TypeOrganizationalDoc: {}, TypeThirdPartyValuation: {}, TypeCollateralAppraisal: {},
	TypeMarkToMarket: {}, TypeBankStatement: {}, TypeLockboxReport: {},
	TypeWireConfirmation: {}, TypeInvoice: {}, TypeOther: {}, TypeUnknown: {},
}

// ParseDocumentType returns the DocumentType named by s and whether it is known.
func ParseDocumentType(s string) (DocumentType, bool) {
	t := DocumentType(s)
	_, ok := documentTypes[t]
	return t, ok
}

// IsResolved reports whether t names a concrete type, so no detection is needed.
func (t DocumentType) IsResolved() bool {
	return t != "" && t != TypeUnknown
}

// ExtractorTag identifies which extractor produced a result.
type ExtractorTag string

const (
	ExtractorDocAIInvoice ExtractorTag = "document_ai_invoice"
	ExtractorDocAIForm    ExtractorTag = "document_ai_form"
	ExtractorDocAIOCR     ExtractorTag = "document_ai_ocr"
	ExtractorDocAICustom  ExtractorTag = "document_ai_custom"
	ExtractorPDFText      ExtractorTag = "pdf_text"
	ExtractorClaude       ExtractorTag = "claude"
	ExtractorVertexGemini ExtractorTag = "vertex_gemini"
	ExtractorManual       ExtractorTag = "manual"
)

// ExceptionCategory groups exceptions for routing.
type ExceptionCategory string

const (
	CategoryValidationError   ExceptionCategory = "validation_error"
	CategoryExtractionError   ExceptionCategory = "extraction_error"
	CategoryLowConfidence     ExceptionCategory = "low_confidence"
	CategoryMissingField      ExceptionCategory = "missing_field"
	CategoryInvalidFormat     ExceptionCategory = "invalid_format"
	CategoryBusinessRule      ExceptionCategory = "business_rule"
	CategoryCrossField        ExceptionCategory = "cross_field"
	CategoryUnknownDocType    ExceptionCategory = "unknown_doc_type"
	CategoryProcessingFailure ExceptionCategory = "processing_failure"
	CategoryOther             ExceptionCategory = "other"
)

// Priority ranks exceptions and validation rules.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Valid reports whether p is one of the four known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// ExceptionStatus tracks review of an exception.
type ExceptionStatus string

const (
	ExceptionOpen     ExceptionStatus = "open"
	ExceptionInReview ExceptionStatus = "in_review"
	ExceptionResolved ExceptionStatus = "resolved"
	ExceptionIgnored  ExceptionStatus = "ignored"
)

// AuditAction tags an audit log entry.
type AuditAction string

const (
	AuditDocumentUploaded          AuditAction = "document_uploaded"
	AuditDocumentProcessingStarted AuditAction = "document_processing_started"
	AuditDocumentProcessed         AuditAction = "document_processed"
	AuditDocumentFailed            AuditAction = "document_failed"
	AuditDocumentReprocessed       AuditAction = "document_reprocessed"
	AuditExtractionFallback        AuditAction = "extraction_fallback"
	AuditExceptionCreated          AuditAction = "exception_created"
	AuditSystemEvent               AuditAction = "system_event"
)

// ActorSystem is the actor recorded for pipeline-driven audit entries.
const ActorSystem = "system"
