package extraction

import "docintake/internal/domain"

// SchemaField describes one field an extractor is asked to fill.
type SchemaField struct {
	Name        string
	Description string
}

// Schema is the ordered field list for a document type.
type Schema []SchemaField

// Names returns the field names in schema order.
func (s Schema) Names() []string {
	out := make([]string, len(s))
	for i, f := range s {
		out[i] = f.Name
	}
	return out
}

var genericSchema = Schema{
	{"document_date", "Date (YYYY-MM-DD)"},
	{"document_title", "String"},
	{"company_name", "String"},
	{"key_figures", "Object with key financial figures"},
	{"summary", "Brief summary of the document"},
}

var schemas = map[domain.DocumentType]Schema{
	domain.TypeMonthlyFinancials: {
		{"period_end_date", "Date (YYYY-MM-DD)"},
		{"period_type", "monthly|quarterly|annual"},
		{"revenue", "Number (currency amount)"},
		{"revenue_growth_yoy", "Number (percentage)"},
		{"gross_profit", "Number (currency amount)"},
		{"gross_margin", "Number (percentage)"},
		{"ebitda", "Number (currency amount)"},
		{"ebitda_margin", "Number (percentage)"},
		{"net_income", "Number (currency amount)"},
		{"total_assets", "Number (currency amount)"},
		{"total_liabilities", "Number (currency amount)"},
		{"total_equity", "Number (currency amount)"},
		{"cash_and_equivalents", "Number (currency amount)"},
		{"total_debt", "Number (currency amount)"},
	},
	domain.TypeCovenantCompliance: {
		{"reporting_period", "Date (YYYY-MM-DD)"},
		{"leverage_ratio", "Number (decimal ratio like 3.5)"},
		{"leverage_covenant", "Number (max allowed ratio)"},
		{"leverage_compliant", "Boolean"},
		{"interest_coverage_ratio", "Number (decimal ratio)"},
		{"coverage_covenant", "Number (min required ratio)"},
		{"coverage_compliant", "Boolean"},
		{"fixed_charge_coverage", "Number (decimal ratio)"},
		{"fcc_covenant", "Number (min required ratio)"},
		{"fcc_compliant", "Boolean"},
		{"minimum_liquidity", "Number (currency amount)"},
		{"liquidity_covenant", "Number (min required amount)"},
		{"liquidity_compliant", "Boolean"},
		{"overall_compliance", "Boolean"},
		{"cure_required", "Boolean"},
		{"cure_amount", "Number (currency amount) or null"},
	},
	domain.TypeBorrowingBase: {
		{"certificate_date", "Date (YYYY-MM-DD)"},
		{"gross_accounts_receivable", "Number (currency amount)"},
		{"ineligible_ar", "Number (currency amount)"},
		{"eligible_ar", "Number (currency amount)"},
		{"ar_advance_rate", "Number (percentage like 85)"},
		{"ar_availability", "Number (currency amount)"},
		{"gross_inventory", "Number (currency amount)"},
		{"ineligible_inventory", "Number (currency amount)"},
		{"eligible_inventory", "Number (currency amount)"},
		{"inventory_advance_rate", "Number (percentage like 50)"},
		{"inventory_availability", "Number (currency amount)"},
		{"total_availability", "Number (currency amount)"},
		{"outstanding_loans", "Number (currency amount)"},
		{"outstanding_lcs", "Number (currency amount)"},
		{"excess_availability", "Number (currency amount)"},
	},
	domain.TypeCapitalCall: {
		{"notice_date", "Date (YYYY-MM-DD)"},
		{"due_date", "Date (YYYY-MM-DD)"},
		{"call_number", "Integer"},
		{"call_amount", "Number (currency amount)"},
		{"call_purpose", "String description"},
		{"cumulative_called", "Number (currency amount)"},
		{"remaining_commitment", "Number (currency amount)"},
	},
	domain.TypeARAging: {
		{"as_of_date", "Date (YYYY-MM-DD)"},
		{"total_receivables", "Number (currency amount)"},
		{"current", "Number (currency amount)"},
		{"days_1_30", "Number (currency amount)"},
		{"days_31_60", "Number (currency amount)"},
		{"days_61_90", "Number (currency amount)"},
		{"days_over_90", "Number (currency amount)"},
		{"top_customers", "Array of {name, balance}"},
	},
	domain.TypeInvoice: {
		{"invoice_number", "String"},
		{"invoice_date", "Date (YYYY-MM-DD)"},
		{"due_date", "Date (YYYY-MM-DD)"},
		{"vendor_name", "String"},
		{"total_amount", "Number (currency amount)"},
		{"currency", "ISO 4217 code"},
	},
	domain.TypeNAVStatement: {
		{"statement_date", "Date (YYYY-MM-DD)"},
		{"fund_name", "String"},
		{"nav", "Number (currency amount)"},
		{"nav_per_unit", "Number"},
		{"total_commitments", "Number (currency amount)"},
		{"unfunded_commitments", "Number (currency amount)"},
	},
}

// SchemaFor returns the field schema for t, or the generic schema when t has
// no dedicated one.
func SchemaFor(t domain.DocumentType) Schema {
	if s, ok := schemas[t]; ok {
		return s
	}
	return genericSchema
}
