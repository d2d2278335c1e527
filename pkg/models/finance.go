package models

import "strconv"

// Sentinel values for the AI fields. A record leaving the pipeline always
// carries either a model answer or one of these.
const (
	DefaultAISummary = "analysis pending"
	DefaultAIRisk    = "no data"
	FieldMissingText = "analysis failed"
	ParseFailedRisk  = "parse failed"
)

// CorporateEntity is a target company, looked up in DART by display name.
type CorporateEntity struct {
	Name string `json:"name" yaml:"name"`
}

// FinanceSummary is the merged per-company record sent to the ingest service.
// JSON keys follow the ingest service's FinanceDto.
type FinanceSummary struct {
	CorpName        string `json:"corpName"`
	Year            string `json:"year"`
	Quarter         string `json:"quarter"`
	CorpCode        string `json:"corpCode"`
	Revenue         int64  `json:"revenue"`
	OperatingProfit int64  `json:"operatingProfit"`
	NetIncome       int64  `json:"netIncome"`
	AISummary       string `json:"aiSummary"`
	AIRisk          string `json:"aiRisk"`
}

// NewFinanceSummary returns a record with zero amounts and sentinel AI text.
func NewFinanceSummary(corpName string, year int, reportCode string) *FinanceSummary {
	return &FinanceSummary{
		CorpName:  corpName,
		Year:      strconv.Itoa(year),
		Quarter:   QuarterLabel(reportCode),
		AISummary: DefaultAISummary,
		AIRisk:    DefaultAIRisk,
	}
}

// ApplyAnalysis copies the AI fields onto the record.
func (f *FinanceSummary) ApplyAnalysis(a AIAnalysis) {
	f.AISummary = a.Summary
	f.AIRisk = a.Risk
}

// AIAnalysis is the two-field structured output requested from the model.
type AIAnalysis struct {
	Summary string `json:"summary"`
	Risk    string `json:"risk"`
}

// DefaultAIAnalysis returns the sentinel pair used when no analysis ran.
func DefaultAIAnalysis() AIAnalysis {
	return AIAnalysis{Summary: DefaultAISummary, Risk: DefaultAIRisk}
}

// DART report codes (reprt_code).
const (
	ReportCodeQ1     = "11013"
	ReportCodeHalf   = "11012"
	ReportCodeQ3     = "11014"
	ReportCodeAnnual = "11011"
)

// QuarterLabel maps a DART report code to the period label stored downstream.
func QuarterLabel(reportCode string) string {
	switch reportCode {
	case ReportCodeQ1:
		return "1Q"
	case ReportCodeHalf:
		return "2Q"
	case ReportCodeQ3:
		return "3Q"
	case ReportCodeAnnual:
		return "4Q"
	default:
		return reportCode
	}
}
