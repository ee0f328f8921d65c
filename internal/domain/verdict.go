package domain

// RiskLevel classifies how dangerous a statement is.
type RiskLevel string

const (
	RiskLow     RiskLevel = "low"
	RiskMedium  RiskLevel = "medium"
	RiskHigh    RiskLevel = "high"
	RiskUnknown RiskLevel = "unknown"
)

// SafetyVerdict is the result of statement-level safety validation.
// Produced fresh per statement; never cached.
type SafetyVerdict struct {
	Allowed              bool
	Risk                 RiskLevel
	Reason               string
	RequiresConfirmation bool
}
