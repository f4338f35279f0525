package domain

// RiskLevel is a qualitative risk classification
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

var riskRank = map[RiskLevel]int{
	RiskLow:    1,
	RiskMedium: 2,
	RiskHigh:   3,
}

// Valid reports whether l is a known risk level
func (l RiskLevel) Valid() bool {
	_, ok := riskRank[l]
	return ok
}

// Rank orders levels low < medium < high. Unknown levels rank 0.
func (l RiskLevel) Rank() int {
	return riskRank[l]
}

// MaxRiskLevel returns the more severe of a and b
func MaxRiskLevel(a, b RiskLevel) RiskLevel {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// RiskFactorType identifies which rule produced a factor
type RiskFactorType string

const (
	RiskFactorMissedContributions RiskFactorType = "missed_contributions"
	RiskFactorMultipleLoans       RiskFactorType = "multiple_loans"
	RiskFactorOverdue             RiskFactorType = "overdue"
)

// RiskFactor is one triggered risk rule
type RiskFactor struct {
	Type     RiskFactorType `json:"type"`
	Label    string         `json:"label"`
	Severity RiskLevel      `json:"severity"`
}
