package domain

// LoanStatus represents where a loan is in its lifecycle
type LoanStatus string

const (
	LoanPending  LoanStatus = "pending"
	LoanApproved LoanStatus = "approved"
	LoanActive   LoanStatus = "active"
	LoanRepaid   LoanStatus = "repaid"
	LoanOverdue  LoanStatus = "overdue"
	LoanRejected LoanStatus = "rejected"
)

// loanTransitions lists the allowed next states for each status.
// Rejected and repaid have no successors.
var loanTransitions = map[LoanStatus][]LoanStatus{
	LoanPending:  {LoanApproved, LoanRejected},
	LoanApproved: {LoanActive},
	LoanActive:   {LoanRepaid, LoanOverdue},
	LoanOverdue:  {LoanActive, LoanRepaid},
}

// Valid reports whether s is a known loan status
func (s LoanStatus) Valid() bool {
	switch s {
	case LoanPending, LoanApproved, LoanActive, LoanRepaid, LoanOverdue, LoanRejected:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s LoanStatus) IsTerminal() bool {
	return len(loanTransitions[s]) == 0
}

// CanTransitionTo reports whether moving from s to next is allowed
func (s LoanStatus) CanTransitionTo(next LoanStatus) bool {
	for _, allowed := range loanTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OwesPool reports whether a disbursed principal may still be owed to the pool
func (s LoanStatus) OwesPool() bool {
	switch s {
	case LoanActive, LoanOverdue:
		return true
	}
	return false
}
