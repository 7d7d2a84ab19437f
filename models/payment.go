package models

// ChargeStage identifies which of the two staged captures is being made.
type ChargeStage string

const (
	StageInitial    ChargeStage = "initial"
	StageCompletion ChargeStage = "completion"
)

// ChargeRequest asks the payment collaborator to attempt one capture.
// The orchestrator decides when and for how much; execution is external.
type ChargeRequest struct {
	BookingID  string
	CustomerID string
	Stage      ChargeStage
	Amount     float64
	Currency   string
	Method     string // "card" or "cash"
}

// ChargeResult reports the outcome of a capture attempt.
type ChargeResult struct {
	Success   bool
	Reference string
}
