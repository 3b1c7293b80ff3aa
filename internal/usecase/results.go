package usecase

import "hotspot-billing/internal/domain/model"

// Outcome tells callers which reconciliation branch ran. It is informational;
// correctness never depends on it.
type Outcome string

const (
	OutcomeIgnored            Outcome = "IGNORED"
	OutcomeAlreadyAccepted    Outcome = "ALREADY_ACCEPTED"
	OutcomeAlreadyProvisioned Outcome = "ALREADY_PROVISIONED"
	OutcomeOK                 Outcome = "OK"
)

// ReconciliationResult is returned by webhook reconciliation and manual activation.
type ReconciliationResult struct {
	Outcome Outcome
	Status  model.PaymentStatus // status written (OK) or found (ALREADY_*)
	Reason  string              // set for IGNORED
	Voucher *model.Voucher      // set when a voucher was issued or already existed
}

func ignored(reason string) *ReconciliationResult {
	return &ReconciliationResult{Outcome: OutcomeIgnored, Reason: reason}
}
