//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"hotspot-billing/internal/domain"
	"hotspot-billing/internal/domain/model"
	"hotspot-billing/internal/domain/ports/adapter"
	"hotspot-billing/internal/domain/ports/repository"
	"hotspot-billing/internal/usecase"
)

func TestReconcileUseCase_HandleNotification(t *testing.T) {
	ctx := context.Background()

	t.Run("should accept a pending transaction and issue one voucher", func(t *testing.T) {
		// --- Arrange ---
		w := newWorld()
		w.pending("TX-A")
		w.gateway.VerifyFunc = verifies("ACCEPTED", "OM")
		uc := w.reconciler()

		// --- Act ---
		res, err := uc.HandleNotification(ctx, "TX-A")

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Outcome != usecase.OutcomeOK || res.Status != model.PaymentStatusAccepted {
			t.Fatalf("expected OK/ACCEPTED, got %s/%s", res.Outcome, res.Status)
		}
		if res.Voucher == nil || len(res.Voucher.Username) != 8 {
			t.Fatalf("expected an 8-char voucher, got %+v", res.Voucher)
		}
		if res.Voucher.Username != res.Voucher.Password {
			t.Error("expected username and password to match")
		}
		if got := w.transactions.status("TX-A"); got != model.PaymentStatusAccepted {
			t.Errorf("expected stored status ACCEPTED, got %s", got)
		}
		if w.router.createdCount() != 1 || w.vouchers.count() != 1 {
			t.Errorf("expected one router user and one voucher, got %d and %d", w.router.createdCount(), w.vouchers.count())
		}
		if w.notifier.count() != 1 {
			t.Errorf("expected one confirmation e-mail, got %d", w.notifier.count())
		}
	})

	t.Run("should be idempotent on repeated deliveries", func(t *testing.T) {
		// --- Arrange ---
		w := newWorld()
		w.pending("TX-B")
		w.gateway.VerifyFunc = verifies("ACCEPTED", "OM")
		uc := w.reconciler()

		// --- Act ---
		first, err1 := uc.HandleNotification(ctx, "TX-B")
		second, err2 := uc.HandleNotification(ctx, "TX-B")

		// --- Assert ---
		if err1 != nil || err2 != nil {
			t.Fatalf("expected no errors, got %v and %v", err1, err2)
		}
		if first.Outcome != usecase.OutcomeOK {
			t.Errorf("expected first delivery OK, got %s", first.Outcome)
		}
		if second.Outcome != usecase.OutcomeAlreadyAccepted {
			t.Errorf("expected second delivery ALREADY_ACCEPTED, got %s", second.Outcome)
		}
		if w.gateway.calls() != 1 {
			t.Errorf("expected the gateway to be asked once, got %d", w.gateway.calls())
		}
		if w.vouchers.count() != 1 || w.notifier.count() != 1 {
			t.Errorf("expected exactly one voucher and one e-mail, got %d and %d", w.vouchers.count(), w.notifier.count())
		}
	})

	t.Run("should issue a single voucher under concurrent deliveries", func(t *testing.T) {
		// --- Arrange ---
		w := newWorld()
		w.pending("TX-C")
		w.gateway.VerifyFunc = verifies("ACCEPTED", "MOMO")
		uc := usecase.NewReconcileUseCase(w.transactions, w.gateway, w.provisioning(), nil,
			usecase.ReconcileOptions{}, newTestLogger())

		// --- Act ---
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = uc.HandleNotification(ctx, "TX-C")
			}()
		}
		wg.Wait()

		// --- Assert ---
		if w.vouchers.count() != 1 {
			t.Errorf("expected exactly one voucher, got %d", w.vouchers.count())
		}
		if w.router.createdCount() != 1 {
			t.Errorf("expected exactly one router user, got %d", w.router.createdCount())
		}
	})

	t.Run("should record a refusal without provisioning", func(t *testing.T) {
		// --- Arrange ---
		w := newWorld()
		w.pending("TX-D")
		w.gateway.VerifyFunc = verifies("REFUSED", "OM")
		uc := w.reconciler()

		// --- Act ---
		res, err := uc.HandleNotification(ctx, "TX-D")
		again, _ := uc.HandleNotification(ctx, "TX-D")

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Outcome != usecase.OutcomeOK || res.Status != model.PaymentStatusRefused {
			t.Errorf("expected OK/REFUSED, got %s/%s", res.Outcome, res.Status)
		}
		if w.vouchers.count() != 0 || w.router.createdCount() != 0 {
			t.Error("expected no voucher for a refused payment")
		}
		if again.Outcome != usecase.OutcomeIgnored {
			t.Errorf("expected a later delivery to be IGNORED, got %s", again.Outcome)
		}
	})

	t.Run("should store an intermediate status and keep the transaction open", func(t *testing.T) {
		// --- Arrange ---
		w := newWorld()
		w.pending("TX-E")
		w.gateway.VerifyFunc = verifies("WAITING_FOR_CUSTOMER", "")
		uc := w.reconciler()

		// --- Act ---
		res, err := uc.HandleNotification(ctx, "TX-E")

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Status != "WAITING_FOR_CUSTOMER" {
			t.Errorf("expected status to be stored verbatim, got %s", res.Status)
		}
		if got := w.transactions.status("TX-E"); got.IsTerminal() {
			t.Errorf("expected a non-terminal status, got %s", got)
		}
	})

	t.Run("should ignore an unknown reference without calling the gateway", func(t *testing.T) {
		// --- Arrange ---
		w := newWorld()
		uc := w.reconciler()

		// --- Act ---
		res, err := uc.HandleNotification(ctx, "TX-UNKNOWN")

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Outcome != usecase.OutcomeIgnored || res.Reason != "transaction not found" {
			t.Errorf("expected IGNORED 'transaction not found', got %s %q", res.Outcome, res.Reason)
		}
		if w.gateway.calls() != 0 {
			t.Error("expected no gateway call")
		}
	})

	t.Run("should ignore an empty reference", func(t *testing.T) {
		w := newWorld()
		res, err := w.reconciler().HandleNotification(ctx, "  ")
		if err != nil || res.Outcome != usecase.OutcomeIgnored {
			t.Errorf("expected IGNORED without error, got %v %v", res, err)
		}
	})

	t.Run("should ignore a delivery while another holds the lock", func(t *testing.T) {
		// --- Arrange ---
		w := newWorld()
		w.pending("TX-F")
		w.gateway.VerifyFunc = verifies("ACCEPTED", "OM")
		w.locker.ErrOn["lock:payment:TX-F"] = domain.ErrLockNotAcquired
		uc := w.reconciler()

		// --- Act ---
		res, err := uc.HandleNotification(ctx, "TX-F")

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Outcome != usecase.OutcomeIgnored {
			t.Errorf("expected IGNORED, got %s", res.Outcome)
		}
		if w.gateway.calls() != 0 {
			t.Error("expected no gateway call while locked")
		}
	})

	t.Run("should return an upstream error when verification fails", func(t *testing.T) {
		// --- Arrange ---
		w := newWorld()
		w.pending("TX-G")
		w.gateway.VerifyFunc = func(ctx context.Context, reference string) (*adapter.Verification, error) {
			return nil, errors.New("connection reset")
		}
		uc := w.reconciler()

		// --- Act ---
		_, err := uc.HandleNotification(ctx, "TX-G")

		// --- Assert ---
		if !errors.Is(err, domain.ErrUpstream) {
			t.Fatalf("expected ErrUpstream, got %v", err)
		}
		if got := w.transactions.status("TX-G"); got != model.PaymentStatusPending {
			t.Errorf("expected status to stay PENDING, got %s", got)
		}
	})

	t.Run("should fail when the gateway returns no data", func(t *testing.T) {
		// --- Arrange ---
		w := newWorld()
		w.pending("TX-H")
		w.gateway.VerifyFunc = func(ctx context.Context, reference string) (*adapter.Verification, error) {
			return &adapter.Verification{Code: "627", Message: "TRANSACTION_NOT_FOUND"}, nil
		}
		uc := w.reconciler()

		// --- Act ---
		_, err := uc.HandleNotification(ctx, "TX-H")

		// --- Assert ---
		if !errors.Is(err, usecase.ErrNoVerificationData) {
			t.Fatalf("expected ErrNoVerificationData, got %v", err)
		}
	})

	t.Run("should report ALREADY_ACCEPTED when the status update is lost", func(t *testing.T) {
		// --- Arrange ---
		w := newWorld()
		w.pending("TX-I")
		w.gateway.VerifyFunc = verifies("ACCEPTED", "OM")
		w.transactions.UpdateStatusIfOpenFunc = func(ctx context.Context, tx repository.Tx, reference string, status model.PaymentStatus, method *string) (bool, error) {
			// a concurrent winner finalized the row between load and update
			w.transactions.mu.Lock()
			w.transactions.byRef[reference].Status = model.PaymentStatusAccepted
			w.transactions.mu.Unlock()
			return false, nil
		}
		uc := w.reconciler()

		// --- Act ---
		res, err := uc.HandleNotification(ctx, "TX-I")

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Outcome != usecase.OutcomeAlreadyAccepted {
			t.Errorf("expected ALREADY_ACCEPTED, got %s", res.Outcome)
		}
		if w.vouchers.count() != 0 {
			t.Error("expected the loser to issue no voucher")
		}
	})

	t.Run("should keep ACCEPTED and alert when provisioning fails", func(t *testing.T) {
		// --- Arrange ---
		w := newWorld()
		w.pending("TX-J")
		w.gateway.VerifyFunc = verifies("ACCEPTED", "OM")
		w.router.CreateVoucherFunc = func(ctx context.Context, username, password, profile string) (string, error) {
			return "", adapter.ErrRouterCommunication
		}
		uc := w.reconciler()

		// --- Act ---
		res, err := uc.HandleNotification(ctx, "TX-J")

		// --- Assert ---
		if !errors.Is(err, adapter.ErrRouterCommunication) {
			t.Fatalf("expected router communication error, got %v", err)
		}
		if res == nil || res.Status != model.PaymentStatusAccepted {
			t.Fatalf("expected an ACCEPTED result alongside the error, got %+v", res)
		}
		if got := w.transactions.status("TX-J"); got != model.PaymentStatusAccepted {
			t.Errorf("expected status to stay ACCEPTED, got %s", got)
		}
		if w.alerter.count() != 1 {
			t.Errorf("expected one operator alert, got %d", w.alerter.count())
		}
		if w.notifier.count() != 0 {
			t.Error("expected no customer e-mail without a voucher")
		}
	})
}
