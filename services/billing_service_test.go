package services

import (
	"testing"
	"time"

	"github.com/kevinmwangi/nyumbani/models"
)

func TestBillingService_GetOrCreate(t *testing.T) {
	t.Run("Given the same key twice When getOrCreate is called Then one row exists", func(t *testing.T) {
		db, _, _, billing := newTestServices(t, &mockGateway{})
		tenant := createTenant(t, db)
		lease := createLease(t, db, tenant, 30000, 0)

		first, err := billing.GetOrCreate(tenant.ID, lease.PropertyID, &lease.ID, 3, 2026, 30000)
		if err != nil {
			t.Fatalf("first GetOrCreate failed: %v", err)
		}
		second, err := billing.GetOrCreate(tenant.ID, lease.PropertyID, &lease.ID, 3, 2026, 30000)
		if err != nil {
			t.Fatalf("second GetOrCreate failed: %v", err)
		}

		if first.ID != second.ID {
			t.Errorf("expected the same record, got %s and %s", first.ID, second.ID)
		}

		var count int64
		db.Model(&models.MonthlyPaymentHistory{}).Where("tenant_id = ?", tenant.ID).Count(&count)
		if count != 1 {
			t.Errorf("expected 1 ledger row, got %d", count)
		}

		if first.TotalDue != 30000 || first.TotalPaid != 0 || first.Balance != 30000 {
			t.Errorf("unexpected initial ledger values: due %.2f paid %.2f balance %.2f",
				first.TotalDue, first.TotalPaid, first.Balance)
		}
		if first.Status != models.BillingPending {
			t.Errorf("expected PENDING, got %s", first.Status)
		}
	})

	t.Run("Given a December ledger month When created Then the deadline lands in January of the next year", func(t *testing.T) {
		db, _, _, billing := newTestServices(t, &mockGateway{})
		tenant := createTenant(t, db)
		lease := createLease(t, db, tenant, 30000, 0)

		record, err := billing.GetOrCreate(tenant.ID, lease.PropertyID, &lease.ID, 12, 2026, 30000)
		if err != nil {
			t.Fatalf("GetOrCreate failed: %v", err)
		}
		if record.PaymentDeadline.Year() != 2027 || record.PaymentDeadline.Month() != time.January {
			t.Errorf("expected deadline in January 2027, got %s", record.PaymentDeadline)
		}
		if record.PaymentDeadline.Day() != 7 {
			t.Errorf("expected deadline within the first week, got day %d", record.PaymentDeadline.Day())
		}
	})
}

func TestBillingService_ApplyPayment(t *testing.T) {
	t.Run("Given a partial rent payment When applied Then balance and status reflect the shortfall", func(t *testing.T) {
		db, svc, _, billing := newTestServices(t, &mockGateway{})
		tenant := createTenant(t, db)
		lease := createLease(t, db, tenant, 25000, 0)

		if _, err := svc.CreatePayment(CreatePaymentRequest{
			TenantID: tenant.ID, LeaseID: &lease.ID, Amount: 10000, Method: "CASH",
		}, Caller{ID: tenant.ID, Role: models.RoleTenant}); err != nil {
			t.Fatalf("CreatePayment failed: %v", err)
		}

		history, err := billing.History(tenant.ID, nil)
		if err != nil {
			t.Fatalf("History failed: %v", err)
		}
		if len(history) != 1 {
			t.Fatalf("expected 1 ledger row, got %d", len(history))
		}
		record := history[0]
		if record.TotalPaid != 10000 {
			t.Errorf("expected totalPaid 10000, got %.2f", record.TotalPaid)
		}
		if record.Balance != record.TotalDue-record.TotalPaid {
			t.Errorf("balance invariant broken: due %.2f paid %.2f balance %.2f",
				record.TotalDue, record.TotalPaid, record.Balance)
		}
		if record.Status != models.BillingPartiallyPaid {
			t.Errorf("expected PARTIALLY_PAID, got %s", record.Status)
		}
	})

	t.Run("Given two payments covering the rent When applied Then the month settles", func(t *testing.T) {
		db, svc, _, billing := newTestServices(t, &mockGateway{})
		tenant := createTenant(t, db)
		lease := createLease(t, db, tenant, 25000, 0)
		caller := Caller{ID: tenant.ID, Role: models.RoleTenant}

		for _, amount := range []float64{10000, 15000} {
			if _, err := svc.CreatePayment(CreatePaymentRequest{
				TenantID: tenant.ID, LeaseID: &lease.ID, Amount: amount, Method: "CASH",
			}, caller); err != nil {
				t.Fatalf("CreatePayment failed: %v", err)
			}
		}

		history, err := billing.History(tenant.ID, nil)
		if err != nil {
			t.Fatalf("History failed: %v", err)
		}
		if len(history) != 1 {
			t.Fatalf("expected 1 ledger row, got %d", len(history))
		}
		if history[0].Balance != 0 {
			t.Errorf("expected balance 0, got %.2f", history[0].Balance)
		}
		if history[0].Status != models.BillingSuccessful {
			t.Errorf("expected SUCCESSFUL, got %s", history[0].Status)
		}
	})

	t.Run("Given a payment without a lease When applied Then the ledger is untouched", func(t *testing.T) {
		db, svc, _, billing := newTestServices(t, &mockGateway{})
		tenant := createTenant(t, db)

		if _, err := svc.CreatePayment(CreatePaymentRequest{
			TenantID: tenant.ID, Amount: 5000, Method: "CASH",
		}, Caller{ID: tenant.ID, Role: models.RoleTenant}); err != nil {
			t.Fatalf("CreatePayment failed: %v", err)
		}

		history, err := billing.History(tenant.ID, nil)
		if err != nil {
			t.Fatalf("History failed: %v", err)
		}
		if len(history) != 0 {
			t.Errorf("expected no ledger rows, got %d", len(history))
		}
	})
}

func TestBillingService_Reads(t *testing.T) {
	t.Run("Given payments across months When totals are read Then paid and outstanding sums are correct", func(t *testing.T) {
		db, _, _, billing := newTestServices(t, &mockGateway{})
		tenant := createTenant(t, db)
		lease := createLease(t, db, tenant, 20000, 0)

		jan, err := billing.GetOrCreate(tenant.ID, lease.PropertyID, &lease.ID, 1, 2026, 20000)
		if err != nil {
			t.Fatalf("GetOrCreate failed: %v", err)
		}
		jan.TotalPaid = 20000
		jan.Balance = 0
		jan.Status = models.BillingSuccessful
		if err := db.Save(jan).Error; err != nil {
			t.Fatalf("failed to settle January: %v", err)
		}

		feb, err := billing.GetOrCreate(tenant.ID, lease.PropertyID, &lease.ID, 2, 2026, 20000)
		if err != nil {
			t.Fatalf("GetOrCreate failed: %v", err)
		}
		feb.TotalPaid = 5000
		feb.Balance = 15000
		feb.Status = models.BillingPartiallyPaid
		if err := db.Save(feb).Error; err != nil {
			t.Fatalf("failed to part-pay February: %v", err)
		}

		totals, err := billing.Totals(tenant.ID)
		if err != nil {
			t.Fatalf("Totals failed: %v", err)
		}
		if totals.TotalPaid != 25000 {
			t.Errorf("expected total paid 25000, got %.2f", totals.TotalPaid)
		}
		if totals.OutstandingBalance != 15000 {
			t.Errorf("expected outstanding 15000, got %.2f", totals.OutstandingBalance)
		}
	})

	t.Run("Given ledger rows in two years When history is filtered by year Then only that year returns", func(t *testing.T) {
		db, _, _, billing := newTestServices(t, &mockGateway{})
		tenant := createTenant(t, db)
		lease := createLease(t, db, tenant, 20000, 0)

		if _, err := billing.GetOrCreate(tenant.ID, lease.PropertyID, &lease.ID, 12, 2025, 20000); err != nil {
			t.Fatalf("GetOrCreate failed: %v", err)
		}
		if _, err := billing.GetOrCreate(tenant.ID, lease.PropertyID, &lease.ID, 1, 2026, 20000); err != nil {
			t.Fatalf("GetOrCreate failed: %v", err)
		}

		year := 2026
		history, err := billing.History(tenant.ID, &year)
		if err != nil {
			t.Fatalf("History failed: %v", err)
		}
		if len(history) != 1 || history[0].Year != 2026 {
			t.Fatalf("expected only the 2026 row, got %+v", history)
		}
	})
}
