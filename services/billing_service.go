package services

import (
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/kevinmwangi/nyumbani/models"
	"gorm.io/gorm"
)

// paymentDeadlineDay is the day of the following month by which the ledger
// month must be settled.
const paymentDeadlineDay = 7

// BillingService maintains the derived per-tenant-per-month rent ledger.
type BillingService struct {
	DB *gorm.DB
}

func NewBillingService(db *gorm.DB) *BillingService {
	return &BillingService{DB: db}
}

// GetOrCreate returns the ledger row for (tenant, month, year), creating it
// on first use. Repeated calls with the same key return the same row; the
// unique index backs this up against concurrent first-writers.
func (s *BillingService) GetOrCreate(tenantID, propertyID uuid.UUID, leaseID *uuid.UUID, month, year int, dueAmount float64) (*models.MonthlyPaymentHistory, error) {
	var record models.MonthlyPaymentHistory
	err := s.DB.Where("tenant_id = ? AND month = ? AND year = ?", tenantID, month, year).First(&record).Error
	if err == nil {
		return &record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	record = models.MonthlyPaymentHistory{
		TenantID:        tenantID,
		PropertyID:      propertyID,
		LeaseID:         leaseID,
		Month:           month,
		Year:            year,
		TotalDue:        dueAmount,
		TotalPaid:       0,
		Balance:         dueAmount,
		Status:          models.BillingPending,
		PaymentDeadline: deadlineFor(month, year),
	}
	if err := s.DB.Create(&record).Error; err != nil {
		// A concurrent first-writer may have won the unique index; re-read.
		var existing models.MonthlyPaymentHistory
		if readErr := s.DB.Where("tenant_id = ? AND month = ? AND year = ?", tenantID, month, year).First(&existing).Error; readErr == nil {
			return &existing, nil
		}
		return nil, err
	}
	return &record, nil
}

// deadlineFor computes the first-week deadline of the month following the
// billed month. time.Date normalizes December + 1 into January next year.
func deadlineFor(month, year int) time.Time {
	return time.Date(year, time.Month(month)+1, paymentDeadlineDay, 23, 59, 59, 0, time.UTC)
}

// ApplyPayment adds a settled payment into the ledger month resolved from its
// settlement time. Payments without a lease association are skipped with a
// warning; there is no property to bill against.
func (s *BillingService) ApplyPayment(payment *models.Payment) error {
	if payment.LeaseID == nil {
		log.Printf("⚠️ Payment %s has no lease association, skipping billing aggregation", payment.ID)
		return nil
	}

	var lease models.Lease
	if err := s.DB.First(&lease, "id = ?", payment.LeaseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Resource: "lease", ID: payment.LeaseID.String()}
		}
		return err
	}

	settledAt := payment.CreatedAt
	if payment.PaidAt != nil {
		settledAt = *payment.PaidAt
	}
	month, year := int(settledAt.Month()), settledAt.Year()

	record, err := s.GetOrCreate(payment.TenantID, lease.PropertyID, payment.LeaseID, month, year, lease.MonthlyRent)
	if err != nil {
		return err
	}

	record.TotalPaid += payment.Amount
	record.Balance = record.TotalDue - record.TotalPaid
	switch {
	case record.Balance <= 0:
		record.Status = models.BillingSuccessful
	case record.TotalPaid > 0:
		record.Status = models.BillingPartiallyPaid
	default:
		record.Status = models.BillingPending
	}

	if err := s.DB.Save(record).Error; err != nil {
		return err
	}

	log.Printf("✅ Applied payment %s to ledger %d/%d for tenant %s (paid %.2f, balance %.2f)",
		payment.ID, month, year, payment.TenantID, record.TotalPaid, record.Balance)
	return nil
}

// CurrentMonth returns the ledger row for the tenant's current month, or nil
// when no payment has been applied yet.
func (s *BillingService) CurrentMonth(tenantID uuid.UUID) (*models.MonthlyPaymentHistory, error) {
	now := time.Now()
	var record models.MonthlyPaymentHistory
	err := s.DB.Where("tenant_id = ? AND month = ? AND year = ?", tenantID, int(now.Month()), now.Year()).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// History returns all ledger rows for a tenant, newest first, optionally
// restricted to one year.
func (s *BillingService) History(tenantID uuid.UUID, year *int) ([]models.MonthlyPaymentHistory, error) {
	query := s.DB.Where("tenant_id = ?", tenantID)
	if year != nil {
		query = query.Where("year = ?", *year)
	}
	var records []models.MonthlyPaymentHistory
	if err := query.Order("year desc, month desc").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

type BillingTotals struct {
	TotalPaid          float64 `json:"total_paid"`
	OutstandingBalance float64 `json:"outstanding_balance"`
}

// Totals sums paid and outstanding amounts across every ledger month for the
// tenant. Months already settled past zero do not offset other months.
func (s *BillingService) Totals(tenantID uuid.UUID) (*BillingTotals, error) {
	var totals BillingTotals
	err := s.DB.Model(&models.MonthlyPaymentHistory{}).
		Select("coalesce(sum(total_paid), 0) as total_paid, coalesce(sum(case when balance > 0 then balance else 0 end), 0) as outstanding_balance").
		Where("tenant_id = ?", tenantID).
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	return &totals, nil
}
