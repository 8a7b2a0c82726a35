package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"kasirbutik/backend/internal/domain"
	"kasirbutik/backend/internal/store"
	"kasirbutik/backend/internal/xid"
)

// ListDebts returns every debt with its status derived for the current
// time. Stored statuses go stale once a due date passes.
func (s *Service) ListDebts(ctx context.Context) ([]domain.Debt, error) {
	debts, err := s.repo.ListDebts(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	for i := range debts {
		debts[i].Status = domain.DebtStatusAt(debts[i].RemainingBalance, debts[i].DueDate, now)
	}
	return debts, nil
}

func (s *Service) GetDebt(ctx context.Context, id string) (domain.Debt, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Debt{}, fmt.Errorf("%w: id is required", store.ErrValidation)
	}
	debt, err := s.repo.GetDebt(ctx, id)
	if err != nil {
		return domain.Debt{}, err
	}
	debt.Status = domain.DebtStatusAt(debt.RemainingBalance, debt.DueDate, s.clock())
	return *debt, nil
}

func (s *Service) CreateDebt(ctx context.Context, req domain.DebtCreateRequest) (domain.Debt, error) {
	name := strings.TrimSpace(req.DebtorName)
	if name == "" || req.TotalDebt == nil || req.MonthlyInstallment == nil || strings.TrimSpace(req.DueDate) == "" {
		return domain.Debt{}, fmt.Errorf("%w: debtor_name, total_debt, monthly_installment and due_date are required", store.ErrValidation)
	}
	if *req.TotalDebt <= 0 {
		return domain.Debt{}, fmt.Errorf("%w: total_debt must be positive", store.ErrValidation)
	}
	if *req.MonthlyInstallment < 0 {
		return domain.Debt{}, fmt.Errorf("%w: monthly_installment must not be negative", store.ErrValidation)
	}
	if _, err := s.parseDate("due_date", req.DueDate); err != nil {
		return domain.Debt{}, err
	}
	return s.createDebt(ctx, name, *req.TotalDebt, *req.MonthlyInstallment, strings.TrimSpace(req.DueDate), strings.TrimSpace(req.Notes))
}

// createDebt is shared with checkout, which validates its own input.
func (s *Service) createDebt(ctx context.Context, name string, total float64, installment float64, dueDate string, notes string) (domain.Debt, error) {
	now := s.clock()
	debt := domain.Debt{
		DebtorName:         name,
		TotalDebt:          total,
		RemainingBalance:   total,
		MonthlyInstallment: installment,
		CreatedDate:        now.Format(domain.DateLayout),
		DueDate:            dueDate,
		Status:             domain.DebtStatusAt(total, dueDate, now),
		Notes:              notes,
		PaymentHistory:     []domain.Payment{},
	}

	// IDs have millisecond resolution; step past a collision instead of
	// failing the request.
	var created *domain.Debt
	var err error
	for attempt := range 3 {
		debt.ID = xid.DebtID(now.Add(time.Duration(attempt) * time.Millisecond))
		created, err = s.repo.CreateDebt(ctx, debt)
		if !errors.Is(err, store.ErrDuplicateKey) {
			break
		}
	}
	if err != nil {
		return domain.Debt{}, err
	}
	s.logger(ctx).Info("debt created",
		zap.String("debt_id", created.ID),
		zap.String("debtor", created.DebtorName),
		zap.Float64("total", created.TotalDebt),
	)
	return *created, nil
}

// UpdateDebt merges the provided fields. The remaining balance only moves
// through RecordPayment.
func (s *Service) UpdateDebt(ctx context.Context, id string, req domain.DebtUpdateRequest) (domain.Debt, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Debt{}, fmt.Errorf("%w: id is required", store.ErrValidation)
	}

	unlock, err := s.locker.Lock(ctx, lockKey("debt", id))
	if err != nil {
		return domain.Debt{}, err
	}
	defer unlock()

	existing, err := s.repo.GetDebt(ctx, id)
	if err != nil {
		return domain.Debt{}, err
	}

	updated := *existing
	if req.DebtorName != nil {
		name := strings.TrimSpace(*req.DebtorName)
		if name == "" {
			return domain.Debt{}, fmt.Errorf("%w: debtor_name must not be empty", store.ErrValidation)
		}
		updated.DebtorName = name
	}
	if req.TotalDebt != nil {
		if *req.TotalDebt <= 0 {
			return domain.Debt{}, fmt.Errorf("%w: total_debt must be positive", store.ErrValidation)
		}
		updated.TotalDebt = *req.TotalDebt
	}
	if req.MonthlyInstallment != nil {
		if *req.MonthlyInstallment < 0 {
			return domain.Debt{}, fmt.Errorf("%w: monthly_installment must not be negative", store.ErrValidation)
		}
		updated.MonthlyInstallment = *req.MonthlyInstallment
	}
	if req.DueDate != nil {
		if _, err := s.parseDate("due_date", *req.DueDate); err != nil {
			return domain.Debt{}, err
		}
		updated.DueDate = strings.TrimSpace(*req.DueDate)
	}
	if req.Notes != nil {
		updated.Notes = strings.TrimSpace(*req.Notes)
	}
	updated.Status = domain.DebtStatusAt(updated.RemainingBalance, updated.DueDate, s.clock())

	saved, err := s.repo.UpdateDebt(ctx, updated)
	if err != nil {
		return domain.Debt{}, err
	}
	return *saved, nil
}

// RecordPayment reduces the remaining balance, clamping at zero. Any
// amount above the balance is reported back as overpaid.
func (s *Service) RecordPayment(ctx context.Context, id string, req domain.PaymentRequest) (domain.PaymentResponse, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.PaymentResponse{}, fmt.Errorf("%w: id is required", store.ErrValidation)
	}
	if req.Amount == nil {
		return domain.PaymentResponse{}, fmt.Errorf("%w: amount is required", store.ErrValidation)
	}
	if *req.Amount <= 0 {
		return domain.PaymentResponse{}, fmt.Errorf("%w: amount must be positive", store.ErrValidation)
	}
	date := strings.TrimSpace(req.Date)
	if date == "" {
		date = s.today()
	} else if _, err := s.parseDate("date", date); err != nil {
		return domain.PaymentResponse{}, err
	}

	unlock, err := s.locker.Lock(ctx, lockKey("debt", id))
	if err != nil {
		return domain.PaymentResponse{}, err
	}
	defer unlock()

	debt, err := s.repo.GetDebt(ctx, id)
	if err != nil {
		return domain.PaymentResponse{}, err
	}

	amount := *req.Amount
	overpaid := max(0, amount-debt.RemainingBalance)
	payment := domain.Payment{Date: date, Amount: amount}

	debt.RemainingBalance = max(0, debt.RemainingBalance-amount)
	debt.PaymentHistory = append(debt.PaymentHistory, payment)
	debt.Status = domain.DebtStatusAt(debt.RemainingBalance, debt.DueDate, s.clock())

	saved, err := s.repo.UpdateDebt(ctx, *debt)
	if err != nil {
		return domain.PaymentResponse{}, err
	}
	s.metrics.RecordDebtPayment()

	log := s.logger(ctx).With(zap.String("debt_id", id), zap.Float64("amount", amount), zap.Float64("remaining", saved.RemainingBalance))
	if overpaid > 0 {
		log.Warn("debt overpaid", zap.Float64("overpaid", overpaid))
	} else {
		log.Info("debt payment recorded")
	}

	return domain.PaymentResponse{Debt: *saved, Payment: payment, Overpaid: overpaid}, nil
}

func (s *Service) DeleteDebt(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: id is required", store.ErrValidation)
	}

	unlock, err := s.locker.Lock(ctx, lockKey("debt", id))
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.repo.DeleteDebt(ctx, id); err != nil {
		return err
	}
	s.logger(ctx).Info("debt deleted", zap.String("debt_id", id))
	return nil
}
