package leave

import (
	"context"
)

// EntitlementSource yields the yearly allotment of an employee.
//
//go:generate mockgen -source=leave_entitlement.go -destination=mock/leave_entitlement_mock.go -package=mock
type EntitlementSource interface {
	Entitlement(ctx context.Context, employeeID string, year int) (int, error)
}

// StaticEntitlement grants every employee the same number of days per year.
type StaticEntitlement int

func (e StaticEntitlement) Entitlement(context.Context, string, int) (int, error) {
	return int(e), nil
}

// Ledger computes balances from the store. Nothing is accumulated: each call
// recomputes from the current request set.
type Ledger struct {
	store       *Store
	calc        *Calculator
	entitlement EntitlementSource
}

func NewLedger(store *Store, calc *Calculator, entitlement EntitlementSource) *Ledger {
	return &Ledger{store: store, calc: calc, entitlement: entitlement}
}

func (l *Ledger) Calculator() *Calculator {
	return l.calc
}

func (l *Ledger) Balance(ctx context.Context, employeeID string, year int) (LeaveBalance, error) {
	if err := l.store.EnsureLoaded(ctx, employeeID); err != nil {
		return LeaveBalance{}, err
	}

	entitlement, err := l.entitlement.Entitlement(ctx, employeeID, year)
	if err != nil {
		return LeaveBalance{}, err
	}

	b := l.calc.CalculateForYear(entitlement, year, l.store.ListByEmployee(employeeID))
	b.EmployeeID = employeeID
	return b, nil
}
