package leave

import (
	"time"

	"go-elms/internal/shared/dateutil"
)

// CountMode decides how a date range is charged against the entitlement.
type CountMode string

const (
	CountWeekdays     CountMode = "weekday"
	CountCalendarDays CountMode = "calendar"
)

// Span counts the days between start and end, both included.
func (m CountMode) Span(start, end time.Time) int {
	if m == CountCalendarDays {
		return dateutil.InclusiveDayCount(start, end)
	}
	return dateutil.WeekdayCount(start, end)
}

// BalancePolicy fixes which requests consume days. PENDING requests are a
// provisional hold when IncludePending is set; the two policies are never
// mixed within one calculator.
type BalancePolicy struct {
	Mode           CountMode
	IncludePending bool
}

func DefaultBalancePolicy() BalancePolicy {
	return BalancePolicy{Mode: CountWeekdays, IncludePending: true}
}

type LeaveBalance struct {
	EmployeeID      string `json:"employee_id"`
	Year            int    `json:"year"`
	EntitlementDays int    `json:"entitlement_days"`
	UsedDays        int    `json:"used_days"`
	RemainingDays   int    `json:"remaining_days"`
	PendingDays     int    `json:"pending_days"`
	ApprovedDays    int    `json:"approved_days"`
}

// Calculator derives balances from request sets. It holds no state besides
// its policy, so the same input always yields the same balance.
type Calculator struct {
	policy BalancePolicy
}

func NewCalculator(policy BalancePolicy) *Calculator {
	if policy.Mode == "" {
		policy.Mode = CountWeekdays
	}
	return &Calculator{policy: policy}
}

func (c *Calculator) Policy() BalancePolicy {
	return c.policy
}

func (c *Calculator) Span(start, end time.Time) int {
	return c.policy.Mode.Span(start, end)
}

func (c *Calculator) Calculate(entitlement int, requests []LeaveRequest) LeaveBalance {
	b := LeaveBalance{EntitlementDays: entitlement}
	for _, r := range requests {
		span := r.DaySpan(c.policy.Mode)
		switch r.Status {
		case StatusApproved:
			b.ApprovedDays += span
		case StatusPending:
			b.PendingDays += span
		}
	}

	b.UsedDays = b.ApprovedDays
	if c.policy.IncludePending {
		b.UsedDays += b.PendingDays
	}
	b.RemainingDays = max(0, entitlement-b.UsedDays)
	return b
}

// CalculateForYear only counts requests that start in year.
func (c *Calculator) CalculateForYear(entitlement, year int, requests []LeaveRequest) LeaveBalance {
	inYear := make([]LeaveRequest, 0, len(requests))
	for _, r := range requests {
		if r.Year() == year {
			inYear = append(inYear, r)
		}
	}
	b := c.Calculate(entitlement, inYear)
	b.Year = year
	return b
}
