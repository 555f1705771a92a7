package remote

import (
	"context"
)

// EntitlementSource reads the yearly allotment from the remote balance endpoint.
type EntitlementSource struct {
	api API
}

func NewEntitlementSource(api API) *EntitlementSource {
	return &EntitlementSource{api: api}
}

func (e *EntitlementSource) Entitlement(ctx context.Context, employeeID string, year int) (int, error) {
	b, err := e.api.FetchLeaveBalance(ctx, employeeID, year)
	if err != nil {
		return 0, err
	}
	return b.Entitlement, nil
}
