package apiclient

// The remote API wraps every payload as {"data": ..., "message": ...}.
type envelope[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message"`
}

type BalanceRecord struct {
	EmployeeID  string `json:"employeeId"`
	Year        int    `json:"year"`
	Entitlement int    `json:"entitlement"`
	Used        int    `json:"used"`
}

type LeaveRequestRecord struct {
	ID              int64  `json:"id"`
	EmployeeID      string `json:"employeeId"`
	EmployeeIDCode  string `json:"employeeIdCode"`
	EmployeeName    string `json:"employeeName"`
	StartDate       string `json:"startDate"`
	EndDate         string `json:"endDate"`
	TotalDays       *int   `json:"totalDays"`
	Reason          string `json:"reason"`
	Details         string `json:"details"`
	Status          string `json:"status"`
	ApprovedBy      string `json:"approvedBy"`
	RejectedBy      string `json:"rejectedBy"`
	RejectionReason string `json:"rejectionReason"`
	CreatedAt       string `json:"createdAt"`
	DecidedAt       string `json:"decidedAt"`
}

type SubmitPayload struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Reason    string `json:"reason"`
	Details   string `json:"details,omitempty"`
	TotalDays int    `json:"totalDays,omitempty"`
}

type decisionPayload struct {
	ApprovedBy      string `json:"approvedBy,omitempty"`
	RejectedBy      string `json:"rejectedBy,omitempty"`
	RejectionReason string `json:"rejectionReason,omitempty"`
}

type UserInfo struct {
	EmployeeID     string `json:"employeeId"`
	EmployeeIDCode string `json:"employeeIdCode"`
	FullName       string `json:"fullName"`
	Username       string `json:"username"`
	Position       string `json:"position"`
	Department     string `json:"department"`
	Role           string `json:"role"`
}
