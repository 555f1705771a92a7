package profile

type ProfileResponse struct {
	EmployeeID     string `json:"employee_id"`
	EmployeeIDCode string `json:"employee_id_code"`
	FullName       string `json:"full_name"`
	Username       string `json:"username"`
	Position       string `json:"position"`
	Department     string `json:"department"`
	Role           string `json:"role"`
}
