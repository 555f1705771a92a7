package profile

import "time"

type Profile struct {
	EmployeeID     string `gorm:"type:varchar(64);primaryKey"`
	EmployeeIDCode string `gorm:"type:varchar(32);not null;default:''"`
	FullName       string `gorm:"type:varchar(255);not null"`
	Username       string `gorm:"type:varchar(255);not null;default:''"`
	Position       string `gorm:"type:varchar(255);not null;default:''"`
	Department     string `gorm:"type:varchar(255);not null;default:''"`
	Role           string `gorm:"type:varchar(20);not null;default:'EMPLOYEE'"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Profile) TableName() string {
	return "employee_profiles"
}
