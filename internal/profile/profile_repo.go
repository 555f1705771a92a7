package profile

import (
	"context"
	"errors"

	profileerrors "go-elms/internal/profile/errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Source yields the profile of one employee.
//
//go:generate mockgen -source=profile_repo.go -destination=mock/profile_repo_mock.go -package=mock
type Source interface {
	FindByEmployeeID(ctx context.Context, employeeID string) (*Profile, error)
}

type Repository interface {
	Source
	Upsert(ctx context.Context, p *Profile) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByEmployeeID(ctx context.Context, employeeID string) (*Profile, error) {
	var p Profile
	err := r.db.WithContext(ctx).First(&p, "employee_id = ?", employeeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, profileerrors.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) Upsert(ctx context.Context, p *Profile) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "employee_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"employee_id_code", "full_name", "username", "position", "department", "role", "updated_at",
		}),
	}).Create(p).Error
}
