package shift

import (
	"context"

	"gorm.io/gorm"
)

//go:generate mockgen -source=shift_repo.go -destination=mock/shift_repo_mock.go -package=mock
type Repository interface {
	FindEffective(ctx context.Context, companyID, employeeID string) (*Shift, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// FindEffective prefers the employee override over the company default.
func (r *repository) FindEffective(ctx context.Context, companyID, employeeID string) (*Shift, error) {
	var s Shift
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Where("employee_id = ? OR employee_id IS NULL", employeeID).
		Order("employee_id IS NULL").
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}
