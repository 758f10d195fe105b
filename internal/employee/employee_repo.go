package employee

import (
	"context"

	"go-presence/internal/tenant"

	"gorm.io/gorm"
)

//go:generate mockgen -source=employee_repo.go -destination=mock/employee_repo_mock.go -package=mock
type Repository interface {
	FindByEmployeeNumber(ctx context.Context, employeeNumber string) (*Employee, error)
	FindByIDAndCompany(ctx context.Context, companyID string, id string) (*Employee, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// FindByEmployeeNumber resolves the code a biometric device sends. Device
// enrolment codes are unique across tenants.
func (r *repository) FindByEmployeeNumber(ctx context.Context, employeeNumber string) (*Employee, error) {
	var empl Employee
	err := r.db.WithContext(ctx).
		Where("employee_number = ?", employeeNumber).
		First(&empl).Error
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return &empl, nil
}

func (r *repository) FindByIDAndCompany(ctx context.Context, companyID string, id string) (*Employee, error) {
	var empl Employee
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		First(&empl, "id = ?", id).Error
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return &empl, nil
}
