package postgres

import (
	"context"

	customErrors "github.com/Miraines/management-company/backoffice/internal/domain/auth/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// employeeRecord maps the columns of the employee table the account flows
// read. The table itself is owned by the staff module.
type employeeRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	FirstName string
	LastName  string
}

func (employeeRecord) TableName() string { return "employee" }

type PostgresEmployeeRepo struct {
	db *gorm.DB
}

func NewPostgresEmployeeRepo(db *gorm.DB) *PostgresEmployeeRepo {
	return &PostgresEmployeeRepo{db: db}
}

func (p *PostgresEmployeeRepo) EmployeeExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var n int64
	if err := p.db.WithContext(ctx).Model(&employeeRecord{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, customErrors.WrapInternal(err, "EmployeeExists")
	}
	return n > 0, nil
}
