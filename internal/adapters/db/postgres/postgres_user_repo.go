package postgres

import (
	"context"
	"errors"
	"time"

	customErrors "github.com/Miraines/management-company/backoffice/internal/domain/auth/errors"
	"github.com/Miraines/management-company/backoffice/internal/domain/auth/model"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type userRecord struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	EmployeeID   uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userRecord) TableName() string { return "user_account" }

func (r userRecord) toModel() model.User {
	return model.User{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		EmployeeID:   r.EmployeeID,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type PostgresUserRepo struct {
	db *gorm.DB
}

func NewPostgresUserRepo(db *gorm.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

func (p *PostgresUserRepo) CreateUser(ctx context.Context, user model.User) (uuid.UUID, error) {
	rec := userRecord{
		ID:           user.ID,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		EmployeeID:   user.EmployeeID,
	}
	if err := p.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return uuid.Nil, customErrors.ErrAlreadyExists
		}
		return uuid.Nil, customErrors.WrapInternal(err, "CreateUser")
	}
	return rec.ID, nil
}

func (p *PostgresUserRepo) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	var u userRecord
	res := p.db.WithContext(ctx).Where("email = ?", email).First(&u)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return model.User{}, customErrors.ErrNotFound
	}
	if err := res.Error; err != nil {
		return model.User{}, customErrors.WrapInternal(err, "GetUserByEmail")
	}

	return u.toModel(), nil
}

const profileQuery = `
select u.id as user_id, u.email, e.first_name, e.last_name
from user_account u
inner join employee e on u.employee_id = e.id
where u.id = ?`

func (p *PostgresUserRepo) GetProfile(ctx context.Context, id uuid.UUID) (model.Profile, error) {
	var row struct {
		UserID    uuid.UUID
		Email     string
		FirstName string
		LastName  string
	}
	res := p.db.WithContext(ctx).Raw(profileQuery, id).Scan(&row)
	if err := res.Error; err != nil {
		return model.Profile{}, customErrors.WrapInternal(err, "GetProfile")
	}
	if res.RowsAffected == 0 {
		return model.Profile{}, customErrors.ErrNotFound
	}
	return model.Profile{
		UserID:    row.UserID,
		Email:     row.Email,
		FirstName: row.FirstName,
		LastName:  row.LastName,
	}, nil
}

func (p *PostgresUserRepo) UpdateUser(ctx context.Context, id uuid.UUID, patch model.UserPatch) error {
	updates := map[string]interface{}{}
	if patch.Email != nil {
		updates["email"] = *patch.Email
	}
	if patch.PasswordHash != nil {
		updates["password_hash"] = *patch.PasswordHash
	}
	if patch.EmployeeID != nil {
		updates["employee_id"] = *patch.EmployeeID
	}
	if len(updates) == 0 {
		return nil
	}

	res := p.db.WithContext(ctx).Model(&userRecord{}).Where("id = ?", id).Updates(updates)
	if err := res.Error; err != nil {
		if isUniqueViolation(err) {
			return customErrors.ErrAlreadyExists
		}
		return customErrors.WrapInternal(err, "UpdateUser")
	}
	if res.RowsAffected == 0 {
		return customErrors.ErrNotFound
	}

	return nil
}

func (p *PostgresUserRepo) DeleteUser(ctx context.Context, id uuid.UUID) error {
	res := p.db.WithContext(ctx).Where("id = ?", id).Delete(&userRecord{})
	if err := res.Error; err != nil {
		return customErrors.WrapInternal(err, "DeleteUser")
	}
	if res.RowsAffected == 0 {
		return customErrors.ErrNotFound
	}

	return nil
}

func (p *PostgresUserRepo) UserExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var n int64
	if err := p.db.WithContext(ctx).Model(&userRecord{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, customErrors.WrapInternal(err, "UserExists")
	}
	return n > 0, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
