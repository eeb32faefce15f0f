package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/oggyb/hwreports/internal/db"
)

// AccountRepository stores identity credentials. Emails are kept lowercase.
type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(database *gorm.DB) *AccountRepository {
	return &AccountRepository{db: database}
}

// Create returns gorm.ErrDuplicatedKey when the email is taken.
func (r *AccountRepository) Create(ctx context.Context, a *db.Account) error {
	a.Email = normalizeEmail(a.Email)
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*db.Account, error) {
	var a db.Account
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*db.Account, error) {
	var a db.Account
	if err := r.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepository) UpdateEmail(ctx context.Context, id, email string) error {
	return r.updateColumn(ctx, id, "email", normalizeEmail(email))
}

func (r *AccountRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return r.updateColumn(ctx, id, "password_hash", hash)
}

func (r *AccountRepository) updateColumn(ctx context.Context, id, column string, value any) error {
	res := r.db.WithContext(ctx).
		Model(&db.Account{}).
		Where("id = ?", id).
		Update(column, value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
