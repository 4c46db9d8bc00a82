package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/ebulletin-go-api/internal/models"
)

// AccountRepository looks up admin and student accounts for authentication.
type AccountRepository interface {
	FindAdminByEmail(ctx context.Context, email string) (*models.AdminAccount, error)
	FindAdminByID(ctx context.Context, id uint) (*models.AdminAccount, error)
	FindStudentByNumber(ctx context.Context, studentNumber string) (*models.StudentAccount, error)
	FindStudentByID(ctx context.Context, id uint) (*models.StudentAccount, error)
	CreateAdmin(ctx context.Context, account *models.AdminAccount) error
	CreateStudent(ctx context.Context, account *models.StudentAccount) error
}

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository constructs the account repository.
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) FindAdminByEmail(ctx context.Context, email string) (*models.AdminAccount, error) {
	var account models.AdminAccount
	err := r.db.WithContext(ctx).Preload("Profile").
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) FindAdminByID(ctx context.Context, id uint) (*models.AdminAccount, error) {
	var account models.AdminAccount
	if err := r.db.WithContext(ctx).Preload("Profile").First(&account, "admin_id = ?", id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) FindStudentByNumber(ctx context.Context, studentNumber string) (*models.StudentAccount, error) {
	var account models.StudentAccount
	err := r.db.WithContext(ctx).Preload("Profile").
		Where("student_number = ?", strings.TrimSpace(studentNumber)).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) FindStudentByID(ctx context.Context, id uint) (*models.StudentAccount, error) {
	var account models.StudentAccount
	if err := r.db.WithContext(ctx).Preload("Profile").First(&account, "student_id = ?", id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// CreateAdmin inserts the account together with its profile.
func (r *accountRepository) CreateAdmin(ctx context.Context, account *models.AdminAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

// CreateStudent inserts the account together with its profile.
func (r *accountRepository) CreateStudent(ctx context.Context, account *models.StudentAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}
