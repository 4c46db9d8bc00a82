package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/ebulletin-go-api/internal/models"
)

// WelcomeCardRepository persists welcome page cards.
type WelcomeCardRepository interface {
	List(ctx context.Context, activeOnly bool) ([]models.WelcomeCard, error)
	FindByID(ctx context.Context, id uint) (*models.WelcomeCard, error)
	Create(ctx context.Context, card *models.WelcomeCard) error
	Update(ctx context.Context, card *models.WelcomeCard) error
	Delete(ctx context.Context, id uint) error
	Reorder(ctx context.Context, positions map[uint]int) error
	NextDisplayOrder(ctx context.Context) (int, error)
}

type welcomeCardRepository struct {
	db *gorm.DB
}

// NewWelcomeCardRepository constructs the welcome card repository.
func NewWelcomeCardRepository(db *gorm.DB) WelcomeCardRepository {
	return &welcomeCardRepository{db: db}
}

func (r *welcomeCardRepository) List(ctx context.Context, activeOnly bool) ([]models.WelcomeCard, error) {
	query := r.db.WithContext(ctx).Model(&models.WelcomeCard{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var cards []models.WelcomeCard
	if err := query.Order("display_order ASC, card_id ASC").Find(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

func (r *welcomeCardRepository) FindByID(ctx context.Context, id uint) (*models.WelcomeCard, error) {
	var card models.WelcomeCard
	if err := r.db.WithContext(ctx).First(&card, "card_id = ?", id).Error; err != nil {
		return nil, err
	}
	return &card, nil
}

func (r *welcomeCardRepository) Create(ctx context.Context, card *models.WelcomeCard) error {
	return r.db.WithContext(ctx).Create(card).Error
}

func (r *welcomeCardRepository) Update(ctx context.Context, card *models.WelcomeCard) error {
	return r.db.WithContext(ctx).Save(card).Error
}

func (r *welcomeCardRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.WelcomeCard{}, "card_id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *welcomeCardRepository) Reorder(ctx context.Context, positions map[uint]int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for id, order := range positions {
			result := tx.Model(&models.WelcomeCard{}).Where("card_id = ?", id).Update("display_order", order)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return nil
	})
}

func (r *welcomeCardRepository) NextDisplayOrder(ctx context.Context) (int, error) {
	var maxOrder *int
	if err := r.db.WithContext(ctx).Model(&models.WelcomeCard{}).Select("MAX(display_order)").Scan(&maxOrder).Error; err != nil {
		return 0, err
	}
	if maxOrder == nil {
		return 0, nil
	}
	return *maxOrder + 1, nil
}
