package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/ebulletin-go-api/internal/dto"
	"github.com/noah-isme/ebulletin-go-api/internal/models"
	"github.com/noah-isme/ebulletin-go-api/internal/repository"
)

// ErrWelcomeCardNotFound indicates the card does not exist.
var ErrWelcomeCardNotFound = errors.New("welcome card not found")

// WelcomeCardService manages the cards rendered on the welcome page.
type WelcomeCardService interface {
	List(ctx context.Context, activeOnly bool) ([]dto.WelcomeCardResponse, error)
	Create(ctx context.Context, payload dto.WelcomeCardRequest) (dto.WelcomeCardResponse, error)
	Update(ctx context.Context, id uint, payload dto.WelcomeCardRequest) (dto.WelcomeCardResponse, dto.WelcomeCardResponse, error)
	Delete(ctx context.Context, id uint) (dto.WelcomeCardResponse, error)
	Reorder(ctx context.Context, payload dto.WelcomeCardReorderRequest) ([]dto.WelcomeCardResponse, error)
}

type welcomeCardService struct {
	repo      repository.WelcomeCardRepository
	validator *validator.Validate
	policy    *bluemonday.Policy
	logger    zerolog.Logger
}

// NewWelcomeCardService constructs the welcome card service.
func NewWelcomeCardService(repo repository.WelcomeCardRepository, validate *validator.Validate, logger zerolog.Logger) WelcomeCardService {
	return &welcomeCardService{
		repo:      repo,
		validator: validate,
		policy:    contentPolicy(),
		logger:    logger.With().Str("component", "welcome_card_service").Logger(),
	}
}

func (s *welcomeCardService) List(ctx context.Context, activeOnly bool) ([]dto.WelcomeCardResponse, error) {
	cards, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	responses := make([]dto.WelcomeCardResponse, 0, len(cards))
	for _, card := range cards {
		responses = append(responses, toWelcomeCardResponse(card))
	}
	return responses, nil
}

func (s *welcomeCardService) Create(ctx context.Context, payload dto.WelcomeCardRequest) (dto.WelcomeCardResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.WelcomeCardResponse{}, err
	}

	order, err := s.repo.NextDisplayOrder(ctx)
	if err != nil {
		return dto.WelcomeCardResponse{}, err
	}

	card := models.WelcomeCard{DisplayOrder: order, IsActive: true}
	s.apply(&card, payload)

	if err := s.repo.Create(ctx, &card); err != nil {
		return dto.WelcomeCardResponse{}, err
	}
	return toWelcomeCardResponse(card), nil
}

func (s *welcomeCardService) Update(ctx context.Context, id uint, payload dto.WelcomeCardRequest) (dto.WelcomeCardResponse, dto.WelcomeCardResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.WelcomeCardResponse{}, dto.WelcomeCardResponse{}, err
	}

	card, err := s.find(ctx, id)
	if err != nil {
		return dto.WelcomeCardResponse{}, dto.WelcomeCardResponse{}, err
	}
	previous := toWelcomeCardResponse(*card)

	s.apply(card, payload)
	if err := s.repo.Update(ctx, card); err != nil {
		return dto.WelcomeCardResponse{}, dto.WelcomeCardResponse{}, err
	}
	return toWelcomeCardResponse(*card), previous, nil
}

func (s *welcomeCardService) Delete(ctx context.Context, id uint) (dto.WelcomeCardResponse, error) {
	card, err := s.find(ctx, id)
	if err != nil {
		return dto.WelcomeCardResponse{}, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.WelcomeCardResponse{}, ErrWelcomeCardNotFound
		}
		return dto.WelcomeCardResponse{}, err
	}
	return toWelcomeCardResponse(*card), nil
}

func (s *welcomeCardService) Reorder(ctx context.Context, payload dto.WelcomeCardReorderRequest) ([]dto.WelcomeCardResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, err
	}

	positions := make(map[uint]int, len(payload.Items))
	for _, item := range payload.Items {
		positions[item.CardID] = item.DisplayOrder
	}

	if err := s.repo.Reorder(ctx, positions); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWelcomeCardNotFound
		}
		return nil, err
	}

	return s.List(ctx, false)
}

func (s *welcomeCardService) find(ctx context.Context, id uint) (*models.WelcomeCard, error) {
	card, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWelcomeCardNotFound
		}
		return nil, err
	}
	return card, nil
}

func (s *welcomeCardService) apply(card *models.WelcomeCard, payload dto.WelcomeCardRequest) {
	card.Title = strings.TrimSpace(payload.Title)
	card.Content = s.policy.Sanitize(strings.TrimSpace(payload.Content))
	card.ImageURL = strings.TrimSpace(payload.ImageURL)
	if payload.IsActive != nil {
		card.IsActive = *payload.IsActive
	}
	if payload.Metadata != nil {
		card.Metadata = datatypes.JSONMap(payload.Metadata)
	}
}

func toWelcomeCardResponse(card models.WelcomeCard) dto.WelcomeCardResponse {
	return dto.WelcomeCardResponse{
		ID:           card.CardID,
		Title:        card.Title,
		Content:      card.Content,
		ImageURL:     card.ImageURL,
		DisplayOrder: card.DisplayOrder,
		IsActive:     card.IsActive,
		Metadata:     map[string]interface{}(card.Metadata),
		UpdatedAt:    card.UpdatedAt,
	}
}
