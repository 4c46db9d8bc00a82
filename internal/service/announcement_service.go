package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/ebulletin-go-api/internal/dto"
	"github.com/noah-isme/ebulletin-go-api/internal/models"
	"github.com/noah-isme/ebulletin-go-api/internal/repository"
)

const announcementCachePattern = "announcements:active:v1:*"

var (
	// ErrAnnouncementNotFound indicates the announcement does not exist.
	ErrAnnouncementNotFound = errors.New("announcement not found")
	// ErrAnnouncementWindow indicates ends_at precedes starts_at.
	ErrAnnouncementWindow = errors.New("ends_at must be after starts_at")
)

// AnnouncementService exposes public and admin announcement operations.
type AnnouncementService interface {
	ListActive(ctx context.Context, page, pageSize int) (dto.AnnouncementListResponse, error)
	Get(ctx context.Context, id uint) (dto.AnnouncementResponse, error)
	Create(ctx context.Context, actor Actor, payload dto.AnnouncementRequest) (dto.AnnouncementResponse, error)
	Update(ctx context.Context, id uint, payload dto.AnnouncementRequest) (dto.AnnouncementResponse, dto.AnnouncementResponse, error)
	Delete(ctx context.Context, id uint) (dto.AnnouncementResponse, error)
	ToggleStatus(ctx context.Context, id uint) (dto.AnnouncementResponse, dto.AnnouncementResponse, error)
}

type announcementService struct {
	repo      repository.AnnouncementRepository
	validator *validator.Validate
	cache     *redis.Client
	ttl       time.Duration
	logger    zerolog.Logger
	policy    *bluemonday.Policy
}

// NewAnnouncementService constructs the announcement service.
func NewAnnouncementService(repo repository.AnnouncementRepository, validate *validator.Validate, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) AnnouncementService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &announcementService{
		repo:      repo,
		validator: validate,
		cache:     cache,
		ttl:       ttl,
		logger:    logger.With().Str("component", "announcement_service").Logger(),
		policy:    contentPolicy(),
	}
}

func contentPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowElements("p", "strong", "em", "a", "ul", "ol", "li", "br")
	policy.AllowAttrs("href", "title", "target").OnElements("a")
	return policy
}

func (s *announcementService) ListActive(ctx context.Context, page, pageSize int) (dto.AnnouncementListResponse, error) {
	page = normalizePage(page)
	pageSize = clampPageSize(pageSize)

	cacheKey := ""
	if s.cache != nil {
		cacheKey = fmt.Sprintf("announcements:active:v1:%d:%d", page, pageSize)
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil && cached != "" {
			var response dto.AnnouncementListResponse
			if err := json.Unmarshal([]byte(cached), &response); err == nil {
				response.CacheHit = true
				return response, nil
			}
		}
	}

	items, total, err := s.repo.ListActive(ctx, repository.AnnouncementFilter{Page: page, PageSize: pageSize})
	if err != nil {
		return dto.AnnouncementListResponse{}, err
	}

	responses := make([]dto.AnnouncementResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, s.toResponse(item))
	}

	response := dto.AnnouncementListResponse{
		Items: responses,
		Pagination: dto.PaginationMeta{
			Page:       page,
			PageSize:   pageSize,
			TotalItems: total,
			TotalPages: calculateTotalPages(total, pageSize),
		},
	}

	if cacheKey != "" {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.ttl).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to cache announcements")
			}
		}
	}

	return response, nil
}

func (s *announcementService) Get(ctx context.Context, id uint) (dto.AnnouncementResponse, error) {
	item, err := s.find(ctx, id)
	if err != nil {
		return dto.AnnouncementResponse{}, err
	}
	return s.toResponse(*item), nil
}

func (s *announcementService) Create(ctx context.Context, actor Actor, payload dto.AnnouncementRequest) (dto.AnnouncementResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AnnouncementResponse{}, err
	}

	model := models.Announcement{IsActive: true}
	if actor.ID != nil {
		model.PostedBy = *actor.ID
	}
	if err := applyAnnouncementPayload(&model, payload); err != nil {
		return dto.AnnouncementResponse{}, err
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		return dto.AnnouncementResponse{}, err
	}

	s.invalidate(ctx)
	return s.toResponse(model), nil
}

func (s *announcementService) Update(ctx context.Context, id uint, payload dto.AnnouncementRequest) (dto.AnnouncementResponse, dto.AnnouncementResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AnnouncementResponse{}, dto.AnnouncementResponse{}, err
	}

	model, err := s.find(ctx, id)
	if err != nil {
		return dto.AnnouncementResponse{}, dto.AnnouncementResponse{}, err
	}
	previous := s.toResponse(*model)

	if err := applyAnnouncementPayload(model, payload); err != nil {
		return dto.AnnouncementResponse{}, dto.AnnouncementResponse{}, err
	}
	if err := s.repo.Update(ctx, model); err != nil {
		return dto.AnnouncementResponse{}, dto.AnnouncementResponse{}, err
	}

	s.invalidate(ctx)
	return s.toResponse(*model), previous, nil
}

func (s *announcementService) Delete(ctx context.Context, id uint) (dto.AnnouncementResponse, error) {
	model, err := s.find(ctx, id)
	if err != nil {
		return dto.AnnouncementResponse{}, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AnnouncementResponse{}, ErrAnnouncementNotFound
		}
		return dto.AnnouncementResponse{}, err
	}

	s.invalidate(ctx)
	return s.toResponse(*model), nil
}

func (s *announcementService) ToggleStatus(ctx context.Context, id uint) (dto.AnnouncementResponse, dto.AnnouncementResponse, error) {
	model, err := s.find(ctx, id)
	if err != nil {
		return dto.AnnouncementResponse{}, dto.AnnouncementResponse{}, err
	}
	previous := s.toResponse(*model)

	model.IsActive = !model.IsActive
	if err := s.repo.Update(ctx, model); err != nil {
		return dto.AnnouncementResponse{}, dto.AnnouncementResponse{}, err
	}

	s.invalidate(ctx)
	return s.toResponse(*model), previous, nil
}

func (s *announcementService) find(ctx context.Context, id uint) (*models.Announcement, error) {
	model, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAnnouncementNotFound
		}
		return nil, err
	}
	return model, nil
}

// invalidate drops cached public pages; other keys in the same Redis are left alone.
func (s *announcementService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	iter := s.cache.Scan(ctx, 0, announcementCachePattern, 100).Iterator()
	keys := make([]string, 0)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to scan announcement cache")
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := s.cache.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to flush announcement cache")
	}
}

func (s *announcementService) toResponse(model models.Announcement) dto.AnnouncementResponse {
	return dto.AnnouncementResponse{
		ID:         model.AnnouncementID,
		Title:      strings.TrimSpace(model.Title),
		Body:       s.policy.Sanitize(model.Body),
		CategoryID: model.CategoryID,
		PostedBy:   model.PostedBy,
		StartsAt:   model.StartsAt,
		EndsAt:     model.EndsAt,
		IsPinned:   model.IsPinned,
		IsActive:   model.IsActive,
		CreatedAt:  model.CreatedAt,
	}
}

func applyAnnouncementPayload(model *models.Announcement, payload dto.AnnouncementRequest) error {
	startsAt := time.Now().UTC()
	if strings.TrimSpace(payload.StartsAt) != "" {
		parsed, err := time.Parse(time.RFC3339, payload.StartsAt)
		if err != nil {
			return err
		}
		startsAt = parsed.UTC()
	} else if !model.StartsAt.IsZero() {
		startsAt = model.StartsAt
	}

	var endsAt *time.Time
	if strings.TrimSpace(payload.EndsAt) != "" {
		parsed, err := time.Parse(time.RFC3339, payload.EndsAt)
		if err != nil {
			return err
		}
		parsed = parsed.UTC()
		if !parsed.After(startsAt) {
			return ErrAnnouncementWindow
		}
		endsAt = &parsed
	}

	model.Title = strings.TrimSpace(payload.Title)
	model.Body = strings.TrimSpace(payload.Body)
	model.CategoryID = payload.CategoryID
	model.StartsAt = startsAt
	model.EndsAt = endsAt
	model.IsPinned = payload.IsPinned
	return nil
}
