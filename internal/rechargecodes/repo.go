package rechargecodes

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lc3lx/backend-zouhal/pkg/db/models"
	"github.com/lc3lx/backend-zouhal/pkg/pagination"
)

// ListFilter narrows admin listings.
type ListFilter struct {
	Used *bool
	// Code matches a prefix of the code token, admin lookups paste
	// partial codes from support tickets.
	Code string
}

// Stats aggregates code counts and amounts for the admin dashboard.
type Stats struct {
	Total               int64 `json:"total"`
	Used                int64 `json:"used"`
	Unused              int64 `json:"unused"`
	TotalAmountCents    int64 `json:"total_amount_cents"`
	RedeemedAmountCents int64 `json:"redeemed_amount_cents"`
}

// Repository defines persistence for recharge codes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateBatch(ctx context.Context, codes []models.RechargeCode) error
	FindByCode(ctx context.Context, code string) (*models.RechargeCode, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.RechargeCode, error)
	MarkUsed(ctx context.Context, id, usedBy uuid.UUID, usedAt time.Time) (bool, error)
	List(ctx context.Context, params pagination.Params, filter ListFilter) ([]models.RechargeCode, string, error)
	Stats(ctx context.Context) (*Stats, error)
	DeleteUnused(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteUnusedMany(ctx context.Context, ids []uuid.UUID) (int64, error)
	DeleteExpiredUnused(ctx context.Context, now time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a recharge code repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateBatch(ctx context.Context, codes []models.RechargeCode) error {
	if len(codes) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&codes).Error
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.RechargeCode, error) {
	var record models.RechargeCode
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.RechargeCode, error) {
	var record models.RechargeCode
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// MarkUsed flips is_used exactly once. Returns false when another
// redemption already claimed the code.
func (r *repository) MarkUsed(ctx context.Context, id, usedBy uuid.UUID, usedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.RechargeCode{}).
		Where("id = ? AND is_used = ?", id, false).
		Updates(map[string]any{
			"is_used": true,
			"used_by": usedBy,
			"used_at": usedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params, filter ListFilter) ([]models.RechargeCode, string, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	if filter.Used != nil {
		query = query.Where("is_used = ?", *filter.Used)
	}
	if code := strings.ToUpper(strings.TrimSpace(filter.Code)); code != "" {
		query = query.Where("code LIKE ?", code+"%")
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var codes []models.RechargeCode
	if err := query.Find(&codes).Error; err != nil {
		return nil, "", err
	}

	var nextCursor string
	if len(codes) > limit {
		codes = codes[:limit]
		last := codes[len(codes)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return codes, nextCursor, nil
}

func (r *repository) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	base := r.db.WithContext(ctx).Model(&models.RechargeCode{})

	if err := base.Session(&gorm.Session{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := base.Session(&gorm.Session{}).Where("is_used = ?", true).Count(&stats.Used).Error; err != nil {
		return nil, err
	}
	stats.Unused = stats.Total - stats.Used

	if err := base.Session(&gorm.Session{}).
		Select("COALESCE(SUM(amount_cents), 0)").
		Scan(&stats.TotalAmountCents).Error; err != nil {
		return nil, err
	}
	if err := base.Session(&gorm.Session{}).
		Where("is_used = ?", true).
		Select("COALESCE(SUM(amount_cents), 0)").
		Scan(&stats.RedeemedAmountCents).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *repository) DeleteUnused(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND is_used = ?", id, false).
		Delete(&models.RechargeCode{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) DeleteUnusedMany(ctx context.Context, ids []uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id IN ? AND is_used = ?", ids, false).
		Delete(&models.RechargeCode{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repository) DeleteExpiredUnused(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("is_used = ? AND expires_at < ?", false, now).
		Delete(&models.RechargeCode{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// IsNotFound reports whether err is the gorm missing-record error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
