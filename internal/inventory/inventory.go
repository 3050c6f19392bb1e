package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lc3lx/backend-zouhal/pkg/db/models"
	pkgerrors "github.com/lc3lx/backend-zouhal/pkg/errors"
)

// Adjustment names a product and the quantity being taken or returned.
type Adjustment struct {
	ProductID uuid.UUID
	Qty       int
}

// Manager moves stock counters through guarded updates. A reserve that
// would drive quantity negative affects zero rows and surfaces as
// OUT_OF_STOCK instead.
type Manager interface {
	Reserve(ctx context.Context, tx *gorm.DB, adjustments []Adjustment) error
	Release(ctx context.Context, tx *gorm.DB, adjustments []Adjustment) error
}

type manager struct{}

// NewManager builds the stock manager.
func NewManager() Manager {
	return &manager{}
}

func (m *manager) Reserve(ctx context.Context, tx *gorm.DB, adjustments []Adjustment) error {
	for _, adj := range adjustments {
		if adj.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"product_id": adj.ProductID})
		}
		res := tx.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ? AND quantity >= ?", adj.ProductID, adj.Qty).
			Updates(map[string]any{
				"quantity": gorm.Expr("quantity - ?", adj.Qty),
				"sold":     gorm.Expr("sold + ?", adj.Qty),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeOutOfStock, "insufficient stock").
				WithDetails(map[string]any{
					"product_id": adj.ProductID,
					"requested":  adj.Qty,
				})
		}
	}
	return nil
}

// Release returns reserved stock. The update is guarded the same way
// Reserve is: a release larger than what was sold affects zero rows and
// fails instead of driving sold negative.
func (m *manager) Release(ctx context.Context, tx *gorm.DB, adjustments []Adjustment) error {
	for _, adj := range adjustments {
		if adj.Qty <= 0 {
			continue
		}
		res := tx.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ? AND sold >= ?", adj.ProductID, adj.Qty).
			Updates(map[string]any{
				"quantity": gorm.Expr("quantity + ?", adj.Qty),
				"sold":     gorm.Expr("sold - ?", adj.Qty),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "release exceeds sold stock").
				WithDetails(map[string]any{
					"product_id": adj.ProductID,
					"requested":  adj.Qty,
				})
		}
	}
	return nil
}
