package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lc3lx/backend-zouhal/pkg/db/models"
	"github.com/lc3lx/backend-zouhal/pkg/enums"
	"github.com/lc3lx/backend-zouhal/pkg/pagination"
	"github.com/lc3lx/backend-zouhal/pkg/types"
)

func newTestRepo(t *testing.T) Repository {
	t.Helper()
	dsn := "file:orders_repo_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Order{}, &models.OrderItem{}))
	return NewRepository(conn)
}

func seedOrder(t *testing.T, repo Repository, userID uuid.UUID, method enums.PaymentMethod, status enums.PaymentStatus, paid bool, createdAt time.Time) *models.Order {
	t.Helper()
	order, err := repo.Create(context.Background(), &models.Order{
		UserID: userID,
		ShippingAddress: types.ShippingAddress{
			Details: "12 Main St",
			Phone:   "0999000000",
			City:    "Damascus",
		},
		PaymentMethod:        method,
		PaymentStatus:        status,
		ItemsPriceCents:      1000,
		TotalOrderPriceCents: 1000,
		IsPaid:               paid,
		Items: []models.OrderItem{{
			ProductID:      uuid.New(),
			Name:           "Notebook",
			Quantity:       2,
			UnitPriceCents: 500,
		}},
		CreatedAt: createdAt,
	})
	require.NoError(t, err)
	return order
}

func TestRepoCreateAndFindPreloadsItems(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	created := seedOrder(t, repo, uuid.New(), enums.PaymentMethodCash, enums.PaymentStatusPending, false, time.Now())

	found, err := repo.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)
	require.Len(t, found.Items, 1)
	require.Equal(t, "Notebook", found.Items[0].Name)
	require.Equal(t, found.ID, found.Items[0].OrderID)
}

func TestRepoFindByIDMissing(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	_, err := repo.FindByID(context.Background(), uuid.New())
	require.Error(t, err)
	require.True(t, IsNotFound(err))
}

func TestRepoListFilters(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	seedOrder(t, repo, uuid.New(), enums.PaymentMethodCash, enums.PaymentStatusPending, false, base)
	seedOrder(t, repo, uuid.New(), enums.PaymentMethodTransfer, enums.PaymentStatusPending, false, base.Add(time.Minute))
	seedOrder(t, repo, uuid.New(), enums.PaymentMethodTransfer, enums.PaymentStatusApproved, true, base.Add(2*time.Minute))

	method := enums.PaymentMethodTransfer
	listed, _, err := repo.List(ctx, pagination.Params{}, ListFilters{PaymentMethod: &method})
	require.NoError(t, err)
	require.Len(t, listed, 2)

	status := enums.PaymentStatusPending
	listed, _, err = repo.List(ctx, pagination.Params{}, ListFilters{PaymentMethod: &method, PaymentStatus: &status})
	require.NoError(t, err)
	require.Len(t, listed, 1)

	paid := true
	listed, _, err = repo.List(ctx, pagination.Params{}, ListFilters{IsPaid: &paid})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.True(t, listed[0].IsPaid)
}

func TestRepoListByUserPaginates(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	ctx := context.Background()
	userID := uuid.New()
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 5; i++ {
		seedOrder(t, repo, userID, enums.PaymentMethodCash, enums.PaymentStatusPending, false, base.Add(time.Duration(i)*time.Minute))
	}
	seedOrder(t, repo, uuid.New(), enums.PaymentMethodCash, enums.PaymentStatusPending, false, base)

	page, cursor, err := repo.ListByUser(ctx, userID, pagination.Params{Limit: 3})
	require.NoError(t, err)
	require.Len(t, page, 3)
	require.NotEmpty(t, cursor)
	// newest first
	require.True(t, page[0].CreatedAt.After(page[2].CreatedAt))

	rest, cursor, err := repo.ListByUser(ctx, userID, pagination.Params{Limit: 10, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, rest, 2)
	require.Empty(t, cursor)
	for _, o := range rest {
		require.Equal(t, userID, o.UserID)
	}
}

func TestRepoUpdateWhereGuardsConditions(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	ctx := context.Background()
	order := seedOrder(t, repo, uuid.New(), enums.PaymentMethodTransfer, enums.PaymentStatusPending, false, time.Now())

	changed, err := repo.UpdateWhere(ctx, order.ID,
		map[string]any{"payment_status": enums.PaymentStatusPending},
		map[string]any{"payment_status": enums.PaymentStatusApproved, "is_paid": true},
	)
	require.NoError(t, err)
	require.True(t, changed)

	// the guard no longer matches, so a second transition is a no-op
	changed, err = repo.UpdateWhere(ctx, order.ID,
		map[string]any{"payment_status": enums.PaymentStatusPending},
		map[string]any{"payment_status": enums.PaymentStatusRejected},
	)
	require.NoError(t, err)
	require.False(t, changed)

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusApproved, found.PaymentStatus)
	require.True(t, found.IsPaid)
}
