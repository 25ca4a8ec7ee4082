package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/kardex-api/internal/domain"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
	"github.com/jhoicas/kardex-api/internal/domain/repository"
	"github.com/jhoicas/kardex-api/internal/infrastructure/memory"
)

func newRequest(id, folio string) *entity.MaterialRequest {
	return &entity.MaterialRequest{
		ID: id, Folio: folio, Status: entity.MRStatusPending, TicketID: "T1", RequestedBy: "U1",
		CreatedAt: time.Date(2025, 1, 31, 8, 0, 0, 0, time.UTC),
		Items: []*entity.MaterialRequestItem{{
			ID: id + "-1", MaterialRequestID: id, ItemID: "X", QuantityRequested: decimal.NewFromInt(1),
		}},
	}
}

func TestStore_RollbackDescartaTodo(t *testing.T) {
	s, err := memory.NewStore()
	require.NoError(t, err)
	ctx := context.Background()
	boom := errors.New("falla a mitad")

	err = s.Run(ctx, func(balanceRepo repository.BalanceRepository, movRepo repository.MovementRepository) error {
		bal, err := balanceRepo.GetForUpdate(ctx, "X", "A")
		require.NoError(t, err)
		bal.Quantity = decimal.NewFromInt(5)
		require.NoError(t, balanceRepo.Save(ctx, bal))
		require.NoError(t, movRepo.Create(ctx, &entity.Movement{ID: "m1", ItemID: "X", LocationID: "A", Type: entity.MovementTypeIN}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	bal, err := s.Balances().Get(ctx, "X", "A")
	require.NoError(t, err)
	assert.True(t, bal.Quantity.IsZero())
	movs, err := s.Movements().History(ctx, "X", "A")
	require.NoError(t, err)
	assert.Empty(t, movs)
}

func TestStore_EscrituraFueraDeTransaccion(t *testing.T) {
	s, err := memory.NewStore()
	require.NoError(t, err)

	_, err = s.Balances().GetForUpdate(context.Background(), "X", "A")
	assert.Error(t, err)
	assert.Error(t, s.Movements().Create(context.Background(), &entity.Movement{ID: "m"}))
}

func TestStore_ContextoCancelado(t *testing.T) {
	s, err := memory.NewStore()
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err = s.Run(ctx, func(repository.BalanceRepository, repository.MovementRepository) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestMaterialRequests_FolioYListado(t *testing.T) {
	s, err := memory.NewStore()
	require.NoError(t, err)
	ctx := context.Background()

	err = s.RunWorkflow(ctx, func(requestRepo repository.MaterialRequestRepository, _ repository.BalanceRepository, _ repository.MovementRepository) error {
		for _, r := range []*entity.MaterialRequest{
			newRequest("a", "MR-20250131-999"),
			newRequest("b", "MR-20250131-1000"),
			newRequest("c", "MR-20250130-005"),
		} {
			if err := requestRepo.Create(ctx, r); err != nil {
				return err
			}
		}
		maxFolio, err := requestRepo.MaxFolio(ctx, "MR-20250131")
		require.NoError(t, err)
		assert.Equal(t, "MR-20250131-1000", maxFolio, "1000 es mayor que 999 aunque ordene antes como texto")

		none, err := requestRepo.MaxFolio(ctx, "MR-20250201")
		require.NoError(t, err)
		assert.Empty(t, none)

		dup := requestRepo.Create(ctx, newRequest("d", "MR-20250131-999"))
		assert.ErrorIs(t, dup, domain.ErrConflict)
		return nil
	})
	require.NoError(t, err)

	list, err := s.MaterialRequests().List(ctx, repository.MaterialRequestFilter{TicketID: "T1"})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "MR-20250131-1000", list[0].Folio)

	got, err := s.MaterialRequests().GetByID(ctx, "a")
	require.NoError(t, err)
	got.Items[0].QuantityRequested = decimal.NewFromInt(99)
	again, err := s.MaterialRequests().GetByID(ctx, "a")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1).Equal(again.Items[0].QuantityRequested), "las lecturas devuelven copias")

	missing, err := s.MaterialRequests().GetByID(ctx, "zzz")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
