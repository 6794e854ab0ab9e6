package filedb

import (
	"context"
	"testing"
	"time"

	"github.com/findash/findash-backend/internal/domain"
	"github.com/findash/findash-backend/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShardPath(t *testing.T) {
	assert.Equal(t, "trans_db/2024/03.csv", ShardPath(2024, time.March))
	assert.Equal(t, "trans_db/0999/12.csv", ShardPath(999, time.December))
}

func TestTransactionRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore()
	repo := NewTransactionRepository(store)

	rows := []*domain.Transaction{
		{
			ID:            "a",
			Date:          time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
			Payee:         "Lidl, the big one",
			Category:      "Groceries",
			CategoryGroup: "Food",
			Memo:          "weekly \"shop\"",
			Account:       "cardx",
			Outflow:       decimal.RequireFromString("54.30"),
			Amount:        decimal.RequireFromString("54.30"),
			Reconciled:    true,
		},
		{
			ID:     "b",
			Date:   time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC),
			Payee:  "[1] Dinner",
			Inflow: decimal.RequireFromString("0"),
			Amount: decimal.RequireFromString("25"),
			Split:  &domain.SplitTag{Group: 1, Member: 1},
		},
	}
	require.NoError(t, repo.SaveMonth(ctx, 2024, time.March, rows))

	loaded, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	assert.Equal(t, "a", loaded[0].ID)
	assert.Equal(t, "Lidl, the big one", loaded[0].Payee)
	assert.Equal(t, "weekly \"shop\"", loaded[0].Memo)
	assert.True(t, loaded[0].Reconciled)
	assert.True(t, loaded[0].Outflow.Equal(rows[0].Outflow))
	assert.Nil(t, loaded[0].Split)

	require.NotNil(t, loaded[1].Split)
	assert.Equal(t, 1, loaded[1].Split.Group)
	assert.Equal(t, 1, loaded[1].Split.Member)
}

func TestTransactionRepository_LoadAllMergesShards(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore()
	repo := NewTransactionRepository(store)

	march := []*domain.Transaction{{
		ID:   "a",
		Date: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
	}}
	dec23 := []*domain.Transaction{{
		ID:   "b",
		Date: time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC),
	}}
	require.NoError(t, repo.SaveMonth(ctx, 2024, time.March, march))
	require.NoError(t, repo.SaveMonth(ctx, 2023, time.December, dec23))

	loaded, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
}

func TestTransactionRepository_LoadAllEmptyStore(t *testing.T) {
	repo := NewTransactionRepository(testutil.NewMemStore())

	loaded, err := repo.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestTransactionRepository_SaveMonthEmptyRowsWritesHeaderOnly(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore()
	repo := NewTransactionRepository(store)

	require.NoError(t, repo.SaveMonth(ctx, 2024, time.March, nil))

	data, err := store.Read(ctx, ShardPath(2024, time.March))
	require.NoError(t, err)
	assert.Equal(t, "id,date,payee,cat,cat_group,memo,account,inflow,outflow,reconciled,amount,split\n", string(data))

	loaded, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
