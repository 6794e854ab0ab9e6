package filedb

import (
	"context"
	"testing"

	"github.com/findash/findash-backend/internal/domain"
	"github.com/findash/findash-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAccounts_MissingFileYieldsEmpty(t *testing.T) {
	repo := NewAccountRepository(testutil.NewMemStore())

	accounts, err := repo.LoadAccounts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestLoadAccounts_ParsesProfiles(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore()
	yaml := `accounts:
  cardx:
    institution: CardX
    inflow_sign: minus
    date_format: "02/01/2006"
    skip_header_rows: 2
    skip_footer_rows: 1
    column_mapping:
      Transaction Date: date
      Merchant: payee
      Billed Amount: amount
  bank:
    institution: First Bank
    inflow_sign: plus
    date_format: "2006-01-02"
`
	require.NoError(t, store.Write(ctx, "accounts.yaml", []byte(yaml)))

	accounts, err := NewAccountRepository(store).LoadAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	cardx := accounts["cardx"]
	assert.Equal(t, "cardx", cardx.Name)
	assert.Equal(t, "CardX", cardx.Institution)
	assert.Equal(t, domain.InflowSignMinus, cardx.InflowSign)
	assert.Equal(t, "02/01/2006", cardx.DateFormat)
	assert.Equal(t, 2, cardx.SkipHeaderRows)
	assert.Equal(t, 1, cardx.SkipFooterRows)
	assert.Equal(t, "payee", cardx.ColumnMapping["Merchant"])

	assert.Equal(t, domain.InflowSignPlus, accounts["bank"].InflowSign)
}

func TestLoadAccounts_MalformedYAML(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore()
	require.NoError(t, store.Write(ctx, "accounts.yaml", []byte("accounts: [not a map")))

	_, err := NewAccountRepository(store).LoadAccounts(ctx)
	assert.Error(t, err)
}
