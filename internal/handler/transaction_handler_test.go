package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/findash/findash-backend/internal/domain"
	"github.com/findash/findash-backend/internal/repository/filedb"
	"github.com/findash/findash-backend/internal/service"
	"github.com/findash/findash-backend/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandlers(t *testing.T, accounts map[string]domain.Account) (*TransactionHandler, *CategoryHandler, *service.LedgerService, *service.CategoryService) {
	t.Helper()
	ctx := context.Background()
	store := testutil.NewMemStore()

	cats := service.NewCategoryService(filedb.NewCategoryRepository(store))
	require.NoError(t, cats.Load(ctx))
	ledger := service.NewLedgerService(filedb.NewTransactionRepository(store), cats)
	require.NoError(t, ledger.Load(ctx))
	importer := service.NewImportService(accounts, cats)

	return NewTransactionHandler(ledger, importer), NewCategoryHandler(cats, ledger), ledger, cats
}

func insertRows(t *testing.T, ledger *service.LedgerService, rows ...*domain.Transaction) {
	t.Helper()
	_, err := ledger.Insert(context.Background(), rows)
	require.NoError(t, err)
}

func TestGetTransactions_FiltersByAccount(t *testing.T) {
	e := echo.New()
	h, _, ledger, _ := newTestHandlers(t, nil)

	a := testutil.NewTransaction("", "2024-03-01", "Lidl", "54.30")
	a.Account = "cardx"
	b := testutil.NewTransaction("", "2024-03-02", "Employer", "-2500")
	b.Account = "bank"
	insertRows(t, ledger, a, b)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions?account=cardx", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.GetTransactions(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var response []TransactionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Len(t, response, 1)
	assert.Equal(t, "Lidl", response[0].Payee)
	assert.Equal(t, "54.3", response[0].Outflow)
}

func TestGetMonth_BadFormat(t *testing.T) {
	e := echo.New()
	h, _, _, _ := newTestHandlers(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions/months/24/3", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("year", "month")
	c.SetParamValues("24", "3")

	require.NoError(t, h.GetMonth(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitChange_EditThenUndo(t *testing.T) {
	e := echo.New()
	h, _, ledger, _ := newTestHandlers(t, nil)

	insertRows(t, ledger, testutil.NewTransaction("", "2024-03-01", "Lidl", "54.30"))
	rowID := ledger.Records(nil)[0].ID

	body := `{"type":"change_data","rowId":"` + rowID + `","column":"payee","prevValue":"Lidl","currentValue":"Lidl Express"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/changes", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.SubmitChange(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var change ChangeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &change))
	assert.True(t, change.CanUndo)
	assert.Equal(t, "Lidl Express", ledger.Records(nil)[0].Payee)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/transactions/undo", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)

	require.NoError(t, h.Undo(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Lidl", ledger.Records(nil)[0].Payee)
}

func TestSubmitChange_RowNotFound(t *testing.T) {
	e := echo.New()
	h, _, _, _ := newTestHandlers(t, nil)

	body := `{"type":"change_data","rowId":"missing","column":"payee","currentValue":"x"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/changes", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.SubmitChange(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUndo_EmptyHistoryConflict(t *testing.T) {
	e := echo.New()
	h, _, _, _ := newTestHandlers(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/undo", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.Undo(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSplitTransaction_MismatchRejected(t *testing.T) {
	e := echo.New()
	h, _, ledger, _ := newTestHandlers(t, nil)

	insertRows(t, ledger, testutil.NewTransaction("", "2024-03-01", "Lidl", "100"))
	rowID := ledger.Records(nil)[0].ID

	body := `{"parts":[{"amount":"60"},{"amount":"30"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/"+rowID+"/split", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(rowID)

	require.NoError(t, h.SplitTransaction(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSplitTransaction_Success(t *testing.T) {
	e := echo.New()
	h, _, ledger, _ := newTestHandlers(t, nil)

	insertRows(t, ledger, testutil.NewTransaction("", "2024-03-01", "Lidl", "100"))
	rowID := ledger.Records(nil)[0].ID

	body := `{"parts":[{"amount":"60"},{"amount":"40","memo":"cleaning"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/"+rowID+"/split", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(rowID)

	require.NoError(t, h.SplitTransaction(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var members []TransactionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &members))
	require.Len(t, members, 2)
	assert.Equal(t, "[0] Lidl", members[0].Payee)
	assert.Equal(t, "1-1", members[0].Split)
	assert.Equal(t, "cleaning", members[1].Memo)
}

func TestImportStatement_EndToEnd(t *testing.T) {
	e := echo.New()
	accounts := map[string]domain.Account{
		"cardx": {
			Name:       "cardx",
			InflowSign: domain.InflowSignMinus,
			DateFormat: "02/01/2006",
			ColumnMapping: map[string]string{
				"Transaction Date": "date",
				"Merchant":         "payee",
				"Billed Amount":    "amount",
			},
		},
	}
	h, _, ledger, _ := newTestHandlers(t, accounts)

	statement := "Transaction Date,Merchant,Billed Amount\n01/03/2024,Lidl,54.30\n02/03/2024,Coffee,4\n"

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("account", "cardx"))
	part, err := writer.CreateFormFile("file", "statement.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(statement))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/import", &buf)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.ImportStatement(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var result domain.InsertResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Added)
	assert.Equal(t, 0, result.Skipped)
	assert.Len(t, ledger.Records(nil), 2)
}

func TestImportStatement_UnknownAccount(t *testing.T) {
	e := echo.New()
	h, _, _, _ := newTestHandlers(t, nil)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("account", "nope"))
	part, err := writer.CreateFormFile("file", "statement.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("Date,Payee,Amount\n"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/import", &buf)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.ImportStatement(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
