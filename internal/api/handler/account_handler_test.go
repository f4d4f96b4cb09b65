package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/clearwave-ledger/internal/api/middleware"
	"github.com/clearwave-ledger/internal/auth"
	"github.com/clearwave-ledger/internal/domain/account"
	"github.com/clearwave-ledger/internal/ledger"
)

type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) CreateAccount(ctx context.Context, caller auth.CallerContext, proposed ledger.NewAccount) (string, error) {
	args := m.Called(ctx, caller, proposed)
	return args.String(0), args.Error(1)
}

func (m *MockAccountService) GetAccountByID(ctx context.Context, caller auth.CallerContext, id string) (*account.Account, error) {
	args := m.Called(ctx, caller, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountService) GetAccountsByExternalID(ctx context.Context, caller auth.CallerContext, externalID string) ([]*account.Account, error) {
	args := m.Called(ctx, caller, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*account.Account), args.Error(1)
}

var testCaller = auth.CallerContext{Subject: "test-operator", Roles: []string{"operator"}}

// setupTestRouter installs a stand-in for the bearer middleware so handlers
// see a resolved caller.
func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.CallerContextKey, testCaller)
		c.Next()
	})
	return r
}

func testHandlerLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

func decodeData[T any](t *testing.T, body []byte) T {
	t.Helper()
	var topLevel Response
	require.NoError(t, json.Unmarshal(body, &topLevel))
	require.NotNil(t, topLevel.Data)

	dataBytes, err := json.Marshal(topLevel.Data)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(dataBytes, &out))
	return out
}

func decodeError(t *testing.T, body []byte) *ErrorInfo {
	t.Helper()
	var topLevel Response
	require.NoError(t, json.Unmarshal(body, &topLevel))
	require.NotNil(t, topLevel.Error)
	return topLevel.Error
}

func TestAccountHandler_Create(t *testing.T) {
	logger := testHandlerLogger()

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockAccountService)
		handler := NewAccountHandler(logger, mockService)

		mockService.On("CreateAccount", mock.Anything, testCaller, mock.AnythingOfType("ledger.NewAccount")).
			Return("acct-1", nil).Once()

		router := setupTestRouter()
		router.POST("/accounts", handler.Create)

		jsonBody, _ := json.Marshal(CreateAccountRequest{
			Type:         "POSITION",
			CurrencyCode: "EUR",
		})
		req, _ := http.NewRequest(http.MethodPost, "/accounts", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)
		data := decodeData[map[string]string](t, rr.Body.Bytes())
		assert.Equal(t, "acct-1", data["id"])

		proposed := mockService.Calls[0].Arguments.Get(2).(ledger.NewAccount)
		assert.Equal(t, account.TypePosition, proposed.Type)
		assert.Equal(t, "EUR", proposed.CurrencyCode)
		mockService.AssertExpectations(t)
	})

	t.Run("MalformedBody", func(t *testing.T) {
		mockService := new(MockAccountService)
		handler := NewAccountHandler(logger, mockService)

		router := setupTestRouter()
		router.POST("/accounts", handler.Create)

		req, _ := http.NewRequest(http.MethodPost, "/accounts", bytes.NewBufferString("{not json"))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "INVALID_REQUEST_BODY", decodeError(t, rr.Body.Bytes()).Code)
		mockService.AssertNotCalled(t, "CreateAccount", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ValidationErrorMapsTo400", func(t *testing.T) {
		mockService := new(MockAccountService)
		handler := NewAccountHandler(logger, mockService)

		mockService.On("CreateAccount", mock.Anything, testCaller, mock.AnythingOfType("ledger.NewAccount")).
			Return("", ledger.ErrInvalidAccountType).Once()

		router := setupTestRouter()
		router.POST("/accounts", handler.Create)

		jsonBody, _ := json.Marshal(CreateAccountRequest{Type: "SAVINGS", CurrencyCode: "EUR"})
		req, _ := http.NewRequest(http.MethodPost, "/accounts", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "INVALID_ACCOUNT_TYPE", decodeError(t, rr.Body.Bytes()).Code)
	})

	t.Run("UnauthorizedMapsTo403", func(t *testing.T) {
		mockService := new(MockAccountService)
		handler := NewAccountHandler(logger, mockService)

		mockService.On("CreateAccount", mock.Anything, testCaller, mock.AnythingOfType("ledger.NewAccount")).
			Return("", auth.ErrUnauthorized).Once()

		router := setupTestRouter()
		router.POST("/accounts", handler.Create)

		jsonBody, _ := json.Marshal(CreateAccountRequest{Type: "POSITION", CurrencyCode: "EUR"})
		req, _ := http.NewRequest(http.MethodPost, "/accounts", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Equal(t, "UNAUTHORIZED", decodeError(t, rr.Body.Bytes()).Code)
	})

	t.Run("DuplicateMapsTo409", func(t *testing.T) {
		mockService := new(MockAccountService)
		handler := NewAccountHandler(logger, mockService)

		mockService.On("CreateAccount", mock.Anything, testCaller, mock.AnythingOfType("ledger.NewAccount")).
			Return("", account.ErrAccountAlreadyExists{AccountID: "acct-1"}).Once()

		router := setupTestRouter()
		router.POST("/accounts", handler.Create)

		jsonBody, _ := json.Marshal(CreateAccountRequest{Type: "POSITION", CurrencyCode: "EUR"})
		req, _ := http.NewRequest(http.MethodPost, "/accounts", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, "ACCOUNT_ALREADY_EXISTS", decodeError(t, rr.Body.Bytes()).Code)
	})
}

func TestAccountHandler_GetByID(t *testing.T) {
	logger := testHandlerLogger()

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockAccountService)
		handler := NewAccountHandler(logger, mockService)

		acc := &account.Account{
			ID:               "acct-1",
			State:            account.StateActive,
			Type:             account.TypePosition,
			CurrencyCode:     "EUR",
			CurrencyDecimals: 2,
			CreditBalance:    10000,
			DebitBalance:     2550,
		}
		mockService.On("GetAccountByID", mock.Anything, testCaller, "acct-1").Return(acc, nil).Once()

		router := setupTestRouter()
		router.GET("/accounts/:id", handler.GetByID)

		req, _ := http.NewRequest(http.MethodGet, "/accounts/acct-1", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		resp := decodeData[AccountResponse](t, rr.Body.Bytes())
		assert.Equal(t, "acct-1", resp.ID)
		assert.Equal(t, "100.00", resp.CreditBalance)
		assert.Equal(t, "25.50", resp.DebitBalance)
		assert.Equal(t, "74.50", resp.AvailableBalance)
		mockService.AssertExpectations(t)
	})

	t.Run("NotFound", func(t *testing.T) {
		mockService := new(MockAccountService)
		handler := NewAccountHandler(logger, mockService)

		mockService.On("GetAccountByID", mock.Anything, testCaller, "acct-x").
			Return(nil, account.ErrAccountNotFound{AccountID: "acct-x"}).Once()

		router := setupTestRouter()
		router.GET("/accounts/:id", handler.GetByID)

		req, _ := http.NewRequest(http.MethodGet, "/accounts/acct-x", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "NO_SUCH_ACCOUNT", decodeError(t, rr.Body.Bytes()).Code)
	})

	t.Run("InternalError", func(t *testing.T) {
		mockService := new(MockAccountService)
		handler := NewAccountHandler(logger, mockService)

		mockService.On("GetAccountByID", mock.Anything, testCaller, "acct-1").
			Return(nil, ledger.ErrInternal).Once()

		router := setupTestRouter()
		router.GET("/accounts/:id", handler.GetByID)

		req, _ := http.NewRequest(http.MethodGet, "/accounts/acct-1", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "INTERNAL_SERVER_ERROR", decodeError(t, rr.Body.Bytes()).Code)
	})
}

func TestAccountHandler_GetByExternalID(t *testing.T) {
	logger := testHandlerLogger()

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockAccountService)
		handler := NewAccountHandler(logger, mockService)

		accounts := []*account.Account{
			{ID: "acct-1", ExternalID: "participant-7", State: account.StateActive, Type: account.TypePosition, CurrencyCode: "EUR", CurrencyDecimals: 2},
			{ID: "acct-2", ExternalID: "participant-7", State: account.StateActive, Type: account.TypeLiquidity, CurrencyCode: "EUR", CurrencyDecimals: 2},
		}
		mockService.On("GetAccountsByExternalID", mock.Anything, testCaller, "participant-7").Return(accounts, nil).Once()

		router := setupTestRouter()
		router.GET("/accounts", handler.GetByExternalID)

		req, _ := http.NewRequest(http.MethodGet, "/accounts?external_id=participant-7", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		resp := decodeData[[]AccountResponse](t, rr.Body.Bytes())
		require.Len(t, resp, 2)
		assert.Equal(t, "acct-1", resp[0].ID)
		assert.Equal(t, "acct-2", resp[1].ID)
	})

	t.Run("MissingQueryParameter", func(t *testing.T) {
		mockService := new(MockAccountService)
		handler := NewAccountHandler(logger, mockService)

		router := setupTestRouter()
		router.GET("/accounts", handler.GetByExternalID)

		req, _ := http.NewRequest(http.MethodGet, "/accounts", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "INVALID_EXTERNAL_ID", decodeError(t, rr.Body.Bytes()).Code)
		mockService.AssertNotCalled(t, "GetAccountsByExternalID", mock.Anything, mock.Anything, mock.Anything)
	})
}

var _ AccountService = (*MockAccountService)(nil)
