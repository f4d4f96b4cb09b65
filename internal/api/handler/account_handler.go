package handler

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/clearwave-ledger/internal/api/middleware"
	"github.com/clearwave-ledger/internal/auth"
	"github.com/clearwave-ledger/internal/domain/account"
	"github.com/clearwave-ledger/internal/ledger"
)

// AccountService is the slice of the ledger aggregate the account handler
// depends on.
type AccountService interface {
	CreateAccount(ctx context.Context, caller auth.CallerContext, proposed ledger.NewAccount) (string, error)
	GetAccountByID(ctx context.Context, caller auth.CallerContext, id string) (*account.Account, error)
	GetAccountsByExternalID(ctx context.Context, caller auth.CallerContext, externalID string) ([]*account.Account, error)
}

// AccountHandler handles HTTP requests for account operations
type AccountHandler struct {
	service AccountService
	logger  *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(logger *slog.Logger, service AccountService) *AccountHandler {
	return &AccountHandler{
		service: service,
		logger:  logger,
	}
}

// Create handles creation of a new account
func (h *AccountHandler) Create(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "INVALID_REQUEST_BODY", "Invalid request body: "+err.Error())
		return
	}

	caller := middleware.GetCallerContext(c)
	id, err := h.service.CreateAccount(c.Request.Context(), caller, req.toProposal())
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	RespondCreated(c, gin.H{"id": id})
}

// GetByID retrieves an account by its ID, returning 404 if not found
func (h *AccountHandler) GetByID(c *gin.Context) {
	caller := middleware.GetCallerContext(c)

	acc, err := h.service.GetAccountByID(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}

// GetByExternalID retrieves all accounts sharing a correlation key.
func (h *AccountHandler) GetByExternalID(c *gin.Context) {
	externalID := c.Query("external_id")
	if externalID == "" {
		RespondBadRequest(c, "INVALID_EXTERNAL_ID", "external_id query parameter is required")
		return
	}

	caller := middleware.GetCallerContext(c)
	accounts, err := h.service.GetAccountsByExternalID(c.Request.Context(), caller, externalID)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	responses := make([]AccountResponse, 0, len(accounts))
	for _, acc := range accounts {
		responses = append(responses, mapAccountToResponse(acc))
	}
	RespondOK(c, responses)
}
