package handler

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/clearwave-ledger/internal/api/middleware"
	"github.com/clearwave-ledger/internal/auth"
	"github.com/clearwave-ledger/internal/domain/journal"
	"github.com/clearwave-ledger/internal/ledger"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// JournalService is the slice of the ledger aggregate the journal handler
// depends on.
type JournalService interface {
	CreateJournalEntries(ctx context.Context, caller auth.CallerContext, proposed []ledger.NewJournalEntry) ([]string, error)
	GetJournalEntriesByAccountID(ctx context.Context, caller auth.CallerContext, accountID string, limit, offset int) ([]*journal.Entry, error)
}

// JournalHandler handles HTTP requests for journal entry operations
type JournalHandler struct {
	service JournalService
	logger  *slog.Logger
}

// NewJournalHandler creates a new journal entry handler
func NewJournalHandler(logger *slog.Logger, service JournalService) *JournalHandler {
	return &JournalHandler{
		service: service,
		logger:  logger,
	}
}

// Create handles a journal entry batch. The batch is processed in order
// and is not all-or-nothing: on a partial failure the response carries the
// ids already committed, the failing index, and the item's error.
func (h *JournalHandler) Create(c *gin.Context) {
	var req CreateJournalEntriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "INVALID_REQUEST_BODY", "Invalid request body: "+err.Error())
		return
	}

	proposals := make([]ledger.NewJournalEntry, 0, len(req.Entries))
	for i := range req.Entries {
		proposals = append(proposals, req.Entries[i].toProposal())
	}

	caller := middleware.GetCallerContext(c)
	ids, err := h.service.CreateJournalEntries(c.Request.Context(), caller, proposals)
	if err != nil {
		var batchErr *ledger.BatchError
		if errors.As(err, &batchErr) {
			h.respondBatchFailure(c, ids, batchErr)
			return
		}
		respondLedgerError(c, err)
		return
	}

	RespondCreated(c, CreateJournalEntriesResponse{CreatedIDs: ids})
}

// respondBatchFailure reports a partial batch failure: the committed ids
// travel alongside the error for the failing entry, under the status the
// failing item maps to.
func (h *JournalHandler) respondBatchFailure(c *gin.Context, createdIDs []string, batchErr *ledger.BatchError) {
	status, code, message := mapLedgerError(batchErr.Err)
	failedIndex := batchErr.Index
	if createdIDs == nil {
		createdIDs = []string{}
	}
	c.JSON(status, &Response{
		Data: CreateJournalEntriesResponse{
			CreatedIDs:  createdIDs,
			FailedIndex: &failedIndex,
		},
		Error:         &ErrorInfo{Code: code, Message: message},
		CorrelationID: middleware.GetCorrelationID(c),
	})
}

// GetByAccountID retrieves paginated journal entries touching an account.
func (h *JournalHandler) GetByAccountID(c *gin.Context) {
	accountID := c.Param("id")

	limit := parsePositiveInt(c.Query("per_page"), defaultPageSize)
	if limit > maxPageSize {
		limit = maxPageSize
	}
	page := parsePositiveInt(c.Query("page"), 1)
	offset := (page - 1) * limit

	caller := middleware.GetCallerContext(c)
	entries, err := h.service.GetJournalEntriesByAccountID(c.Request.Context(), caller, accountID, limit, offset)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	responses := make([]JournalEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, mapEntryToResponse(entry))
	}
	RespondOK(c, responses)
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
