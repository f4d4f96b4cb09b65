package handler

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/clearwave-ledger/internal/api/middleware"
	"github.com/clearwave-ledger/internal/auth"
	"github.com/clearwave-ledger/internal/settlement"
)

// LiquidityService is the reservation protocol processor surface the
// handler depends on.
type LiquidityService interface {
	ProcessBatch(ctx context.Context, caller auth.CallerContext, requests []settlement.Request) ([]settlement.Result, error)
}

// LiquidityHandler handles reservation protocol batches.
type LiquidityHandler struct {
	service LiquidityService
	logger  *slog.Logger
}

// NewLiquidityHandler creates a new liquidity batch handler
func NewLiquidityHandler(logger *slog.Logger, service LiquidityService) *LiquidityHandler {
	return &LiquidityHandler{
		service: service,
		logger:  logger,
	}
}

// ProcessBatch handles a heterogeneous reservation batch. Items resolve
// independently; the response list matches the request list by position
// and each item carries its own success flag, so the HTTP status is 200
// even when individual items failed.
func (h *LiquidityHandler) ProcessBatch(c *gin.Context) {
	var req LiquidityBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "INVALID_REQUEST_BODY", "Invalid request body: "+err.Error())
		return
	}

	requests := make([]settlement.Request, 0, len(req.Requests))
	for i := range req.Requests {
		requests = append(requests, req.Requests[i].toRequest())
	}

	caller := middleware.GetCallerContext(c)
	results, err := h.service.ProcessBatch(c.Request.Context(), caller, requests)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	RespondOK(c, LiquidityBatchResponse{Results: results})
}
