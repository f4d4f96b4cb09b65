package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clearwave-ledger/internal/auth"
	"github.com/clearwave-ledger/internal/domain/account"
	"github.com/clearwave-ledger/internal/domain/journal"
	"github.com/clearwave-ledger/internal/ledger"
)

// badRequestMapping pins each validation error kind of the ledger
// aggregate to a stable wire code. Infrastructure failures and invariant
// violations all collapse into an opaque 500.
var badRequestMapping = []struct {
	target error
	code   string
}{
	{ledger.ErrInvalidID, "INVALID_ID"},
	{ledger.ErrInvalidExternalID, "INVALID_EXTERNAL_ID"},
	{ledger.ErrInvalidExternalCategory, "INVALID_EXTERNAL_CATEGORY"},
	{ledger.ErrInvalidCurrencyCode, "INVALID_CURRENCY_CODE"},
	{ledger.ErrInvalidCurrencyDecimals, "INVALID_CURRENCY_DECIMALS"},
	{ledger.ErrInvalidTimestamp, "INVALID_TIMESTAMP"},
	{ledger.ErrInvalidCreditBalance, "INVALID_CREDIT_BALANCE"},
	{ledger.ErrInvalidDebitBalance, "INVALID_DEBIT_BALANCE"},
	{ledger.ErrInvalidAccountState, "INVALID_ACCOUNT_STATE"},
	{ledger.ErrInvalidAccountType, "INVALID_ACCOUNT_TYPE"},
	{ledger.ErrInvalidJournalEntryAmount, "INVALID_JOURNAL_ENTRY_AMOUNT"},
	{ledger.ErrSameCreditedAndDebitedAccounts, "SAME_CREDITED_AND_DEBITED_ACCOUNTS"},
	{ledger.ErrNoSuchCreditedAccount, "NO_SUCH_CREDITED_ACCOUNT"},
	{ledger.ErrNoSuchDebitedAccount, "NO_SUCH_DEBITED_ACCOUNT"},
	{ledger.ErrCurrencyCodesDiffer, "CURRENCY_CODES_DIFFER"},
	{ledger.ErrInsufficientBalance, "INSUFFICIENT_BALANCE"},
}

// mapLedgerError resolves an aggregate error to an HTTP status, wire code,
// and message.
func mapLedgerError(err error) (int, string, string) {
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusForbidden, "UNAUTHORIZED", "Caller is not authorized for this operation"
	case errors.Is(err, account.ErrAccountAlreadyExists{}):
		return http.StatusConflict, "ACCOUNT_ALREADY_EXISTS", err.Error()
	case errors.Is(err, journal.ErrEntryAlreadyExists{}):
		return http.StatusConflict, "JOURNAL_ENTRY_ALREADY_EXISTS", err.Error()
	case errors.Is(err, account.ErrAccountNotFound{}):
		return http.StatusNotFound, "NO_SUCH_ACCOUNT", err.Error()
	}

	for _, m := range badRequestMapping {
		if errors.Is(err, m.target) {
			return http.StatusBadRequest, m.code, err.Error()
		}
	}

	return http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred"
}

// respondLedgerError translates an aggregate error into an HTTP response.
func respondLedgerError(c *gin.Context, err error) {
	status, code, message := mapLedgerError(err)
	RespondWithError(c, status, code, message)
}
