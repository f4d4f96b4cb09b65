// Package auth defines the caller context threaded through every ledger
// operation and the role-based capability checks guarding them.
package auth

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is returned when the caller lacks the required capability.
// It is raised before any domain validation runs.
var ErrUnauthorized = errors.New("caller is not authorized for this operation")

// Capability identifies a guarded ledger operation.
type Capability string

const (
	CapCreateAccount       Capability = "CREATE_ACCOUNT"
	CapCreateJournalEntry  Capability = "CREATE_JOURNAL_ENTRY"
	CapViewAccount         Capability = "VIEW_ACCOUNT"
	CapViewJournalEntry    Capability = "VIEW_JOURNAL_ENTRY"
	CapProcessReservations Capability = "PROCESS_RESERVATIONS"
)

// CallerContext is an immutable description of the caller. It is passed by
// value through every aggregate and processor call and never stored as
// shared state.
type CallerContext struct {
	Subject string
	Roles   []string
}

// Authorizer decides whether a caller may exercise a capability.
type Authorizer interface {
	Authorize(caller CallerContext, capability Capability) error
}

// RoleAuthorizer grants capabilities from a fixed role-to-capabilities map
// loaded at startup.
type RoleAuthorizer struct {
	grants map[string]map[Capability]struct{}
}

// NewRoleAuthorizer builds an authorizer from a role -> capability list map.
func NewRoleAuthorizer(roleCapabilities map[string][]Capability) *RoleAuthorizer {
	grants := make(map[string]map[Capability]struct{}, len(roleCapabilities))
	for role, caps := range roleCapabilities {
		set := make(map[Capability]struct{}, len(caps))
		for _, c := range caps {
			set[c] = struct{}{}
		}
		grants[role] = set
	}
	return &RoleAuthorizer{grants: grants}
}

// Authorize returns ErrUnauthorized unless one of the caller's roles grants
// the capability.
func (a *RoleAuthorizer) Authorize(caller CallerContext, capability Capability) error {
	for _, role := range caller.Roles {
		if caps, ok := a.grants[role]; ok {
			if _, ok := caps[capability]; ok {
				return nil
			}
		}
	}
	return fmt.Errorf("%w: subject %q requires %s", ErrUnauthorized, caller.Subject, capability)
}
