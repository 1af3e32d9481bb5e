// Package policy holds the role capability table consulted before every
// engine operation. Ownership of a specific donation or claim is checked by
// the engines once the rows are loaded.
package policy

import (
	"fmt"

	"foodlink/internal/core/domain"
)

// Action names an engine entry point
type Action string

const (
	ActionCreateDonation Action = "create_donation"
	ActionEditDonation   Action = "edit_donation"
	ActionDeleteDonation Action = "delete_donation"
	ActionExpireDonation Action = "expire_donation"
	ActionCreateClaim    Action = "create_claim"
	ActionCancelClaim    Action = "cancel_claim"
	ActionScheduleClaim  Action = "schedule_claim"
	ActionPickupClaim    Action = "pickup_claim"
	ActionCompleteClaim  Action = "complete_claim"
)

var capabilities = map[domain.Role]map[Action]bool{
	domain.RoleDonor: {
		ActionCreateDonation: true,
		ActionEditDonation:   true,
		ActionDeleteDonation: true,
		ActionCancelClaim:    true,
	},
	domain.RoleNGO: {
		ActionCreateClaim:   true,
		ActionCancelClaim:   true,
		ActionScheduleClaim: true,
		ActionPickupClaim:   true,
		ActionCompleteClaim: true,
	},
	domain.RoleSystem: {
		ActionExpireDonation: true,
		ActionScheduleClaim:  true,
		ActionPickupClaim:    true,
		ActionCompleteClaim:  true,
	},
}

// CanPerform reports whether role may invoke action. Unknown roles and
// actions are denied.
func CanPerform(role domain.Role, action Action) bool {
	return capabilities[role][action]
}

// Authorize returns ErrRoleForbidden when the actor's role lacks the capability
func Authorize(actor domain.Actor, action Action) error {
	if !CanPerform(actor.Role, action) {
		return fmt.Errorf("%w: role %q cannot %s", domain.ErrRoleForbidden, actor.Role, action)
	}
	return nil
}
