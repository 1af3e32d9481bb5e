package domain

import "time"

// Role represents user role in the system
type Role string

const (
	RoleDonor Role = "donor"
	RoleNGO   Role = "ngo"
	// RoleSystem is never stored on a user; it identifies internal callers
	// such as the expiry sweep.
	RoleSystem Role = "system"
)

// IsValid reports whether r is a role a user account can hold
func (r Role) IsValid() bool {
	return r == RoleDonor || r == RoleNGO
}

// Actor is the authenticated caller of an engine operation
type Actor struct {
	UserID uint
	Role   Role
}

// SystemActor is used by background jobs
var SystemActor = Actor{Role: RoleSystem}

// IsSystem reports whether the actor is an internal caller
func (a Actor) IsSystem() bool {
	return a.Role == RoleSystem
}

// DonationStatus represents the availability state of a donation
type DonationStatus string

const (
	DonationAvailable DonationStatus = "available"
	DonationClaimed   DonationStatus = "claimed"
	DonationCompleted DonationStatus = "completed"
	DonationExpired   DonationStatus = "expired"
)

var donationTransitions = map[DonationStatus][]DonationStatus{
	DonationAvailable: {DonationClaimed, DonationExpired},
	DonationClaimed:   {DonationCompleted, DonationAvailable, DonationExpired},
}

// CanTransitionTo reports whether the donation state machine allows s -> next.
// Transitions not listed in the table are rejected.
func (s DonationStatus) CanTransitionTo(next DonationStatus) bool {
	for _, allowed := range donationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible
func (s DonationStatus) IsTerminal() bool {
	return s == DonationCompleted || s == DonationExpired
}

// IsValid reports whether s is a known donation status
func (s DonationStatus) IsValid() bool {
	switch s {
	case DonationAvailable, DonationClaimed, DonationCompleted, DonationExpired:
		return true
	}
	return false
}

// ClaimStatus represents the progress of an NGO claim
type ClaimStatus string

const (
	ClaimClaimed   ClaimStatus = "claimed"
	ClaimScheduled ClaimStatus = "scheduled"
	ClaimPickedUp  ClaimStatus = "picked_up"
	ClaimCompleted ClaimStatus = "completed"
	ClaimCancelled ClaimStatus = "cancelled"
)

var claimTransitions = map[ClaimStatus][]ClaimStatus{
	ClaimClaimed:   {ClaimScheduled, ClaimPickedUp, ClaimCompleted, ClaimCancelled},
	ClaimScheduled: {ClaimScheduled, ClaimPickedUp, ClaimCompleted, ClaimCancelled},
	ClaimPickedUp:  {ClaimCompleted, ClaimCancelled},
}

// CanTransitionTo reports whether the claim state machine allows s -> next.
// scheduled -> scheduled is a reschedule.
func (s ClaimStatus) CanTransitionTo(next ClaimStatus) bool {
	for _, allowed := range claimTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible
func (s ClaimStatus) IsTerminal() bool {
	return s == ClaimCompleted || s == ClaimCancelled
}

// IsLive reports whether the claim still holds its donation
func (s ClaimStatus) IsLive() bool {
	return s != ClaimCancelled
}

// IsValid reports whether s is a known claim status
func (s ClaimStatus) IsValid() bool {
	switch s {
	case ClaimClaimed, ClaimScheduled, ClaimPickedUp, ClaimCompleted, ClaimCancelled:
		return true
	}
	return false
}

// EventType names a lifecycle event emitted after a committed transition
type EventType string

const (
	EventDonationCreated EventType = "donation.created"
	EventDonationClaimed EventType = "donation.claimed"
	EventDonationExpired EventType = "donation.expired"
	EventClaimScheduled  EventType = "claim.scheduled"
	EventClaimPickedUp   EventType = "claim.picked_up"
	EventClaimCompleted  EventType = "claim.completed"
	EventClaimCancelled  EventType = "claim.cancelled"
)

// Event describes a committed lifecycle change
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	DonationID uint      `json:"donation_id"`
	ClaimID    uint      `json:"claim_id,omitempty"`
	DonorID    uint      `json:"donor_id"`
	NGOID      uint      `json:"ngo_id,omitempty"`
	Title      string    `json:"title,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
