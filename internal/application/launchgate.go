package application

import (
	"time"

	"launch-workflow/internal/domain"
)

// LaunchGate combines the state-side launch guard (fully approved, still in
// draft) with the actor-side authorization check.
type LaunchGate struct {
	authorizer *RoleAuthorizer
}

func NewLaunchGate(authorizer *RoleAuthorizer) *LaunchGate {
	return &LaunchGate{authorizer: authorizer}
}

func (g *LaunchGate) CanLaunch(state domain.ProductApprovalState, identity domain.Identity) bool {
	return state.ReadyToLaunch() && g.authorizer.CanLaunch(identity)
}

// Launch executes the draft -> active transition. An actor without launch
// capability fails with ErrUnauthorized before the state is consulted; a
// state that is not fully approved or no longer in draft fails with
// ErrInvalidTransition.
func (g *LaunchGate) Launch(state domain.ProductApprovalState, identity domain.Identity, now time.Time) (domain.ProductApprovalState, error) {
	if !g.authorizer.CanLaunch(identity) {
		return state, domain.ErrUnauthorized
	}
	return state.Launch(identity.ID, now)
}
