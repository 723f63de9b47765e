// Package audience decides who may pledge or bid on a deal.
package audience

import (
	"context"
	"fmt"
	"slices"

	"github.com/mmynk/pledgeboard/internal/models"
)

// MembershipChecker answers group membership questions. Only accepted
// memberships count.
type MembershipChecker interface {
	IsAcceptedMember(ctx context.Context, groupID, userID string) (bool, error)
}

// Gate applies a deal's audience policy to an actor.
type Gate struct {
	members MembershipChecker
}

// NewGate creates a Gate backed by the given membership source.
func NewGate(members MembershipChecker) *Gate {
	return &Gate{members: members}
}

// IsAllowed reports whether actorID may participate in a deal with the given
// audience. It has no side effects.
//
//   - open: always allowed
//   - group: allowed iff the actor is an accepted member of the deal's group
//   - specific: allowed iff the actor is in the target snapshot; group
//     membership is not re-checked
func (g *Gate) IsAllowed(ctx context.Context, a models.Audience, actorID string) (bool, error) {
	switch a.Mode {
	case models.AudienceOpen:
		return true, nil
	case models.AudienceGroup:
		if a.GroupID == "" || actorID == "" {
			return false, nil
		}
		ok, err := g.members.IsAcceptedMember(ctx, a.GroupID, actorID)
		if err != nil {
			return false, fmt.Errorf("failed to check membership: %w", err)
		}
		return ok, nil
	case models.AudienceSpecific:
		if actorID == "" {
			return false, nil
		}
		return slices.Contains(a.TargetUserIDs, actorID), nil
	default:
		return false, nil
	}
}
