package services

import (
	"context"
	"slices"

	"github.com/Dosada05/competition-engine/models"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleOrganizer Role = "organizer"
	RolePlayer    Role = "player"
)

// Caller is the identity supplied by the external identity provider.
type Caller struct {
	UserID string
	Role   Role
}

func (c Caller) IsStaff() bool {
	return c.Role == RoleAdmin || c.Role == RoleOrganizer
}

type callerKey struct{}

func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

func CallerFromContext(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(callerKey{}).(Caller)
	return caller, ok && caller.UserID != ""
}

func requireStaff(ctx context.Context) (Caller, error) {
	caller, ok := CallerFromContext(ctx)
	if !ok {
		return Caller{}, permissionDenied(ErrForbiddenOperation, "no authenticated caller")
	}
	if !caller.IsStaff() {
		return caller, permissionDenied(ErrForbiddenOperation, "role %q cannot manage competitions", caller.Role)
	}
	return caller, nil
}

// requireStaffOrPlayer lets staff through, and players only when they are
// one of playerIDs.
func requireStaffOrPlayer(ctx context.Context, playerIDs []string) (Caller, error) {
	caller, ok := CallerFromContext(ctx)
	if !ok {
		return Caller{}, permissionDenied(ErrForbiddenOperation, "no authenticated caller")
	}
	if caller.IsStaff() || slices.Contains(playerIDs, caller.UserID) {
		return caller, nil
	}
	return caller, permissionDenied(ErrNotInMatch, "user %s", caller.UserID)
}

func matchPlayerIDs(m *models.Match) []string {
	var ids []string
	for _, slot := range []models.Slot{m.SlotA, m.SlotB} {
		if slot.Participant != nil {
			ids = append(ids, slot.Participant.PlayerIDs()...)
		}
	}
	return ids
}
