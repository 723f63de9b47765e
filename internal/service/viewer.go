package service

import (
	"context"
	"fmt"

	"github.com/mmynk/pledgeboard/internal/middleware"
	"github.com/mmynk/pledgeboard/internal/models"
)

// AdminChecker decides which usernames hold administrator rights.
type AdminChecker interface {
	IsAdmin(username string) bool
}

// noAdmins is used when no AdminChecker is configured.
type noAdmins struct{}

func (noAdmins) IsAdmin(string) bool { return false }

// viewer is the identity behind a request. ID is empty for anonymous callers.
type viewer struct {
	ID       string
	Username string
	IsAdmin  bool
}

func viewerFrom(ctx context.Context, admins AdminChecker) viewer {
	v := viewer{
		ID:       middleware.GetUserID(ctx),
		Username: middleware.GetUsername(ctx),
	}
	if v.ID != "" && admins != nil {
		v.IsAdmin = admins.IsAdmin(v.Username)
	}
	return v
}

func (v viewer) require(action string) error {
	if v.ID == "" {
		return fmt.Errorf("%w: sign in to %s", models.ErrPermissionDenied, action)
	}
	return nil
}
