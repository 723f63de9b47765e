package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmynk/pledgeboard/internal/models"
	"github.com/mmynk/pledgeboard/internal/storage"
	"github.com/mmynk/pledgeboard/pkg/api"
)

const (
	maxTitleLength       = 140
	maxDescriptionLength = 4000
)

// validateText trims and checks a deal's title and description.
func validateText(title, description string) (string, string, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	switch {
	case title == "":
		return "", "", fmt.Errorf("%w: title is required", models.ErrValidation)
	case description == "":
		return "", "", fmt.Errorf("%w: description is required", models.ErrValidation)
	case len(title) > maxTitleLength:
		return "", "", fmt.Errorf("%w: title is longer than %d characters", models.ErrValidation, maxTitleLength)
	case len(description) > maxDescriptionLength:
		return "", "", fmt.Errorf("%w: description is longer than %d characters", models.ErrValidation, maxDescriptionLength)
	}
	return title, description, nil
}

// parseDeadline accepts a calendar date, meaning the last second of that day
// in UTC, or an RFC 3339 instant. Deadlines already in the past are rejected.
func parseDeadline(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: deadline is required", models.ErrValidation)
	}

	var deadline time.Time
	if day, err := time.Parse(time.DateOnly, s); err == nil {
		deadline = day.Add(24*time.Hour - time.Second)
	} else if instant, err := time.Parse(time.RFC3339, s); err == nil {
		deadline = instant.UTC()
	} else {
		return time.Time{}, fmt.Errorf("%w: deadline must be YYYY-MM-DD or RFC 3339", models.ErrValidation)
	}

	if deadline.Before(now) {
		return time.Time{}, fmt.Errorf("%w: deadline is in the past", models.ErrValidation)
	}
	return deadline, nil
}

// resolveAudience validates a requested audience for a deal created by
// creatorID and returns its stored form.
//
// A group audience requires the creator to be an accepted member. A specific
// audience needs at least one existing target; when it also names a group,
// every target must be an accepted member of it.
func resolveAudience(ctx context.Context, store storage.Store, creatorID string, in api.Audience) (models.Audience, error) {
	mode := models.AudienceMode(strings.ToLower(strings.TrimSpace(in.Mode)))
	if mode == "" {
		mode = models.AudienceOpen
	}
	if !mode.Valid() {
		return models.Audience{}, fmt.Errorf("%w: unknown audience mode %q", models.ErrValidation, in.Mode)
	}

	switch mode {
	case models.AudienceOpen:
		return models.Audience{Mode: mode}, nil

	case models.AudienceGroup:
		if in.GroupID == "" {
			return models.Audience{}, fmt.Errorf("%w: group audience needs a group_id", models.ErrValidation)
		}
		if err := requireAcceptedMember(ctx, store, in.GroupID, creatorID); err != nil {
			return models.Audience{}, err
		}
		return models.Audience{Mode: mode, GroupID: in.GroupID}, nil
	}

	targets := dedupe(in.TargetUserIDs)
	if len(targets) == 0 {
		return models.Audience{}, fmt.Errorf("%w: specific audience needs at least one target", models.ErrValidation)
	}
	users, err := store.GetUsersByIDs(ctx, targets)
	if err != nil {
		return models.Audience{}, err
	}
	for _, id := range targets {
		if _, ok := users[id]; !ok {
			return models.Audience{}, fmt.Errorf("%w: unknown target user %s", models.ErrValidation, id)
		}
	}

	if in.GroupID != "" {
		if err := requireAcceptedMember(ctx, store, in.GroupID, creatorID); err != nil {
			return models.Audience{}, err
		}
		for _, id := range targets {
			ok, err := store.IsAcceptedMember(ctx, in.GroupID, id)
			if err != nil {
				return models.Audience{}, err
			}
			if !ok {
				return models.Audience{}, fmt.Errorf("%w: target %s is not a member of the group", models.ErrValidation, id)
			}
		}
	}
	return models.Audience{Mode: mode, GroupID: in.GroupID, TargetUserIDs: targets}, nil
}

func requireAcceptedMember(ctx context.Context, store storage.Store, groupID, userID string) error {
	if _, err := store.GetGroup(ctx, groupID); err != nil {
		return err
	}
	ok, err := store.IsAcceptedMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: you are not a member of this group", models.ErrPermissionDenied)
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
