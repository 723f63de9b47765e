package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/pledgeboard/internal/auth"
	"github.com/mmynk/pledgeboard/internal/models"
	"github.com/mmynk/pledgeboard/internal/storage"
	"github.com/mmynk/pledgeboard/pkg/api"
	"github.com/mmynk/pledgeboard/pkg/api/apiconnect"
)

var _ apiconnect.GroupServiceHandler = (*GroupService)(nil)

// GroupService implements the Connect GroupService. Groups only feed the
// audience gate: a membership counts once the invitee has accepted it.
type GroupService struct {
	store storage.Store
}

// NewGroupService creates a new GroupService with the given storage backend.
func NewGroupService(store storage.Store) *GroupService {
	return &GroupService{store: store}
}

// CreateGroup creates a group owned by the caller.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	v := viewerFrom(ctx, nil)
	slog.Info("CreateGroup request received", "name", req.Msg.Name, "user_id", v.ID)

	if err := v.require("create a group"); err != nil {
		return nil, fail("CreateGroup", err)
	}
	name := strings.TrimSpace(req.Msg.Name)
	if name == "" {
		return nil, fail("CreateGroup", fmt.Errorf("%w: group name is required", models.ErrValidation))
	}

	group := &models.Group{Name: name, OwnerID: v.ID}
	if err := s.store.CreateGroup(ctx, group); err != nil {
		return nil, fail("CreateGroup", err)
	}

	slog.Info("Group created", "group_id", group.ID)

	out, err := s.groupView(ctx, group)
	if err != nil {
		return nil, fail("CreateGroup", err, "group_id", group.ID)
	}
	return connect.NewResponse(&api.CreateGroupResponse{Group: out}), nil
}

// GetGroup retrieves a group the caller belongs to or has been invited to.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	v := viewerFrom(ctx, nil)
	slog.Info("GetGroup request received", "group_id", req.Msg.GroupID)

	group, err := s.store.GetGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, fail("GetGroup", err, "group_id", req.Msg.GroupID)
	}
	if membershipOf(group, v.ID) == nil {
		return nil, fail("GetGroup", fmt.Errorf("%w: not a member of this group", models.ErrPermissionDenied), "group_id", group.ID)
	}

	out, err := s.groupView(ctx, group)
	if err != nil {
		return nil, fail("GetGroup", err, "group_id", group.ID)
	}

	slog.Info("GetGroup successful", "group_id", group.ID, "name", group.Name)
	return connect.NewResponse(&api.GetGroupResponse{Group: out}), nil
}

// ListMyGroups lists the groups the caller is in, pending invites included.
func (s *GroupService) ListMyGroups(ctx context.Context, req *connect.Request[api.ListMyGroupsRequest]) (*connect.Response[api.ListMyGroupsResponse], error) {
	v := viewerFrom(ctx, nil)
	slog.Info("ListMyGroups request received", "user_id", v.ID)

	if err := v.require("list groups"); err != nil {
		return nil, fail("ListMyGroups", err)
	}

	groups, err := s.store.ListGroupsForUser(ctx, v.ID)
	if err != nil {
		return nil, fail("ListMyGroups", err)
	}

	out := make([]*api.Group, 0, len(groups))
	for _, g := range groups {
		view, err := s.groupView(ctx, g)
		if err != nil {
			return nil, fail("ListMyGroups", err, "group_id", g.ID)
		}
		out = append(out, view)
	}

	slog.Info("ListMyGroups successful", "count", len(out))
	return connect.NewResponse(&api.ListMyGroupsResponse{Groups: out}), nil
}

// InviteMember adds a pending membership. Only the owner may invite.
func (s *GroupService) InviteMember(ctx context.Context, req *connect.Request[api.InviteMemberRequest]) (*connect.Response[api.InviteMemberResponse], error) {
	v := viewerFrom(ctx, nil)
	slog.Info("InviteMember request received", "group_id", req.Msg.GroupID, "username", req.Msg.Username)

	if err := v.require("invite"); err != nil {
		return nil, fail("InviteMember", err)
	}

	group, err := s.store.GetGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, fail("InviteMember", err, "group_id", req.Msg.GroupID)
	}
	if group.OwnerID != v.ID {
		return nil, fail("InviteMember", fmt.Errorf("%w: only the group owner can invite", models.ErrPermissionDenied), "group_id", group.ID)
	}

	invitee, err := s.store.GetUserByUsername(ctx, auth.NormalizeUsername(req.Msg.Username))
	if err != nil {
		return nil, fail("InviteMember", err, "username", req.Msg.Username)
	}

	if err := s.store.AddMembership(ctx, models.Membership{
		GroupID:   group.ID,
		UserID:    invitee.ID,
		Status:    models.MembershipPending,
		InvitedBy: v.ID,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return nil, fail("InviteMember", err, "group_id", group.ID, "invitee_id", invitee.ID)
	}

	slog.Info("Member invited", "group_id", group.ID, "invitee_id", invitee.ID)

	out, err := s.reloadGroupView(ctx, group.ID)
	if err != nil {
		return nil, fail("InviteMember", err, "group_id", group.ID)
	}
	return connect.NewResponse(&api.InviteMemberResponse{Group: out}), nil
}

// AcceptInvite accepts the caller's pending invite to a group.
func (s *GroupService) AcceptInvite(ctx context.Context, req *connect.Request[api.AcceptInviteRequest]) (*connect.Response[api.AcceptInviteResponse], error) {
	v := viewerFrom(ctx, nil)
	slog.Info("AcceptInvite request received", "group_id", req.Msg.GroupID, "user_id", v.ID)

	if err := v.require("accept an invite"); err != nil {
		return nil, fail("AcceptInvite", err)
	}
	if err := s.store.AcceptMembership(ctx, req.Msg.GroupID, v.ID); err != nil {
		return nil, fail("AcceptInvite", err, "group_id", req.Msg.GroupID)
	}

	slog.Info("Invite accepted", "group_id", req.Msg.GroupID, "user_id", v.ID)

	out, err := s.reloadGroupView(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, fail("AcceptInvite", err, "group_id", req.Msg.GroupID)
	}
	return connect.NewResponse(&api.AcceptInviteResponse{Group: out}), nil
}

func (s *GroupService) reloadGroupView(ctx context.Context, groupID string) (*api.Group, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return s.groupView(ctx, group)
}

func (s *GroupService) groupView(ctx context.Context, g *models.Group) (*api.Group, error) {
	ids := make([]string, 0, len(g.Members))
	for _, m := range g.Members {
		ids = append(ids, m.UserID)
	}
	users, err := loadUsers(ctx, s.store, ids...)
	if err != nil {
		return nil, err
	}
	return toAPIGroup(g, users), nil
}

func membershipOf(g *models.Group, userID string) *models.Membership {
	if userID == "" {
		return nil
	}
	for i := range g.Members {
		if g.Members[i].UserID == userID {
			return &g.Members[i]
		}
	}
	return nil
}
