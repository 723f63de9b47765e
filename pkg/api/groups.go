package api

import "time"

type Group struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	OwnerID   string        `json:"owner_id"`
	Members   []GroupMember `json:"members"`
	CreatedAt time.Time     `json:"created_at"`
}

// GroupMember is a membership joined with the member's display name.
// Status is "pending" or "accepted".
type GroupMember struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Status      string `json:"status"`
}

type CreateGroupRequest struct {
	Name string `json:"name"`
}

type CreateGroupResponse struct {
	Group *Group `json:"group"`
}

type GetGroupRequest struct {
	GroupID string `json:"group_id"`
}

type GetGroupResponse struct {
	Group *Group `json:"group"`
}

type ListMyGroupsRequest struct{}

type ListMyGroupsResponse struct {
	Groups []*Group `json:"groups"`
}

// InviteMemberRequest invites a user, by username, into a group the caller owns.
type InviteMemberRequest struct {
	GroupID  string `json:"group_id"`
	Username string `json:"username"`
}

type InviteMemberResponse struct {
	Group *Group `json:"group"`
}

type AcceptInviteRequest struct {
	GroupID string `json:"group_id"`
}

type AcceptInviteResponse struct {
	Group *Group `json:"group"`
}
