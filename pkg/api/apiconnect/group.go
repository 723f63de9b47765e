package apiconnect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/pledgeboard/pkg/api"
)

const GroupServiceName = "pledgeboard.v1.GroupService"

const (
	GroupServiceCreateGroupProcedure  = "/pledgeboard.v1.GroupService/CreateGroup"
	GroupServiceGetGroupProcedure     = "/pledgeboard.v1.GroupService/GetGroup"
	GroupServiceListMyGroupsProcedure = "/pledgeboard.v1.GroupService/ListMyGroups"
	GroupServiceInviteMemberProcedure = "/pledgeboard.v1.GroupService/InviteMember"
	GroupServiceAcceptInviteProcedure = "/pledgeboard.v1.GroupService/AcceptInvite"
)

type GroupServiceHandler interface {
	CreateGroup(context.Context, *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error)
	GetGroup(context.Context, *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error)
	ListMyGroups(context.Context, *connect.Request[api.ListMyGroupsRequest]) (*connect.Response[api.ListMyGroupsResponse], error)
	InviteMember(context.Context, *connect.Request[api.InviteMemberRequest]) (*connect.Response[api.InviteMemberResponse], error)
	AcceptInvite(context.Context, *connect.Request[api.AcceptInviteRequest]) (*connect.Response[api.AcceptInviteResponse], error)
}

type GroupServiceClient interface {
	CreateGroup(context.Context, *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error)
	GetGroup(context.Context, *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error)
	ListMyGroups(context.Context, *connect.Request[api.ListMyGroupsRequest]) (*connect.Response[api.ListMyGroupsResponse], error)
	InviteMember(context.Context, *connect.Request[api.InviteMemberRequest]) (*connect.Response[api.InviteMemberResponse], error)
	AcceptInvite(context.Context, *connect.Request[api.AcceptInviteRequest]) (*connect.Response[api.AcceptInviteResponse], error)
}

// NewGroupServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewGroupServiceHandler(svc GroupServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	return "/" + GroupServiceName + "/", routes{
		GroupServiceCreateGroupProcedure:  newUnaryHandler(GroupServiceCreateGroupProcedure, svc.CreateGroup, opts),
		GroupServiceGetGroupProcedure:     newUnaryHandler(GroupServiceGetGroupProcedure, svc.GetGroup, opts),
		GroupServiceListMyGroupsProcedure: newUnaryHandler(GroupServiceListMyGroupsProcedure, svc.ListMyGroups, opts),
		GroupServiceInviteMemberProcedure: newUnaryHandler(GroupServiceInviteMemberProcedure, svc.InviteMember, opts),
		GroupServiceAcceptInviteProcedure: newUnaryHandler(GroupServiceAcceptInviteProcedure, svc.AcceptInvite, opts),
	}
}

type groupServiceClient struct {
	createGroup  *connect.Client[api.CreateGroupRequest, api.CreateGroupResponse]
	getGroup     *connect.Client[api.GetGroupRequest, api.GetGroupResponse]
	listMyGroups *connect.Client[api.ListMyGroupsRequest, api.ListMyGroupsResponse]
	inviteMember *connect.Client[api.InviteMemberRequest, api.InviteMemberResponse]
	acceptInvite *connect.Client[api.AcceptInviteRequest, api.AcceptInviteResponse]
}

// NewGroupServiceClient constructs a client for the GroupService.
func NewGroupServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) GroupServiceClient {
	return &groupServiceClient{
		createGroup:  newClient[api.CreateGroupRequest, api.CreateGroupResponse](httpClient, baseURL, GroupServiceCreateGroupProcedure, opts),
		getGroup:     newClient[api.GetGroupRequest, api.GetGroupResponse](httpClient, baseURL, GroupServiceGetGroupProcedure, opts),
		listMyGroups: newClient[api.ListMyGroupsRequest, api.ListMyGroupsResponse](httpClient, baseURL, GroupServiceListMyGroupsProcedure, opts),
		inviteMember: newClient[api.InviteMemberRequest, api.InviteMemberResponse](httpClient, baseURL, GroupServiceInviteMemberProcedure, opts),
		acceptInvite: newClient[api.AcceptInviteRequest, api.AcceptInviteResponse](httpClient, baseURL, GroupServiceAcceptInviteProcedure, opts),
	}
}

func (c *groupServiceClient) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *groupServiceClient) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	return c.getGroup.CallUnary(ctx, req)
}

func (c *groupServiceClient) ListMyGroups(ctx context.Context, req *connect.Request[api.ListMyGroupsRequest]) (*connect.Response[api.ListMyGroupsResponse], error) {
	return c.listMyGroups.CallUnary(ctx, req)
}

func (c *groupServiceClient) InviteMember(ctx context.Context, req *connect.Request[api.InviteMemberRequest]) (*connect.Response[api.InviteMemberResponse], error) {
	return c.inviteMember.CallUnary(ctx, req)
}

func (c *groupServiceClient) AcceptInvite(ctx context.Context, req *connect.Request[api.AcceptInviteRequest]) (*connect.Response[api.AcceptInviteResponse], error) {
	return c.acceptInvite.CallUnary(ctx, req)
}
