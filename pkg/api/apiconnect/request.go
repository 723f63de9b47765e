package apiconnect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/pledgeboard/pkg/api"
)

const RequestServiceName = "pledgeboard.v1.RequestService"

const (
	RequestServiceCreateRequestProcedure = "/pledgeboard.v1.RequestService/CreateRequest"
	RequestServiceListRequestsProcedure  = "/pledgeboard.v1.RequestService/ListRequests"
	RequestServiceGetRequestProcedure    = "/pledgeboard.v1.RequestService/GetRequest"
	RequestServicePlaceBidProcedure      = "/pledgeboard.v1.RequestService/PlaceBid"
	RequestServicePledgeProcedure        = "/pledgeboard.v1.RequestService/Pledge"
	RequestServiceSettleProcedure        = "/pledgeboard.v1.RequestService/Settle"
	RequestServiceDeleteRequestProcedure = "/pledgeboard.v1.RequestService/DeleteRequest"
)

type RequestServiceHandler interface {
	CreateRequest(context.Context, *connect.Request[api.CreateReverseRequestRequest]) (*connect.Response[api.CreateReverseRequestResponse], error)
	ListRequests(context.Context, *connect.Request[api.ListReverseRequestsRequest]) (*connect.Response[api.ListReverseRequestsResponse], error)
	GetRequest(context.Context, *connect.Request[api.GetReverseRequestRequest]) (*connect.Response[api.GetReverseRequestResponse], error)
	PlaceBid(context.Context, *connect.Request[api.PlaceBidRequest]) (*connect.Response[api.PlaceBidResponse], error)
	Pledge(context.Context, *connect.Request[api.PledgeReverseRequestRequest]) (*connect.Response[api.PledgeReverseRequestResponse], error)
	Settle(context.Context, *connect.Request[api.SettleReverseRequestRequest]) (*connect.Response[api.SettleReverseRequestResponse], error)
	DeleteRequest(context.Context, *connect.Request[api.DeleteReverseRequestRequest]) (*connect.Response[api.DeleteReverseRequestResponse], error)
}

type RequestServiceClient interface {
	CreateRequest(context.Context, *connect.Request[api.CreateReverseRequestRequest]) (*connect.Response[api.CreateReverseRequestResponse], error)
	ListRequests(context.Context, *connect.Request[api.ListReverseRequestsRequest]) (*connect.Response[api.ListReverseRequestsResponse], error)
	GetRequest(context.Context, *connect.Request[api.GetReverseRequestRequest]) (*connect.Response[api.GetReverseRequestResponse], error)
	PlaceBid(context.Context, *connect.Request[api.PlaceBidRequest]) (*connect.Response[api.PlaceBidResponse], error)
	Pledge(context.Context, *connect.Request[api.PledgeReverseRequestRequest]) (*connect.Response[api.PledgeReverseRequestResponse], error)
	Settle(context.Context, *connect.Request[api.SettleReverseRequestRequest]) (*connect.Response[api.SettleReverseRequestResponse], error)
	DeleteRequest(context.Context, *connect.Request[api.DeleteReverseRequestRequest]) (*connect.Response[api.DeleteReverseRequestResponse], error)
}

// NewRequestServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewRequestServiceHandler(svc RequestServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	return "/" + RequestServiceName + "/", routes{
		RequestServiceCreateRequestProcedure: newUnaryHandler(RequestServiceCreateRequestProcedure, svc.CreateRequest, opts),
		RequestServiceListRequestsProcedure:  newUnaryHandler(RequestServiceListRequestsProcedure, svc.ListRequests, opts),
		RequestServiceGetRequestProcedure:    newUnaryHandler(RequestServiceGetRequestProcedure, svc.GetRequest, opts),
		RequestServicePlaceBidProcedure:      newUnaryHandler(RequestServicePlaceBidProcedure, svc.PlaceBid, opts),
		RequestServicePledgeProcedure:        newUnaryHandler(RequestServicePledgeProcedure, svc.Pledge, opts),
		RequestServiceSettleProcedure:        newUnaryHandler(RequestServiceSettleProcedure, svc.Settle, opts),
		RequestServiceDeleteRequestProcedure: newUnaryHandler(RequestServiceDeleteRequestProcedure, svc.DeleteRequest, opts),
	}
}

type requestServiceClient struct {
	createRequest *connect.Client[api.CreateReverseRequestRequest, api.CreateReverseRequestResponse]
	listRequests  *connect.Client[api.ListReverseRequestsRequest, api.ListReverseRequestsResponse]
	getRequest    *connect.Client[api.GetReverseRequestRequest, api.GetReverseRequestResponse]
	placeBid      *connect.Client[api.PlaceBidRequest, api.PlaceBidResponse]
	pledge        *connect.Client[api.PledgeReverseRequestRequest, api.PledgeReverseRequestResponse]
	settle        *connect.Client[api.SettleReverseRequestRequest, api.SettleReverseRequestResponse]
	deleteRequest *connect.Client[api.DeleteReverseRequestRequest, api.DeleteReverseRequestResponse]
}

// NewRequestServiceClient constructs a client for the RequestService.
func NewRequestServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) RequestServiceClient {
	return &requestServiceClient{
		createRequest: newClient[api.CreateReverseRequestRequest, api.CreateReverseRequestResponse](httpClient, baseURL, RequestServiceCreateRequestProcedure, opts),
		listRequests:  newClient[api.ListReverseRequestsRequest, api.ListReverseRequestsResponse](httpClient, baseURL, RequestServiceListRequestsProcedure, opts),
		getRequest:    newClient[api.GetReverseRequestRequest, api.GetReverseRequestResponse](httpClient, baseURL, RequestServiceGetRequestProcedure, opts),
		placeBid:      newClient[api.PlaceBidRequest, api.PlaceBidResponse](httpClient, baseURL, RequestServicePlaceBidProcedure, opts),
		pledge:        newClient[api.PledgeReverseRequestRequest, api.PledgeReverseRequestResponse](httpClient, baseURL, RequestServicePledgeProcedure, opts),
		settle:        newClient[api.SettleReverseRequestRequest, api.SettleReverseRequestResponse](httpClient, baseURL, RequestServiceSettleProcedure, opts),
		deleteRequest: newClient[api.DeleteReverseRequestRequest, api.DeleteReverseRequestResponse](httpClient, baseURL, RequestServiceDeleteRequestProcedure, opts),
	}
}

func (c *requestServiceClient) CreateRequest(ctx context.Context, req *connect.Request[api.CreateReverseRequestRequest]) (*connect.Response[api.CreateReverseRequestResponse], error) {
	return c.createRequest.CallUnary(ctx, req)
}

func (c *requestServiceClient) ListRequests(ctx context.Context, req *connect.Request[api.ListReverseRequestsRequest]) (*connect.Response[api.ListReverseRequestsResponse], error) {
	return c.listRequests.CallUnary(ctx, req)
}

func (c *requestServiceClient) GetRequest(ctx context.Context, req *connect.Request[api.GetReverseRequestRequest]) (*connect.Response[api.GetReverseRequestResponse], error) {
	return c.getRequest.CallUnary(ctx, req)
}

func (c *requestServiceClient) PlaceBid(ctx context.Context, req *connect.Request[api.PlaceBidRequest]) (*connect.Response[api.PlaceBidResponse], error) {
	return c.placeBid.CallUnary(ctx, req)
}

func (c *requestServiceClient) Pledge(ctx context.Context, req *connect.Request[api.PledgeReverseRequestRequest]) (*connect.Response[api.PledgeReverseRequestResponse], error) {
	return c.pledge.CallUnary(ctx, req)
}

func (c *requestServiceClient) Settle(ctx context.Context, req *connect.Request[api.SettleReverseRequestRequest]) (*connect.Response[api.SettleReverseRequestResponse], error) {
	return c.settle.CallUnary(ctx, req)
}

func (c *requestServiceClient) DeleteRequest(ctx context.Context, req *connect.Request[api.DeleteReverseRequestRequest]) (*connect.Response[api.DeleteReverseRequestResponse], error) {
	return c.deleteRequest.CallUnary(ctx, req)
}
