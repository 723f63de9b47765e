package apiconnect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/pledgeboard/pkg/api"
)

const ThreadServiceName = "pledgeboard.v1.ThreadService"

const (
	ThreadServiceCreateThreadProcedure  = "/pledgeboard.v1.ThreadService/CreateThread"
	ThreadServiceListThreadsProcedure   = "/pledgeboard.v1.ThreadService/ListThreads"
	ThreadServiceGetThreadProcedure     = "/pledgeboard.v1.ThreadService/GetThread"
	ThreadServicePledgeProcedure        = "/pledgeboard.v1.ThreadService/Pledge"
	ThreadServiceCommitCurrentProcedure = "/pledgeboard.v1.ThreadService/CommitCurrent"
	ThreadServiceSettleProcedure        = "/pledgeboard.v1.ThreadService/Settle"
	ThreadServiceDeleteThreadProcedure  = "/pledgeboard.v1.ThreadService/DeleteThread"
)

type ThreadServiceHandler interface {
	CreateThread(context.Context, *connect.Request[api.CreateThreadRequest]) (*connect.Response[api.CreateThreadResponse], error)
	ListThreads(context.Context, *connect.Request[api.ListThreadsRequest]) (*connect.Response[api.ListThreadsResponse], error)
	GetThread(context.Context, *connect.Request[api.GetThreadRequest]) (*connect.Response[api.GetThreadResponse], error)
	Pledge(context.Context, *connect.Request[api.PledgeThreadRequest]) (*connect.Response[api.PledgeThreadResponse], error)
	CommitCurrent(context.Context, *connect.Request[api.CommitCurrentRequest]) (*connect.Response[api.CommitCurrentResponse], error)
	Settle(context.Context, *connect.Request[api.SettleThreadRequest]) (*connect.Response[api.SettleThreadResponse], error)
	DeleteThread(context.Context, *connect.Request[api.DeleteThreadRequest]) (*connect.Response[api.DeleteThreadResponse], error)
}

type ThreadServiceClient interface {
	CreateThread(context.Context, *connect.Request[api.CreateThreadRequest]) (*connect.Response[api.CreateThreadResponse], error)
	ListThreads(context.Context, *connect.Request[api.ListThreadsRequest]) (*connect.Response[api.ListThreadsResponse], error)
	GetThread(context.Context, *connect.Request[api.GetThreadRequest]) (*connect.Response[api.GetThreadResponse], error)
	Pledge(context.Context, *connect.Request[api.PledgeThreadRequest]) (*connect.Response[api.PledgeThreadResponse], error)
	CommitCurrent(context.Context, *connect.Request[api.CommitCurrentRequest]) (*connect.Response[api.CommitCurrentResponse], error)
	Settle(context.Context, *connect.Request[api.SettleThreadRequest]) (*connect.Response[api.SettleThreadResponse], error)
	DeleteThread(context.Context, *connect.Request[api.DeleteThreadRequest]) (*connect.Response[api.DeleteThreadResponse], error)
}

// NewThreadServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewThreadServiceHandler(svc ThreadServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	return "/" + ThreadServiceName + "/", routes{
		ThreadServiceCreateThreadProcedure:  newUnaryHandler(ThreadServiceCreateThreadProcedure, svc.CreateThread, opts),
		ThreadServiceListThreadsProcedure:   newUnaryHandler(ThreadServiceListThreadsProcedure, svc.ListThreads, opts),
		ThreadServiceGetThreadProcedure:     newUnaryHandler(ThreadServiceGetThreadProcedure, svc.GetThread, opts),
		ThreadServicePledgeProcedure:        newUnaryHandler(ThreadServicePledgeProcedure, svc.Pledge, opts),
		ThreadServiceCommitCurrentProcedure: newUnaryHandler(ThreadServiceCommitCurrentProcedure, svc.CommitCurrent, opts),
		ThreadServiceSettleProcedure:        newUnaryHandler(ThreadServiceSettleProcedure, svc.Settle, opts),
		ThreadServiceDeleteThreadProcedure:  newUnaryHandler(ThreadServiceDeleteThreadProcedure, svc.DeleteThread, opts),
	}
}

type threadServiceClient struct {
	createThread  *connect.Client[api.CreateThreadRequest, api.CreateThreadResponse]
	listThreads   *connect.Client[api.ListThreadsRequest, api.ListThreadsResponse]
	getThread     *connect.Client[api.GetThreadRequest, api.GetThreadResponse]
	pledge        *connect.Client[api.PledgeThreadRequest, api.PledgeThreadResponse]
	commitCurrent *connect.Client[api.CommitCurrentRequest, api.CommitCurrentResponse]
	settle        *connect.Client[api.SettleThreadRequest, api.SettleThreadResponse]
	deleteThread  *connect.Client[api.DeleteThreadRequest, api.DeleteThreadResponse]
}

// NewThreadServiceClient constructs a client for the ThreadService.
func NewThreadServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) ThreadServiceClient {
	return &threadServiceClient{
		createThread:  newClient[api.CreateThreadRequest, api.CreateThreadResponse](httpClient, baseURL, ThreadServiceCreateThreadProcedure, opts),
		listThreads:   newClient[api.ListThreadsRequest, api.ListThreadsResponse](httpClient, baseURL, ThreadServiceListThreadsProcedure, opts),
		getThread:     newClient[api.GetThreadRequest, api.GetThreadResponse](httpClient, baseURL, ThreadServiceGetThreadProcedure, opts),
		pledge:        newClient[api.PledgeThreadRequest, api.PledgeThreadResponse](httpClient, baseURL, ThreadServicePledgeProcedure, opts),
		commitCurrent: newClient[api.CommitCurrentRequest, api.CommitCurrentResponse](httpClient, baseURL, ThreadServiceCommitCurrentProcedure, opts),
		settle:        newClient[api.SettleThreadRequest, api.SettleThreadResponse](httpClient, baseURL, ThreadServiceSettleProcedure, opts),
		deleteThread:  newClient[api.DeleteThreadRequest, api.DeleteThreadResponse](httpClient, baseURL, ThreadServiceDeleteThreadProcedure, opts),
	}
}

func (c *threadServiceClient) CreateThread(ctx context.Context, req *connect.Request[api.CreateThreadRequest]) (*connect.Response[api.CreateThreadResponse], error) {
	return c.createThread.CallUnary(ctx, req)
}

func (c *threadServiceClient) ListThreads(ctx context.Context, req *connect.Request[api.ListThreadsRequest]) (*connect.Response[api.ListThreadsResponse], error) {
	return c.listThreads.CallUnary(ctx, req)
}

func (c *threadServiceClient) GetThread(ctx context.Context, req *connect.Request[api.GetThreadRequest]) (*connect.Response[api.GetThreadResponse], error) {
	return c.getThread.CallUnary(ctx, req)
}

func (c *threadServiceClient) Pledge(ctx context.Context, req *connect.Request[api.PledgeThreadRequest]) (*connect.Response[api.PledgeThreadResponse], error) {
	return c.pledge.CallUnary(ctx, req)
}

func (c *threadServiceClient) CommitCurrent(ctx context.Context, req *connect.Request[api.CommitCurrentRequest]) (*connect.Response[api.CommitCurrentResponse], error) {
	return c.commitCurrent.CallUnary(ctx, req)
}

func (c *threadServiceClient) Settle(ctx context.Context, req *connect.Request[api.SettleThreadRequest]) (*connect.Response[api.SettleThreadResponse], error) {
	return c.settle.CallUnary(ctx, req)
}

func (c *threadServiceClient) DeleteThread(ctx context.Context, req *connect.Request[api.DeleteThreadRequest]) (*connect.Response[api.DeleteThreadResponse], error) {
	return c.deleteThread.CallUnary(ctx, req)
}
