package apiconnect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/pledgeboard/pkg/api"
)

const LedgerServiceName = "pledgeboard.v1.LedgerService"

const (
	LedgerServiceListEntriesProcedure     = "/pledgeboard.v1.LedgerService/ListEntries"
	LedgerServiceGetSummaryProcedure      = "/pledgeboard.v1.LedgerService/GetSummary"
	LedgerServiceDeclareReceivedProcedure = "/pledgeboard.v1.LedgerService/DeclareReceived"
)

type LedgerServiceHandler interface {
	ListEntries(context.Context, *connect.Request[api.ListEntriesRequest]) (*connect.Response[api.ListEntriesResponse], error)
	GetSummary(context.Context, *connect.Request[api.GetSummaryRequest]) (*connect.Response[api.GetSummaryResponse], error)
	DeclareReceived(context.Context, *connect.Request[api.DeclareReceivedRequest]) (*connect.Response[api.DeclareReceivedResponse], error)
}

type LedgerServiceClient interface {
	ListEntries(context.Context, *connect.Request[api.ListEntriesRequest]) (*connect.Response[api.ListEntriesResponse], error)
	GetSummary(context.Context, *connect.Request[api.GetSummaryRequest]) (*connect.Response[api.GetSummaryResponse], error)
	DeclareReceived(context.Context, *connect.Request[api.DeclareReceivedRequest]) (*connect.Response[api.DeclareReceivedResponse], error)
}

// NewLedgerServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewLedgerServiceHandler(svc LedgerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	return "/" + LedgerServiceName + "/", routes{
		LedgerServiceListEntriesProcedure:     newUnaryHandler(LedgerServiceListEntriesProcedure, svc.ListEntries, opts),
		LedgerServiceGetSummaryProcedure:      newUnaryHandler(LedgerServiceGetSummaryProcedure, svc.GetSummary, opts),
		LedgerServiceDeclareReceivedProcedure: newUnaryHandler(LedgerServiceDeclareReceivedProcedure, svc.DeclareReceived, opts),
	}
}

type ledgerServiceClient struct {
	listEntries     *connect.Client[api.ListEntriesRequest, api.ListEntriesResponse]
	getSummary      *connect.Client[api.GetSummaryRequest, api.GetSummaryResponse]
	declareReceived *connect.Client[api.DeclareReceivedRequest, api.DeclareReceivedResponse]
}

// NewLedgerServiceClient constructs a client for the LedgerService.
func NewLedgerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) LedgerServiceClient {
	return &ledgerServiceClient{
		listEntries:     newClient[api.ListEntriesRequest, api.ListEntriesResponse](httpClient, baseURL, LedgerServiceListEntriesProcedure, opts),
		getSummary:      newClient[api.GetSummaryRequest, api.GetSummaryResponse](httpClient, baseURL, LedgerServiceGetSummaryProcedure, opts),
		declareReceived: newClient[api.DeclareReceivedRequest, api.DeclareReceivedResponse](httpClient, baseURL, LedgerServiceDeclareReceivedProcedure, opts),
	}
}

func (c *ledgerServiceClient) ListEntries(ctx context.Context, req *connect.Request[api.ListEntriesRequest]) (*connect.Response[api.ListEntriesResponse], error) {
	return c.listEntries.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) GetSummary(ctx context.Context, req *connect.Request[api.GetSummaryRequest]) (*connect.Response[api.GetSummaryResponse], error) {
	return c.getSummary.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) DeclareReceived(ctx context.Context, req *connect.Request[api.DeclareReceivedRequest]) (*connect.Response[api.DeclareReceivedResponse], error) {
	return c.declareReceived.CallUnary(ctx, req)
}
