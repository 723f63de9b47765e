package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/pledgeboard/internal/models"
	"github.com/mmynk/pledgeboard/internal/settlement"
	"github.com/mmynk/pledgeboard/internal/storage"
	"github.com/mmynk/pledgeboard/pkg/api"
	"github.com/mmynk/pledgeboard/pkg/api/apiconnect"
)

var _ apiconnect.RequestServiceHandler = (*RequestService)(nil)

// RequestService implements the Connect RequestService for reverse requests.
type RequestService struct {
	store  storage.Store
	engine *settlement.Engine
	admins AdminChecker
	views  dealViews
}

// NewRequestService creates a RequestService. admins may be nil.
func NewRequestService(store storage.Store, engine *settlement.Engine, admins AdminChecker) *RequestService {
	if admins == nil {
		admins = noAdmins{}
	}
	return &RequestService{
		store:  store,
		engine: engine,
		admins: admins,
		views:  dealViews{store: store, gate: engine.Gate()},
	}
}

// CreateRequest opens a reverse request owned by the caller.
func (s *RequestService) CreateRequest(ctx context.Context, req *connect.Request[api.CreateReverseRequestRequest]) (*connect.Response[api.CreateReverseRequestResponse], error) {
	v := viewerFrom(ctx, s.admins)
	slog.Info("CreateRequest request received", "user_id", v.ID, "audience", req.Msg.Audience.Mode)

	if err := v.require("create a request"); err != nil {
		return nil, fail("CreateRequest", err)
	}
	title, description, err := validateText(req.Msg.Title, req.Msg.Description)
	if err != nil {
		return nil, fail("CreateRequest", err)
	}
	aud, err := resolveAudience(ctx, s.store, v.ID, req.Msg.Audience)
	if err != nil {
		return nil, fail("CreateRequest", err)
	}

	rr := &models.ReverseRequest{
		CreatorID:   v.ID,
		Title:       title,
		Description: description,
		Status:      models.RequestOpen,
		Audience:    aud,
		CreatedAt:   s.engine.Now(),
	}
	if err := s.store.CreateRequest(ctx, rr); err != nil {
		return nil, fail("CreateRequest", err)
	}

	slog.Info("Request created", "request_id", rr.ID)

	out, err := s.views.request(ctx, rr, v)
	if err != nil {
		return nil, fail("CreateRequest", err, "request_id", rr.ID)
	}
	return connect.NewResponse(&api.CreateReverseRequestResponse{Request: out}), nil
}

// ListRequests lists every reverse request, newest first.
func (s *RequestService) ListRequests(ctx context.Context, req *connect.Request[api.ListReverseRequestsRequest]) (*connect.Response[api.ListReverseRequestsResponse], error) {
	v := viewerFrom(ctx, s.admins)
	slog.Info("ListRequests request received", "user_id", v.ID)

	reqs, err := s.store.ListRequests(ctx)
	if err != nil {
		return nil, fail("ListRequests", err)
	}

	out := make([]*api.ReverseRequest, 0, len(reqs))
	for _, rr := range reqs {
		view, err := s.views.request(ctx, rr, v)
		if err != nil {
			return nil, fail("ListRequests", err, "request_id", rr.ID)
		}
		out = append(out, view)
	}

	slog.Info("ListRequests successful", "count", len(out))
	return connect.NewResponse(&api.ListReverseRequestsResponse{Requests: out}), nil
}

// GetRequest retrieves a reverse request with its bids and pledges.
func (s *RequestService) GetRequest(ctx context.Context, req *connect.Request[api.GetReverseRequestRequest]) (*connect.Response[api.GetReverseRequestResponse], error) {
	slog.Info("GetRequest request received", "request_id", req.Msg.RequestID)

	out, err := s.load(ctx, req.Msg.RequestID, viewerFrom(ctx, s.admins))
	if err != nil {
		return nil, fail("GetRequest", err, "request_id", req.Msg.RequestID)
	}
	return connect.NewResponse(&api.GetReverseRequestResponse{Request: out}), nil
}

// PlaceBid posts the caller's ask, replacing their earlier one if any.
func (s *RequestService) PlaceBid(ctx context.Context, req *connect.Request[api.PlaceBidRequest]) (*connect.Response[api.PlaceBidResponse], error) {
	v := viewerFrom(ctx, s.admins)
	slog.Info("PlaceBid request received", "request_id", req.Msg.RequestID, "user_id", v.ID, "ask_amount", req.Msg.AskAmount)

	res, err := s.engine.PlaceBid(ctx, v.ID, req.Msg.RequestID, req.Msg.AskAmount)
	if err != nil {
		return nil, fail("PlaceBid", err, "request_id", req.Msg.RequestID, "user_id", v.ID)
	}

	slog.Info("PlaceBid successful",
		"request_id", req.Msg.RequestID,
		"bid_id", res.Bid.ID,
		"replaced", res.Replaced,
		"settled", res.Settled,
	)

	out, err := s.load(ctx, req.Msg.RequestID, v)
	if err != nil {
		return nil, fail("PlaceBid", err, "request_id", req.Msg.RequestID)
	}
	return connect.NewResponse(&api.PlaceBidResponse{Request: out, Replaced: res.Replaced, Settled: res.Settled}), nil
}

// Pledge adds the caller's pledge toward the lowest ask.
func (s *RequestService) Pledge(ctx context.Context, req *connect.Request[api.PledgeReverseRequestRequest]) (*connect.Response[api.PledgeReverseRequestResponse], error) {
	v := viewerFrom(ctx, s.admins)
	slog.Info("Pledge request received", "request_id", req.Msg.RequestID, "user_id", v.ID, "amount", req.Msg.Amount)

	res, err := s.engine.PledgeRequest(ctx, v.ID, req.Msg.RequestID, req.Msg.Amount)
	if err != nil {
		return nil, fail("Pledge", err, "request_id", req.Msg.RequestID, "user_id", v.ID)
	}

	slog.Info("Pledge successful", "request_id", req.Msg.RequestID, "pledge_id", res.Pledge.ID, "settled", res.Settled)

	out, err := s.load(ctx, req.Msg.RequestID, v)
	if err != nil {
		return nil, fail("Pledge", err, "request_id", req.Msg.RequestID)
	}
	return connect.NewResponse(&api.PledgeReverseRequestResponse{Request: out, Settled: res.Settled}), nil
}

// Settle re-runs settlement on a reverse request.
func (s *RequestService) Settle(ctx context.Context, req *connect.Request[api.SettleReverseRequestRequest]) (*connect.Response[api.SettleReverseRequestResponse], error) {
	v := viewerFrom(ctx, s.admins)
	slog.Info("Settle request received", "request_id", req.Msg.RequestID, "user_id", v.ID)

	if err := v.require("settle"); err != nil {
		return nil, fail("Settle", err)
	}
	settled, err := s.engine.SettleRequest(ctx, req.Msg.RequestID)
	if err != nil {
		return nil, fail("Settle", err, "request_id", req.Msg.RequestID)
	}

	out, err := s.load(ctx, req.Msg.RequestID, v)
	if err != nil {
		return nil, fail("Settle", err, "request_id", req.Msg.RequestID)
	}
	return connect.NewResponse(&api.SettleReverseRequestResponse{Request: out, Settled: settled}), nil
}

// DeleteRequest removes a reverse request with its bids, pledges and ledger entries.
func (s *RequestService) DeleteRequest(ctx context.Context, req *connect.Request[api.DeleteReverseRequestRequest]) (*connect.Response[api.DeleteReverseRequestResponse], error) {
	v := viewerFrom(ctx, s.admins)
	slog.Info("DeleteRequest request received", "request_id", req.Msg.RequestID, "user_id", v.ID)

	if err := s.engine.DeleteRequest(ctx, v.ID, v.IsAdmin, req.Msg.RequestID); err != nil {
		return nil, fail("DeleteRequest", err, "request_id", req.Msg.RequestID)
	}

	slog.Info("Request deleted", "request_id", req.Msg.RequestID, "by_admin", v.IsAdmin)
	return connect.NewResponse(&api.DeleteReverseRequestResponse{}), nil
}

func (s *RequestService) load(ctx context.Context, requestID string, v viewer) (*api.ReverseRequest, error) {
	rr, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return s.views.request(ctx, rr, v)
}
