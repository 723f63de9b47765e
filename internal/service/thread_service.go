package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/pledgeboard/internal/calculator"
	"github.com/mmynk/pledgeboard/internal/models"
	"github.com/mmynk/pledgeboard/internal/settlement"
	"github.com/mmynk/pledgeboard/internal/storage"
	"github.com/mmynk/pledgeboard/pkg/api"
	"github.com/mmynk/pledgeboard/pkg/api/apiconnect"
)

var _ apiconnect.ThreadServiceHandler = (*ThreadService)(nil)

// ThreadService implements the Connect ThreadService.
type ThreadService struct {
	store  storage.Store
	engine *settlement.Engine
	admins AdminChecker
	views  dealViews
}

// NewThreadService creates a ThreadService. admins may be nil.
func NewThreadService(store storage.Store, engine *settlement.Engine, admins AdminChecker) *ThreadService {
	if admins == nil {
		admins = noAdmins{}
	}
	return &ThreadService{
		store:  store,
		engine: engine,
		admins: admins,
		views:  dealViews{store: store, gate: engine.Gate()},
	}
}

// CreateThread creates a thread owned by the caller.
func (s *ThreadService) CreateThread(ctx context.Context, req *connect.Request[api.CreateThreadRequest]) (*connect.Response[api.CreateThreadResponse], error) {
	v := viewerFrom(ctx, s.admins)
	slog.Info("CreateThread request received",
		"user_id", v.ID,
		"target_amount", req.Msg.TargetAmount,
		"deadline", req.Msg.Deadline,
		"audience", req.Msg.Audience.Mode,
	)

	if err := v.require("create a thread"); err != nil {
		return nil, fail("CreateThread", err)
	}

	title, description, err := validateText(req.Msg.Title, req.Msg.Description)
	if err != nil {
		return nil, fail("CreateThread", err)
	}
	if err := calculator.ValidateAmount("target_amount", req.Msg.TargetAmount); err != nil {
		return nil, fail("CreateThread", err)
	}
	now := s.engine.Now()
	deadline, err := parseDeadline(req.Msg.Deadline, now)
	if err != nil {
		return nil, fail("CreateThread", err)
	}
	aud, err := resolveAudience(ctx, s.store, v.ID, req.Msg.Audience)
	if err != nil {
		return nil, fail("CreateThread", err)
	}

	thread := &models.Thread{
		CreatorID:    v.ID,
		Title:        title,
		Description:  description,
		TargetAmount: req.Msg.TargetAmount,
		Deadline:     deadline,
		Audience:     aud,
		CreatedAt:    now,
	}
	if err := s.store.CreateThread(ctx, thread); err != nil {
		return nil, fail("CreateThread", err)
	}

	slog.Info("Thread created", "thread_id", thread.ID)

	out, err := s.views.thread(ctx, thread, v, now)
	if err != nil {
		return nil, fail("CreateThread", err, "thread_id", thread.ID)
	}
	return connect.NewResponse(&api.CreateThreadResponse{Thread: out}), nil
}

// ListThreads lists every thread, newest first. Anonymous callers get the
// same list with every per-viewer flag off.
func (s *ThreadService) ListThreads(ctx context.Context, req *connect.Request[api.ListThreadsRequest]) (*connect.Response[api.ListThreadsResponse], error) {
	v := viewerFrom(ctx, s.admins)
	slog.Info("ListThreads request received", "user_id", v.ID)

	threads, err := s.store.ListThreads(ctx)
	if err != nil {
		return nil, fail("ListThreads", err)
	}

	now := s.engine.Now()
	out := make([]*api.Thread, 0, len(threads))
	for _, t := range threads {
		view, err := s.views.thread(ctx, t, v, now)
		if err != nil {
			return nil, fail("ListThreads", err, "thread_id", t.ID)
		}
		out = append(out, view)
	}

	slog.Info("ListThreads successful", "count", len(out))
	return connect.NewResponse(&api.ListThreadsResponse{Threads: out}), nil
}

// GetThread retrieves a thread with its pledges.
func (s *ThreadService) GetThread(ctx context.Context, req *connect.Request[api.GetThreadRequest]) (*connect.Response[api.GetThreadResponse], error) {
	slog.Info("GetThread request received", "thread_id", req.Msg.ThreadID)

	out, err := s.load(ctx, req.Msg.ThreadID, viewerFrom(ctx, s.admins))
	if err != nil {
		return nil, fail("GetThread", err, "thread_id", req.Msg.ThreadID)
	}
	return connect.NewResponse(&api.GetThreadResponse{Thread: out}), nil
}

// Pledge adds the caller's pledge and settles the thread if it is now funded.
func (s *ThreadService) Pledge(ctx context.Context, req *connect.Request[api.PledgeThreadRequest]) (*connect.Response[api.PledgeThreadResponse], error) {
	v := viewerFrom(ctx, s.admins)
	slog.Info("Pledge request received", "thread_id", req.Msg.ThreadID, "user_id", v.ID, "amount", req.Msg.Amount)

	res, err := s.engine.PledgeThread(ctx, v.ID, req.Msg.ThreadID, req.Msg.Amount)
	if err != nil {
		return nil, fail("Pledge", err, "thread_id", req.Msg.ThreadID, "user_id", v.ID)
	}

	slog.Info("Pledge successful", "thread_id", req.Msg.ThreadID, "pledge_id", res.Pledge.ID, "settled", res.Settled)

	out, err := s.load(ctx, req.Msg.ThreadID, v)
	if err != nil {
		return nil, fail("Pledge", err, "thread_id", req.Msg.ThreadID)
	}
	return connect.NewResponse(&api.PledgeThreadResponse{Thread: out, Settled: res.Settled}), nil
}

// CommitCurrent locks in the amount pledged so far. Creator only.
func (s *ThreadService) CommitCurrent(ctx context.Context, req *connect.Request[api.CommitCurrentRequest]) (*connect.Response[api.CommitCurrentResponse], error) {
	v := viewerFrom(ctx, s.admins)
	slog.Info("CommitCurrent request received", "thread_id", req.Msg.ThreadID, "user_id", v.ID)

	settled, err := s.engine.CommitCurrent(ctx, v.ID, req.Msg.ThreadID)
	if err != nil {
		return nil, fail("CommitCurrent", err, "thread_id", req.Msg.ThreadID, "user_id", v.ID)
	}

	slog.Info("CommitCurrent successful", "thread_id", req.Msg.ThreadID, "settled", settled)

	out, err := s.load(ctx, req.Msg.ThreadID, v)
	if err != nil {
		return nil, fail("CommitCurrent", err, "thread_id", req.Msg.ThreadID)
	}
	return connect.NewResponse(&api.CommitCurrentResponse{Thread: out, Settled: settled}), nil
}

// Settle re-runs settlement on a thread. It is safe to call at any time and
// only does something if an earlier attempt failed.
func (s *ThreadService) Settle(ctx context.Context, req *connect.Request[api.SettleThreadRequest]) (*connect.Response[api.SettleThreadResponse], error) {
	v := viewerFrom(ctx, s.admins)
	slog.Info("Settle request received", "thread_id", req.Msg.ThreadID, "user_id", v.ID)

	if err := v.require("settle"); err != nil {
		return nil, fail("Settle", err)
	}
	settled, err := s.engine.SettleThread(ctx, req.Msg.ThreadID)
	if err != nil {
		return nil, fail("Settle", err, "thread_id", req.Msg.ThreadID)
	}

	out, err := s.load(ctx, req.Msg.ThreadID, v)
	if err != nil {
		return nil, fail("Settle", err, "thread_id", req.Msg.ThreadID)
	}
	return connect.NewResponse(&api.SettleThreadResponse{Thread: out, Settled: settled}), nil
}

// DeleteThread removes a thread along with its pledges and ledger entries.
func (s *ThreadService) DeleteThread(ctx context.Context, req *connect.Request[api.DeleteThreadRequest]) (*connect.Response[api.DeleteThreadResponse], error) {
	v := viewerFrom(ctx, s.admins)
	slog.Info("DeleteThread request received", "thread_id", req.Msg.ThreadID, "user_id", v.ID)

	if err := s.engine.DeleteThread(ctx, v.ID, v.IsAdmin, req.Msg.ThreadID); err != nil {
		return nil, fail("DeleteThread", err, "thread_id", req.Msg.ThreadID)
	}

	slog.Info("Thread deleted", "thread_id", req.Msg.ThreadID, "by_admin", v.IsAdmin)
	return connect.NewResponse(&api.DeleteThreadResponse{}), nil
}

func (s *ThreadService) load(ctx context.Context, threadID string, v viewer) (*api.Thread, error) {
	thread, err := s.store.GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return s.views.thread(ctx, thread, v, s.engine.Now())
}
