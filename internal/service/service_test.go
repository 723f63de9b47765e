package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/pledgeboard/internal/audience"
	"github.com/mmynk/pledgeboard/internal/auth"
	"github.com/mmynk/pledgeboard/internal/middleware"
	"github.com/mmynk/pledgeboard/internal/settlement"
	"github.com/mmynk/pledgeboard/internal/storage/sqlite"
	"github.com/mmynk/pledgeboard/pkg/api"
	"github.com/mmynk/pledgeboard/pkg/api/apiconnect"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type staticAdmins map[string]bool

func (a staticAdmins) IsAdmin(username string) bool { return a[username] }

// testEnv is a full server over a temp database with a client per service.
type testEnv struct {
	store   *sqlite.SQLiteStore
	clock   *fakeClock
	auth    apiconnect.AuthServiceClient
	groups  apiconnect.GroupServiceClient
	threads apiconnect.ThreadServiceClient
	reqs    apiconnect.RequestServiceClient
	ledger  apiconnect.LedgerServiceClient
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	clock := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	sessions := auth.NewSessionIssuer("test-secret-0123456789", time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost)
	engine := settlement.NewEngine(store, audience.NewGate(store), settlement.WithClock(clock.Now))
	admins := staticAdmins{"root": true}

	logging := middleware.LoggingInterceptor(nil)
	optional := connect.WithInterceptors(middleware.OptionalAuth(sessions), logging)
	required := connect.WithInterceptors(middleware.RequireAuth(sessions), logging)

	mux := http.NewServeMux()
	mux.Handle(apiconnect.NewAuthServiceHandler(NewAuthService(authenticator, sessions, store, admins, nil), optional))
	mux.Handle(apiconnect.NewGroupServiceHandler(NewGroupService(store), required))
	mux.Handle(apiconnect.NewThreadServiceHandler(NewThreadService(store, engine, admins), optional))
	mux.Handle(apiconnect.NewRequestServiceHandler(NewRequestService(store, engine, admins), optional))
	mux.Handle(apiconnect.NewLedgerServiceHandler(NewLedgerService(store, engine), required))

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		store.Close()
	})

	return &testEnv{
		store:   store,
		clock:   clock,
		auth:    apiconnect.NewAuthServiceClient(http.DefaultClient, server.URL),
		groups:  apiconnect.NewGroupServiceClient(http.DefaultClient, server.URL),
		threads: apiconnect.NewThreadServiceClient(http.DefaultClient, server.URL),
		reqs:    apiconnect.NewRequestServiceClient(http.DefaultClient, server.URL),
		ledger:  apiconnect.NewLedgerServiceClient(http.DefaultClient, server.URL),
	}
}

// session is a registered user and their bearer token.
type session struct {
	ID    string
	Token string
}

func (e *testEnv) register(t *testing.T, username string) session {
	t.Helper()
	resp, err := e.auth.Register(context.Background(), connect.NewRequest(&api.RegisterRequest{
		Username: username,
		Password: "password-" + username,
	}))
	require.NoError(t, err)
	return session{ID: resp.Msg.User.ID, Token: resp.Msg.Token}
}

// as builds a request carrying s's token. The zero session is anonymous.
func as[T any](s session, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	if s.Token != "" {
		req.Header().Set("Authorization", "Bearer "+s.Token)
	}
	return req
}

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireCode(t *testing.T, want connect.Code, err error) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, want, connect.CodeOf(err), "error: %v", err)
}

func (e *testEnv) createThread(t *testing.T, owner session, target string, aud api.Audience) *api.Thread {
	t.Helper()
	resp, err := e.threads.CreateThread(context.Background(), as(owner, &api.CreateThreadRequest{
		Title:        "Bike from Sao Paulo to Santos",
		Description:  "Leaving at 6am on Sunday, will post the route.",
		TargetAmount: amt(target),
		Deadline:     "2025-03-06",
		Audience:     aud,
	}))
	require.NoError(t, err)
	return resp.Msg.Thread
}

func (e *testEnv) pledge(t *testing.T, s session, threadID, amount string) *api.PledgeThreadResponse {
	t.Helper()
	resp, err := e.threads.Pledge(context.Background(), as(s, &api.PledgeThreadRequest{
		ThreadID: threadID,
		Amount:   amt(amount),
	}))
	require.NoError(t, err, "pledge %s", amount)
	return resp.Msg
}

func (e *testEnv) createRequest(t *testing.T, owner session, aud api.Audience) *api.ReverseRequest {
	t.Helper()
	resp, err := e.reqs.CreateRequest(context.Background(), as(owner, &api.CreateReverseRequestRequest{
		Title:       "Paint the fence",
		Description: "About 20 meters, white.",
		Audience:    aud,
	}))
	require.NoError(t, err)
	return resp.Msg.Request
}

func (e *testEnv) summary(t *testing.T, s session) *api.GetSummaryResponse {
	t.Helper()
	resp, err := e.ledger.GetSummary(context.Background(), as(s, &api.GetSummaryRequest{}))
	require.NoError(t, err)
	return resp.Msg
}

func TestRegisterAndLogin(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	lucas := env.register(t, "Lucas")

	me, err := env.auth.GetCurrentUser(ctx, as(lucas, &api.GetCurrentUserRequest{}))
	require.NoError(t, err)
	require.Equal(t, "lucas", me.Msg.User.Username)
	require.Equal(t, "lucas", me.Msg.User.DisplayName)
	require.False(t, me.Msg.User.IsAdmin)

	login, err := env.auth.Login(ctx, connect.NewRequest(&api.LoginRequest{Username: "lucas", Password: "password-Lucas"}))
	require.NoError(t, err)
	require.Equal(t, lucas.ID, login.Msg.User.ID)
	require.NotEmpty(t, login.Msg.Token)

	_, err = env.auth.Login(ctx, connect.NewRequest(&api.LoginRequest{Username: "lucas", Password: "wrong-password"}))
	requireCode(t, connect.CodeUnauthenticated, err)

	_, err = env.auth.Register(ctx, connect.NewRequest(&api.RegisterRequest{Username: "LUCAS", Password: "another-password"}))
	requireCode(t, connect.CodeAlreadyExists, err)

	_, err = env.auth.Register(ctx, connect.NewRequest(&api.RegisterRequest{Username: "ana", Password: "short"}))
	requireCode(t, connect.CodeInvalidArgument, err)

	_, err = env.auth.GetCurrentUser(ctx, connect.NewRequest(&api.GetCurrentUserRequest{}))
	requireCode(t, connect.CodeUnauthenticated, err)
}

func TestAdminFlag(t *testing.T) {
	env := setupTestServer(t)

	root := env.register(t, "root")
	me, err := env.auth.GetCurrentUser(context.Background(), as(root, &api.GetCurrentUserRequest{}))
	require.NoError(t, err)
	require.True(t, me.Msg.User.IsAdmin)
}

func TestThreadEndToEnd(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	lucas := env.register(t, "lucas")
	ana := env.register(t, "ana")
	rafa := env.register(t, "rafa")

	thread := env.createThread(t, lucas, "1000", api.Audience{})
	require.Equal(t, "open", thread.Status)
	require.Equal(t, "open", thread.Audience.Mode)
	require.Equal(t, time.Date(2025, 3, 6, 23, 59, 59, 0, time.UTC), thread.Deadline.UTC())
	require.True(t, thread.Remaining.Equal(amt("1000")))

	first := env.pledge(t, ana, thread.ID, "150")
	require.False(t, first.Settled)
	require.True(t, first.Thread.Pledged.Equal(amt("150")))
	require.True(t, first.Thread.Remaining.Equal(amt("850")))

	// Overshooting is rejected, not truncated.
	_, err := env.threads.Pledge(ctx, as(rafa, &api.PledgeThreadRequest{ThreadID: thread.ID, Amount: amt("900")}))
	requireCode(t, connect.CodeInvalidArgument, err)

	env.clock.Advance(time.Minute)
	last := env.pledge(t, rafa, thread.ID, "850")
	require.True(t, last.Settled)
	require.Equal(t, "funded", last.Thread.Status)
	require.True(t, last.Thread.Settled)
	require.False(t, last.Thread.CanPledge)
	require.Len(t, last.Thread.Pledges, 2)
	require.Equal(t, "rafa", last.Thread.Pledges[0].SupporterName)

	_, err = env.threads.Pledge(ctx, as(ana, &api.PledgeThreadRequest{ThreadID: thread.ID, Amount: amt("1")}))
	requireCode(t, connect.CodeFailedPrecondition, err)

	// Settling again is harmless.
	settle, err := env.threads.Settle(ctx, as(lucas, &api.SettleThreadRequest{ThreadID: thread.ID}))
	require.NoError(t, err)
	require.False(t, settle.Msg.Settled)
	require.True(t, settle.Msg.Thread.Settled)

	entries, err := env.ledger.ListEntries(ctx, as(lucas, &api.ListEntriesRequest{}))
	require.NoError(t, err)
	require.Len(t, entries.Msg.Entries, 2)
	for _, e := range entries.Msg.Entries {
		require.Equal(t, "thread", e.DealType)
		require.Equal(t, thread.ID, e.DealID)
		require.Equal(t, lucas.ID, e.PayeeID)
		require.Equal(t, "lucas", e.PayeeName)
		require.Equal(t, "open", e.Status)
		require.True(t, e.CanDeclare)
	}

	sum := env.summary(t, lucas)
	require.True(t, sum.ToReceive.Equal(amt("1000")), sum.ToReceive.String())
	require.True(t, sum.Owed.IsZero())
	require.Len(t, sum.Debts, 2)

	anaSum := env.summary(t, ana)
	require.True(t, anaSum.Owed.Equal(amt("150")))
	require.True(t, anaSum.ToReceive.IsZero())
}

func TestCreateThread_Validation(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	lucas := env.register(t, "lucas")

	valid := func() *api.CreateThreadRequest {
		return &api.CreateThreadRequest{
			Title:        "Run a marathon",
			Description:  "Full 42km.",
			TargetAmount: amt("500"),
			Deadline:     "2025-04-01",
		}
	}

	tests := []struct {
		name   string
		mutate func(*api.CreateThreadRequest)
	}{
		{"empty title", func(r *api.CreateThreadRequest) { r.Title = "  " }},
		{"empty description", func(r *api.CreateThreadRequest) { r.Description = "" }},
		{"zero target", func(r *api.CreateThreadRequest) { r.TargetAmount = decimal.Zero }},
		{"target below one", func(r *api.CreateThreadRequest) { r.TargetAmount = amt("0.50") }},
		{"three decimals", func(r *api.CreateThreadRequest) { r.TargetAmount = amt("10.001") }},
		{"past deadline", func(r *api.CreateThreadRequest) { r.Deadline = "2025-02-28" }},
		{"bad deadline", func(r *api.CreateThreadRequest) { r.Deadline = "next week" }},
		{"unknown audience", func(r *api.CreateThreadRequest) { r.Audience.Mode = "friends" }},
		{"group without id", func(r *api.CreateThreadRequest) { r.Audience.Mode = "group" }},
		{"specific without targets", func(r *api.CreateThreadRequest) { r.Audience.Mode = "specific" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(req)
			_, err := env.threads.CreateThread(ctx, as(lucas, req))
			requireCode(t, connect.CodeInvalidArgument, err)
		})
	}

	_, err := env.threads.CreateThread(ctx, as(session{}, valid()))
	requireCode(t, connect.CodePermissionDenied, err)

	// An RFC 3339 deadline is kept as given.
	req := valid()
	req.Deadline = "2025-03-02T18:30:00Z"
	resp, err := env.threads.CreateThread(ctx, as(lucas, req))
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 3, 2, 18, 30, 0, 0, time.UTC), resp.Msg.Thread.Deadline.UTC())
}

func TestAnonymousReads(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	lucas := env.register(t, "lucas")
	thread := env.createThread(t, lucas, "100", api.Audience{})

	list, err := env.threads.ListThreads(ctx, connect.NewRequest(&api.ListThreadsRequest{}))
	require.NoError(t, err)
	require.Len(t, list.Msg.Threads, 1)
	require.False(t, list.Msg.Threads[0].CanPledge)
	require.False(t, list.Msg.Threads[0].CanDelete)

	got, err := env.threads.GetThread(ctx, connect.NewRequest(&api.GetThreadRequest{ThreadID: thread.ID}))
	require.NoError(t, err)
	require.Equal(t, "lucas", got.Msg.Thread.CreatorName)

	_, err = env.threads.Pledge(ctx, connect.NewRequest(&api.PledgeThreadRequest{ThreadID: thread.ID, Amount: amt("10")}))
	requireCode(t, connect.CodePermissionDenied, err)

	_, err = env.threads.GetThread(ctx, connect.NewRequest(&api.GetThreadRequest{ThreadID: "missing"}))
	requireCode(t, connect.CodeNotFound, err)

	_, err = env.ledger.GetSummary(ctx, connect.NewRequest(&api.GetSummaryRequest{}))
	requireCode(t, connect.CodeUnauthenticated, err)
}

func TestCommitCurrent(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	lucas := env.register(t, "lucas")
	ana := env.register(t, "ana")

	thread := env.createThread(t, lucas, "1000", api.Audience{})
	env.pledge(t, ana, thread.ID, "300")

	view, err := env.threads.GetThread(ctx, as(lucas, &api.GetThreadRequest{ThreadID: thread.ID}))
	require.NoError(t, err)
	require.True(t, view.Msg.Thread.CanCommit)

	_, err = env.threads.CommitCurrent(ctx, as(ana, &api.CommitCurrentRequest{ThreadID: thread.ID}))
	requireCode(t, connect.CodePermissionDenied, err)

	resp, err := env.threads.CommitCurrent(ctx, as(lucas, &api.CommitCurrentRequest{ThreadID: thread.ID}))
	require.NoError(t, err)
	require.True(t, resp.Msg.Settled)
	require.Equal(t, "committed_current", resp.Msg.Thread.Status)
	require.True(t, resp.Msg.Thread.CommittedCurrent)
	require.True(t, resp.Msg.Thread.CommittedAmount.Equal(amt("300")))
	require.False(t, resp.Msg.Thread.CanCommit)

	_, err = env.threads.CommitCurrent(ctx, as(lucas, &api.CommitCurrentRequest{ThreadID: thread.ID}))
	requireCode(t, connect.CodeFailedPrecondition, err)

	sum := env.summary(t, lucas)
	require.True(t, sum.ToReceive.Equal(amt("300")))
}

func TestExpiredThread(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	lucas := env.register(t, "lucas")
	ana := env.register(t, "ana")

	thread := env.createThread(t, lucas, "1000", api.Audience{})
	env.pledge(t, ana, thread.ID, "100")

	env.clock.Advance(6 * 24 * time.Hour)

	got, err := env.threads.GetThread(ctx, as(ana, &api.GetThreadRequest{ThreadID: thread.ID}))
	require.NoError(t, err)
	require.Equal(t, "expired", got.Msg.Thread.Status)
	require.False(t, got.Msg.Thread.CanPledge)
	require.False(t, got.Msg.Thread.Settled)

	_, err = env.threads.Pledge(ctx, as(ana, &api.PledgeThreadRequest{ThreadID: thread.ID, Amount: amt("10")}))
	requireCode(t, connect.CodeFailedPrecondition, err)

	settle, err := env.threads.Settle(ctx, as(lucas, &api.SettleThreadRequest{ThreadID: thread.ID}))
	require.NoError(t, err)
	require.False(t, settle.Msg.Settled)
}

func TestGroupAudience(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	lucas := env.register(t, "lucas")
	ana := env.register(t, "ana")
	rafa := env.register(t, "rafa")

	created, err := env.groups.CreateGroup(ctx, as(lucas, &api.CreateGroupRequest{Name: "Cyclists"}))
	require.NoError(t, err)
	groupID := created.Msg.Group.ID
	require.Len(t, created.Msg.Group.Members, 1)
	require.Equal(t, "accepted", created.Msg.Group.Members[0].Status)

	invited, err := env.groups.InviteMember(ctx, as(lucas, &api.InviteMemberRequest{GroupID: groupID, Username: "Ana"}))
	require.NoError(t, err)
	require.Len(t, invited.Msg.Group.Members, 2)

	_, err = env.groups.InviteMember(ctx, as(ana, &api.InviteMemberRequest{GroupID: groupID, Username: "rafa"}))
	requireCode(t, connect.CodePermissionDenied, err)

	_, err = env.groups.InviteMember(ctx, as(lucas, &api.InviteMemberRequest{GroupID: groupID, Username: "ana"}))
	requireCode(t, connect.CodeAlreadyExists, err)

	thread := env.createThread(t, lucas, "500", api.Audience{Mode: "group", GroupID: groupID})

	// A pending invite does not grant access.
	_, err = env.threads.Pledge(ctx, as(ana, &api.PledgeThreadRequest{ThreadID: thread.ID, Amount: amt("50")}))
	requireCode(t, connect.CodePermissionDenied, err)

	_, err = env.groups.AcceptInvite(ctx, as(ana, &api.AcceptInviteRequest{GroupID: groupID}))
	require.NoError(t, err)

	env.pledge(t, ana, thread.ID, "50")

	_, err = env.threads.Pledge(ctx, as(rafa, &api.PledgeThreadRequest{ThreadID: thread.ID, Amount: amt("50")}))
	requireCode(t, connect.CodePermissionDenied, err)

	rafaView, err := env.threads.GetThread(ctx, as(rafa, &api.GetThreadRequest{ThreadID: thread.ID}))
	require.NoError(t, err)
	require.False(t, rafaView.Msg.Thread.CanPledge)

	_, err = env.groups.GetGroup(ctx, as(rafa, &api.GetGroupRequest{GroupID: groupID}))
	requireCode(t, connect.CodePermissionDenied, err)

	mine, err := env.groups.ListMyGroups(ctx, as(ana, &api.ListMyGroupsRequest{}))
	require.NoError(t, err)
	require.Len(t, mine.Msg.Groups, 1)

	// Only accepted members may open a deal to the group.
	_, err = env.threads.CreateThread(ctx, as(rafa, &api.CreateThreadRequest{
		Title:        "Not my group",
		Description:  "Should fail.",
		TargetAmount: amt("10"),
		Deadline:     "2025-03-10",
		Audience:     api.Audience{Mode: "group", GroupID: groupID},
	}))
	requireCode(t, connect.CodePermissionDenied, err)
}

func TestSpecificAudience(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	lucas := env.register(t, "lucas")
	ana := env.register(t, "ana")
	rafa := env.register(t, "rafa")

	thread := env.createThread(t, lucas, "500", api.Audience{Mode: "specific", TargetUserIDs: []string{ana.ID}})
	require.Equal(t, []string{ana.ID}, thread.Audience.TargetUserIDs)

	env.pledge(t, ana, thread.ID, "50")

	_, err := env.threads.Pledge(ctx, as(rafa, &api.PledgeThreadRequest{ThreadID: thread.ID, Amount: amt("50")}))
	requireCode(t, connect.CodePermissionDenied, err)

	_, err = env.threads.CreateThread(ctx, as(lucas, &api.CreateThreadRequest{
		Title:        "Unknown target",
		Description:  "Should fail.",
		TargetAmount: amt("10"),
		Deadline:     "2025-03-10",
		Audience:     api.Audience{Mode: "specific", TargetUserIDs: []string{"nobody"}},
	}))
	requireCode(t, connect.CodeInvalidArgument, err)
}

func TestReverseRequestFlow(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	lucas := env.register(t, "lucas")
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	carol := env.register(t, "carol")

	rr := env.createRequest(t, lucas, api.Audience{})
	require.Equal(t, "open", rr.Status)
	require.Nil(t, rr.Remaining)
	require.Nil(t, rr.LowestBid)

	_, err := env.reqs.PlaceBid(ctx, as(alice, &api.PlaceBidRequest{RequestID: rr.ID, AskAmount: amt("120")}))
	require.NoError(t, err)

	bid, err := env.reqs.PlaceBid(ctx, as(bob, &api.PlaceBidRequest{RequestID: rr.ID, AskAmount: amt("100")}))
	require.NoError(t, err)
	require.False(t, bid.Msg.Replaced)
	require.Equal(t, bob.ID, bid.Msg.Request.LowestBid.BidderID)
	require.True(t, bid.Msg.Request.Remaining.Equal(amt("100")))
	require.Equal(t, bob.ID, bid.Msg.Request.MyBid.BidderID)

	// Bidding again rewrites the same bid.
	rebid, err := env.reqs.PlaceBid(ctx, as(alice, &api.PlaceBidRequest{RequestID: rr.ID, AskAmount: amt("90")}))
	require.NoError(t, err)
	require.True(t, rebid.Msg.Replaced)
	require.Len(t, rebid.Msg.Request.Bids, 2)
	require.Equal(t, alice.ID, rebid.Msg.Request.LowestBid.BidderID)

	_, err = env.reqs.Pledge(ctx, as(carol, &api.PledgeReverseRequestRequest{RequestID: rr.ID, Amount: amt("100")}))
	requireCode(t, connect.CodeInvalidArgument, err)

	p1, err := env.reqs.Pledge(ctx, as(carol, &api.PledgeReverseRequestRequest{RequestID: rr.ID, Amount: amt("60")}))
	require.NoError(t, err)
	require.False(t, p1.Msg.Settled)
	require.True(t, p1.Msg.Request.Remaining.Equal(amt("30")))

	p2, err := env.reqs.Pledge(ctx, as(lucas, &api.PledgeReverseRequestRequest{RequestID: rr.ID, Amount: amt("30")}))
	require.NoError(t, err)
	require.True(t, p2.Msg.Settled)
	require.Equal(t, "closed", p2.Msg.Request.Status)
	require.Equal(t, rebid.Msg.Request.LowestBid.ID, p2.Msg.Request.WinnerBidID)
	require.True(t, p2.Msg.Request.Settled)
	require.False(t, p2.Msg.Request.CanBid)

	_, err = env.reqs.PlaceBid(ctx, as(bob, &api.PlaceBidRequest{RequestID: rr.ID, AskAmount: amt("10")}))
	requireCode(t, connect.CodeFailedPrecondition, err)

	aliceSum := env.summary(t, alice)
	require.True(t, aliceSum.ToReceive.Equal(amt("90")))

	carolSum := env.summary(t, carol)
	require.True(t, carolSum.Owed.Equal(amt("60")))

	settle, err := env.reqs.Settle(ctx, as(lucas, &api.SettleReverseRequestRequest{RequestID: rr.ID}))
	require.NoError(t, err)
	require.False(t, settle.Msg.Settled)

	list, err := env.reqs.ListRequests(ctx, as(bob, &api.ListReverseRequestsRequest{}))
	require.NoError(t, err)
	require.Len(t, list.Msg.Requests, 1)
	require.Equal(t, bob.ID, list.Msg.Requests[0].MyBid.BidderID)
}

func TestDeclareReceived(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	lucas := env.register(t, "lucas")
	ana := env.register(t, "ana")

	thread := env.createThread(t, lucas, "100", api.Audience{})
	env.pledge(t, ana, thread.ID, "100")

	entries, err := env.ledger.ListEntries(ctx, as(ana, &api.ListEntriesRequest{}))
	require.NoError(t, err)
	require.Len(t, entries.Msg.Entries, 1)
	entry := entries.Msg.Entries[0]
	require.False(t, entry.CanDeclare)

	_, err = env.ledger.DeclareReceived(ctx, as(ana, &api.DeclareReceivedRequest{EntryID: entry.ID}))
	requireCode(t, connect.CodePermissionDenied, err)

	declared, err := env.ledger.DeclareReceived(ctx, as(lucas, &api.DeclareReceivedRequest{EntryID: entry.ID}))
	require.NoError(t, err)
	require.Equal(t, "received_declared", declared.Msg.Entry.Status)
	require.NotNil(t, declared.Msg.Entry.DeclaredAt)
	require.False(t, declared.Msg.Entry.CanDeclare)

	_, err = env.ledger.DeclareReceived(ctx, as(lucas, &api.DeclareReceivedRequest{EntryID: entry.ID}))
	requireCode(t, connect.CodeFailedPrecondition, err)

	_, err = env.ledger.DeclareReceived(ctx, as(lucas, &api.DeclareReceivedRequest{EntryID: "missing"}))
	requireCode(t, connect.CodeNotFound, err)

	sum := env.summary(t, lucas)
	require.True(t, sum.ToReceive.IsZero())
	require.Empty(t, sum.Debts)
}

func TestDeleteDeals(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	lucas := env.register(t, "lucas")
	ana := env.register(t, "ana")
	root := env.register(t, "root")

	thread := env.createThread(t, lucas, "100", api.Audience{})
	env.pledge(t, ana, thread.ID, "100")

	_, err := env.threads.DeleteThread(ctx, as(ana, &api.DeleteThreadRequest{ThreadID: thread.ID}))
	requireCode(t, connect.CodePermissionDenied, err)

	_, err = env.threads.DeleteThread(ctx, as(lucas, &api.DeleteThreadRequest{ThreadID: thread.ID}))
	require.NoError(t, err)

	_, err = env.threads.GetThread(ctx, as(lucas, &api.GetThreadRequest{ThreadID: thread.ID}))
	requireCode(t, connect.CodeNotFound, err)

	sum := env.summary(t, ana)
	require.True(t, sum.Owed.IsZero())

	rr := env.createRequest(t, lucas, api.Audience{})
	view, err := env.reqs.GetRequest(ctx, as(root, &api.GetReverseRequestRequest{RequestID: rr.ID}))
	require.NoError(t, err)
	require.True(t, view.Msg.Request.CanDelete)

	_, err = env.reqs.DeleteRequest(ctx, as(root, &api.DeleteReverseRequestRequest{RequestID: rr.ID}))
	require.NoError(t, err)

	_, err = env.reqs.GetRequest(ctx, as(root, &api.GetReverseRequestRequest{RequestID: rr.ID}))
	requireCode(t, connect.CodeNotFound, err)
}

func TestConcurrentPledgesSettleOnce(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	lucas := env.register(t, "lucas")
	thread := env.createThread(t, lucas, "100", api.Audience{})

	supporters := make([]session, 10)
	for i := range supporters {
		supporters[i] = env.register(t, fmt.Sprintf("supporter%d", i))
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	settledCount := 0
	for _, s := range supporters {
		wg.Add(1)
		go func(s session) {
			defer wg.Done()
			resp, err := env.threads.Pledge(ctx, as(s, &api.PledgeThreadRequest{ThreadID: thread.ID, Amount: amt("10")}))
			if err != nil {
				return
			}
			if resp.Msg.Settled {
				mu.Lock()
				settledCount++
				mu.Unlock()
			}
		}(s)
	}
	wg.Wait()

	require.Equal(t, 1, settledCount)

	entries, err := env.ledger.ListEntries(ctx, as(lucas, &api.ListEntriesRequest{}))
	require.NoError(t, err)
	require.Len(t, entries.Msg.Entries, 10)
}
