// Package seed fills an empty database with a small demo.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/pledgeboard/internal/calculator"
	"github.com/mmynk/pledgeboard/internal/models"
	"github.com/mmynk/pledgeboard/internal/settlement"
	"github.com/mmynk/pledgeboard/internal/storage"
)

// DemoPassword is the password of every demo account.
const DemoPassword = "pledgeboard-demo"

// Registrar creates accounts.
type Registrar interface {
	Register(ctx context.Context, username, displayName, credential string) (*models.User, error)
}

type demoPledge struct {
	username string
	amount   string
	age      time.Duration
}

// The demo thread looks like it has been open for a while.
var (
	demoThreadAge = 2 * time.Hour
	demoPledges   = []demoPledge{
		{username: "ana", amount: "150", age: 90 * time.Minute},
		{username: "rafa", amount: "200", age: 3100 * time.Second},
	}
)

// Demo creates the users lucas, ana and rafa and one open thread by lucas
// with pledges from the other two. It does nothing unless the database has
// no threads, and reports whether it seeded.
func Demo(ctx context.Context, store storage.Store, accounts Registrar, engine *settlement.Engine) (bool, error) {
	threads, err := store.ListThreads(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list threads: %w", err)
	}
	if len(threads) > 0 {
		slog.Info("Database already has threads, skipping demo seed", "threads", len(threads))
		return false, nil
	}

	users := make(map[string]*models.User)
	for _, u := range []struct{ username, name string }{
		{"lucas", "Lucas"},
		{"ana", "Ana"},
		{"rafa", "Rafa"},
	} {
		user, err := store.GetUserByUsername(ctx, u.username)
		if err != nil {
			user, err = accounts.Register(ctx, u.username, u.name, DemoPassword)
		}
		if err != nil {
			return false, fmt.Errorf("failed to create demo user %s: %w", u.username, err)
		}
		users[u.username] = user
	}

	now := engine.Now()
	deadline := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, time.UTC).AddDate(0, 0, 5)
	thread := &models.Thread{
		CreatorID:    users["lucas"].ID,
		Title:        "Vou de Sao Paulo a Santos de bike",
		Description:  "Saio as 6h da manha no domingo e posto comprovacao do trajeto.",
		TargetAmount: decimal.NewFromInt(1000),
		Deadline:     deadline,
		Audience:     models.Audience{Mode: models.AudienceOpen},
		CreatedAt:    now.Add(-demoThreadAge),
	}
	if err := store.CreateThread(ctx, thread); err != nil {
		return false, fmt.Errorf("failed to create demo thread: %w", err)
	}

	// Pledges are written with their backdated timestamps directly; the
	// engine would stamp them with the current time.
	for _, p := range demoPledges {
		amount := decimal.RequireFromString(p.amount)
		pledge := &models.Pledge{
			DealType:    models.DealThread,
			DealID:      thread.ID,
			SupporterID: users[p.username].ID,
			Amount:      amount,
			CreatedAt:   now.Add(-p.age),
		}
		err := store.AddThreadPledge(ctx, pledge, func(current *models.Thread) error {
			return calculator.CheckThreadPledge(current, amount, now)
		})
		if err != nil {
			return false, fmt.Errorf("failed to pledge as %s: %w", p.username, err)
		}
	}
	if _, err := engine.SettleThread(ctx, thread.ID); err != nil {
		return false, err
	}

	slog.Info("Demo data seeded", "thread_id", thread.ID)
	return true, nil
}
