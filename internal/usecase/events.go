package usecase

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/perkwell/payout/internal/domain/model"
)

// ChangePublisher fans row mutations out to the realtime change feed.
type ChangePublisher interface {
	Publish(ctx context.Context, ev model.ChangeEvent) error
}

// NopPublisher discards events; used when no feed transport is wired.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, model.ChangeEvent) error { return nil }

// PublishChange marshals the before/after snapshots and publishes the
// event best effort; delivery losses are covered by the reconciliation
// poll, so a publish failure only warns.
func PublishChange(ctx context.Context, p ChangePublisher, logger *slog.Logger, table string, kind model.ChangeKind, old, now any) {
	ev := model.ChangeEvent{Table: table, Kind: kind}
	if old != nil {
		if b, err := json.Marshal(old); err == nil {
			ev.Old = b
		}
	}
	if now != nil {
		if b, err := json.Marshal(now); err == nil {
			ev.New = b
		}
	}
	if err := p.Publish(ctx, ev); err != nil {
		logger.Warn("publish change event failed",
			slog.String("table", table),
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
		)
	}
}
