package moderation

import (
	"context"
	"fmt"
	"time"

	"chatguard/internal/audit"
	"chatguard/internal/config"
	"chatguard/internal/storage"
	"chatguard/internal/telemetry"

	"go.uber.org/zap"
)

const (
	EventReportCreated  = "report.created"
	EventAccountFlagged = "account.flagged"
	EventMessageFlagged = "message.flagged"
)

// BridgeGateway is the federation-side collaborator: resolving a local room
// to its external handle and banning a bridged identity there. Bans are
// invoked at-least-once; the gateway must tolerate repeats.
type BridgeGateway interface {
	ResolveExternalRoomHandle(ctx context.Context, roomID string) (string, error)
	BanIdentity(ctx context.Context, handle, externalID, reason string) error
}

// Actuator turns crossed thresholds into side effects: native suspension,
// bridge bans, message removal, and history purges. It re-derives the
// threshold comparison on every call rather than checking prior state, so
// the end state is idempotent even though the calls themselves are not
// deduplicated under concurrent triggering.
type Actuator struct {
	cfg    config.ModerationConfig
	store  *storage.Store
	scores *Aggregator
	bridge BridgeGateway
	sink   telemetry.Sink
	audit  *audit.Logger
	logger *zap.Logger
	clock  Clock
}

func NewActuator(cfg config.ModerationConfig, store *storage.Store, scores *Aggregator, bridge BridgeGateway, sink telemetry.Sink, auditLogger *audit.Logger, logger *zap.Logger) *Actuator {
	return &Actuator{
		cfg:    cfg,
		store:  store,
		scores: scores,
		bridge: bridge,
		sink:   sink,
		audit:  auditLogger,
		logger: logger,
		clock:  realClock{},
	}
}

func (a *Actuator) WithClock(clock Clock) {
	a.clock = clock
}

// CheckUser evaluates the user-level threshold for the reported target and,
// when crossed, executes exactly one branch matching the target's kind.
// roomID is the room of the reported message; the virtual branch needs it to
// resolve the external room handle.
func (a *Actuator) CheckUser(ctx context.Context, target Target, roomID string) error {
	sum, err := a.scores.SumForTarget(ctx, target)
	if err != nil {
		return fmt.Errorf("summing reports for %s: %w", target, err)
	}
	if sum < a.cfg.BadUserThreshold {
		return nil
	}

	a.sink.Emit(ctx, EventAccountFlagged, map[string]any{"target": target.String(), "score": sum})

	created, err := a.creationTime(ctx, target)
	if err != nil {
		return fmt.Errorf("deriving creation time for %s: %w", target, err)
	}
	purge := a.clock.Now().Sub(created) < a.cfg.NewAccountClearWindow()

	switch target.Kind {
	case TargetVirtual:
		return a.banVirtual(ctx, target, roomID, purge)
	default:
		return a.suspendNative(ctx, target.AccountID, purge)
	}
}

// CheckMessage evaluates the message-level threshold, independent of the
// user-level outcome. A message can be removed without its author being
// suspended, and vice versa.
func (a *Actuator) CheckMessage(ctx context.Context, messageID, roomID string) error {
	sum, err := a.scores.SumForMessage(ctx, messageID)
	if err != nil {
		return fmt.Errorf("summing reports for message %s: %w", messageID, err)
	}
	if sum < a.cfg.BadMessageThreshold {
		return nil
	}

	a.sink.Emit(ctx, EventMessageFlagged, map[string]any{"message_id": messageID, "score": sum})

	if err := a.store.DeleteMessage(ctx, roomID, messageID); err != nil {
		return fmt.Errorf("deleting message %s: %w", messageID, err)
	}
	a.audit.Log(ctx, audit.LevelWarn, roomID, "", "message_removed", fmt.Sprintf("score %.1f over threshold", sum))
	return nil
}

// Suspend is the shared native-account suspension primitive. The spam
// classifier uses it directly, without any history purge.
func (a *Actuator) Suspend(ctx context.Context, accountID string) error {
	if err := a.store.SetSuspended(ctx, accountID, true); err != nil {
		return fmt.Errorf("suspending account %s: %w", accountID, err)
	}
	a.audit.Log(ctx, audit.LevelCrit, "", accountID, "account_suspended", "")
	return nil
}

func (a *Actuator) suspendNative(ctx context.Context, accountID string, purge bool) error {
	if err := a.Suspend(ctx, accountID); err != nil {
		return err
	}
	if purge {
		if err := a.store.DeleteMessagesByAccount(ctx, accountID); err != nil {
			return fmt.Errorf("purging messages for account %s: %w", accountID, err)
		}
		a.audit.Log(ctx, audit.LevelWarn, "", accountID, "history_purged", "new account inside clear window")
	}
	return nil
}

func (a *Actuator) banVirtual(ctx context.Context, target Target, roomID string, purge bool) error {
	handle, err := a.bridge.ResolveExternalRoomHandle(ctx, roomID)
	if err != nil {
		return fmt.Errorf("resolving external handle for room %s: %w", roomID, err)
	}
	if err := a.bridge.BanIdentity(ctx, handle, target.ExternalID, "abuse reports over threshold"); err != nil {
		return fmt.Errorf("banning %s: %w", target, err)
	}
	a.audit.Log(ctx, audit.LevelCrit, roomID, target.ExternalID, "virtual_identity_banned", target.String())

	if purge {
		if err := a.store.DeleteMessagesByVirtualIdentity(ctx, target.Provider, target.ExternalID); err != nil {
			return fmt.Errorf("purging messages for %s: %w", target, err)
		}
		a.audit.Log(ctx, audit.LevelWarn, "", target.ExternalID, "history_purged", target.String())
	}
	return nil
}

// creationTime derives how old the target is. Native accounts carry their
// own creation timestamp; virtual identities are dated by their earliest
// known message on this platform.
func (a *Actuator) creationTime(ctx context.Context, target Target) (time.Time, error) {
	if target.Kind == TargetVirtual {
		msg, err := a.store.EarliestMessageForVirtualIdentity(ctx, target.Provider, target.ExternalID)
		if err != nil {
			return time.Time{}, err
		}
		return msg.SentAt, nil
	}
	return a.store.CreationTimestamp(ctx, target.AccountID)
}
