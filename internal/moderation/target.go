package moderation

import (
	"fmt"

	"chatguard/internal/storage"
)

type TargetKind int

const (
	// TargetNative is an account created on this platform.
	TargetNative TargetKind = iota
	// TargetVirtual is an identity relayed in through the federation
	// bridge. It has no locally suspendable account.
	TargetVirtual
)

// Target identifies who a report or classification concerns. Native and
// virtual targets are never cross-matched: two virtual identities relayed
// through the same underlying account remain distinct targets.
type Target struct {
	Kind       TargetKind
	AccountID  string
	Provider   string
	ExternalID string
}

func NativeTarget(accountID string) Target {
	return Target{Kind: TargetNative, AccountID: accountID}
}

func VirtualTarget(provider, externalID string) Target {
	return Target{Kind: TargetVirtual, Provider: provider, ExternalID: externalID}
}

// TargetForMessage derives the moderation target from a message's author:
// the bridged identity when present, the native account otherwise.
func TargetForMessage(msg storage.Message) Target {
	if msg.IsVirtual() {
		return VirtualTarget(msg.VirtualProvider, msg.VirtualExternalID)
	}
	return NativeTarget(msg.AccountID)
}

func (t Target) String() string {
	if t.Kind == TargetVirtual {
		return fmt.Sprintf("virtual:%s/%s", t.Provider, t.ExternalID)
	}
	return fmt.Sprintf("native:%s", t.AccountID)
}
