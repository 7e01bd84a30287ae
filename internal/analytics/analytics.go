package analytics

import (
	"context"
	"time"

	"chatguard/internal/storage"
)

type Service struct {
	store *storage.Store
}

func New(store *storage.Store) *Service {
	return &Service{store: store}
}

type Summary struct {
	Total   int            `json:"total"`
	ByLevel map[string]int `json:"by_level"`
	ByEvent map[string]int `json:"by_event"`
}

// Summary aggregates the audit trail since the given time: how many
// moderation actions fired, at which levels, of which kinds.
func (s *Service) Summary(ctx context.Context, since time.Time) (Summary, error) {
	logs, err := s.store.ListAuditLogs(ctx, since)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{ByLevel: make(map[string]int), ByEvent: make(map[string]int)}
	for _, log := range logs {
		summary.Total++
		summary.ByLevel[log.Level]++
		summary.ByEvent[log.Event]++
	}
	return summary, nil
}
