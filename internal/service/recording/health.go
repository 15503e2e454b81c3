package recording

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// RefreshHealth probes the backend and records the result. Concurrent callers
// share one probe, so it runs detached from any single caller's cancellation and
// is bounded by the client's own health timeout.
func (m *Manager) RefreshHealth(ctx context.Context) bool {
	probeCtx := context.WithoutCancel(ctx)
	v, _, _ := m.health.Do("health", func() (any, error) {
		return m.client.HealthCheck(probeCtx), nil
	})
	online := v.(bool)

	m.mu.Lock()
	changed := !m.healthChecked || m.online != online
	m.online = online
	m.healthChecked = true
	snap := m.snapshotLocked()
	m.mu.Unlock()

	if changed {
		log.Info().Str("component", "recording").Bool("online", online).Msg("backend health changed")
		m.publish(EventHealth, snap, nil)
	}
	return online
}

// MonitorHealth re-probes the backend every interval until ctx is done.
func (m *Manager) MonitorHealth(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.RefreshHealth(ctx)
		}
	}
}
