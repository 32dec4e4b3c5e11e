package lifecycle

import "context"

// Report summarizes one bulk refresh run.
type Report struct {
	Processed int
	Failures  map[string]error
}

// Failed returns how many accounts ended in an error.
func (r Report) Failed() int { return len(r.Failures) }

// OK reports whether every processed account ended with a validated token.
func (r Report) OK() bool { return len(r.Failures) == 0 }

// RefreshAll resolves a token for every registered account, one at a time.
// A failing account is recorded in the report and never aborts the rest of
// the batch; nothing is retried within a single run.
func (m *Manager) RefreshAll(ctx context.Context) Report {
	accountIDs := m.registry.AccountIDs()
	m.logger.Info().Int("accounts", len(accountIDs)).Msg("🔄 Refreshing tokens for all accounts...")

	report := Report{Failures: make(map[string]error)}
	for _, accountID := range accountIDs {
		report.Processed++
		if _, err := m.ResolveToken(ctx, accountID); err != nil {
			m.logger.Error().Err(err).Str("account", accountID).Msg("❌ Account refresh failed")
			report.Failures[accountID] = err
			continue
		}
		m.logger.Info().Str("account", accountID).Msg("✅ Account token verified")
	}

	m.logger.Info().
		Int("processed", report.Processed).
		Int("failed", report.Failed()).
		Msg("Bulk refresh finished")
	return report
}
