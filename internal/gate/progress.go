package gate

import (
	"context"
	"log/slog"
	"time"

	"github.com/playperu/huntgate/internal/hunt"
)

// ProgressInitializer guarantees one progress record per active stop and
// applies completion and hint events. Records are keyed by stop identity,
// never by position.
type ProgressInitializer struct {
	config   ConfigStore
	progress ProgressStore
	now      func() time.Time
	logger   *slog.Logger
}

func NewProgressInitializer(config ConfigStore, progress ProgressStore, now func() time.Time, logger *slog.Logger) *ProgressInitializer {
	if now == nil {
		now = time.Now
	}
	return &ProgressInitializer{config: config, progress: progress, now: now, logger: logger}
}

// Initialize inserts a not-done, zero-hint record for each active stop that
// lacks one. Existing records are left untouched.
func (p *ProgressInitializer) Initialize(ctx context.Context, teamID, orgID, huntID string) error {
	stops, err := p.config.ActiveStops(ctx, orgID, huntID)
	if err != nil {
		return storageError("loading stops", err)
	}
	n, err := p.progress.EnsureProgress(ctx, teamID, stopIDs(stops))
	if err != nil {
		return storageError("initializing progress", err)
	}
	if n > 0 {
		p.logger.InfoContext(ctx, "initialized progress", "team_id", teamID, "created", n)
	}
	return nil
}

// Progress returns the team's records keyed by stop id.
func (p *ProgressInitializer) Progress(ctx context.Context, teamID string) (map[string]hunt.ProgressRecord, error) {
	records, err := p.progress.TeamProgress(ctx, teamID)
	if err != nil {
		return nil, storageError("loading progress", err)
	}
	byStop := make(map[string]hunt.ProgressRecord, len(records))
	for _, r := range records {
		byStop[r.StopID] = r
	}
	return byStop, nil
}

// Complete marks a stop done. Completing an already-done stop keeps the
// first completion time.
func (p *ProgressInitializer) Complete(ctx context.Context, teamID, orgID, huntID, stopID, photoRef string) (hunt.ProgressRecord, error) {
	if _, err := p.activeStop(ctx, orgID, huntID, stopID); err != nil {
		return hunt.ProgressRecord{}, err
	}
	rec, err := p.progress.CompleteStop(ctx, teamID, stopID, photoRef, p.now().UTC())
	if err != nil {
		return hunt.ProgressRecord{}, storageError("completing stop", err)
	}
	return rec, nil
}

// RevealHint reveals the next hint of a stop and returns it along with the
// updated record. When every hint is already revealed the last one is
// returned again.
func (p *ProgressInitializer) RevealHint(ctx context.Context, teamID, orgID, huntID, stopID string) (string, hunt.ProgressRecord, error) {
	stop, err := p.activeStop(ctx, orgID, huntID, stopID)
	if err != nil {
		return "", hunt.ProgressRecord{}, err
	}
	if len(stop.Hints) == 0 {
		return "", hunt.ProgressRecord{}, hunt.NewError(hunt.CodeNotFound, "stop has no hints")
	}
	rec, err := p.progress.RevealHint(ctx, teamID, stopID, len(stop.Hints))
	if err != nil {
		return "", hunt.ProgressRecord{}, storageError("revealing hint", err)
	}
	return stop.Hints[rec.HintsRevealed-1], rec, nil
}

// Leaderboard returns completion counts per team, most completed first.
func (p *ProgressInitializer) Leaderboard(ctx context.Context, orgID, huntID string) ([]hunt.TeamStanding, error) {
	standings, err := p.progress.Leaderboard(ctx, orgID, huntID)
	if err != nil {
		return nil, storageError("loading leaderboard", err)
	}
	return standings, nil
}

func (p *ProgressInitializer) activeStop(ctx context.Context, orgID, huntID, stopID string) (hunt.Stop, error) {
	stops, err := p.config.ActiveStops(ctx, orgID, huntID)
	if err != nil {
		return hunt.Stop{}, storageError("loading stops", err)
	}
	for _, s := range stops {
		if s.ID == stopID {
			return s, nil
		}
	}
	return hunt.Stop{}, hunt.NewError(hunt.CodeNotFound, "stop is not active in this hunt")
}
