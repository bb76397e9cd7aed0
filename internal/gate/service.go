package gate

import (
	"context"
	"log/slog"
	"time"

	"github.com/playperu/huntgate/internal/hunt"
	"github.com/playperu/huntgate/internal/token"
)

// Tokens issues and verifies lock tokens.
type Tokens interface {
	Issue(sub token.Subject, ttl time.Duration) (string, time.Time, error)
	Verify(raw string) (hunt.LockClaims, error)
}

// Fingerprints hashes raw device fingerprints for embedding in tokens.
type Fingerprints interface {
	Hash(fingerprint string) string
}

// Event is a progress notification for live clients of a team.
type Event struct {
	Type          string `json:"type"`
	StopID        string `json:"stopId,omitempty"`
	HintsRevealed int    `json:"hintsRevealed,omitempty"`
}

// Publisher fans out events to live subscribers. It is never read back as
// state.
type Publisher interface {
	Publish(teamID string, event Event)
}

// Admission is the result of a successful verify.
type Admission struct {
	LockToken  string
	TTLSeconds int
	ExpiresAt  time.Time
	TeamID     string
	OrgID      string
	HuntID     string
}

// OrderedStop is one stop as shown to a team.
type OrderedStop struct {
	StopID    string
	Title     string
	Clue      string
	Hints     []string
	HintCount int
	Position  int
	Completed bool
}

type Config struct {
	LockTTL time.Duration
	Now     func() time.Time
}

// Service wires the admission flow: code -> device lock -> token -> order
// -> progress. Each step is idempotent, so a retried verify after a partial
// failure converges on the same state.
type Service struct {
	verifier *CodeVerifier
	binder   *DeviceBinder
	ordering *OrderingEngine
	progress *ProgressInitializer
	config   ConfigStore
	tokens   Tokens
	hasher   Fingerprints
	events   Publisher
	lockTTL  time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// Stores groups the storage collaborators of a Service.
type Stores struct {
	Codes    CodeStore
	Locks    LockStore
	Config   ConfigStore
	Orders   OrderStore
	Progress ProgressStore
}

func NewService(cfg Config, stores Stores, tokens Tokens, hasher Fingerprints, events Publisher, logger *slog.Logger) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	if events == nil {
		events = nopPublisher{}
	}
	return &Service{
		verifier: NewCodeVerifier(stores.Codes, logger),
		binder:   NewDeviceBinder(stores.Locks, now, logger),
		ordering: NewOrderingEngine(stores.Config, stores.Orders, logger),
		progress: NewProgressInitializer(stores.Config, stores.Progress, now, logger),
		config:   stores.Config,
		tokens:   tokens,
		hasher:   hasher,
		events:   events,
		lockTTL:  cfg.LockTTL,
		now:      now,
		logger:   logger,
	}
}

func (s *Service) Binder() *DeviceBinder { return s.binder }

// Verify admits a device to the team behind code.
func (s *Service) Verify(ctx context.Context, code, fingerprint string, scope Scope) (Admission, error) {
	res, err := s.verifier.Verify(ctx, code, scope)
	if err != nil {
		return Admission{}, err
	}

	binding, err := s.binder.Bind(ctx, fingerprint, res.TeamID, s.lockTTL)
	if err != nil {
		return Admission{}, err
	}

	// Lock expiries sit on whole seconds, so the token's rounded exp lands
	// exactly on the lock's and never outlives it.
	now := s.now().UTC()
	ttl := binding.ExpiresAt.Sub(now)
	if ttl <= 0 {
		ttl = time.Millisecond
	}
	raw, exp, err := s.tokens.Issue(token.Subject{
		TeamID:          res.TeamID,
		OrgID:           res.OrgID,
		HuntID:          res.HuntID,
		FingerprintHash: s.hasher.Hash(fingerprint),
	}, ttl)
	if err != nil {
		return Admission{}, hunt.WrapError(hunt.CodeUnknown, "issuing lock token", err)
	}

	if _, err := s.ordering.Order(ctx, res.TeamID, res.OrgID, res.HuntID); err != nil {
		return Admission{}, err
	}
	if err := s.progress.Initialize(ctx, res.TeamID, res.OrgID, res.HuntID); err != nil {
		return Admission{}, err
	}

	s.logger.InfoContext(ctx, "device admitted",
		"team_id", res.TeamID,
		"org_id", res.OrgID,
		"hunt_id", res.HuntID,
		"new_lock", binding.Created,
	)

	return Admission{
		LockToken:  raw,
		TTLSeconds: max(int(exp.Sub(now)/time.Second), 1),
		ExpiresAt:  exp,
		TeamID:     res.TeamID,
		OrgID:      res.OrgID,
		HuntID:     res.HuntID,
	}, nil
}

// CurrentTeam verifies a lock token. It does not re-check the device lock.
func (s *Service) CurrentTeam(raw string) (hunt.LockClaims, error) {
	return s.tokens.Verify(raw)
}

// OrderedStops returns the team's stops in its order with completion state.
func (s *Service) OrderedStops(ctx context.Context, claims hunt.LockClaims, orgID, teamID, huntID string) ([]OrderedStop, error) {
	if err := authorize(claims, orgID, teamID, huntID); err != nil {
		return nil, err
	}

	order, err := s.ordering.Order(ctx, teamID, orgID, huntID)
	if err != nil {
		return nil, err
	}
	// Covers stops added since the team was admitted.
	if err := s.progress.Initialize(ctx, teamID, orgID, huntID); err != nil {
		return nil, err
	}
	records, err := s.progress.Progress(ctx, teamID)
	if err != nil {
		return nil, err
	}
	stops, err := s.config.ActiveStops(ctx, orgID, huntID)
	if err != nil {
		return nil, storageError("loading stops", err)
	}
	byID := make(map[string]hunt.Stop, len(stops))
	for _, st := range stops {
		byID[st.ID] = st
	}

	out := make([]OrderedStop, 0, len(order))
	for _, p := range order {
		st, ok := byID[p.StopID]
		if !ok {
			continue
		}
		rec := records[p.StopID]
		revealed := min(rec.HintsRevealed, len(st.Hints))
		out = append(out, OrderedStop{
			StopID:    st.ID,
			Title:     st.Title,
			Clue:      st.Clue,
			Hints:     append([]string{}, st.Hints[:revealed]...),
			HintCount: len(st.Hints),
			Position:  p.Position,
			Completed: rec.Done,
		})
	}
	return out, nil
}

// CompleteStop records a stop completion for the token's team.
func (s *Service) CompleteStop(ctx context.Context, claims hunt.LockClaims, orgID, teamID, huntID, stopID, photoRef string) (hunt.ProgressRecord, error) {
	if err := authorize(claims, orgID, teamID, huntID); err != nil {
		return hunt.ProgressRecord{}, err
	}
	rec, err := s.progress.Complete(ctx, teamID, orgID, huntID, stopID, photoRef)
	if err != nil {
		return hunt.ProgressRecord{}, err
	}
	s.events.Publish(teamID, Event{Type: "stop_completed", StopID: stopID})
	return rec, nil
}

// RevealHint reveals the next hint of a stop for the token's team.
func (s *Service) RevealHint(ctx context.Context, claims hunt.LockClaims, orgID, teamID, huntID, stopID string) (string, hunt.ProgressRecord, error) {
	if err := authorize(claims, orgID, teamID, huntID); err != nil {
		return "", hunt.ProgressRecord{}, err
	}
	hint, rec, err := s.progress.RevealHint(ctx, teamID, orgID, huntID, stopID)
	if err != nil {
		return "", hunt.ProgressRecord{}, err
	}
	s.events.Publish(teamID, Event{Type: "hint_revealed", StopID: stopID, HintsRevealed: rec.HintsRevealed})
	return hint, rec, nil
}

func (s *Service) Leaderboard(ctx context.Context, orgID, huntID string) ([]hunt.TeamStanding, error) {
	return s.progress.Leaderboard(ctx, orgID, huntID)
}

func authorize(claims hunt.LockClaims, orgID, teamID, huntID string) error {
	if claims.TeamID != teamID || claims.OrgID != orgID || claims.HuntID != huntID {
		return hunt.NewError(hunt.CodeTokenInvalid, "lock token does not grant access to this team")
	}
	return nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, Event) {}
