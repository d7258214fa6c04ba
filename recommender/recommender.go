package recommender

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/gdg-paro/eventsync/model"
)

// ErrSuperseded is returned when the same client issued a newer
// recommendation request before this one finished. The caller should drop
// the result; the newest request's outcome is the one to display.
var ErrSuperseded = errors.New("recommendation request superseded by a newer one")

// EventRepository provides the full event corpus for recommendation requests.
type EventRepository interface {
	FindEvents(ctx context.Context) ([]*model.Event, error)
}

// Oracle turns a free-text interest description and the event corpus into
// scored suggestions.
type Oracle interface {
	GetRecommendations(ctx context.Context, interests string, events []*model.Event) ([]model.Recommendation, error)
}

// Recommender orchestrates one recommendation request: validate interests,
// fetch the corpus, delegate to the oracle. Oracle failures are absorbed
// here so a flaky third-party service can never take the caller down;
// repository failures propagate because the user's own data could not be
// read.
type Recommender struct {
	repo   EventRepository
	oracle Oracle
	logger *zap.Logger

	// Latest request sequence per client session. Staleness only means
	// anything within one client's stream of requests, so the sequences are
	// scoped by session id; one client's request can never supersede
	// another's.
	mu       sync.Mutex
	sessions map[string]uint64
}

func New(repo EventRepository, oracle Oracle, logger *zap.Logger) *Recommender {
	return &Recommender{
		repo:     repo,
		oracle:   oracle,
		logger:   logger,
		sessions: map[string]uint64{},
	}
}

// RequestRecommendations runs the pipeline for one user-triggered request.
// sessionID identifies the requesting client; requests within the same
// session supersede each other (the last issued wins, earlier ones return
// ErrSuperseded), while an empty sessionID opts out of supersede tracking
// entirely. Blank interests are a no-op: nothing is fetched and no oracle
// call is made. On oracle failure the result is an empty, non-nil slice and
// a nil error; the failure itself is logged.
func (r *Recommender) RequestRecommendations(ctx context.Context, sessionID, interests string) ([]model.Recommendation, error) {
	interests = strings.TrimSpace(interests)
	if interests == "" {
		return nil, nil
	}

	var requestID uint64
	if sessionID != "" {
		requestID = r.beginRequest(sessionID)
	}

	events, err := r.repo.FindEvents(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "fetching events for recommendations")
	}

	recommendations, err := r.oracle.GetRecommendations(ctx, interests, events)
	if err != nil {
		r.logger.Error("error fetching recommendations",
			zap.String("sessionId", sessionID),
			zap.Uint64("requestId", requestID),
			zap.Error(err),
		)
		return []model.Recommendation{}, nil
	}

	if sessionID != "" && r.latestRequest(sessionID) != requestID {
		r.logger.Info("discarding stale recommendation response",
			zap.String("sessionId", sessionID),
			zap.Uint64("requestId", requestID),
		)
		return nil, ErrSuperseded
	}

	return recommendations, nil
}

func (r *Recommender) beginRequest(sessionID string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID]++
	return r.sessions[sessionID]
}

func (r *Recommender) latestRequest(sessionID string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[sessionID]
}
