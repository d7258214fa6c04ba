package recommender

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gdg-paro/eventsync/model"
)

type stubRepo struct {
	events []*model.Event
	err    error
	calls  int
}

func (r *stubRepo) FindEvents(ctx context.Context) ([]*model.Event, error) {
	r.calls++
	return r.events, r.err
}

type stubOracle struct {
	recommendations []model.Recommendation
	err             error
	calls           int
	gotInterests    string
	gotEvents       []*model.Event

	// onCall, when set, runs before the stub returns. Used to interleave a
	// second request while the first is still in flight.
	onCall func()
}

func (o *stubOracle) GetRecommendations(ctx context.Context, interests string, events []*model.Event) ([]model.Recommendation, error) {
	o.calls++
	o.gotInterests = interests
	o.gotEvents = events
	if o.onCall != nil {
		o.onCall()
	}
	return o.recommendations, o.err
}

func corpus() []*model.Event {
	return []*model.Event{
		{ID: "1", Title: "AI Workshop", Department: "Computer Science", Date: "2025-03-01", Tags: []string{"technology", "AI"}},
		{ID: "2", Title: "Soccer Match", Department: "Student Life", Date: "2025-03-02", Tags: []string{"Sports"}},
	}
}

func TestRequestRecommendations_BlankInterestsIsNoOp(t *testing.T) {
	for _, interests := range []string{"", "   ", "\n\t"} {
		repo := &stubRepo{events: corpus()}
		oracle := &stubOracle{}
		r := New(repo, oracle, zap.NewNop())

		recs, err := r.RequestRecommendations(context.Background(), "ui-1", interests)

		require.NoError(t, err)
		assert.Nil(t, recs)
		assert.Zero(t, repo.calls, "repository must not be touched")
		assert.Zero(t, oracle.calls, "oracle must not be called")
	}
}

func TestRequestRecommendations_PassesCorpusAndTrimmedInterests(t *testing.T) {
	repo := &stubRepo{events: corpus()}
	want := []model.Recommendation{{Title: "AI Workshop", Reason: "ML match", Score: 92}}
	oracle := &stubOracle{recommendations: want}
	r := New(repo, oracle, zap.NewNop())

	recs, err := r.RequestRecommendations(context.Background(), "ui-1", "  I like AI and machine learning  ")

	require.NoError(t, err)
	assert.Equal(t, want, recs)
	assert.Equal(t, "I like AI and machine learning", oracle.gotInterests)
	assert.Equal(t, repo.events, oracle.gotEvents)
}

func TestRequestRecommendations_RepositoryErrorPropagates(t *testing.T) {
	repo := &stubRepo{err: errors.New("connection reset")}
	oracle := &stubOracle{}
	r := New(repo, oracle, zap.NewNop())

	recs, err := r.RequestRecommendations(context.Background(), "ui-1", "anything")

	require.Error(t, err)
	assert.Nil(t, recs)
	assert.Zero(t, oracle.calls, "oracle must not be called when the corpus fetch fails")
}

func TestRequestRecommendations_OracleFailureYieldsEmptyResult(t *testing.T) {
	repo := &stubRepo{events: corpus()}
	oracle := &stubOracle{err: errors.New("model output is not a JSON recommendation array")}
	r := New(repo, oracle, zap.NewNop())

	recs, err := r.RequestRecommendations(context.Background(), "ui-1", "anything")

	require.NoError(t, err, "oracle failures are absorbed at the pipeline boundary")
	require.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestRequestRecommendations_StaleResponseDiscardedWithinSession(t *testing.T) {
	repo := &stubRepo{events: corpus()}
	fresh := []model.Recommendation{{Title: "Fresh", Score: 90}}

	var r *Recommender
	first := &stubOracle{recommendations: []model.Recommendation{{Title: "Stale", Score: 10}}}
	first.onCall = func() {
		// The same client issues a newer request (which finishes) while the
		// first oracle call is still outstanding.
		first.onCall = nil
		r.oracle = &stubOracle{recommendations: fresh}
		recs, err := r.RequestRecommendations(context.Background(), "ui-1", "newer request")
		require.NoError(t, err)
		assert.Equal(t, fresh, recs)
		r.oracle = first
	}

	r = New(repo, first, zap.NewNop())

	recs, err := r.RequestRecommendations(context.Background(), "ui-1", "older request")

	assert.ErrorIs(t, err, ErrSuperseded)
	assert.Nil(t, recs, "stale results must be discarded, not surfaced")
}

func TestRequestRecommendations_SessionsSupersedeIndependently(t *testing.T) {
	repo := &stubRepo{events: corpus()}
	wantA := []model.Recommendation{{Title: "For client A", Score: 80}}
	wantB := []model.Recommendation{{Title: "For client B", Score: 70}}

	var r *Recommender
	oracleA := &stubOracle{recommendations: wantA}
	oracleA.onCall = func() {
		// A different client's request starts and finishes while client A's
		// oracle call is still in flight.
		oracleA.onCall = nil
		r.oracle = &stubOracle{recommendations: wantB}
		recs, err := r.RequestRecommendations(context.Background(), "client-b", "b interests")
		require.NoError(t, err)
		assert.Equal(t, wantB, recs)
		r.oracle = oracleA
	}

	r = New(repo, oracleA, zap.NewNop())

	recs, err := r.RequestRecommendations(context.Background(), "client-a", "a interests")

	require.NoError(t, err, "another client's request must not supersede this one")
	assert.Equal(t, wantA, recs, "client A receives its own result")
}

func TestRequestRecommendations_UntrackedRequestsAreIndependent(t *testing.T) {
	repo := &stubRepo{events: corpus()}
	want := []model.Recommendation{{Title: "Result", Score: 55}}

	var r *Recommender
	oracle := &stubOracle{recommendations: want}
	oracle.onCall = func() {
		oracle.onCall = nil
		_, err := r.RequestRecommendations(context.Background(), "", "interleaved")
		require.NoError(t, err)
	}

	r = New(repo, oracle, zap.NewNop())

	recs, err := r.RequestRecommendations(context.Background(), "", "original")

	require.NoError(t, err)
	assert.Equal(t, want, recs)
}

func TestRequestRecommendations_EndToEndScenario(t *testing.T) {
	repo := &stubRepo{events: corpus()}
	oracle := &stubOracle{recommendations: []model.Recommendation{{
		Title:      "AI Workshop",
		Reason:     "You mentioned AI and machine learning",
		Date:       "2025-03-01",
		Department: "Computer Science",
		Tags:       []string{"technology", "AI"},
		Score:      95,
	}}}
	r := New(repo, oracle, zap.NewNop())

	recs, err := r.RequestRecommendations(context.Background(), "ui-1", "I like AI and machine learning")

	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "AI Workshop", recs[0].Title)
	assert.Equal(t, 95, recs[0].Score)
}
