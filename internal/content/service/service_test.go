package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/inkwell-ai/inkwell/internal/config"
	"github.com/inkwell-ai/inkwell/internal/content/domain"
	"github.com/inkwell-ai/inkwell/internal/content/pricing"
	contentrepo "github.com/inkwell-ai/inkwell/internal/content/repository"
	creditdomain "github.com/inkwell-ai/inkwell/internal/credit/domain"
	"github.com/inkwell-ai/inkwell/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// -- Fakes --

type fakeProvider struct {
	mu              sync.Mutex
	response        string
	err             error
	calls           int
	lastInstruction string
	lastBudget      int
}

func (p *fakeProvider) Complete(_ context.Context, instruction string, maxTokens int) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.lastInstruction = instruction
	p.lastBudget = maxTokens
	if p.err != nil {
		return "", p.err
	}
	return p.response, nil
}

func (p *fakeProvider) Name() string { return "fake" }

// memStore is an in-memory balance store with real compare-and-swap
// semantics, plus knobs to force conflicts and failures.
type memStore struct {
	mu            sync.Mutex
	balances      map[snowflake.ID]int64
	forceConflict int
	debitErr      error
}

func newMemStore() *memStore {
	return &memStore{balances: map[snowflake.ID]int64{}}
}

func (s *memStore) Balance(_ context.Context, accountID snowflake.ID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	balance, ok := s.balances[accountID]
	if !ok {
		return 0, creditdomain.ErrAccountNotFound
	}
	return balance, nil
}

func (s *memStore) ConditionalDebit(_ context.Context, accountID snowflake.ID, amount, expected int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.debitErr != nil {
		return s.debitErr
	}
	if s.forceConflict > 0 {
		s.forceConflict--
		return creditdomain.ErrConflict
	}
	balance, ok := s.balances[accountID]
	if !ok || balance != expected {
		return creditdomain.ErrConflict
	}
	s.balances[accountID] = balance - amount
	return nil
}

func (s *memStore) Grant(_ context.Context, accountID snowflake.ID, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[accountID] += amount
	return nil
}

type failingRepo struct {
	domain.Repository
	insertErr error
}

func (r *failingRepo) Insert(ctx context.Context, artifact *domain.Artifact) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	return r.Repository.Insert(ctx, artifact)
}

// -- Fixture --

type fixture struct {
	svc      domain.Service
	store    *memStore
	provider *fakeProvider
	repo     domain.Repository
	conn     *gorm.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, nil)
}

func newFixtureWith(t *testing.T, wrapRepo func(domain.Repository) domain.Repository) *fixture {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Artifact{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	store := newMemStore()
	prov := &fakeProvider{response: "generated body"}
	repo := contentrepo.New(conn)
	if wrapRepo != nil {
		repo = wrapRepo(repo)
	}

	cfg := config.Config{}
	cfg.Provider.Timeout = 5 * time.Second

	svc := New(Params{
		Log:      zap.NewNop(),
		Cfg:      cfg,
		Pricing:  pricing.New(config.NewStaticPricingHolder(config.DefaultPricingConfig())),
		Credits:  store,
		Repo:     repo,
		Provider: prov,
		GenID:    node,
	})

	return &fixture{svc: svc, store: store, provider: prov, repo: repo, conn: conn}
}

func validRequest(owner snowflake.ID) domain.GenerateRequest {
	return domain.GenerateRequest{
		OwnerID:     owner,
		ContentType: "blog-post",
		Topic:       "urban beekeeping",
		Tone:        "friendly",
		Length:      "medium",
	}
}

func (f *fixture) countArtifacts(t *testing.T, owner snowflake.ID) int {
	t.Helper()
	arts, err := f.repo.ListByOwner(context.Background(), owner)
	require.NoError(t, err)
	return len(arts)
}

// -- Precondition tests --

func TestGenerateMissingIdentity(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Generate(context.Background(), validRequest(0))
	assert.ErrorIs(t, err, domain.ErrMissingIdentity)
	assert.Equal(t, 0, f.provider.calls)
}

func TestGenerateMissingFields(t *testing.T) {
	f := newFixture(t)
	owner := snowflake.ID(1)
	f.store.balances[owner] = 10

	req := validRequest(owner)
	req.Topic = "   "
	req.Tone = ""

	_, err := f.svc.Generate(context.Background(), req)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"topic", "tone"}, verr.Fields)

	assert.Equal(t, 0, f.provider.calls)
	assert.Equal(t, int64(10), f.store.balances[owner])
	assert.Equal(t, 0, f.countArtifacts(t, owner))
}

func TestGenerateUnknownAccount(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Generate(context.Background(), validRequest(snowflake.ID(77)))
	assert.ErrorIs(t, err, domain.ErrUnknownAccount)
	assert.Equal(t, 0, f.provider.calls)
}

func TestGenerateInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	owner := snowflake.ID(2)
	f.store.balances[owner] = 1

	_, err := f.svc.Generate(context.Background(), validRequest(owner)) // medium costs 2

	var ierr *domain.InsufficientCreditsError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, int64(2), ierr.Required)
	assert.Equal(t, int64(1), ierr.Available)

	assert.Equal(t, 0, f.provider.calls)
	assert.Equal(t, int64(1), f.store.balances[owner])
	assert.Equal(t, 0, f.countArtifacts(t, owner))
}

// -- Execution tests --

func TestGenerateSuccess(t *testing.T) {
	f := newFixture(t)
	owner := snowflake.ID(3)
	f.store.balances[owner] = 5

	res, err := f.svc.Generate(context.Background(), validRequest(owner))
	require.NoError(t, err)

	assert.Equal(t, "generated body", res.Artifact.Body)
	assert.Equal(t, int64(2), res.Cost)
	assert.Equal(t, int64(3), res.RemainingCredits)
	assert.False(t, res.DebitPending)
	assert.Equal(t, int64(3), f.store.balances[owner])

	assert.Contains(t, f.provider.lastInstruction, `Create a friendly blog-post about "urban beekeeping".`)
	assert.Equal(t, 600, f.provider.lastBudget)

	arts, err := f.repo.ListByOwner(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, arts, 1)
	assert.Equal(t, int64(2), arts[0].Cost)
	assert.Equal(t, "medium", arts[0].Metadata["length"])
	assert.False(t, arts[0].DebitPending)
}

func TestGenerateExactBalanceThenBroke(t *testing.T) {
	f := newFixture(t)
	owner := snowflake.ID(4)
	f.store.balances[owner] = 2

	res, err := f.svc.Generate(context.Background(), validRequest(owner))
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.RemainingCredits)

	req := validRequest(owner)
	req.Length = "short" // costs 1

	_, err = f.svc.Generate(context.Background(), req)
	var ierr *domain.InsufficientCreditsError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, int64(1), ierr.Required)
	assert.Equal(t, int64(0), ierr.Available)
}

func TestGenerateUnknownLengthFallsBack(t *testing.T) {
	f := newFixture(t)
	owner := snowflake.ID(5)
	f.store.balances[owner] = 1

	req := validRequest(owner)
	req.Length = "huge"

	res, err := f.svc.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Cost)
	assert.Equal(t, 600, f.provider.lastBudget)
	assert.Contains(t, f.provider.lastInstruction, "300-500 words")
}

func TestGenerateProviderFailureIsNoop(t *testing.T) {
	f := newFixture(t)
	owner := snowflake.ID(6)
	f.store.balances[owner] = 5
	f.provider.err = errors.New("upstream down")

	for i := 0; i < 3; i++ {
		_, err := f.svc.Generate(context.Background(), validRequest(owner))
		assert.ErrorIs(t, err, domain.ErrGenerationFailed)
	}

	assert.Equal(t, int64(5), f.store.balances[owner])
	assert.Equal(t, 0, f.countArtifacts(t, owner))
}

func TestGenerateEmptyProviderOutput(t *testing.T) {
	f := newFixture(t)
	owner := snowflake.ID(7)
	f.store.balances[owner] = 5
	f.provider.response = "  \n "

	_, err := f.svc.Generate(context.Background(), validRequest(owner))
	assert.ErrorIs(t, err, domain.ErrGenerationFailed)
	assert.Equal(t, int64(5), f.store.balances[owner])
	assert.Equal(t, 0, f.countArtifacts(t, owner))
}

func TestGeneratePersistenceFailure(t *testing.T) {
	f := newFixtureWith(t, func(r domain.Repository) domain.Repository {
		return &failingRepo{Repository: r, insertErr: errors.New("disk full")}
	})
	owner := snowflake.ID(8)
	f.store.balances[owner] = 5

	_, err := f.svc.Generate(context.Background(), validRequest(owner))
	assert.ErrorIs(t, err, domain.ErrPersistenceFailed)
	assert.Equal(t, int64(5), f.store.balances[owner])
}

// -- Debit tests --

func TestGenerateDebitRetriesAfterConflict(t *testing.T) {
	f := newFixture(t)
	owner := snowflake.ID(9)
	f.store.balances[owner] = 5
	f.store.forceConflict = 1

	res, err := f.svc.Generate(context.Background(), validRequest(owner))
	require.NoError(t, err)
	assert.False(t, res.DebitPending)
	assert.Equal(t, int64(3), f.store.balances[owner])
}

func TestGenerateDebitFailureFlagsArtifact(t *testing.T) {
	f := newFixture(t)
	owner := snowflake.ID(10)
	f.store.balances[owner] = 5
	f.store.debitErr = errors.New("store unavailable")

	res, err := f.svc.Generate(context.Background(), validRequest(owner))
	require.NoError(t, err)
	assert.True(t, res.DebitPending)
	assert.Equal(t, "generated body", res.Artifact.Body)

	// Balance untouched, artifact kept and flagged for reconciliation.
	assert.Equal(t, int64(5), f.store.balances[owner])
	arts, err := f.repo.ListByOwner(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, arts, 1)
	assert.True(t, arts[0].DebitPending)
}

func TestGenerateRaceLoserIsCompensated(t *testing.T) {
	f := newFixture(t)
	owner := snowflake.ID(11)
	f.store.balances[owner] = 2
	f.store.forceConflict = 1

	// The forced conflict models another request draining the balance
	// between this request's read and its debit.
	f.store.mu.Lock()
	f.store.balances[owner] = 0
	f.store.mu.Unlock()

	_, err := f.svc.Generate(context.Background(), validRequest(owner))

	var ierr *domain.InsufficientCreditsError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, int64(2), ierr.Required)
	assert.Equal(t, int64(0), ierr.Available)
	assert.Equal(t, 0, f.countArtifacts(t, owner))
}

func TestGenerateConcurrentOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	owner := snowflake.ID(12)
	f.store.balances[owner] = 2 // enough for exactly one medium generation

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.svc.Generate(context.Background(), validRequest(owner))
		}(i)
	}
	wg.Wait()

	var successes, insufficient int
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		default:
			var ierr *domain.InsufficientCreditsError
			if errors.As(err, &ierr) {
				insufficient++
			}
		}
	}

	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, insufficient)
	assert.Equal(t, int64(0), f.store.balances[owner])
	assert.Equal(t, 1, f.countArtifacts(t, owner))
}

// -- History / delete tests --

func TestHistoryNewestFirst(t *testing.T) {
	f := newFixture(t)
	owner := snowflake.ID(13)
	f.store.balances[owner] = 10

	first, err := f.svc.Generate(context.Background(), validRequest(owner))
	require.NoError(t, err)
	second, err := f.svc.Generate(context.Background(), validRequest(owner))
	require.NoError(t, err)

	arts, err := f.svc.History(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, arts, 2)
	assert.Equal(t, second.Artifact.ID, arts[0].ID)
	assert.Equal(t, first.Artifact.ID, arts[1].ID)
}

func TestDeleteByOwner(t *testing.T) {
	f := newFixture(t)
	owner := snowflake.ID(14)
	f.store.balances[owner] = 10

	res, err := f.svc.Generate(context.Background(), validRequest(owner))
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(context.Background(), owner, res.Artifact.ID))
	assert.Equal(t, 0, f.countArtifacts(t, owner))

	// Cost is not refunded on delete.
	assert.Equal(t, int64(8), f.store.balances[owner])
}

func TestDeleteByNonOwnerConflatedWithMissing(t *testing.T) {
	f := newFixture(t)
	owner := snowflake.ID(15)
	stranger := snowflake.ID(16)
	f.store.balances[owner] = 10
	f.store.balances[stranger] = 10

	res, err := f.svc.Generate(context.Background(), validRequest(owner))
	require.NoError(t, err)

	errStranger := f.svc.Delete(context.Background(), stranger, res.Artifact.ID)
	errMissing := f.svc.Delete(context.Background(), stranger, snowflake.ID(999999))
	assert.ErrorIs(t, errStranger, domain.ErrArtifactNotFound)
	assert.ErrorIs(t, errMissing, domain.ErrArtifactNotFound)

	// Untouched for the owner.
	assert.Equal(t, 1, f.countArtifacts(t, owner))
}
