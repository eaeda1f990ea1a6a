package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/inkwell-ai/inkwell/internal/config"
	"github.com/inkwell-ai/inkwell/internal/content/domain"
	"github.com/inkwell-ai/inkwell/internal/content/pricing"
	"github.com/inkwell-ai/inkwell/internal/content/prompt"
	creditdomain "github.com/inkwell-ai/inkwell/internal/credit/domain"
	"github.com/inkwell-ai/inkwell/internal/observability/logger"
	"github.com/inkwell-ai/inkwell/internal/observability/metrics"
	"github.com/inkwell-ai/inkwell/internal/provider"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	defaultProviderTimeout = 60 * time.Second

	// debitRetries bounds the optimistic-concurrency loop. Each retry
	// re-reads the balance, so losing a race converges quickly.
	debitRetries = 3
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Cfg      config.Config
	Pricing  *pricing.Policy
	Credits  creditdomain.Store
	Repo     domain.Repository
	Provider provider.Provider
	GenID    *snowflake.Node
	Metrics  *metrics.GenerationMetrics `optional:"true"`
}

type Service struct {
	log             *zap.Logger
	pricing         *pricing.Policy
	credits         creditdomain.Store
	repo            domain.Repository
	provider        provider.Provider
	genID           *snowflake.Node
	metrics         *metrics.GenerationMetrics
	providerTimeout time.Duration
}

func New(p Params) domain.Service {
	timeout := p.Cfg.Provider.Timeout
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	return &Service{
		log:             p.Log.Named("content.service"),
		pricing:         p.Pricing,
		credits:         p.Credits,
		repo:            p.Repo,
		provider:        p.Provider,
		genID:           p.GenID,
		metrics:         p.Metrics,
		providerTimeout: timeout,
	}
}

// Generate runs the credit-metered generation pipeline: validate, check
// balance, call the provider, persist the artifact, debit last. The debit
// comes after persistence so a provider or store failure never charges
// anyone; a debit failure after persistence is surfaced as DebitPending on
// the result, never swallowed.
func (s *Service) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResult, error) {
	if req.OwnerID == 0 {
		s.metrics.RecordOutcome("missing_identity")
		return nil, domain.ErrMissingIdentity
	}

	if err := validateRequest(req); err != nil {
		s.metrics.RecordOutcome("invalid_request")
		return nil, err
	}

	balance, err := s.credits.Balance(ctx, req.OwnerID)
	if err != nil {
		if errors.Is(err, creditdomain.ErrAccountNotFound) {
			s.metrics.RecordOutcome("unknown_account")
			return nil, domain.ErrUnknownAccount
		}
		return nil, err
	}

	cost := s.pricing.Cost(req.Length)
	if balance < cost {
		s.metrics.RecordOutcome("insufficient_balance")
		return nil, &domain.InsufficientCreditsError{Required: cost, Available: balance}
	}

	instruction := prompt.Compose(req.ContentType, req.Topic, req.Tone, req.Length, req.AdditionalContext)
	budget := s.pricing.Budget(req.Length)

	body, err := s.complete(ctx, instruction, budget)
	if err != nil {
		s.metrics.RecordOutcome("generation_failed")
		return nil, fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}

	artifact := &domain.Artifact{
		ID:          s.genID.Generate(),
		OwnerID:     req.OwnerID,
		ContentType: req.ContentType,
		Topic:       req.Topic,
		Body:        body,
		Cost:        cost,
		Metadata: datatypes.JSONMap{
			"tone":               req.Tone,
			"length":             req.Length,
			"additional_context": req.AdditionalContext,
		},
	}
	if err := s.repo.Insert(ctx, artifact); err != nil {
		s.metrics.RecordOutcome("persistence_failed")
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistenceFailed, err)
	}

	return s.debit(ctx, artifact, cost, balance)
}

// complete calls the provider on a context detached from caller
// cancellation. A disconnecting client must not abandon work that is about
// to be billed; the configured timeout is the only bound.
func (s *Service) complete(ctx context.Context, instruction string, budget int) (string, error) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.providerTimeout)
	defer cancel()

	start := time.Now()
	body, err := s.provider.Complete(callCtx, instruction, budget)
	s.metrics.RecordProviderCall(s.provider.Name(), time.Since(start), err == nil)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(body) == "" {
		return "", provider.ErrEmptyCompletion
	}
	return body, nil
}

// debit decrements the balance with a compare-and-swap loop. Losing the
// race against a concurrent debit re-reads and re-checks; if the re-read
// shows the account can no longer afford this artifact, the artifact is
// compensated away and the caller gets the insufficiency. Any other debit
// failure leaves the artifact in place flagged for reconciliation.
func (s *Service) debit(ctx context.Context, artifact *domain.Artifact, cost, expected int64) (*domain.GenerateResult, error) {
	log := logger.WithContext(ctx, s.log)

	var debitErr error
	for attempt := 0; attempt < debitRetries; attempt++ {
		debitErr = s.credits.ConditionalDebit(ctx, artifact.OwnerID, cost, expected)
		if debitErr == nil {
			s.metrics.RecordOutcome("success")
			s.metrics.RecordCreditsSpent(cost)
			return &domain.GenerateResult{
				Artifact:         artifact,
				Cost:             cost,
				RemainingCredits: expected - cost,
			}, nil
		}
		if !errors.Is(debitErr, creditdomain.ErrConflict) {
			break
		}

		balance, err := s.credits.Balance(ctx, artifact.OwnerID)
		if err != nil {
			debitErr = err
			break
		}
		if balance < cost {
			return nil, s.compensate(ctx, artifact, cost, balance)
		}
		expected = balance
	}

	// The artifact exists but was not paid for. Keep it, flag it, and
	// hand it to the caller as success-with-warning.
	log.Error("debit failed after artifact persisted",
		zap.String("account_id", artifact.OwnerID.String()),
		zap.String("artifact_id", artifact.ID.String()),
		zap.Int64("cost", cost),
		zap.Error(debitErr),
	)
	s.metrics.RecordOutcome("debit_pending")
	s.metrics.RecordDebitPending()

	artifact.DebitPending = true
	if err := s.repo.MarkDebitPending(ctx, artifact.ID); err != nil {
		log.Error("failed to flag artifact for reconciliation",
			zap.String("artifact_id", artifact.ID.String()),
			zap.Error(err),
		)
	}

	return &domain.GenerateResult{
		Artifact:         artifact,
		Cost:             cost,
		RemainingCredits: expected,
		DebitPending:     true,
	}, nil
}

// compensate removes an artifact whose owner lost the balance race before
// the debit landed, so an insufficiency rejection leaves no stored trace.
func (s *Service) compensate(ctx context.Context, artifact *domain.Artifact, cost, balance int64) error {
	log := logger.WithContext(ctx, s.log)

	deleted, err := s.repo.DeleteByIDAndOwner(ctx, artifact.ID, artifact.OwnerID)
	if err != nil || !deleted {
		log.Error("failed to compensate unpaid artifact",
			zap.String("artifact_id", artifact.ID.String()),
			zap.Error(err),
		)
	}
	s.metrics.RecordOutcome("insufficient_balance")
	return &domain.InsufficientCreditsError{Required: cost, Available: balance}
}

func (s *Service) History(ctx context.Context, ownerID snowflake.ID) ([]domain.Artifact, error) {
	if ownerID == 0 {
		return nil, domain.ErrMissingIdentity
	}
	return s.repo.ListByOwner(ctx, ownerID)
}

func (s *Service) Delete(ctx context.Context, ownerID, artifactID snowflake.ID) error {
	if ownerID == 0 {
		return domain.ErrMissingIdentity
	}
	deleted, err := s.repo.DeleteByIDAndOwner(ctx, artifactID, ownerID)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrArtifactNotFound
	}
	return nil
}

func validateRequest(req domain.GenerateRequest) error {
	var missing []string
	if strings.TrimSpace(req.ContentType) == "" {
		missing = append(missing, "contentType")
	}
	if strings.TrimSpace(req.Topic) == "" {
		missing = append(missing, "topic")
	}
	if strings.TrimSpace(req.Tone) == "" {
		missing = append(missing, "tone")
	}
	if strings.TrimSpace(req.Length) == "" {
		missing = append(missing, "length")
	}
	if len(missing) > 0 {
		return &domain.ValidationError{Fields: missing}
	}
	return nil
}
