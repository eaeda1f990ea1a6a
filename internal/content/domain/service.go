package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// GenerateRequest is the transient input to one generation. It is never
// persisted as its own entity.
type GenerateRequest struct {
	OwnerID           snowflake.ID
	ContentType       string
	Topic             string
	Tone              string
	Length            string
	AdditionalContext string
}

// GenerateResult is the outcome of a successful generation. DebitPending is
// set when the artifact was produced and stored but the balance debit did
// not land; the artifact is still handed to the caller.
type GenerateResult struct {
	Artifact         *Artifact
	Cost             int64
	RemainingCredits int64
	DebitPending     bool
}

type Service interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
	History(ctx context.Context, ownerID snowflake.ID) ([]Artifact, error)
	Delete(ctx context.Context, ownerID, artifactID snowflake.ID) error
}

type Repository interface {
	Insert(ctx context.Context, artifact *Artifact) error
	MarkDebitPending(ctx context.Context, artifactID snowflake.ID) error
	ListByOwner(ctx context.Context, ownerID snowflake.ID) ([]Artifact, error)
	DeleteByIDAndOwner(ctx context.Context, artifactID, ownerID snowflake.ID) (bool, error)
}
