package metadata

import (
	"context"

	"github.com/shoreline-pay/ledgercore/internal/platform/mlog"
	"github.com/shoreline-pay/ledgercore/internal/platform/motel"
)

// UseCase is the metadata index's entry point: ledger calls Index
// as a best-effort side effect of a write; operators call Query directly.
type UseCase struct {
	Repo Repository
}

// NewUseCase wires a UseCase over repo.
func NewUseCase(repo Repository) *UseCase {
	return &UseCase{Repo: repo}
}

// Index upserts entityID's metadata document. Failures are logged and
// swallowed: this index is a queryability convenience, never a dependency
// of the write path it shadows (spec's "without smuggling business logic
// into Mongo").
func (uc *UseCase) Index(ctx context.Context, entityType, entityID string, data map[string]any) {
	if len(data) == 0 {
		return
	}

	logger := mlog.NewLoggerFromContext(ctx)
	ctx, span := motel.StartSpan(ctx, "metadata", "index")
	defer span.End()

	if err := uc.Repo.Upsert(ctx, entityType, entityID, data); err != nil {
		motel.RecordSpanError(span, err)
		logger.Warnf("metadata: failed to index %s %s: %v", entityType, entityID, err)
	}
}

// Query looks up every document in entityType's collection whose metadata
// matches filter.
func (uc *UseCase) Query(ctx context.Context, entityType string, filter map[string]any, limit, skip int64) ([]*Document, error) {
	ctx, span := motel.StartSpan(ctx, "metadata", "query")
	defer span.End()

	docs, err := uc.Repo.Query(ctx, entityType, filter, limit, skip)

	return docs, motel.RecordSpanError(span, err)
}

// Get returns the indexed metadata document for a single entity.
func (uc *UseCase) Get(ctx context.Context, entityType, entityID string) (*Document, error) {
	ctx, span := motel.StartSpan(ctx, "metadata", "get")
	defer span.End()

	doc, err := uc.Repo.FindByEntity(ctx, entityType, entityID)

	return doc, motel.RecordSpanError(span, err)
}
