package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/user/campus-assistant/internal/entity"
	"github.com/user/campus-assistant/internal/repository"
	"github.com/user/campus-assistant/pkg/metrics"
	"github.com/user/campus-assistant/pkg/utils"
	"go.uber.org/zap"
)

var ErrKnowledgeNotReady = errors.New("knowledge base has not been built")

// KnowledgeBase answers retrieval queries against the FAQ corpus.
type KnowledgeBase struct {
	embedder repository.Embedder
	index    repository.VectorIndex
	entries  []entity.FAQEntry
	logger   *zap.Logger
}

// NewKnowledgeBase wires an embedder to an empty index.
func NewKnowledgeBase(embedder repository.Embedder, index repository.VectorIndex, logger *zap.Logger) *KnowledgeBase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KnowledgeBase{embedder: embedder, index: index, logger: logger}
}

// Build embeds every question of the corpus and indexes it. The i-th
// indexed vector belongs to entries[i].
func (kb *KnowledgeBase) Build(ctx context.Context, entries []entity.FAQEntry) error {
	if kb.index.Len() > 0 {
		return fmt.Errorf("knowledge base already built with %d entries", kb.index.Len())
	}
	questions := make([]string, len(entries))
	for i, e := range entries {
		questions[i] = utils.NormalizeText(e.Question)
	}

	start := time.Now()
	vectors, err := kb.embedder.EmbedBatch(ctx, questions)
	if err != nil {
		return fmt.Errorf("embed faq questions: %w", err)
	}
	if len(vectors) != len(entries) {
		return fmt.Errorf("embedder returned %d vectors for %d questions", len(vectors), len(entries))
	}
	if err := kb.index.Add(vectors...); err != nil {
		return fmt.Errorf("index faq questions: %w", err)
	}
	kb.entries = entries

	kb.logger.Info("knowledge base built",
		zap.Int("entries", len(entries)),
		zap.String("embedder", kb.embedder.Name()),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

func (kb *KnowledgeBase) Len() int { return len(kb.entries) }

// Retrieve returns the answers of the k questions nearest to query, most
// similar first.
func (kb *KnowledgeBase) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	if len(kb.entries) == 0 {
		return nil, ErrKnowledgeNotReady
	}
	start := time.Now()
	defer func() { metrics.RetrievalDuration.Observe(time.Since(start).Seconds()) }()

	vec, err := kb.embedder.Embed(ctx, utils.NormalizeText(query))
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	ids, err := kb.index.Search(vec, k)
	if err != nil {
		return nil, fmt.Errorf("search faq index: %w", err)
	}

	answers := make([]string, 0, len(ids))
	for _, id := range ids {
		if id < 0 || id >= len(kb.entries) {
			continue
		}
		answers = append(answers, kb.entries[id].Answer)
	}
	return answers, nil
}
