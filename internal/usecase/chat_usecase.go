package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/user/campus-assistant/internal/entity"
	"github.com/user/campus-assistant/internal/repository"
	"github.com/user/campus-assistant/pkg/metrics"
	"go.uber.org/zap"
)

var (
	ErrChatDisabled  = errors.New("chat is not configured")
	ErrChatNotFound  = errors.New("message not found or not owned by user")
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	ErrEmptyQuery    = errors.New("query is required")
	ErrMissingUserID = errors.New("user ID is required")
)

const systemPrompt = "You are a helpful assistant."

// Retriever finds corpus passages relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]string, error)
}

// Chat answers campus questions and keeps a per-user history.
type Chat interface {
	Ask(ctx context.Context, userID, query string) (*entity.ChatRecord, error)
	History(ctx context.Context, userID string) ([]*entity.ChatRecord, error)
	ClearHistory(ctx context.Context, userID string) (int64, error)
	Rate(ctx context.Context, userID, messageID string, rating int) error
}

// ChatConfig tunes retrieval and how much history goes into a prompt.
type ChatConfig struct {
	RetrievalK int
	// HistoryLimit caps the prior exchanges included in a prompt; zero means all.
	HistoryLimit int
}

type chatUseCase struct {
	retriever Retriever
	completer repository.Completer
	records   repository.ChatRepository
	cfg       ChatConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewChat creates the chat use case. A nil retriever or completer leaves
// history operations working while Ask returns ErrChatDisabled.
func NewChat(retriever Retriever, completer repository.Completer, records repository.ChatRepository, cfg ChatConfig, logger *zap.Logger) Chat {
	if cfg.RetrievalK <= 0 {
		cfg.RetrievalK = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &chatUseCase{
		retriever: retriever,
		completer: completer,
		records:   records,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

func (uc *chatUseCase) Ask(ctx context.Context, userID, query string) (*entity.ChatRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	if uc.retriever == nil || uc.completer == nil {
		metrics.ChatRequestsTotal.WithLabelValues("disabled").Inc()
		return nil, ErrChatDisabled
	}

	rec, err := uc.ask(ctx, userID, query)
	if err != nil {
		metrics.ChatRequestsTotal.WithLabelValues("error").Inc()
		uc.logger.Error("chat request failed", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	metrics.ChatRequestsTotal.WithLabelValues("ok").Inc()
	return rec, nil
}

func (uc *chatUseCase) ask(ctx context.Context, userID, query string) (*entity.ChatRecord, error) {
	history, err := uc.records.ListByUser(ctx, userID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}
	if n := uc.cfg.HistoryLimit; n > 0 && len(history) > n {
		history = history[len(history)-n:]
	}

	passages, err := uc.retriever.Retrieve(ctx, query, uc.cfg.RetrievalK)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve context: %w", err)
	}

	answer, err := uc.completer.Complete(ctx, systemPrompt, buildPrompt(query, passages, history))
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	rec := &entity.ChatRecord{
		ID:        uuid.NewString(),
		UserID:    userID,
		Query:     query,
		Response:  answer,
		Timestamp: uc.now().UTC(),
	}
	if err := uc.records.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to save chat record: %w", err)
	}
	return rec, nil
}

// buildPrompt lays out context passages, prior exchanges oldest first, and
// the question.
func buildPrompt(query string, passages []string, history []*entity.ChatRecord) string {
	turns := make([]string, 0, 2*len(history))
	for _, h := range history {
		turns = append(turns, h.Query, h.Response)
	}

	var b strings.Builder
	b.WriteString("Answer the question based only on the following context:\n")
	b.WriteString(strings.Join(passages, "\n\n"))
	b.WriteString("\n\nChat History:\n")
	b.WriteString(strings.Join(turns, " "))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(query)
	b.WriteString("\nAnswer:")
	return b.String()
}

func (uc *chatUseCase) History(ctx context.Context, userID string) ([]*entity.ChatRecord, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	return uc.records.ListByUser(ctx, userID, true)
}

func (uc *chatUseCase) ClearHistory(ctx context.Context, userID string) (int64, error) {
	if err := validateUserID(userID); err != nil {
		return 0, err
	}
	n, err := uc.records.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear chat history: %w", err)
	}
	uc.logger.Info("chat history cleared", zap.String("user_id", userID), zap.Int64("deleted", n))
	return n, nil
}

func (uc *chatUseCase) Rate(ctx context.Context, userID, messageID string, rating int) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	if strings.TrimSpace(messageID) == "" {
		return ErrChatNotFound
	}
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}
	err := uc.records.Rate(ctx, userID, messageID, rating, uc.now().UTC())
	if errors.Is(err, repository.ErrNotFound) {
		return ErrChatNotFound
	}
	return err
}

func validateUserID(userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" || userID == "undefined" {
		return ErrMissingUserID
	}
	return nil
}
