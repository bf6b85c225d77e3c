package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/user/campus-assistant/internal/entity"
	"github.com/user/campus-assistant/internal/portal"
	"github.com/user/campus-assistant/internal/repository"
)

type fakeScraper struct {
	result *entity.ScrapeResult
	report portal.Report

	mu       sync.Mutex
	calls    []portal.Credentials
	deadline bool
}

func (f *fakeScraper) Scrape(ctx context.Context, creds portal.Credentials) (*entity.ScrapeResult, portal.Report) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, creds)
	_, f.deadline = ctx.Deadline()
	return f.result, f.report
}

type fakeCredentials map[string]string

func (f fakeCredentials) PasswordFor(_ context.Context, mobile string) (string, error) {
	if p, ok := f[mobile]; ok {
		return p, nil
	}
	return "", repository.ErrNotFound
}

type fakeResults struct {
	mu      sync.Mutex
	records []*entity.ScrapeRecord
	saveErr error
}

func (f *fakeResults) Save(_ context.Context, rec *entity.ScrapeRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeResults) FindLatest(_ context.Context, mobile string) (*entity.ScrapeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.records) - 1; i >= 0; i-- {
		r := f.records[i]
		if r.MobileNumber == mobile && r.Outcome != entity.OutcomeLoginFailed {
			return r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeResults) Ping(context.Context) error { return nil }

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]*entity.ScrapeResult
	ttls    map[string]time.Duration
	getErr  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]*entity.ScrapeResult{}, ttls: map[string]time.Duration{}}
}

func (f *fakeCache) Put(_ context.Context, mobile string, r *entity.ScrapeResult, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[mobile] = r
	f.ttls[mobile] = ttl
	return nil
}

func (f *fakeCache) Get(_ context.Context, mobile string) (*entity.ScrapeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	if r, ok := f.entries[mobile]; ok {
		return r, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCache) Ping(context.Context) error { return nil }

type fakeChatRepo struct {
	mu      sync.Mutex
	records []*entity.ChatRecord
}

func (f *fakeChatRepo) Insert(_ context.Context, rec *entity.ChatRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeChatRepo) ListByUser(_ context.Context, userID string, newestFirst bool) ([]*entity.ChatRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.ChatRecord
	for _, r := range f.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if newestFirst {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (f *fakeChatRepo) DeleteByUser(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.records[:0]
	var n int64
	for _, r := range f.records {
		if r.UserID == userID {
			n++
			continue
		}
		kept = append(kept, r)
	}
	f.records = kept
	return n, nil
}

func (f *fakeChatRepo) Rate(_ context.Context, userID, id string, rating int, ratedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.ID == id && r.UserID == userID {
			r.Rating = &rating
			r.RatedAt = &ratedAt
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeRetriever struct {
	passages []string
	err      error
	gotK     int
}

func (f *fakeRetriever) Retrieve(_ context.Context, _ string, k int) ([]string, error) {
	f.gotK = k
	return f.passages, f.err
}

type fakeCompleter struct {
	answer  string
	err     error
	system  string
	prompts []string
}

func (f *fakeCompleter) Complete(_ context.Context, system, prompt string) (string, error) {
	f.system = system
	f.prompts = append(f.prompts, prompt)
	return f.answer, f.err
}

func (f *fakeCompleter) Name() string { return "fake" }

// fakeEmbedder maps each known text to a fixed vector.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.vectors[text]
	if !ok {
		return nil, errors.New("unknown text " + text)
	}
	return v, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Name() string { return "fake" }
