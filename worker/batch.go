package worker

import (
	"cardhub/config"
	"cardhub/dto/model"
	"cardhub/helper"
	"cardhub/service"
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

const (
	MinConcurrency = 1
	MaxConcurrency = 20
	MaxRetryLimit  = 10

	msgAlreadyActivated = "card already activated"
)

// Orchestrator performs one activation attempt for a code.
type Orchestrator interface {
	ActivateIfNeeded(ctx context.Context, code string) service.Outcome
}

type ItemResult struct {
	Code       string `json:"card_id"`
	Succeeded  bool   `json:"success"`
	Message    string `json:"message"`
	RetryCount int    `json:"retry_count"`
	StatusText string `json:"status,omitempty"`

	index int
}

type BatchResult struct {
	BatchID      string       `json:"batch_id"`
	Total        int          `json:"total"`
	SuccessCount int          `json:"success_count"`
	FailedCount  int          `json:"failed_count"`
	Succeeded    []ItemResult `json:"success"`
	Failed       []ItemResult `json:"failed"`
}

// BatchCoordinator activates many codes under a concurrency bound, retrying
// each code on its own.
type BatchCoordinator struct {
	Orchestrator Orchestrator
	Store        service.CardStore
	Log          service.ActivationLog
	Backoff      time.Duration
	Now          func() time.Time
	Metrics      *service.ActivationMetrics
}

func NewBatchCoordinator(orchestrator Orchestrator, store service.CardStore, log service.ActivationLog) *BatchCoordinator {
	return &BatchCoordinator{
		Orchestrator: orchestrator,
		Store:        store,
		Log:          log,
		Backoff:      config.ConfigDuration("BATCH_BACKOFF_MS", time.Millisecond, time.Second),
		Now:          time.Now,
	}
}

// attemptResult is the outcome of one attempt plus whether retrying is pointless.
type attemptResult struct {
	succeeded  bool
	message    string
	statusText string
	terminal   bool
}

// RunBatch processes every distinct code and returns once each one has a
// terminal result. It never fails as a whole.
func (b *BatchCoordinator) RunBatch(ctx context.Context, codes []string, concurrency, maxRetries int) BatchResult {
	concurrency = clamp(concurrency, MinConcurrency, MaxConcurrency)
	maxRetries = clamp(maxRetries, 0, MaxRetryLimit)

	unique := dedupe(codes)
	result := BatchResult{
		BatchID:   uuid.NewString(),
		Total:     len(unique),
		Succeeded: []ItemResult{},
		Failed:    []ItemResult{},
	}

	helper.Info("[Batch %s] activating %d codes, concurrency %d, max retries %d", result.BatchID, len(unique), concurrency, maxRetries)
	config.LogInfo(config.LOG_BATCH, "Batch started", config.LogEntry{
		BatchID: result.BatchID,
		Data: map[string]interface{}{
			"total":       len(unique),
			"concurrency": concurrency,
			"max_retries": maxRetries,
		},
	})
	b.Metrics.BatchStarted()

	start := time.Now()
	sem := semaphore.NewWeighted(int64(concurrency))
	results := make(chan ItemResult, len(unique))

	for i, code := range unique {
		go func(index int, code string) {
			item := b.runCode(ctx, result.BatchID, sem, code, maxRetries)
			item.index = index
			results <- item
		}(i, code)
	}

	// single aggregator; tasks only send
	for range unique {
		item := <-results
		if item.Succeeded {
			result.Succeeded = append(result.Succeeded, item)
			result.SuccessCount++
		} else {
			result.Failed = append(result.Failed, item)
			result.FailedCount++
		}
	}

	sortByInput(result.Succeeded)
	sortByInput(result.Failed)

	if len(result.Failed) > 0 {
		rows := make([][]string, 0, len(result.Failed))
		for _, item := range result.Failed {
			rows = append(rows, []string{item.Code, fmt.Sprintf("%d", item.RetryCount), item.Message})
		}
		helper.Table(fmt.Sprintf("Batch %s failures", result.BatchID), []string{"code", "retries", "message"}, rows)
	}

	helper.Info("[Batch %s] done in %s: %d succeeded, %d failed", result.BatchID, time.Since(start).Round(time.Millisecond), result.SuccessCount, result.FailedCount)
	config.LogInfo(config.LOG_BATCH, "Batch finished", config.LogEntry{
		BatchID:  result.BatchID,
		Duration: float64(time.Since(start).Milliseconds()),
		Data: map[string]interface{}{
			"success_count": result.SuccessCount,
			"failed_count":  result.FailedCount,
		},
	})
	return result
}

// runCode owns one code from first attempt to terminal result.
func (b *BatchCoordinator) runCode(ctx context.Context, batchID string, sem *semaphore.Weighted, code string, maxRetries int) (item ItemResult) {
	item = ItemResult{Code: code}
	defer func() {
		if r := recover(); r != nil {
			helper.Error("[Batch %s] %s panicked: %v\n%s", batchID, code, r, debug.Stack())
			item.Succeeded = false
			item.Message = fmt.Sprintf("unexpected error: %v", r)
			service.AppendLog(ctx, b.Log, code, model.ActivationLogFailed, item.Message)
		}
	}()

	var last attemptResult
	for attempt := 0; attempt <= maxRetries; attempt++ {
		item.RetryCount = attempt

		if attempt > 0 {
			helper.BatchLogger.LogRetry(batchID, code, attempt, maxRetries, last.message)
			if err := sleepContext(ctx, b.Backoff); err != nil {
				last = attemptResult{message: err.Error()}
				break
			}
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			last = attemptResult{message: err.Error()}
			break
		}
		last = b.attempt(ctx, code)
		sem.Release(1)

		if last.succeeded {
			item.Succeeded = true
			item.Message = last.message
			item.StatusText = last.statusText
			service.AppendLog(ctx, b.Log, code, model.ActivationLogSuccess, last.message)
			return item
		}
		if last.terminal || attempt == maxRetries {
			break
		}
		service.AppendLog(ctx, b.Log, code, model.ActivationLogFailed, fmt.Sprintf("attempt %d: %s", attempt+1, last.message))
	}

	item.Message = last.message
	helper.BatchLogger.LogActivationError(code, last.message, map[string]interface{}{
		"batch_id":    batchID,
		"retry_count": item.RetryCount,
	})
	service.AppendLog(ctx, b.Log, code, model.ActivationLogFailed, last.message)
	return item
}

// attempt runs one guarded activation; a panic becomes a retryable failure.
func (b *BatchCoordinator) attempt(ctx context.Context, code string) (res attemptResult) {
	defer func() {
		if r := recover(); r != nil {
			helper.Error("[Batch] attempt for %s panicked: %v", code, r)
			res = attemptResult{message: fmt.Sprintf("unexpected error: %v", r)}
		}
	}()

	card, err := b.Store.GetByCode(ctx, code)
	if err != nil {
		return attemptResult{message: fmt.Sprintf("lookup failed: %v", err)}
	}
	if card.Activated() {
		return attemptResult{succeeded: true, message: msgAlreadyActivated, statusText: service.StatusActivated}
	}
	if card == nil {
		if _, err := b.Store.CreateRecord(ctx, &model.Card{Code: code}); err != nil {
			return attemptResult{message: fmt.Sprintf("create record failed: %v", err)}
		}
	}

	outcome := b.Orchestrator.ActivateIfNeeded(ctx, code)
	if !outcome.Succeeded {
		return attemptResult{
			message:  outcome.Message,
			terminal: outcome.Permanent,
		}
	}

	// the code is consumed; a save failure must not trigger another redeem
	if _, err := service.SaveActivation(ctx, b.Store, code, *outcome.Info, b.now()); err != nil {
		return attemptResult{
			message:  fmt.Sprintf("card activated but not saved: %v", err),
			terminal: true,
		}
	}

	return attemptResult{
		succeeded:  true,
		message:    outcome.Message,
		statusText: outcome.Info.StatusText,
	}
}

func (b *BatchCoordinator) now() time.Time {
	if b.Now == nil {
		return time.Now()
	}
	return b.Now()
}

func dedupe(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	unique := make([]string, 0, len(codes))
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		unique = append(unique, code)
	}
	return unique
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func sortByInput(items []ItemResult) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].index < items[j].index
	})
}
