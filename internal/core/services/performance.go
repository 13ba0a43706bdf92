package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/pawclause/internal/core/domain"
	"github.com/custodia-labs/pawclause/internal/core/ports/driven"
	"github.com/custodia-labs/pawclause/internal/core/ports/driving"
	"github.com/custodia-labs/pawclause/internal/logger"
)

var _ driving.PerformanceReporter = (*PerformanceLog)(nil)

// Alert thresholds.
const (
	alertErrorRate      = 20.0
	alertAverageLatency = 10.0
	alertRecentErrors   = 3
	alertRecentWindow   = 5 * time.Minute
	recentEntries       = 5
)

// PerformanceLog collects one entry per processed question.
// Appends are serialised; an optional store keeps entries across runs.
type PerformanceLog struct {
	mu      sync.Mutex
	entries []domain.PerformanceEntry
	store   driven.QueryLogStore
	started time.Time
	now     func() time.Time
}

// NewPerformanceLog creates a log. store may be nil.
func NewPerformanceLog(store driven.QueryLogStore) *PerformanceLog {
	return &PerformanceLog{
		store:   store,
		started: time.Now(),
		now:     time.Now,
	}
}

// Load replaces the in-memory entries with the persisted ones.
func (l *PerformanceLog) Load(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	entries, err := l.store.ListQueryLog(ctx, 0)
	if err != nil {
		return fmt.Errorf("load query log: %w", err)
	}
	l.mu.Lock()
	l.entries = entries
	l.mu.Unlock()
	return nil
}

// Append records an entry. A store failure is logged, not returned.
func (l *PerformanceLog) Append(ctx context.Context, entry domain.PerformanceEntry) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()

	if l.store != nil {
		if err := l.store.AppendQueryLog(ctx, entry); err != nil {
			logger.Warn("persist query log entry: %v", err)
		}
	}
}

// Entries returns a copy of every entry in order.
func (l *PerformanceLog) Entries() []domain.PerformanceEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.PerformanceEntry(nil), l.entries...)
}

// Reset clears the log and its store.
func (l *PerformanceLog) Reset(ctx context.Context) error {
	l.mu.Lock()
	l.entries = nil
	l.started = l.now()
	l.mu.Unlock()

	if l.store != nil {
		if err := l.store.ClearQueryLog(ctx); err != nil {
			return fmt.Errorf("clear query log: %w", err)
		}
	}
	return nil
}

// Stats aggregates the log.
func (l *PerformanceLog) Stats() domain.PerformanceStats {
	l.mu.Lock()
	entries := append([]domain.PerformanceEntry(nil), l.entries...)
	started := l.started
	l.mu.Unlock()

	now := l.now()
	stats := domain.PerformanceStats{
		TotalQueries:  len(entries),
		CompanyUsage:  make(map[string]int),
		RecentEntries: []domain.PerformanceEntry{},
		Uptime:        now.Sub(started),
	}
	if len(entries) == 0 {
		return stats
	}

	var totalTime float64
	recentErrors := 0
	for _, e := range entries {
		totalTime += e.ExecutionTime
		if e.Success {
			stats.SuccessfulQueries++
		} else if now.Sub(e.Timestamp) < alertRecentWindow {
			recentErrors++
		}
		for _, c := range e.Companies {
			stats.CompanyUsage[c]++
		}
	}

	total := float64(len(entries))
	stats.SuccessRate = float64(stats.SuccessfulQueries) / total * 100
	stats.AverageExecutionTime = totalTime / total
	stats.RecentEntries = entries[max(0, len(entries)-recentEntries):]

	errorRate := float64(len(entries)-stats.SuccessfulQueries) / total * 100
	if errorRate > alertErrorRate {
		stats.Alerts = append(stats.Alerts, fmt.Sprintf("높은 에러율: %.1f%% (임계값: 20%%)", errorRate))
	}
	if stats.AverageExecutionTime > alertAverageLatency {
		stats.Alerts = append(stats.Alerts,
			fmt.Sprintf("느린 응답 시간: %.2f초 (임계값: 10초)", stats.AverageExecutionTime))
	}
	if recentErrors >= alertRecentErrors {
		stats.Alerts = append(stats.Alerts, "최근 5분간 에러가 3회 이상 발생했습니다.")
	}
	return stats
}

// PerformanceStats returns Stats.
func (l *PerformanceLog) PerformanceStats() domain.PerformanceStats {
	return l.Stats()
}

// ResetPerformance calls Reset.
func (l *PerformanceLog) ResetPerformance(ctx context.Context) error {
	return l.Reset(ctx)
}
