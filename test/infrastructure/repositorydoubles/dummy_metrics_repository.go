//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"sync"
	"time"

	"github.com/rios0rios0/seoremedy/internal/domain/entities"
	"github.com/rios0rios0/seoremedy/internal/domain/repositories"
)

// DummyMetricsRepository counts metric calls without exporting anything.
type DummyMetricsRepository struct {
	mu sync.Mutex

	PageOutcomes  []string
	CrawlPages    []int
	Transitions   []entities.BatchStatus
	ChangeTypes   []entities.ChangeType
	FixOutcomes   []string
	VCSOperations []string
}

var _ repositories.MetricsRepository = (*DummyMetricsRepository)(nil)

func (d *DummyMetricsRepository) PageCrawled(outcome string, _ time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.PageOutcomes = append(d.PageOutcomes, outcome)
}

func (d *DummyMetricsRepository) CrawlFinished(pages int, _ time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CrawlPages = append(d.CrawlPages, pages)
}

func (d *DummyMetricsRepository) BatchTransition(status entities.BatchStatus) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Transitions = append(d.Transitions, status)
}

func (d *DummyMetricsRepository) ChangeRecorded(changeType entities.ChangeType) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ChangeTypes = append(d.ChangeTypes, changeType)
}

func (d *DummyMetricsRepository) FixOutcome(outcome string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.FixOutcomes = append(d.FixOutcomes, outcome)
}

func (d *DummyMetricsRepository) VCSCommand(operation string, _ time.Duration, _ error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.VCSOperations = append(d.VCSOperations, operation)
}
