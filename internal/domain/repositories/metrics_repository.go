package repositories

import (
	"time"

	"github.com/rios0rios0/seoremedy/internal/domain/entities"
)

// MetricsRepository records operational counters and timings.
type MetricsRepository interface {
	PageCrawled(outcome string, duration time.Duration)
	CrawlFinished(pages int, duration time.Duration)
	BatchTransition(status entities.BatchStatus)
	ChangeRecorded(changeType entities.ChangeType)
	FixOutcome(outcome string)
	VCSCommand(operation string, duration time.Duration, err error)
}
