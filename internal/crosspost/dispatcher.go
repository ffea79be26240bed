// Package crosspost pushes published articles to secondary distribution
// channels, rate-limited, oldest backlog first.
package crosspost

import (
	"context"
	"fmt"
	"time"

	"github.com/citegap/citegap/internal/domain"
	"github.com/citegap/citegap/internal/logger"
	"golang.org/x/time/rate"
)

// Channel is one secondary distribution target.
type Channel interface {
	// Name matches the channel's URL column in the content store.
	Name() string
	// Available reports whether the channel has credentials.
	Available() bool
	// Push publishes one article and returns its URL on the channel.
	Push(ctx context.Context, content *domain.GeneratedContent) (string, error)
}

// ContentBacklog is the store surface the dispatcher sweeps.
type ContentBacklog interface {
	ListMissingChannelURL(ctx context.Context, channel string, limit int) ([]domain.GeneratedContent, error)
	SetChannelURL(ctx context.Context, id int64, channel, url string) error
}

// ChannelResult reports one channel's sweep outcome.
type ChannelResult struct {
	Channel string
	Pushed  int
	Errors  []string
}

// Dispatcher sweeps the crosspost backlog for every channel.
type Dispatcher struct {
	backlog   ContentBacklog
	channels  []Channel
	batchSize int
	limiter   *rate.Limiter
	log       logger.Logger
}

// New creates a dispatcher. delay paces consecutive pushes.
func New(backlog ContentBacklog, channels []Channel, batchSize int, delay time.Duration, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		backlog:   backlog,
		channels:  channels,
		batchSize: batchSize,
		limiter:   rate.NewLimiter(rate.Every(delay), 1),
		log:       log,
	}
}

// Sweep processes each channel independently: up to batchSize published
// articles lacking that channel's URL, oldest first. Per-article failures
// are logged and the sweep continues; a channel without credentials is
// skipped entirely.
func (d *Dispatcher) Sweep(ctx context.Context) []ChannelResult {
	results := make([]ChannelResult, 0, len(d.channels))

	for _, channel := range d.channels {
		if !channel.Available() {
			d.log.Debug("Crosspost channel skipped, no credentials",
				logger.String("channel", channel.Name()),
			)
			continue
		}

		results = append(results, d.sweepChannel(ctx, channel))
	}

	return results
}

func (d *Dispatcher) sweepChannel(ctx context.Context, channel Channel) ChannelResult {
	result := ChannelResult{Channel: channel.Name()}

	backlog, listErr := d.backlog.ListMissingChannelURL(ctx, channel.Name(), d.batchSize)
	if listErr != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("list backlog: %v", listErr))
		return result
	}

	for i := range backlog {
		article := &backlog[i]

		if waitErr := d.limiter.Wait(ctx); waitErr != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("pacing interrupted: %v", waitErr))
			return result
		}

		url, pushErr := channel.Push(ctx, article)
		if pushErr != nil {
			d.log.Warn("Crosspost push failed",
				logger.String("channel", channel.Name()),
				logger.String("slug", article.Slug),
				logger.Error(pushErr),
			)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", article.Slug, pushErr))
			continue
		}

		if saveErr := d.backlog.SetChannelURL(ctx, article.ID, channel.Name(), url); saveErr != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: record url: %v", article.Slug, saveErr))
			continue
		}

		result.Pushed++
	}

	return result
}
