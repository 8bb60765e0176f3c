package rates

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/BumpBTC/bumpcore/internal/models"
)

// Poller refreshes the exchange rate table on a fixed interval and hands
// each successful table to onUpdate. Fetch failures are logged and counted
// but never stop the loop and never surface as user-visible errors; the
// consumer keeps the previous table until a fetch succeeds.
type Poller struct {
	client   *Client
	interval time.Duration
	onUpdate func(models.ExchangeRateTable)
	log      zerolog.Logger

	cancel context.CancelFunc
	eg     *errgroup.Group
}

// NewPoller creates a poller over the given client.
func NewPoller(client *Client, interval time.Duration, onUpdate func(models.ExchangeRateTable), log zerolog.Logger) *Poller {
	return &Poller{
		client:   client,
		interval: interval,
		onUpdate: onUpdate,
		log:      log.With().Str("component", "rates_poller").Logger(),
	}
}

// Start fetches once immediately, then on every tick until ctx is done or
// Stop is called.
func (p *Poller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.eg, ctx = errgroup.WithContext(ctx)

	p.eg.Go(func() error {
		p.refresh(ctx)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				p.log.Info().Msg("Rate polling stopped")
				return nil
			case <-ticker.C:
				p.refresh(ctx)
			}
		}
	})
}

// Stop cancels the polling loop and waits for it to exit.
func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
		_ = p.eg.Wait()
	}
}

func (p *Poller) refresh(ctx context.Context) {
	table, err := p.client.Fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.log.Warn().Err(err).Msg("Rate refresh failed, keeping previous table")
		return
	}

	p.log.Debug().Int("symbols", len(table)).Msg("Rate table refreshed")
	if p.onUpdate != nil {
		p.onUpdate(table)
	}
}
