package probe

import (
	"context"
	"time"

	"research_probe/domain/entities"
	"research_probe/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// Poller waits while any busy indicator is visible, bounded by a ceiling
type Poller struct {
	Indicators []string
	Interval   time.Duration
	MaxWait    time.Duration

	clock  Clock
	logger *logrus.Logger
}

func NewPoller(indicators []string, interval, maxWait time.Duration, clock Clock, logger *logrus.Logger) *Poller {
	return &Poller{
		Indicators: indicators,
		Interval:   interval,
		MaxWait:    maxWait,
		clock:      clock,
		logger:     logger,
	}
}

// Wait - polls until no indicator is visible (Complete) or the ceiling is hit (TimedOut).
// onBusy is called after every tick that still saw an indicator. The only error is ctx's.
func (p *Poller) Wait(ctx context.Context, page interfaces.Page, onBusy func(entities.PollState)) (entities.PollState, error) {
	state := entities.PollState{
		Phase:      entities.PollWaiting,
		MaxWait:    p.MaxWait,
		Interval:   p.Interval,
		Indicators: p.Indicators,
	}

	start := p.clock.Now()
	for {
		if err := ctx.Err(); err != nil {
			return state, err
		}

		busy := p.busy(ctx, page)
		state.Ticks++
		state.Elapsed = p.clock.Now().Sub(start)

		if !busy {
			state.Phase = entities.PollComplete
			return state, nil
		}
		if state.Elapsed >= p.MaxWait {
			state.Phase = entities.PollTimedOut
			return state, nil
		}
		if onBusy != nil {
			onBusy(state)
		}

		wait := min(p.Interval, p.MaxWait-state.Elapsed)
		if err := p.clock.Sleep(ctx, wait); err != nil {
			return state, err
		}
	}
}

func (p *Poller) busy(ctx context.Context, page interfaces.Page) bool {
	for _, indicator := range p.Indicators {
		visible, err := page.IsVisible(ctx, indicator)
		if err != nil {
			p.logger.WithError(err).WithField("indicator", indicator).Debug("Busy indicator check failed")
			continue
		}
		if visible {
			return true
		}
	}
	return false
}
