package probe

import (
	"context"
	"time"

	"research_probe/domain/entities"
	"research_probe/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// Resolver finds the first visible element among prioritized selector candidates
type Resolver struct {
	logger *logrus.Logger
}

func NewResolver(logger *logrus.Logger) *Resolver {
	return &Resolver{logger: logger}
}

// Resolve - tries candidates strictly in order, waiting up to timeout for each.
// An earlier candidate always wins; a failing candidate only disqualifies itself.
func (r *Resolver) Resolve(ctx context.Context, page interfaces.Page, candidates entities.SelectorCandidates, timeout time.Duration) (interfaces.Element, entities.Match, bool) {
	for i, selector := range candidates {
		if ctx.Err() != nil {
			break
		}

		el, err := page.WaitVisible(ctx, selector, timeout)
		if err != nil {
			r.logger.WithError(err).WithFields(logrus.Fields{
				"selector": selector,
				"index":    i,
			}).Debug("Selector candidate not visible")
			continue
		}
		return el, entities.Match{Selector: selector, Index: i}, true
	}
	return nil, entities.Match{}, false
}
