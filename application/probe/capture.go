package probe

import (
	"context"
	"unicode/utf8"

	"research_probe/domain/entities"
	"research_probe/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// Capturer extracts the newest qualifying response block from the page
type Capturer struct {
	renderer interfaces.ResponseRenderer
	clock    Clock
	logger   *logrus.Logger
}

// NewCapturer - renderer may be nil, then only plain text is captured
func NewCapturer(renderer interfaces.ResponseRenderer, clock Clock, logger *logrus.Logger) *Capturer {
	return &Capturer{renderer: renderer, clock: clock, logger: logger}
}

// Capture - for each candidate looks only at the last match and accepts it when
// its text is longer than minLength. The first accepted candidate wins.
func (c *Capturer) Capture(ctx context.Context, page interfaces.Page, candidates entities.SelectorCandidates, minLength int) (entities.CapturedResponse, bool) {
	for _, selector := range candidates {
		if ctx.Err() != nil {
			break
		}

		elements, err := page.QueryAll(ctx, selector)
		if err != nil || len(elements) == 0 {
			if err != nil {
				c.logger.WithError(err).WithField("selector", selector).Debug("Response candidate query failed")
			}
			continue
		}

		last := elements[len(elements)-1]
		text, err := last.InnerText(ctx)
		if err != nil {
			c.logger.WithError(err).WithField("selector", selector).Debug("Failed to read response text")
			continue
		}
		if utf8.RuneCountInString(text) <= minLength {
			c.logger.WithFields(logrus.Fields{
				"selector": selector,
				"length":   utf8.RuneCountInString(text),
			}).Debug("Response candidate too short")
			continue
		}

		return entities.CapturedResponse{
			Text:           text,
			Markdown:       c.render(ctx, page, last),
			SourceSelector: selector,
			CapturedAt:     c.clock.Now(),
		}, true
	}
	return entities.CapturedResponse{}, false
}

func (c *Capturer) render(ctx context.Context, page interfaces.Page, el interfaces.Element) string {
	if c.renderer == nil {
		return ""
	}

	html, err := el.InnerHTML(ctx)
	if err != nil {
		c.logger.WithError(err).Debug("Failed to read response html")
		return ""
	}

	markdown, err := c.renderer.Render(html, page.URL())
	if err != nil {
		c.logger.WithError(err).Warn("Failed to render response as markdown")
		return ""
	}
	return markdown
}
