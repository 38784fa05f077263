package transform

import (
	"fmt"
	"strings"

	"research_probe/domain/interfaces"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

// chromeSelectors match response toolbar widgets that carry no answer content
var chromeSelectors = []string{
	"button",
	"svg",
	"script",
	"style",
	"[role='toolbar']",
	"[data-testid*='copy']",
	"[aria-hidden='true']",
}

type markdownRenderer struct {
	logger *logrus.Logger
}

// NewMarkdownRenderer - creates the HTML to Markdown renderer used for captured responses
func NewMarkdownRenderer(logger *logrus.Logger) interfaces.ResponseRenderer {
	return &markdownRenderer{logger: logger}
}

// Render - strips UI chrome from html and converts the remainder to Markdown
func (r *markdownRenderer) Render(html string, baseURL string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil
	}

	cleaned, err := stripChrome(html)
	if err != nil {
		return "", err
	}

	converter := md.NewConverter(baseURL, true, nil)
	converted, err := converter.ConvertString(cleaned)
	if err != nil {
		return "", fmt.Errorf("failed to convert response to markdown: %w", err)
	}

	converted = strings.TrimSpace(converted)
	r.logger.WithFields(logrus.Fields{
		"html_length":     len(html),
		"markdown_length": len(converted),
	}).Debug("Rendered response as markdown")

	return converted, nil
}

func stripChrome(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse response html: %w", err)
	}

	doc.Find(strings.Join(chromeSelectors, ", ")).Remove()

	body, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("failed to serialize response html: %w", err)
	}
	return body, nil
}
