package security

import (
	"context"
	"net/url"
	"strings"
	"time"

	"research_probe/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// loginPathKeywords mark URLs that belong to a sign-in flow
var loginPathKeywords = []string{
	"login", "log-in", "signin", "sign-in", "auth", "sso", "oauth",
}

type AuthGate struct {
	selectors    []string
	probeTimeout time.Duration
	logger       *logrus.Logger
}

// NewAuthGate - creates a login wall detector over the given selector candidates
func NewAuthGate(selectors []string, probeTimeout time.Duration, logger *logrus.Logger) *AuthGate {
	return &AuthGate{
		selectors:    selectors,
		probeTimeout: probeTimeout,
		logger:       logger,
	}
}

// Detect - checks the URL first, then each gate selector. With a positive budget the
// per-selector timeouts together never exceed it.
func (g *AuthGate) Detect(ctx context.Context, page interfaces.Page, budget time.Duration) (bool, string) {
	if keyword, ok := isLoginURL(page.URL()); ok {
		return true, "url:" + keyword
	}

	bounded := budget > 0
	for _, selector := range g.selectors {
		if ctx.Err() != nil {
			return false, ""
		}
		timeout := g.probeTimeout
		if bounded {
			if budget <= 0 {
				break
			}
			timeout = min(timeout, budget)
			budget -= timeout
		}
		_, err := page.WaitVisible(ctx, selector, timeout)
		if err == nil {
			return true, selector
		}
		g.logger.WithError(err).WithField("selector", selector).Debug("auth gate selector not visible")
	}
	return false, ""
}

func isLoginURL(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	lowerHost := strings.ToLower(u.Host)
	segments := strings.FieldsFunc(strings.ToLower(u.Path), func(r rune) bool {
		return r == '/' || r == '-' || r == '_'
	})
	for _, keyword := range loginPathKeywords {
		if strings.HasPrefix(lowerHost, keyword+".") || hasSegments(segments, strings.Split(keyword, "-")) {
			return keyword, true
		}
	}
	return "", false
}

// hasSegments - true when want appears as a run of consecutive path segments
func hasSegments(segments, want []string) bool {
	for i := 0; i+len(want) <= len(segments); i++ {
		match := true
		for j, w := range want {
			if segments[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

var _ interfaces.AuthGate = (*AuthGate)(nil)
