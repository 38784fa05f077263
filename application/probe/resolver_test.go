package probe

import (
	"context"
	"errors"
	"testing"
	"time"

	"research_probe/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_EarlierCandidateWins(t *testing.T) {
	clock := newFakeClock()
	page := newFakePage(clock)
	second := &fakeElement{text: "second"}
	page.visible["#second"] = second
	page.visible["#third"] = &fakeElement{text: "third"}

	el, match, ok := NewResolver(quietLogger()).Resolve(context.Background(), page,
		entities.SelectorCandidates{"#first", "#second", "#third"}, 3*time.Second)

	require.True(t, ok)
	assert.Same(t, second, el)
	assert.Equal(t, entities.Match{Selector: "#second", Index: 1}, match)
	assert.Equal(t, []string{"#first", "#second"}, page.waited, "later candidates must not be tried")
}

func TestResolve_FailingCandidateOnlyDisqualifiesItself(t *testing.T) {
	clock := newFakeClock()
	page := newFakePage(clock)
	page.broken["text=("] = errors.New("malformed selector")
	page.visible["#ok"] = &fakeElement{}

	_, match, ok := NewResolver(quietLogger()).Resolve(context.Background(), page,
		entities.SelectorCandidates{"text=(", "#ok"}, time.Second)

	require.True(t, ok)
	assert.Equal(t, "#ok", match.Selector)
	assert.Equal(t, 1, match.Index)
}

func TestResolve_NotFoundIsBoundedBySumOfTimeouts(t *testing.T) {
	clock := newFakeClock()
	page := newFakePage(clock)
	candidates := entities.SelectorCandidates{"#a", "#b", "#c"}

	el, _, ok := NewResolver(quietLogger()).Resolve(context.Background(), page, candidates, 2*time.Second)

	assert.False(t, ok)
	assert.Nil(t, el)
	assert.Equal(t, 6*time.Second, clock.Now().Sub(epoch))
	assert.Equal(t, []string(candidates), page.waited)
}

func TestResolve_DuplicatesAreHarmless(t *testing.T) {
	clock := newFakeClock()
	page := newFakePage(clock)
	page.visible["#x"] = &fakeElement{}

	_, match, ok := NewResolver(quietLogger()).Resolve(context.Background(), page,
		entities.SelectorCandidates{"#x", "#x"}, time.Second)

	require.True(t, ok)
	assert.Equal(t, 0, match.Index)
}

func TestResolve_CancelledContextStopsImmediately(t *testing.T) {
	clock := newFakeClock()
	page := newFakePage(clock)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, ok := NewResolver(quietLogger()).Resolve(ctx, page, entities.SelectorCandidates{"#a", "#b"}, time.Second)

	assert.False(t, ok)
	assert.Empty(t, page.waited)
	assert.Equal(t, epoch, clock.Now())
}
