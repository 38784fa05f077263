package transform

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRenderer() *markdownRenderer {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return &markdownRenderer{logger: logger}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name        string
		html        string
		contains    []string
		notContains []string
	}{
		{
			name:     "headings and lists",
			html:     `<h2>Debugging stutter</h2><ol><li>Enable GPU profiling</li><li>Check thermal throttling</li></ol>`,
			contains: []string{"## Debugging stutter", "1. Enable GPU profiling", "2. Check thermal throttling"},
		},
		{
			name:        "toolbar buttons removed",
			html:        `<p>Use <strong>adb</strong> to capture a trace.</p><div role="toolbar"><button>Copy</button></div>`,
			contains:    []string{"Use **adb** to capture a trace."},
			notContains: []string{"Copy"},
		},
		{
			name:        "hidden decorations removed",
			html:        `<p>Answer</p><span aria-hidden="true">decoration</span><svg><path d="M0"/></svg>`,
			contains:    []string{"Answer"},
			notContains: []string{"decoration", "path"},
		},
	}

	r := newRenderer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := r.Render(tt.html, "https://chatgpt.com")
			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.notContains {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestRender_Empty(t *testing.T) {
	out, err := newRenderer().Render("   ", "")
	require.NoError(t, err)
	assert.Empty(t, out)
}
