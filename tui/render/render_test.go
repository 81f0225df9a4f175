package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const answer = `# Saturday first session

| Title | Genre | IMDb Rating |
|-------|-------|-------------|
| Anora | Drama | 7.5         |

Recommended: **Anora**`

func TestRenderer_Markdown(t *testing.T) {
	r, err := New("notty", 80)
	require.NoError(t, err)

	out := r.Markdown(answer)
	assert.Contains(t, out, "Saturday first session")
	assert.Contains(t, out, "Anora")
	assert.Contains(t, out, "IMDb Rating")
	assert.NotContains(t, out, "|-------|")
}

func TestRenderer_Answer(t *testing.T) {
	r, err := New("notty", 0)
	require.NoError(t, err)

	out := r.Answer("MovieAdvisor", "Go see **Anora**.", "/srv/cinema/reports/20250315.md")
	assert.True(t, strings.HasPrefix(out, "MovieAdvisor:"))
	assert.Contains(t, out, "Anora")
	assert.Contains(t, out, "Report: /srv/cinema/reports/20250315.md")

	out = r.Answer("MovieAdvisor", "plain", "")
	assert.NotContains(t, out, "Report:")
}

func TestRenderer_FallsBackToRawContent(t *testing.T) {
	var r Renderer
	assert.Equal(t, "# raw", r.Markdown("# raw"))

	_, err := New("no-such-style", 80)
	assert.Error(t, err)
}
