package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuestion_MentionsReportPath(t *testing.T) {
	for _, base := range []string{"/srv/cinema", "", "C:\\cinema", "/tmp/with space"} {
		q := Question(base)
		assert.Contains(t, q, "reports/")
		assert.Contains(t, q, "YYYYMMDD.md")
		assert.Contains(t, q, base+"/\n")
		assert.NotContains(t, q, "%!")
	}
}

func TestQuestion_ListsColumnsInOrder(t *testing.T) {
	q := Question("/base")

	last := -1
	for _, c := range ReportColumns {
		idx := strings.Index(q, "- "+c+"\n")
		if assert.GreaterOrEqual(t, idx, 0, "missing column %q", c) {
			assert.Greater(t, idx, last, "column %q out of order", c)
			last = idx
		}
	}
}

func TestSystemPrompt_ContainsSourceURLs(t *testing.T) {
	for _, u := range []string{
		"https://sadecines.com/",
		"https://letterboxd.com/gonzalo123/films/diary/",
		"https://letterboxd.com/gonzalo123/list/cine-2025/detail/",
	} {
		assert.Contains(t, SystemPrompt, u)
	}
	assert.Contains(t, SystemPrompt, `"children"`)
	assert.Contains(t, SystemPrompt, "IMDb and Metacritic")
}
