package httphandler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderMarkdown_EmptyInput(t *testing.T) {
	assert.Equal(t, "", RenderMarkdown(""))
}

func TestRenderMarkdown_Link(t *testing.T) {
	result := RenderMarkdown("[the User Page](/account)")
	assert.Contains(t, result, `<a href="/account"`)
	assert.Contains(t, result, "the User Page</a>")
}

func TestRenderMarkdown_SanitizesScript(t *testing.T) {
	result := RenderMarkdown(`<script>alert("xss")</script>`)
	assert.NotContains(t, result, "<script>")
}

func TestRenderMarkdown_GFMStrikethrough(t *testing.T) {
	result := RenderMarkdown("~~deleted~~")
	assert.Contains(t, result, "<del>deleted</del>")
}

func TestEmptyStateMessage(t *testing.T) {
	msg := emptyStateMessage()

	assert.Equal(t, "No repos have been added yet!", msg.Title)
	assert.Contains(t, msg.Markdown, "API key")
	assert.Contains(t, msg.HTML, `<a href="/account"`)
	assert.Contains(t, msg.HTML, "invoke the DEVisible application")
}
