package services

import (
	"strings"
	"testing"

	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validBody = "I spent the spring term in Lisbon and learned more from missing the last tram than from any lecture."

func TestStripRemovesScriptAndContents(t *testing.T) {
	cs := NewContentSanitizer()
	assert.Equal(t, "Hello", cs.Strip("<script>alert(1)</script>Hello"))
}

func TestStripRemovesDangerousSchemes(t *testing.T) {
	cs := NewContentSanitizer()

	out := cs.Strip("click javascript:alert(1) now")
	assert.NotContains(t, strings.ToLower(out), "javascript:")
	assert.Contains(t, out, "alert(1)")

	out = cs.Strip("VBScript :msgbox and data:text/html;base64,PHNjcmlwdD4=")
	assert.NotContains(t, strings.ToLower(out), "vbscript")
	assert.NotContains(t, out, "data:text/html")
}

func TestStripKeepsOrdinaryColons(t *testing.T) {
	cs := NewContentSanitizer()
	in := "The data: we collected it over three weeks. Time: 5pm."
	assert.Equal(t, in, cs.Strip(in))
}

func TestStripCases(t *testing.T) {
	cs := NewContentSanitizer()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"inline handler", `<img src=x onerror="alert(1)">Nice`, "Nice"},
		{"handler value hiding a bracket", `<img src=x onerror="a>b">Nice`, "Nice"},
		{"handler-like prose", `my advisor once said only="no" and left`, `my advisor once said only="no" and left`},
		{"iframe with body", `before<iframe src="//evil">x</iframe>after`, "beforeafter"},
		{"unpaired input", `name <input type="text"> here`, "name  here"},
		{"plain markup", `<b>bold</b> and <i>italic</i>`, "bold and italic"},
		{"comment", `a<!-- <script>x</script> -->b`, "ab"},
		{"control chars", "line\x00one\x07", "lineone"},
		{"style block", `<style>body{display:none}</style>visible`, "visible"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cs.Strip(tt.in))
		})
	}
}

func TestStripCollapsesNestedPayloads(t *testing.T) {
	cs := NewContentSanitizer()

	out := cs.Strip("<scr<script></script>ipt>alert(1)</script>")
	assert.NotContains(t, out, "<")
	assert.False(t, cs.LooksMalicious(out))

	out = cs.Strip("jajavascript:vascript:alert(1)")
	assert.NotContains(t, strings.ToLower(out), "javascript:")
}

func TestSanitizeAcceptsValidStory(t *testing.T) {
	cs := NewContentSanitizer()

	got, err := cs.Sanitize("  My Semester Abroad  ", "<p>"+validBody+"</p>", "Academics")
	require.NoError(t, err)
	assert.Equal(t, "My Semester Abroad", got.Title)
	assert.Equal(t, validBody, got.Body)
	assert.Equal(t, "academics", got.Category)
}

func TestSanitizeDefaultsCategory(t *testing.T) {
	got, err := NewContentSanitizer().Sanitize("A fine title", validBody, "")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultCategory, got.Category)
}

func TestSanitizeKeepsAttributeLikeProse(t *testing.T) {
	cs := NewContentSanitizer()
	body := `When I asked to switch majors my advisor once said only="no" and went back to lunch, so I switched anyway.`

	out, err := cs.Sanitize("Switching majors", body, "")
	require.NoError(t, err)
	assert.Equal(t, body, out.Body)

	_, err = cs.Sanitize("Switching majors", validBody+` <img src=x onerror=alert(1)`, "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "body", verr.Field)
}

func TestSanitizeRejects(t *testing.T) {
	cs := NewContentSanitizer()

	tests := []struct {
		name     string
		title    string
		body     string
		category string
		field    string
	}{
		{"short title", "Hey", validBody, "", "title"},
		{"long title", strings.Repeat("t", TitleMaxLen+1), validBody, "", "title"},
		{"short body", "A fine title", "Too short to count as a story.", "", "body"},
		{"body short after stripping", "A fine title", "<script>" + validBody + "</script>ok", "", "body"},
		{"long body", "A fine title", strings.Repeat("b", BodyMaxLen+1), "", "body"},
		{"unknown category", "A fine title", validBody, "gossip", "category"},
		{"invalid utf8", "A fine title", validBody + "\xff", "", "body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := cs.Sanitize(tt.title, tt.body, tt.category)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestSanitizeCountsRunesNotBytes(t *testing.T) {
	body := strings.Repeat("ü", BodyMinLen)
	_, err := NewContentSanitizer().Sanitize("Grüße aus Wien", body, "")
	assert.NoError(t, err)
}
