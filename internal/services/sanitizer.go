package services

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/models"
)

const (
	TitleMinLen = 5
	TitleMaxLen = 200
	BodyMinLen  = 50
	BodyMaxLen  = 2000

	// sanitizePasses bounds the strip loop; nested payloads such as
	// "<scr<script></script>ipt>" need more than one pass to collapse.
	sanitizePasses = 5
)

// Tags removed together with everything between their open and close tags.
var blockedTags = []string{
	"script", "iframe", "object", "embed", "form", "textarea", "button", "style",
}

// Tags removed on their own even when unpaired.
var blockedVoidTags = []string{"input", "embed"}

// SanitizedContent is plain text, trimmed and length-checked.
type SanitizedContent struct {
	Title    string
	Body     string
	Category string
}

type ContentSanitizer struct {
	pairedTags []*regexp.Regexp
	loneTags   *regexp.Regexp
	comments   *regexp.Regexp
	uriSchemes *regexp.Regexp
	handlers   *regexp.Regexp
	tagSpan    *regexp.Regexp
	anyTag     *regexp.Regexp
	malicious  []*regexp.Regexp
}

func NewContentSanitizer() *ContentSanitizer {
	cs := &ContentSanitizer{}

	cs.pairedTags = make([]*regexp.Regexp, 0, len(blockedTags))
	for _, tag := range blockedTags {
		cs.pairedTags = append(cs.pairedTags,
			regexp.MustCompile(`(?is)<\s*`+tag+`\b[^>]*>.*?<\s*/\s*`+tag+`\s*>`))
	}

	lone := append(append([]string{}, blockedTags...), blockedVoidTags...)
	cs.loneTags = regexp.MustCompile(`(?i)<\s*/?\s*(` + strings.Join(lone, "|") + `)\b[^>]*>`)
	cs.comments = regexp.MustCompile(`(?s)<!--.*?-->`)
	cs.uriSchemes = regexp.MustCompile(`(?i)(?:javascript|vbscript)\s*:|\bdata\s*:\s*[a-z]+/[a-z0-9.+-]+`)
	cs.handlers = regexp.MustCompile(`(?i)\bon[a-z]+\s*=\s*("[^"]*"|'[^']*')`)
	// An opening tag whose quoted attribute values may contain '>'.
	cs.tagSpan = regexp.MustCompile(`<[a-zA-Z][^>"']*(?:(?:"[^"]*"|'[^']*')[^>"']*)*>`)
	cs.anyTag = regexp.MustCompile(`</?[a-zA-Z!][^>]*>`)

	cs.malicious = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<\s*/?\s*script`),
		regexp.MustCompile(`(?i)javascript\s*:`),
		regexp.MustCompile(`(?i)<[a-z][^>]*\bon[a-z]+\s*=`),
	}
	return cs
}

// Sanitize strips executable markup from title and body, reduces both to
// plain text and enforces the length policy. Category is normalized against
// models.StoryCategories, falling back to models.DefaultCategory when empty.
func (cs *ContentSanitizer) Sanitize(title, body, category string) (*SanitizedContent, error) {
	if !utf8.ValidString(title) {
		return nil, invalid("title", "must be valid UTF-8 text")
	}
	if !utf8.ValidString(body) {
		return nil, invalid("body", "must be valid UTF-8 text")
	}

	cleanTitle := strings.TrimSpace(cs.Strip(title))
	cleanBody := strings.TrimSpace(cs.Strip(body))

	if n := utf8.RuneCountInString(cleanTitle); n < TitleMinLen || n > TitleMaxLen {
		return nil, invalid("title", "must be between 5 and 200 characters")
	}
	if n := utf8.RuneCountInString(cleanBody); n < BodyMinLen || n > BodyMaxLen {
		return nil, invalid("body", "must be between 50 and 2000 characters")
	}

	if cs.LooksMalicious(cleanBody) {
		return nil, invalid("body", "contains disallowed content")
	}
	if cs.LooksMalicious(cleanTitle) {
		return nil, invalid("title", "contains disallowed content")
	}

	cat, err := NormalizeCategory(category)
	if err != nil {
		return nil, err
	}

	return &SanitizedContent{Title: cleanTitle, Body: cleanBody, Category: cat}, nil
}

// Strip removes blocked elements, dangerous URI schemes, inline handlers
// inside tags and then every remaining tag, repeating until the text stops changing.
func (cs *ContentSanitizer) Strip(s string) string {
	for i := 0; i < sanitizePasses; i++ {
		prev := s
		s = cs.comments.ReplaceAllString(s, "")
		for _, re := range cs.pairedTags {
			s = re.ReplaceAllString(s, "")
		}
		s = cs.loneTags.ReplaceAllString(s, "")
		s = cs.tagSpan.ReplaceAllStringFunc(s, func(tag string) string {
			return cs.handlers.ReplaceAllString(tag, "")
		})
		s = cs.uriSchemes.ReplaceAllString(s, "")
		s = cs.anyTag.ReplaceAllString(s, "")
		if s == prev {
			break
		}
	}
	return stripControl(s)
}

// LooksMalicious is the backstop check run on already sanitized text.
func (cs *ContentSanitizer) LooksMalicious(s string) bool {
	for _, re := range cs.malicious {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// NormalizeCategory lower-cases and validates c.
func NormalizeCategory(c string) (string, error) {
	c = strings.ToLower(strings.TrimSpace(c))
	if c == "" {
		return models.DefaultCategory, nil
	}
	if !models.IsCategory(c) {
		return "", invalid("category", "must be one of "+strings.Join(models.StoryCategories, ", "))
	}
	return c, nil
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
