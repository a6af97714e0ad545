package services

import (
	"regexp"
)

const (
	FlagLanguage    = "inappropriate_language"
	FlagURL         = "contains_url"
	FlagContactInfo = "contains_contact_info"
	FlagSpam        = "possible_spam"
	FlagShouting    = "excessive_caps"
)

var BannedWords = []string{
	"fuck", "fucking", "fucker", "shit", "shitty", "bullshit",
	"asshole", "bastard", "bitch", "cunt",
	"nigger", "nigga", "chink", "spic", "kike", "faggot", "fag",
	"retard", "retarded", "tranny",
	"porn", "porno", "nude", "nudes",
	"scam", "scammer", "phishing", "malware",
}

// ContentFilter attaches advisory flags to a submission for moderators.
// It never rejects content; a flagged story is still created as pending.
type ContentFilter struct {
	bannedWordRegexps   []*regexp.Regexp
	urlPattern          *regexp.Regexp
	emailPattern        *regexp.Regexp
	phonePattern        *regexp.Regexp
	repeatedCharPattern *regexp.Regexp
	allCapsPattern      *regexp.Regexp
}

func NewContentFilter() *ContentFilter {
	cf := &ContentFilter{}

	cf.bannedWordRegexps = make([]*regexp.Regexp, 0, len(BannedWords))
	for _, word := range BannedWords {
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
		if err == nil {
			cf.bannedWordRegexps = append(cf.bannedWordRegexps, re)
		}
	}

	cf.urlPattern = regexp.MustCompile(`(?i)(https?://\S+|www\.\S+\.\S+)`)
	cf.emailPattern = regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)
	cf.phonePattern = regexp.MustCompile(`\d{3}[-.\s]?\d{3}[-.\s]?\d{4}|\(\d{3}\)\s*\d{3}[-.\s]?\d{4}`)
	cf.repeatedCharPattern = regexp.MustCompile(`(?i)(a{5,}|e{5,}|i{5,}|o{5,}|u{5,}|!{5,}|\?{5,}|\.{6,})`)
	cf.allCapsPattern = regexp.MustCompile(`\b[A-Z]{5,}\b`)
	return cf
}

// Flags returns every flag raised by text, in a stable order.
func (cf *ContentFilter) Flags(text string) []string {
	flags := []string{}
	if text == "" {
		return flags
	}

	for _, re := range cf.bannedWordRegexps {
		if re.MatchString(text) {
			flags = append(flags, FlagLanguage)
			break
		}
	}
	if cf.urlPattern.MatchString(text) {
		flags = append(flags, FlagURL)
	}
	if cf.emailPattern.MatchString(text) || cf.phonePattern.MatchString(text) {
		flags = append(flags, FlagContactInfo)
	}
	if cf.repeatedCharPattern.MatchString(text) {
		flags = append(flags, FlagSpam)
	}
	if len(cf.allCapsPattern.FindAllString(text, -1)) > 2 {
		flags = append(flags, FlagShouting)
	}
	return flags
}
