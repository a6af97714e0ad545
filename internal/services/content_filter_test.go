package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentFilterFlags(t *testing.T) {
	cf := NewContentFilter()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"clean", "We planted a garden behind the dorms.", []string{}},
		{"url", "Details at https://example.com/page", []string{FlagURL}},
		{"email", "write me at someone@example.edu", []string{FlagContactInfo}},
		{"phone", "call 555-123-4567 tonight", []string{FlagContactInfo}},
		{"language", "that exam was bullshit", []string{FlagLanguage}},
		{"spam", "sooooooo good!!!!!!", []string{FlagSpam}},
		{"shouting", "THIS CLASS WAS TOTALLY AWFUL", []string{FlagShouting}},
		{"several", "scam alert www.bad.example.com", []string{FlagLanguage, FlagURL}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cf.Flags(tt.text))
		})
	}
}

func TestContentFilterEmpty(t *testing.T) {
	assert.Empty(t, NewContentFilter().Flags(""))
}
