// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// DefaultLanguages are the display languages used when none are configured.
var DefaultLanguages = []string{"en", "de"}

// LanguageMatcher maps an upstream locale claim to a supported display language.
type LanguageMatcher struct {
	supported []string
	matcher   language.Matcher
	fallback  string
}

// NewLanguageMatcher builds a matcher over supported. fallback must be one
// of them and is returned for absent or unmatched locales.
func NewLanguageMatcher(supported []string, fallback string) (*LanguageMatcher, error) {
	if len(supported) == 0 {
		return nil, fmt.Errorf("at least one supported language is required")
	}
	tags := make([]language.Tag, 0, len(supported))
	found := false
	for _, s := range supported {
		tag, err := language.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid language %q: %w", s, err)
		}
		tags = append(tags, tag)
		if s == fallback {
			found = true
		}
	}
	if !found {
		return nil, fmt.Errorf("default language %q is not among the supported languages", fallback)
	}
	return &LanguageMatcher{
		supported: supported,
		matcher:   language.NewMatcher(tags),
		fallback:  fallback,
	}, nil
}

// Match returns the supported language closest to locale.
func (m *LanguageMatcher) Match(locale string) string {
	locale = strings.TrimSpace(strings.ReplaceAll(locale, "_", "-"))
	if locale == "" {
		return m.fallback
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return m.fallback
	}
	_, idx, conf := m.matcher.Match(tag)
	if conf == language.No {
		return m.fallback
	}
	return m.supported[idx]
}
