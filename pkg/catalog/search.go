// OpenXR Launcher
// Copyright (c) 2026 The OpenXR Launcher Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of OpenXR Launcher.
//
// OpenXR Launcher is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// OpenXR Launcher is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with OpenXR Launcher.  If not, see <http://www.gnu.org/licenses/>.

package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/hbollon/go-edlib"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MinSimilarity is the Jaro-Winkler score a fuzzy match needs.
const MinSimilarity float32 = 0.85

var (
	ErrNoMatch        = errors.New("no title matches")
	ErrAmbiguousMatch = errors.New("query matches several titles")
)

// Search finds the title a user meant. It tries the exact ID, then the
// name ignoring case and accents, then the closest Jaro-Winkler match. An
// exact name shared by two titles is ambiguous, as is a fuzzy tie.
func Search(titles []Title, query string) (Title, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Title{}, ErrNoMatch
	}

	for _, t := range titles {
		if t.ID == query {
			return t, nil
		}
	}

	folded := FoldName(query)
	var exact []Title
	for _, t := range titles {
		if FoldName(t.Name) == folded {
			exact = append(exact, t)
		}
	}
	switch len(exact) {
	case 0:
	case 1:
		return exact[0], nil
	default:
		return Title{}, fmt.Errorf("%w: %q matches %s", ErrAmbiguousMatch, query, describe(exact))
	}

	type scored struct {
		title Title
		score float32
	}
	var matches []scored
	for _, t := range titles {
		score := edlib.JaroWinklerSimilarity(folded, FoldName(t.Name))
		if score >= MinSimilarity {
			matches = append(matches, scored{title: t, score: score})
		}
	}
	if len(matches) == 0 {
		return Title{}, fmt.Errorf("%w: %q", ErrNoMatch, query)
	}
	slices.SortStableFunc(matches, func(a, b scored) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		default:
			return 0
		}
	})
	if len(matches) > 1 && matches[0].score == matches[1].score {
		return Title{}, fmt.Errorf("%w: %q matches %s", ErrAmbiguousMatch, query,
			describe([]Title{matches[0].title, matches[1].title}))
	}

	log.Debug().Str("query", query).Str("titleID", matches[0].title.ID).
		Float32("similarity", matches[0].score).Msg("fuzzy title match")
	return matches[0].title, nil
}

// FoldName lowercases a name, strips accents and apostrophes, and
// collapses other punctuation and whitespace runs to single spaces.
func FoldName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if stripped, _, err := transform.String(t, s); err == nil {
		s = stripped
	}

	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(s) {
		if r == '\'' || r == '’' {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			continue
		}
		space = true
	}
	return b.String()
}

func describe(titles []Title) string {
	parts := make([]string, 0, len(titles))
	for _, t := range titles {
		parts = append(parts, fmt.Sprintf("%s (%s)", t.Name, t.ID))
	}
	return strings.Join(parts, ", ")
}
