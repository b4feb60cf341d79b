package sermonhelper

import (
	"strings"
	"unicode"

	"github.com/flockhq/flock/internal/app/domain/settings"
)

// normalizeWords lowercases s and collapses every run of non-letters and
// non-digits into one space, padded at both ends.
func normalizeWords(s string) string {
	var b strings.Builder
	b.WriteByte(' ')
	space := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	if !space {
		b.WriteByte(' ')
	}
	return b.String()
}

// matchTerm returns the first term found in text as whole words.
func matchTerm(text string, terms []string) (string, bool) {
	haystack := normalizeWords(text)
	for _, term := range terms {
		needle := normalizeWords(term)
		if strings.TrimSpace(needle) == "" {
			continue
		}
		if strings.Contains(haystack, needle) {
			return term, true
		}
	}
	return "", false
}

// filterOutput applies the theology profile to raw suggestions.
func filterOutput(raw Suggestions, prompt Prompt, profile settings.TheologyProfile) Result {
	res := Result{
		Scripture: make([]ScriptureRef, 0, len(raw.Scripture)),
		Outline:   make([]string, 0, len(raw.Outline)),
		Hymns:     make([]Hymn, 0, len(raw.Hymns)),
	}

	if prompt.Wants(KindScripture) {
		seen := make(map[string]bool)
		for _, ref := range raw.Scripture {
			ref = strings.TrimSpace(ref)
			key := strings.ToLower(ref)
			if ref == "" || seen[key] {
				continue
			}
			if _, bad := matchTerm(ref, profile.AvoidTerms); bad {
				res.Filtered++
				continue
			}
			seen[key] = true
			res.Scripture = append(res.Scripture, ScriptureRef{Reference: ref, Translation: profile.Translation})
		}
	}

	if prompt.Wants(KindOutline) {
		limit := profile.MaxOutlinePoints
		for _, point := range raw.Outline {
			point = strings.TrimSpace(point)
			if point == "" {
				continue
			}
			if _, bad := matchTerm(point, profile.AvoidTerms); bad {
				res.Filtered++
				continue
			}
			if limit > 0 && len(res.Outline) >= limit {
				res.Filtered++
				continue
			}
			res.Outline = append(res.Outline, point)
		}
	}

	if prompt.Wants(KindHymns) {
		for _, h := range raw.Hymns {
			if strings.TrimSpace(h.Title) == "" {
				continue
			}
			if _, bad := matchTerm(h.Title+" "+h.Author, profile.AvoidTerms); bad || !fitsTradition(h, profile.Tradition) {
				res.Filtered++
				continue
			}
			res.Hymns = append(res.Hymns, h)
		}
	}
	return res
}

func fitsTradition(h Hymn, tradition string) bool {
	if len(h.Traditions) == 0 {
		return true
	}
	for _, t := range h.Traditions {
		if strings.EqualFold(t, tradition) {
			return true
		}
	}
	return false
}

// estimateTokens approximates prompt tokens at four characters per token and
// adds the output budget.
func estimateTokens(prompt Prompt, outputBudget int) int64 {
	text := prompt.Topic + " " + prompt.Passage + " " + prompt.Tradition + " " + prompt.Translation
	for _, k := range prompt.Kinds {
		text += " " + string(k)
	}
	runes := int64(len([]rune(text)))
	return (runes+3)/4 + int64(outputBudget)
}
