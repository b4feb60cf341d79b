package sermonhelper

import (
	"context"
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

type catalogTheme struct {
	Name      string   `yaml:"name"`
	Keywords  []string `yaml:"keywords"`
	Scripture []string `yaml:"scripture"`
	Outline   []string `yaml:"outline"`
}

type catalogHymn struct {
	Hymn   `yaml:",inline"`
	Themes []string `yaml:"themes"`
}

type catalogFile struct {
	Themes  []catalogTheme `yaml:"themes"`
	General catalogTheme   `yaml:"general"`
	Hymns   []catalogHymn  `yaml:"hymns"`
}

// CatalogSuggester answers from an embedded catalog of themes, scripture
// references, outline templates and public-domain hymns. It needs no network.
type CatalogSuggester struct {
	file catalogFile
}

var _ Suggester = (*CatalogSuggester)(nil)

// NewCatalogSuggester parses the embedded catalog.
func NewCatalogSuggester() (*CatalogSuggester, error) {
	return ParseCatalogSuggester(catalogYAML)
}

// ParseCatalogSuggester builds a suggester from a YAML catalog.
func ParseCatalogSuggester(data []byte) (*CatalogSuggester, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse sermon catalog: %w", err)
	}
	if len(file.Themes) == 0 {
		return nil, fmt.Errorf("sermon catalog has no themes")
	}
	for i, th := range file.Themes {
		if th.Name == "" || len(th.Keywords) == 0 {
			return nil, fmt.Errorf("sermon catalog theme %d needs a name and keywords", i)
		}
	}
	return &CatalogSuggester{file: file}, nil
}

// Suggest matches the prompt against theme keywords and returns the matching
// themes' material, falling back to the general theme.
func (c *CatalogSuggester) Suggest(_ context.Context, p Prompt) (Suggestions, error) {
	text := p.Topic + " " + p.Passage
	var matched []catalogTheme
	for _, th := range c.file.Themes {
		if _, ok := matchTerm(text, th.Keywords); ok || matchesName(text, th.Name) {
			matched = append(matched, th)
		}
	}
	if len(matched) == 0 {
		matched = []catalogTheme{c.file.General}
		matched[0].Name = "general"
	}

	var out Suggestions
	if p.Passage != "" && p.Wants(KindScripture) {
		out.Scripture = append(out.Scripture, p.Passage)
	}
	names := make(map[string]bool, len(matched))
	for _, th := range matched {
		names[th.Name] = true
		if p.Wants(KindScripture) {
			out.Scripture = append(out.Scripture, th.Scripture...)
		}
		if p.Wants(KindOutline) {
			out.Outline = append(out.Outline, th.Outline...)
		}
	}
	if p.Wants(KindHymns) {
		for _, h := range c.file.Hymns {
			for _, theme := range h.Themes {
				if names[theme] {
					out.Hymns = append(out.Hymns, h.Hymn)
					break
				}
			}
		}
		sort.SliceStable(out.Hymns, func(i, j int) bool { return out.Hymns[i].Title < out.Hymns[j].Title })
	}

	output := 0
	for _, s := range out.Scripture {
		output += len([]rune(s))
	}
	for _, s := range out.Outline {
		output += len([]rune(s))
	}
	for _, h := range out.Hymns {
		output += len([]rune(h.Title)) + len([]rune(h.Author))
	}
	out.TokensUsed = estimateTokens(p, 0) + int64((output+3)/4)
	return out, nil
}

func matchesName(text, name string) bool {
	_, ok := matchTerm(text, []string{name})
	return ok
}
