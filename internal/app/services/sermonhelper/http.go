package sermonhelper

import (
	"context"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/flockhq/flock/internal/httputil"
)

const maxSuggestionBody = 1 << 20

// HTTPSuggester posts the prompt as JSON to an external suggestion service.
// The response must carry scripture[], outline[], hymns[] and
// usage.total_tokens; hymns may be strings or objects.
type HTTPSuggester struct {
	client *httputil.Client
}

var _ Suggester = (*HTTPSuggester)(nil)

// HTTPConfig configures HTTPSuggester.
type HTTPConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// NewHTTPSuggester creates a suggester for cfg.Endpoint. Calls are not
// retried: the upstream may have spent tokens on a request that failed.
func NewHTTPSuggester(cfg HTTPConfig) *HTTPSuggester {
	return &HTTPSuggester{client: httputil.NewClient(httputil.ClientConfig{
		BaseURL:    cfg.Endpoint,
		Token:      cfg.APIKey,
		Timeout:    cfg.Timeout,
		MaxRetries: -1,
	})}
}

func (h *HTTPSuggester) Suggest(ctx context.Context, p Prompt) (Suggestions, error) {
	resp, err := h.client.Post(ctx, "", p)
	if err != nil {
		return Suggestions{}, fmt.Errorf("call suggestion service: %w", err)
	}
	body, err := httputil.ReadBody(resp, maxSuggestionBody)
	if err != nil {
		return Suggestions{}, err
	}
	if !gjson.ValidBytes(body) {
		return Suggestions{}, fmt.Errorf("suggestion service returned invalid JSON")
	}
	return parseSuggestions(body), nil
}

func parseSuggestions(body []byte) Suggestions {
	doc := gjson.ParseBytes(body)
	var out Suggestions
	for _, v := range doc.Get("scripture").Array() {
		out.Scripture = append(out.Scripture, v.String())
	}
	for _, v := range doc.Get("outline").Array() {
		out.Outline = append(out.Outline, v.String())
	}
	for _, v := range doc.Get("hymns").Array() {
		if !v.IsObject() {
			out.Hymns = append(out.Hymns, Hymn{Title: v.String()})
			continue
		}
		h := Hymn{
			Title:  v.Get("title").String(),
			Author: v.Get("author").String(),
			Year:   int(v.Get("year").Int()),
		}
		for _, t := range v.Get("traditions").Array() {
			h.Traditions = append(h.Traditions, t.String())
		}
		out.Hymns = append(out.Hymns, h)
	}
	out.TokensUsed = doc.Get("usage.total_tokens").Int()
	return out
}
