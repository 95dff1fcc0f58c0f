// Package extract recovers the structured reply from free-form model text.
// It is the only defense against non-conformant output: models wrap JSON in
// prose, leave fences unclosed, or omit fields, and the extractor must
// degrade to a raw-text fallback instead of failing.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	contractx "github.com/styletto/stylist-agent/agent/contract"
)

var (
	markdownImagePattern = regexp.MustCompile(`!\[[^\]]*\]\((https?://[^)\s]+)\)`)
	bareImageURLPattern  = regexp.MustCompile(`https?://[^\s"'<>)]+\.(?:png|jpe?g|gif|webp)`)
)

// Parse turns the hub's final text into a Reply. It never fails: when no
// structured payload can be recovered the raw text becomes the response and
// the collections stay empty.
func Parse(raw string) contractx.Reply {
	candidate, ok := structuredCandidate(raw)
	if !ok {
		return fallback(raw)
	}

	var reply contractx.Reply
	if err := json.Unmarshal([]byte(candidate), &reply); err != nil {
		return fallback(raw)
	}

	if strings.TrimSpace(reply.Response) == "" {
		reply.Response = raw
	}
	if len(reply.Images) == 0 {
		reply.Images = scanImages(raw)
	} else {
		reply.Images = dedupe(reply.Images)
	}
	if reply.Images == nil {
		reply.Images = []string{}
	}
	if reply.SuggestedOutfits == nil {
		reply.SuggestedOutfits = []contractx.SuggestedOutfit{}
	}
	return reply
}

// structuredCandidate picks the most likely JSON substring, in order:
// a fenced block labeled json, any fenced block, then first '{' to last '}'.
func structuredCandidate(raw string) (string, bool) {
	if block, ok := fencedBlock(raw, "json"); ok {
		return block, true
	}
	if block, ok := fencedBlock(raw, ""); ok {
		return block, true
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

// fencedBlock finds a ``` block, tolerating a missing closing fence.
func fencedBlock(raw, label string) (string, bool) {
	marker := "```" + label
	idx := strings.Index(raw, marker)
	if idx < 0 {
		return "", false
	}

	rest := raw[idx+len(marker):]
	if nl := strings.Index(rest, "\n"); nl >= 0 {
		rest = rest[nl+1:]
	}
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}

	rest = strings.TrimSpace(rest)
	if rest == "" {
		return "", false
	}
	return rest, true
}

func fallback(raw string) contractx.Reply {
	return contractx.Reply{
		Response:         raw,
		Images:           scanImages(raw),
		SuggestedOutfits: []contractx.SuggestedOutfit{},
	}
}

// scanImages searches the entire original text: markdown image syntax first,
// bare image-extension urls as a fallback, set-deduplicated in first-seen
// order.
func scanImages(raw string) []string {
	var urls []string
	for _, m := range markdownImagePattern.FindAllStringSubmatch(raw, -1) {
		urls = append(urls, m[1])
	}
	if len(urls) == 0 {
		urls = bareImageURLPattern.FindAllString(raw, -1)
	}
	out := dedupe(urls)
	if out == nil {
		out = []string{}
	}
	return out
}

func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	var out []string
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
