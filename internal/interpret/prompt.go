package interpret

import (
	"encoding/json"
	"fmt"
	"strings"
)

const suitSystemPrompt = `You review one browsing-history theme built by an automatic pipeline.
You receive a JSON bundle with a label hint, top queries, top domains, session
trails and a list of candidates, each with an id.

Reply with a single JSON object:
{"final_label": "...", "kept_evidence_ids": ["..."], "prose": "..."}

Rules:
- final_label: 2 to 5 words naming the theme.
- kept_evidence_ids: only ids copied from the candidates list; drop items that
  do not belong to the theme.
- prose: at most three sentences describing the theme using only the kept
  evidence. Do not guess facts that are not in the bundle.`

const profileSystemPrompt = `You write a short profile snapshot from browsing-history evidence.
You receive a JSON bundle with candidate queries and the facet names to fill.

Reply with a single JSON object:
{"final_label": "", "kept_evidence_ids": [], "prose": "...", "facets": {"<facet>": "..."}}

Rules:
- Fill a facet only when the candidates clearly support it; otherwise write
  "Not enough evidence." for that facet.
- prose: at most four sentences. Do not guess facts that are not in the bundle.`

// SystemPrompt returns the instructions for a bundle kind.
func SystemPrompt(kind string) string {
	if kind == KindProfile {
		return profileSystemPrompt
	}
	return suitSystemPrompt
}

// RenderBundle serializes the bundle as the user message.
func RenderBundle(b Bundle) (string, error) {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode bundle: %w", err)
	}
	return string(data), nil
}

// ParseResponse extracts the first JSON object from a model reply.
func ParseResponse(reply string) (*Response, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return nil, ErrEmptyReply
	}

	var resp Response
	if err := json.Unmarshal([]byte(reply[start:end+1]), &resp); err != nil {
		return nil, fmt.Errorf("failed to decode reply: %w", err)
	}
	resp.FinalLabel = strings.TrimSpace(resp.FinalLabel)
	resp.Prose = strings.TrimSpace(resp.Prose)
	return &resp, nil
}
