package llmclassify

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ncecere/phonescout/internal/model"
)

// PromptPlaceholder is the marker in the prompt template replaced by the
// serialized candidate list.
const PromptPlaceholder = "[Insert JSON list of (candidate_number, source_url, snippet) objects here]"

// DefaultPromptTemplate is used when no template file is configured.
const DefaultPromptTemplate = `You are given phone number candidates extracted from a company's website.
For every candidate, decide the number's type and its business relevance.

Allowed types: Main Line, Headquarters, Reception, Switchboard, Sales, Customer Service, Support, Technical Support, Service, Info-Line, Hotline, Department, Direct Dial, Extension, Mobile, Fax, Date, ID, Unknown.
Allowed classifications: Primary, Secondary, Support, Low Relevance, Non-Business.

Respond with a JSON array only. One object per candidate:
{"number": "<the candidate number>", "type": "<type>", "classification": "<classification>"}

Candidates:
` + PromptPlaceholder + `
`

// BuildPrompt renders the template for one candidate chunk.
func BuildPrompt(template string, candidates []model.Candidate) (string, error) {
	if template == "" {
		template = DefaultPromptTemplate
	}
	if !strings.Contains(template, PromptPlaceholder) {
		return "", fmt.Errorf("prompt template missing placeholder %q", PromptPlaceholder)
	}
	payload, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal candidates: %w", err)
	}
	return strings.Replace(template, PromptPlaceholder, string(payload), 1), nil
}

// LoadPromptTemplate reads the template file, falling back to the built-in
// template when path is empty.
func LoadPromptTemplate(path string) (string, error) {
	if path == "" {
		return DefaultPromptTemplate, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read prompt template: %w", err)
	}
	return string(data), nil
}

// persistContext writes a prompt or response artifact into the LLM context
// dir. Failures are non-fatal for the pipeline; the caller logs them.
func persistContext(dir, name, content string) error {
	if dir == "" {
		return nil
	}
	return os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644)
}
