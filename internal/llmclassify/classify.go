package llmclassify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/ncecere/phonescout/internal/model"
	"github.com/ncecere/phonescout/internal/phone"
)

// ErrAllCandidatesFailed is returned when every candidate of a site ended
// up as an error-tagged item.
var ErrAllCandidatesFailed = errors.New("llm classification failed for every candidate")

// Error tags carried by items that could not be classified. Tagged items
// keep the candidate's number and source so downstream stages can still
// account for every candidate.
const (
	TagPersistentMismatch = "Error_PersistentMismatchAfterRetries"
	TagItemCountMismatch  = "Error_LLMItemCountMismatch"
	TagInitialJSONParse   = "Error_InitialJsonParse"
	TagInitialEmpty       = "Error_InitialEmptyResponse"
	TagInitialNoJSON      = "Error_InitialNoJsonBlock"
	TagNotProcessed       = "Error_NotProcessed"
	TagPromptLoading      = "Error_PromptLoading"

	tagAPIErrorPrefix = "Error_InitialApiError_"
)

var validClassifications = map[string]struct{}{
	model.ClassPrimary:      {},
	model.ClassSecondary:    {},
	model.ClassSupport:      {},
	model.ClassLowRelevance: {},
	model.ClassNonBusiness:  {},
}

var validTypes = map[string]struct{}{
	"Main Line": {}, "Headquarters": {}, "Reception": {}, "Switchboard": {},
	"Sales": {}, "Customer Service": {}, "Support": {}, "Technical Support": {},
	"Service": {}, "Info-Line": {}, "Hotline": {}, "Department": {},
	"Direct Dial": {}, "Extension": {}, "Mobile": {}, "Fax": {},
	"Date": {}, "ID": {}, "Unknown": {},
}

// Config holds the classifier knobs for one run.
type Config struct {
	Model                   string
	Temperature             float32
	MaxTokens               int
	MaxCandidatesPerRequest int
	MaxRetries              int
	PromptTemplate          string
	ContextDir              string
}

// Result is the classification outcome for one site. Numbers carries
// exactly one entry per input candidate, in candidate order; candidates
// that could not be classified carry an ErrorTag instead of vanishing.
type Result struct {
	Numbers          []model.NumberOutput
	PromptTokens     int
	CompletionTokens int
	Calls            int
	ErrorItems       int
	LastError        string
}

func (r *Result) countErrors() {
	r.ErrorItems = 0
	for _, n := range r.Numbers {
		if n.ErrorTag != "" {
			r.ErrorItems++
		}
	}
}

// Classifier sends candidate chunks to the LLM and aligns the responses
// back to their source candidates.
type Classifier struct {
	client  ChatCompleter
	limiter *rate.Limiter
	log     zerolog.Logger
	cfg     Config

	backoffBase time.Duration
	backoffCap  time.Duration
}

func New(client ChatCompleter, limiter *rate.Limiter, log zerolog.Logger, cfg Config) *Classifier {
	if cfg.MaxCandidatesPerRequest <= 0 {
		cfg.MaxCandidatesPerRequest = 10
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Classifier{
		client:      client,
		limiter:     limiter,
		log:         log,
		cfg:         cfg,
		backoffBase: 2 * time.Second,
		backoffCap:  10 * time.Second,
	}
}

type rawNumber struct {
	Number         string `json:"number"`
	Type           string `json:"type"`
	Classification string `json:"classification"`
}

// ClassifySite classifies all candidates of one site. filePrefix names the
// persisted prompt/response artifacts; regions are the parse hints for
// re-normalizing returned numbers. The result list stays aligned with the
// candidate list; ErrAllCandidatesFailed is returned when no candidate
// produced a usable classification.
func (c *Classifier) ClassifySite(ctx context.Context, filePrefix string, candidates []model.Candidate, regions []string) (*Result, error) {
	res := &Result{}
	if len(candidates) == 0 {
		return res, nil
	}

	chunks := chunkCandidates(candidates, c.cfg.MaxCandidatesPerRequest)
	for i, chunk := range chunks {
		items, err := c.classifyChunk(ctx, fmt.Sprintf("%s_chunk%d", filePrefix, i), chunk, regions, res)
		res.Numbers = append(res.Numbers, items...)
		if err != nil {
			for _, rest := range chunks[i+1:] {
				res.Numbers = append(res.Numbers, errorItems(rest, TagNotProcessed)...)
			}
			res.countErrors()
			return res, err
		}
	}

	res.countErrors()
	if res.ErrorItems == len(candidates) {
		return res, fmt.Errorf("%w: %s", ErrAllCandidatesFailed, res.LastError)
	}
	return res, nil
}

// classifyChunk runs the retry passes for one chunk and returns one item
// per candidate. Only a dead context yields an error; every other failure
// becomes an error tag on the affected items.
func (c *Classifier) classifyChunk(ctx context.Context, prefix string, chunk []model.Candidate, regions []string, res *Result) ([]model.NumberOutput, error) {
	out := make([]model.NumberOutput, len(chunk))
	pending := make([]int, len(chunk))
	for i := range chunk {
		pending[i] = i
	}

	failTag := TagNotProcessed
	for attempt := 0; attempt <= c.cfg.MaxRetries && len(pending) > 0; attempt++ {
		if attempt > 0 {
			if err := c.backoff(ctx, attempt); err != nil {
				return fillErrors(out, chunk, pending, TagNotProcessed), err
			}
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return fillErrors(out, chunk, pending, TagNotProcessed), err
			}
		}

		pendingCands := pick(chunk, pending)
		prompt, err := BuildPrompt(c.cfg.PromptTemplate, pendingCands)
		if err != nil {
			res.LastError = err.Error()
			return fillErrors(out, chunk, pending, TagPromptLoading), nil
		}
		name := prefix + "_llm_full_prompt.txt"
		if attempt > 0 {
			name = fmt.Sprintf("%s_retry%d_llm_full_prompt.txt", prefix, attempt)
		}
		if err := persistContext(c.cfg.ContextDir, name, prompt); err != nil {
			c.log.Warn().Str("prefix", prefix).Err(err).Msg("failed to persist prompt")
		}

		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.cfg.Model,
			Temperature: c.cfg.Temperature,
			MaxTokens:   c.cfg.MaxTokens,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		res.Calls++
		if err != nil {
			failTag = apiErrorTag(err)
			res.LastError = err.Error()
			continue
		}
		res.PromptTokens += resp.Usage.PromptTokens
		res.CompletionTokens += resp.Usage.CompletionTokens

		if len(resp.Choices) == 0 {
			failTag = TagInitialEmpty
			res.LastError = "empty response from model"
			continue
		}
		content := resp.Choices[0].Message.Content
		if err := persistContext(c.cfg.ContextDir, fmt.Sprintf("%s_attempt%d_llm_raw_output.txt", prefix, attempt), content); err != nil {
			c.log.Warn().Str("prefix", prefix).Err(err).Msg("failed to persist raw output")
		}

		parsed, fail := parseNumbers(content)
		if fail != nil {
			failTag = fail.tag
			res.LastError = fail.msg
			continue
		}
		if len(parsed) != len(pendingCands) {
			failTag = TagItemCountMismatch
			res.LastError = fmt.Sprintf("model returned %d items for %d candidates", len(parsed), len(pendingCands))
			continue
		}

		// Index-aligned check: matched items are committed, mismatched
		// ones go back into the next retry pass.
		var still []int
		for j, item := range parsed {
			idx := pending[j]
			cand := chunk[idx]
			if !sameNumber(item.Number, cand.Number, regions) {
				still = append(still, idx)
				continue
			}
			out[idx] = successItem(item, cand, regions)
		}
		pending = still
		failTag = TagPersistentMismatch
		if len(pending) > 0 {
			res.LastError = fmt.Sprintf("%d returned numbers did not match their candidates", len(pending))
			c.log.Warn().Str("prefix", prefix).Int("mismatched", len(pending)).Msg("response numbers misaligned, retrying")
		}
	}

	return fillErrors(out, chunk, pending, failTag), nil
}

type parseFailure struct {
	tag string
	msg string
}

func parseNumbers(content string) ([]rawNumber, *parseFailure) {
	payload := extractJSON(content)
	if payload == "" {
		return nil, &parseFailure{TagInitialNoJSON, "no JSON found in model response"}
	}

	var parsed []rawNumber
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		// Some models wrap the array in an object.
		var wrapper struct {
			Numbers []rawNumber `json:"extracted_numbers"`
		}
		if err2 := json.Unmarshal([]byte(payload), &wrapper); err2 != nil || wrapper.Numbers == nil {
			return nil, &parseFailure{TagInitialJSONParse, "unmarshal model response: " + err.Error()}
		}
		parsed = wrapper.Numbers
	}
	return parsed, nil
}

// sameNumber compares a returned number to its candidate on the normalized
// form, falling back to a digit comparison for numbers that do not
// validate.
func sameNumber(got, want string, regions []string) bool {
	ng := phone.Normalize(got, regions)
	if ng != model.InvalidFormat && ng == phone.Normalize(want, regions) {
		return true
	}
	d := digitsOf(got)
	return d != "" && d == digitsOf(want)
}

// successItem builds the output for an aligned response item: E.164 when
// the number normalizes, otherwise the candidate's raw string; source URL
// and input company always come from the candidate, never from the model.
func successItem(item rawNumber, cand model.Candidate, regions []string) model.NumberOutput {
	number := phone.Normalize(item.Number, regions)
	if number == model.InvalidFormat {
		number = cand.Number
	}
	return model.NumberOutput{
		Number:               number,
		Type:                 coerceType(item.Type),
		Classification:       coerceClassification(item.Classification),
		SourceURL:            cand.SourceURL,
		OriginalInputCompany: cand.OriginalInputCompany,
	}
}

func errorItem(cand model.Candidate, tag string) model.NumberOutput {
	return model.NumberOutput{
		Number:               cand.Number,
		SourceURL:            cand.SourceURL,
		OriginalInputCompany: cand.OriginalInputCompany,
		ErrorTag:             tag,
	}
}

func errorItems(cands []model.Candidate, tag string) []model.NumberOutput {
	out := make([]model.NumberOutput, len(cands))
	for i, cand := range cands {
		out[i] = errorItem(cand, tag)
	}
	return out
}

func fillErrors(out []model.NumberOutput, chunk []model.Candidate, pending []int, tag string) []model.NumberOutput {
	for _, idx := range pending {
		out[idx] = errorItem(chunk[idx], tag)
	}
	return out
}

func pick(chunk []model.Candidate, idx []int) []model.Candidate {
	out := make([]model.Candidate, len(idx))
	for i, j := range idx {
		out[i] = chunk[j]
	}
	return out
}

func apiErrorTag(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 429:
			return tagAPIErrorPrefix + "RateLimit"
		case apiErr.HTTPStatusCode >= 500:
			return tagAPIErrorPrefix + "Server"
		default:
			return tagAPIErrorPrefix + "Request"
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return tagAPIErrorPrefix + "Timeout"
	}
	return tagAPIErrorPrefix + "Transport"
}

func (c *Classifier) backoff(ctx context.Context, attempt int) error {
	delay := c.backoffBase << (attempt - 1)
	if delay > c.backoffCap {
		delay = c.backoffCap
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func chunkCandidates(candidates []model.Candidate, size int) [][]model.Candidate {
	var chunks [][]model.Candidate
	for start := 0; start < len(candidates); start += size {
		end := start + size
		if end > len(candidates) {
			end = len(candidates)
		}
		chunks = append(chunks, candidates[start:end])
	}
	return chunks
}

func coerceType(t string) string {
	if _, ok := validTypes[t]; ok {
		return t
	}
	return model.TypeUnknown
}

func coerceClassification(cl string) string {
	if _, ok := validClassifications[cl]; ok {
		return cl
	}
	return model.ClassNonBusiness
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
