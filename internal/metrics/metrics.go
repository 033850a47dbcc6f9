package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Registry collects counters for a single pipeline run. It is in-memory
// only; the orchestrator renders it into the run metrics report and the
// text export at the end of the run.
type Registry struct {
	mu sync.RWMutex

	rowOutcomes   map[string]int64
	faults        map[string]int64
	scrapeStatus  map[string]int64
	pagesByType   map[string]int64
	taskDurations map[string]time.Duration

	rowsProcessed int64
	rowsFailed    int64

	sitesWithCandidates    int64
	sitesWithoutCandidates int64
	regexCandidatesTotal   int64

	llmCallsSuccess   int64
	llmCallsFailed    int64
	llmNumbersRaw     int64
	promptTokens      int64
	completionTokens  int64
	llmCallsWithUsage int64

	errors []string
}

func NewRegistry() *Registry {
	return &Registry{
		rowOutcomes:   make(map[string]int64),
		faults:        make(map[string]int64),
		scrapeStatus:  make(map[string]int64),
		pagesByType:   make(map[string]int64),
		taskDurations: make(map[string]time.Duration),
	}
}

// RecordRowOutcome counts a finished row by outcome reason and fault
// category.
func (r *Registry) RecordRowOutcome(outcome, fault string, failed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rowOutcomes[outcome]++
	r.faults[fault]++
	if failed {
		r.rowsFailed++
	} else {
		r.rowsProcessed++
	}
}

// RecordScrapeStatus counts a site-level scrape result.
func (r *Registry) RecordScrapeStatus(status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scrapeStatus[status]++
}

// RecordPageScraped counts one fetched page by its classified type.
func (r *Registry) RecordPageScraped(pageType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pagesByType[pageType]++
}

// RecordRegexExtraction counts one site pass of the candidate extractor.
func (r *Registry) RecordRegexExtraction(candidates int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if candidates > 0 {
		r.sitesWithCandidates++
		r.regexCandidatesTotal += int64(candidates)
	} else {
		r.sitesWithoutCandidates++
	}
}

// RecordLLMCall counts one classification request and its token usage.
// Token counts of zero are recorded but excluded from the usage-call count.
func (r *Registry) RecordLLMCall(success bool, numbers int, promptTokens, completionTokens int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if success {
		r.llmCallsSuccess++
	} else {
		r.llmCallsFailed++
	}
	r.llmNumbersRaw += int64(numbers)
	if promptTokens > 0 || completionTokens > 0 {
		r.promptTokens += int64(promptTokens)
		r.completionTokens += int64(completionTokens)
		r.llmCallsWithUsage++
	}
}

// RecordTaskDuration stores the wall time of a named pipeline phase.
func (r *Registry) RecordTaskDuration(name string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.taskDurations[name] = d
}

// RecordError appends a run-level error for the final report.
func (r *Registry) RecordError(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
}

// Snapshot is a point-in-time copy of the registry used by report writers.
type Snapshot struct {
	RowOutcomes   map[string]int64
	Faults        map[string]int64
	ScrapeStatus  map[string]int64
	PagesByType   map[string]int64
	TaskDurations map[string]time.Duration

	RowsProcessed int64
	RowsFailed    int64

	SitesWithCandidates    int64
	SitesWithoutCandidates int64
	RegexCandidatesTotal   int64

	LLMCallsSuccess   int64
	LLMCallsFailed    int64
	LLMNumbersRaw     int64
	PromptTokens      int64
	CompletionTokens  int64
	LLMCallsWithUsage int64

	Errors []string
}

func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Snapshot{
		RowOutcomes:   make(map[string]int64, len(r.rowOutcomes)),
		Faults:        make(map[string]int64, len(r.faults)),
		ScrapeStatus:  make(map[string]int64, len(r.scrapeStatus)),
		PagesByType:   make(map[string]int64, len(r.pagesByType)),
		TaskDurations: make(map[string]time.Duration, len(r.taskDurations)),

		RowsProcessed:          r.rowsProcessed,
		RowsFailed:             r.rowsFailed,
		SitesWithCandidates:    r.sitesWithCandidates,
		SitesWithoutCandidates: r.sitesWithoutCandidates,
		RegexCandidatesTotal:   r.regexCandidatesTotal,
		LLMCallsSuccess:        r.llmCallsSuccess,
		LLMCallsFailed:         r.llmCallsFailed,
		LLMNumbersRaw:          r.llmNumbersRaw,
		PromptTokens:           r.promptTokens,
		CompletionTokens:       r.completionTokens,
		LLMCallsWithUsage:      r.llmCallsWithUsage,
		Errors:                 append([]string(nil), r.errors...),
	}
	for k, v := range r.rowOutcomes {
		s.RowOutcomes[k] = v
	}
	for k, v := range r.faults {
		s.Faults[k] = v
	}
	for k, v := range r.scrapeStatus {
		s.ScrapeStatus[k] = v
	}
	for k, v := range r.pagesByType {
		s.PagesByType[k] = v
	}
	for k, v := range r.taskDurations {
		s.TaskDurations[k] = v
	}
	return s
}

// Export returns Prometheus-style metrics text with stable ordering.
func (r *Registry) Export() string {
	s := r.Snapshot()

	var b strings.Builder

	writeLabeled := func(name, help, label string, m map[string]int64) {
		fmt.Fprintf(&b, "# HELP %s %s\n# TYPE %s counter\n", name, help, name)
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "%s{%s=\"%s\"} %d\n", name, label, k, m[k])
		}
	}

	writeLabeled("phonescout_row_outcomes_total", "Rows by final outcome reason", "outcome", s.RowOutcomes)
	writeLabeled("phonescout_row_faults_total", "Rows by fault category", "fault", s.Faults)
	writeLabeled("phonescout_scrape_status_total", "Sites by scrape status", "status", s.ScrapeStatus)
	writeLabeled("phonescout_pages_scraped_total", "Pages fetched by page type", "type", s.PagesByType)

	b.WriteString("# HELP phonescout_llm_calls_total LLM classification calls\n")
	b.WriteString("# TYPE phonescout_llm_calls_total counter\n")
	fmt.Fprintf(&b, "phonescout_llm_calls_total{success=\"true\"} %d\n", s.LLMCallsSuccess)
	fmt.Fprintf(&b, "phonescout_llm_calls_total{success=\"false\"} %d\n", s.LLMCallsFailed)

	b.WriteString("# HELP phonescout_llm_tokens_total Token usage reported by the LLM\n")
	b.WriteString("# TYPE phonescout_llm_tokens_total counter\n")
	fmt.Fprintf(&b, "phonescout_llm_tokens_total{kind=\"prompt\"} %d\n", s.PromptTokens)
	fmt.Fprintf(&b, "phonescout_llm_tokens_total{kind=\"completion\"} %d\n", s.CompletionTokens)

	b.WriteString("# HELP phonescout_regex_candidates_total Regex candidates found across sites\n")
	b.WriteString("# TYPE phonescout_regex_candidates_total counter\n")
	fmt.Fprintf(&b, "phonescout_regex_candidates_total %d\n", s.RegexCandidatesTotal)

	return b.String()
}
