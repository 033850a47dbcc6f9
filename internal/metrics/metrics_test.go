package metrics

import (
	"strings"
	"testing"
	"time"
)

func TestRecordRowOutcomeAndExport(t *testing.T) {
	r := NewRegistry()
	r.RecordRowOutcome("Contact_Found_Primary", "N/A", false)
	r.RecordRowOutcome("Scraping_AllAttemptsFailed_Network", "Website Issue", true)

	out := r.Export()
	if !strings.Contains(out, "phonescout_row_outcomes_total{outcome=\"Contact_Found_Primary\"} 1") {
		t.Fatalf("expected outcome counter in export, got:\n%s", out)
	}
	if !strings.Contains(out, "phonescout_row_faults_total{fault=\"Website Issue\"} 1") {
		t.Fatalf("expected fault counter in export, got:\n%s", out)
	}

	s := r.Snapshot()
	if s.RowsProcessed != 1 || s.RowsFailed != 1 {
		t.Fatalf("expected 1 processed / 1 failed, got %d / %d", s.RowsProcessed, s.RowsFailed)
	}
}

func TestRecordScrapeAndRegexMetrics(t *testing.T) {
	r := NewRegistry()
	r.RecordScrapeStatus("Success")
	r.RecordScrapeStatus("DNSError")
	r.RecordPageScraped("contact")
	r.RecordRegexExtraction(4)
	r.RecordRegexExtraction(0)

	out := r.Export()
	if !strings.Contains(out, "phonescout_scrape_status_total{status=\"DNSError\"} 1") {
		t.Fatalf("expected scrape status counter, got:\n%s", out)
	}
	if !strings.Contains(out, "phonescout_pages_scraped_total{type=\"contact\"} 1") {
		t.Fatalf("expected page type counter, got:\n%s", out)
	}
	if !strings.Contains(out, "phonescout_regex_candidates_total 4") {
		t.Fatalf("expected regex candidate total, got:\n%s", out)
	}

	s := r.Snapshot()
	if s.SitesWithCandidates != 1 || s.SitesWithoutCandidates != 1 {
		t.Fatalf("unexpected regex site counts: %+v", s)
	}
}

func TestRecordLLMCallUsage(t *testing.T) {
	r := NewRegistry()
	r.RecordLLMCall(true, 5, 1200, 300)
	r.RecordLLMCall(false, 0, 0, 0)

	s := r.Snapshot()
	if s.LLMCallsSuccess != 1 || s.LLMCallsFailed != 1 {
		t.Fatalf("unexpected call counts: %+v", s)
	}
	if s.PromptTokens != 1200 || s.CompletionTokens != 300 {
		t.Fatalf("unexpected token totals: %+v", s)
	}
	if s.LLMCallsWithUsage != 1 {
		t.Fatalf("expected 1 call with usage data, got %d", s.LLMCallsWithUsage)
	}

	out := r.Export()
	if !strings.Contains(out, "phonescout_llm_tokens_total{kind=\"prompt\"} 1200") {
		t.Fatalf("expected prompt token counter, got:\n%s", out)
	}
}

func TestTaskDurations(t *testing.T) {
	r := NewRegistry()
	r.RecordTaskDuration("scrape_pass", 2*time.Second)

	s := r.Snapshot()
	if s.TaskDurations["scrape_pass"] != 2*time.Second {
		t.Fatalf("expected stored duration, got %v", s.TaskDurations["scrape_pass"])
	}
}
