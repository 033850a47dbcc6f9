package pipeline

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ncecere/phonescout/internal/config"
	"github.com/ncecere/phonescout/internal/llmclassify"
	"github.com/ncecere/phonescout/internal/outcome"
	"github.com/ncecere/phonescout/internal/runctx"
	"github.com/ncecere/phonescout/internal/scraper"
)

type stubFetcher struct {
	pages map[string]*scraper.Page
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (*scraper.Page, error) {
	if page, ok := f.pages[url]; ok {
		return page, nil
	}
	return &scraper.Page{URL: url, StatusCode: 404}, nil
}

type stubResolver struct{}

func (stubResolver) LookupHost(_ context.Context, _ string) ([]string, error) {
	return []string{"192.0.2.1"}, nil
}

type stubCompleter struct {
	content string
	calls   int
}

func (s *stubCompleter) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.calls++
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: s.content}},
		},
		Usage: openai.Usage{PromptTokens: 100, CompletionTokens: 20},
	}, nil
}

func newTestPipeline(t *testing.T, csvContent string, fetcher scraper.Fetcher, completer llmclassify.ChatCompleter) *Pipeline {
	t.Helper()

	dir := t.TempDir()
	inputPath := filepath.Join(dir, "input.csv")
	require.NoError(t, os.WriteFile(inputPath, []byte(csvContent), 0o644))

	cfg := config.Default()
	cfg.App.InputFile = inputPath
	cfg.App.OutputBaseDir = filepath.Join(dir, "out")
	cfg.App.MaxWorkers = 2
	cfg.Scraper.RespectRobots = false
	cfg.LLM.PromptTemplatePath = ""
	cfg.LLM.MaxRetries = 0

	run, err := runctx.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { run.Close() })

	classifier := llmclassify.New(completer, nil, run.Log, llmclassify.Config{
		Model:                   cfg.LLM.Model,
		MaxCandidatesPerRequest: cfg.LLM.MaxCandidatesPerRequest,
		MaxRetries:              0,
		PromptTemplate:          llmclassify.DefaultPromptTemplate,
		ContextDir:              run.ContextDir,
	})

	return &Pipeline{
		Run:        run,
		Fetcher:    fetcher,
		Classifier: classifier,
		Resolver:   stubResolver{},
	}
}

// failureStages reads the stage_of_failure column of the run's failure log.
func failureStages(t *testing.T, dir, runID string) []string {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, "failed_rows_"+runID+".csv"))
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, records)

	var stages []string
	for _, rec := range records[1:] {
		stages = append(stages, rec[4])
	}
	return stages
}

func TestExecuteEndToEnd(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]*scraper.Page{
		"http://acme.de": {
			URL:        "http://acme.de",
			HTML:       `<html><head><title>Acme GmbH</title></head><body><p>Zentrale: +49 30 1234567</p></body></html>`,
			Title:      "Acme GmbH",
			StatusCode: 200,
		},
	}}
	// The www variant redirects to the bare host.
	fetcher.pages["http://www.acme.de"] = &scraper.Page{
		URL:        "http://acme.de",
		HTML:       fetcher.pages["http://acme.de"].HTML,
		Title:      "Acme GmbH",
		StatusCode: 200,
	}
	completer := &stubCompleter{
		content: `[{"number": "+49 30 1234567", "type": "Main Line", "classification": "Primary"}]`,
	}

	csvContent := "CompanyName,GivenURL,GivenPhoneNumber\n" +
		"Acme GmbH,acme.de,+49 30 1234567\n" +
		"Acme Logistik,www.acme.de,\n" +
		"Bad Row,none,\n"

	p := newTestPipeline(t, csvContent, fetcher, completer)
	res, err := p.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, res.RowsLoaded)
	assert.Equal(t, 1, res.SitesAttempted, "both acme rows share one canonical site")
	assert.Equal(t, 1, res.SitesWithContact)
	assert.Equal(t, 2, res.RowsWithContact, "duplicate row still gets the shared contact")
	assert.Equal(t, 1, completer.calls)

	dir := res.OutputDir
	for _, name := range []string{
		"phone_extraction_detailed_" + res.RunID + ".xlsx",
		"phone_extraction_summary_" + res.RunID + ".xlsx",
		"Top_Contacts_Report_" + res.RunID + ".xlsx",
		"Final_Processed_Contacts_" + res.RunID + ".xlsx",
		"canonical_domain_summary_" + res.RunID + ".xlsx",
		"row_attrition_report_" + res.RunID + ".xlsx",
		"failed_rows_" + res.RunID + ".csv",
		"run_metrics_" + res.RunID + ".md",
		"metrics_" + res.RunID + ".prom",
		"pipeline_run_" + res.RunID + ".log",
	} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, "missing artifact %s", name)
	}

	// The prompt template and per-site context artifacts are persisted.
	_, err = os.Stat(filepath.Join(p.Run.ContextDir, "llm_prompt_template.txt"))
	assert.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(dir, "scraped_content", "cleaned_pages_text"))
	require.NoError(t, err)
	assert.NotEmpty(t, entries, "cleaned page text stored")
}

func TestExecuteInvalidURLRow(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]*scraper.Page{}}
	completer := &stubCompleter{content: `[]`}

	p := newTestPipeline(t, "CompanyName,GivenURL\nBad,none\n", fetcher, completer)
	res, err := p.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.RowsLoaded)
	assert.Equal(t, 0, res.RowsWithContact)
	assert.Equal(t, 0, res.SitesAttempted)
	assert.Equal(t, 0, completer.calls)

	snap := p.Run.Metrics.Snapshot()
	assert.Equal(t, int64(1), snap.RowOutcomes[outcome.ReasonInputURLInvalid])
	assert.Equal(t, int64(1), snap.Faults[outcome.FaultInputData])

	assert.Equal(t, []string{"URL_Validation_InvalidOrMissing"}, failureStages(t, res.OutputDir, res.RunID))
}

func TestExecuteScrapeFailure(t *testing.T) {
	// Every fetch 404s, so the site fails with an HTTP error.
	fetcher := &stubFetcher{pages: map[string]*scraper.Page{}}
	completer := &stubCompleter{content: `[]`}

	p := newTestPipeline(t, "CompanyName,GivenURL\nAcme GmbH,acme.de\n", fetcher, completer)
	res, err := p.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, res.RowsWithContact)
	assert.Equal(t, 0, completer.calls)

	snap := p.Run.Metrics.Snapshot()
	assert.Equal(t, int64(1), snap.RowOutcomes[outcome.ReasonScrapeContentNotFound])
	assert.Equal(t, int64(1), snap.ScrapeStatus["HTTPError_404"])

	assert.Equal(t, []string{"Scraping_HTTPError_404"}, failureStages(t, res.OutputDir, res.RunID))
}

type panickingFetcher struct{}

func (panickingFetcher) Fetch(_ context.Context, _ string) (*scraper.Page, error) {
	panic("browser session lost")
}

func TestExecuteRowPanicDoesNotAbortRun(t *testing.T) {
	completer := &stubCompleter{content: `[]`}

	csvContent := "CompanyName,GivenURL\n" +
		"Crash GmbH,crash.de\n" +
		"Bad Row,none\n"

	p := newTestPipeline(t, csvContent, panickingFetcher{}, completer)
	res, err := p.Execute(context.Background())
	require.NoError(t, err, "a panicking row must not abort the run")

	assert.Equal(t, 2, res.RowsLoaded)
	assert.Equal(t, 0, res.RowsWithContact)

	snap := p.Run.Metrics.Snapshot()
	assert.Equal(t, int64(1), snap.RowOutcomes[outcome.ReasonRowException])
	assert.Equal(t, int64(1), snap.Faults[outcome.FaultPipeline])

	stages := failureStages(t, res.OutputDir, res.RunID)
	assert.Contains(t, stages, "RowProcessing_Pass1_UnhandledException")
	assert.Contains(t, stages, "URL_Validation_InvalidOrMissing")
}
