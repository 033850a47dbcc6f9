package pipeline

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ncecere/phonescout/internal/consolidate"
	"github.com/ncecere/phonescout/internal/extractor"
	"github.com/ncecere/phonescout/internal/llmclassify"
	"github.com/ncecere/phonescout/internal/model"
	"github.com/ncecere/phonescout/internal/outcome"
	"github.com/ncecere/phonescout/internal/phone"
	"github.com/ncecere/phonescout/internal/reports"
	"github.com/ncecere/phonescout/internal/runctx"
	"github.com/ncecere/phonescout/internal/scraper"
	"github.com/ncecere/phonescout/internal/urlnorm"
)

// Pipeline wires the run-scoped components together and drives the two
// passes: concurrent per-row scrape/extract/classify, then sequential
// consolidation and reporting.
type Pipeline struct {
	Run        *runctx.Run
	Fetcher    scraper.Fetcher
	Robots     scraper.RobotsGate
	Classifier *llmclassify.Classifier
	Resolver   urlnorm.Resolver
}

// Result is what the CLI prints when a run finishes.
type Result struct {
	RunID            string
	OutputDir        string
	RowsLoaded       int
	RowsWithContact  int
	SitesAttempted   int
	SitesWithContact int
}

// siteState is the shared work unit for one canonical site. The first row
// that claims the site runs the crawl, extraction and classification; every
// later row reuses the recorded results.
type siteState struct {
	key      string
	entryURL string

	once sync.Once

	status   scraper.ScrapeStatus
	httpCode int
	pages    []scraper.PageResult

	candidates []model.Candidate
	numbers    []model.NumberOutput
	llmErred   bool
	llmDetail  string

	details *model.CompanyContactDetails

	mu   sync.Mutex
	rows []*rowState
}

func (s *siteState) attach(r *rowState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, r)
}

func (s *siteState) companyNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.rows))
	for _, r := range s.rows {
		names = append(names, r.row.CompanyName)
	}
	return names
}

// rowState carries one input row through both passes.
type rowState struct {
	row             model.CompanyRow
	normalizedGiven string

	crashed     bool
	inputStatus scraper.ScrapeStatus
	site        *siteState

	outcome string
	fault   string
}

// Execute runs the whole pipeline for the configured input file.
func (p *Pipeline) Execute(ctx context.Context) (*Result, error) {
	run := p.Run
	cfg := run.Cfg
	log := run.Log

	rows, err := LoadRows(cfg.App.InputFile, cfg.App.RowRange, cfg.App.EmptyRowStop, cfg.Targets.CountryCodes)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no input rows selected from %s", cfg.App.InputFile)
	}
	log.Info().Int("rows", len(rows)).Str("input", cfg.App.InputFile).Msg("input loaded")

	stats := ComputeInputStats(rows)

	failures, err := NewFailureLog(filepath.Join(run.Dir, fmt.Sprintf("failed_rows_%s.csv", run.ID)))
	if err != nil {
		return nil, err
	}
	defer failures.Close()

	p.persistPromptTemplate()

	states := make([]*rowState, len(rows))
	for i, row := range rows {
		states[i] = &rowState{row: row}
		if row.GivenPhoneNumber != "" {
			states[i].normalizedGiven = phone.Normalize(row.GivenPhoneNumber, row.TargetCountryCodes)
		}
	}

	var (
		sitesMu sync.Mutex
		sites   = make(map[string]*siteState)
	)

	scrapeStart := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.App.MaxWorkers)
	for _, rs := range states {
		rs := rs
		g.Go(func() error {
			p.safeProcessRow(gctx, rs, sites, &sitesMu, failures)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	run.Metrics.RecordTaskDuration("scrape_extract_classify", time.Since(scrapeStart))

	consolidateStart := time.Now()
	p.consolidateSites(sites)
	p.classifyRows(states, failures)
	run.Metrics.RecordTaskDuration("consolidate_classify_rows", time.Since(consolidateStart))

	res := &Result{
		RunID:          run.ID,
		OutputDir:      run.Dir,
		RowsLoaded:     len(rows),
		SitesAttempted: len(sites),
	}
	for _, rs := range states {
		if rs.outcome == outcome.ReasonContactExtracted {
			res.RowsWithContact++
		}
	}
	for _, site := range sites {
		if site.details != nil && reports.CountEligible(site.details.ConsolidatedNumbers) > 0 {
			res.SitesWithContact++
		}
	}

	if err := p.writeReports(states, sites, stats, res); err != nil {
		return nil, err
	}

	log.Info().
		Int("rows", res.RowsLoaded).
		Int("rows_with_contact", res.RowsWithContact).
		Int("sites", res.SitesAttempted).
		Msg("run finished")
	return res, nil
}

// safeProcessRow keeps a panicking row worker from aborting the run: the
// panic is logged and recorded, the row is marked crashed and the other
// rows keep going.
func (p *Pipeline) safeProcessRow(ctx context.Context, rs *rowState, sites map[string]*siteState, mu *sync.Mutex, failures *FailureLog) {
	defer func() {
		if r := recover(); r != nil {
			rs.crashed = true
			detail := fmt.Sprintf("%v", r)
			p.Run.Log.Error().
				Int("row", rs.row.Index).
				Str("company", rs.row.CompanyName).
				Str("panic", detail).
				Msg("row worker panicked")
			p.Run.Metrics.RecordError("row panic: " + detail)
			failures.Record(rs.row.Index, rs.row.CompanyName, rs.row.GivenURL,
				"RowProcessing_Pass1_UnhandledException", "panic", map[string]any{"panic": detail})
		}
	}()
	p.processRow(ctx, rs, sites, mu, failures)
}

// processRow resolves the row's URL to a canonical site and makes sure the
// site's scrape/extract/classify work runs exactly once.
func (p *Pipeline) processRow(ctx context.Context, rs *rowState, sites map[string]*siteState, mu *sync.Mutex, failures *FailureLog) {
	row := rs.row
	log := p.Run.Log.With().Int("row", row.Index).Str("company", row.CompanyName).Logger()

	normalized, err := urlnorm.Normalize(row.GivenURL)
	if err != nil {
		rs.inputStatus = scraper.StatusInvalidURL
		log.Info().Str("given_url", row.GivenURL).Msg("invalid input URL")
		failures.Record(row.Index, row.CompanyName, row.GivenURL,
			"URL_Validation_InvalidOrMissing", "invalid_input_url", map[string]any{"error": err.Error()})
		return
	}

	resolver := p.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	probed := urlnorm.ProbeTLD(ctx, normalized, resolver, p.Run.Cfg.Targets.ProbeTLDs)

	key, err := urlnorm.CanonicalBase(probed)
	if err != nil {
		rs.inputStatus = scraper.StatusInvalidURL
		failures.Record(row.Index, row.CompanyName, row.GivenURL,
			"URL_Validation_InvalidOrMissing", "no_canonical_base", map[string]any{"error": err.Error()})
		return
	}

	mu.Lock()
	site, ok := sites[key]
	if !ok {
		site = &siteState{key: key, entryURL: probed}
		sites[key] = site
	}
	mu.Unlock()

	rs.site = site
	site.attach(rs)

	owner := false
	site.once.Do(func() {
		owner = true
		p.processSite(ctx, site, row, failures)
	})
	if !owner {
		rs.inputStatus = scraper.StatusAlreadyProcessed
		log.Debug().Str("canonical", key).Msg("canonical site already claimed by an earlier row")
	}
}

// processSite runs the crawl, candidate extraction and LLM classification
// for one canonical site. Called exactly once per site, by the owning row.
func (p *Pipeline) processSite(ctx context.Context, site *siteState, owner model.CompanyRow, failures *FailureLog) {
	run := p.Run
	cfg := run.Cfg
	log := run.Log.With().Str("site", site.key).Int("row", owner.Index).Logger()

	crawler := &scraper.Crawler{
		Fetcher: p.Fetcher,
		Robots:  p.Robots,
		Visited: run.Visited,
		Log:     log,
		Cfg: scraper.CrawlConfig{
			UserAgent:             cfg.Scraper.UserAgent,
			MaxPages:              cfg.Scraper.MaxPagesPerDomain,
			MaxDepth:              cfg.Scraper.MaxDepth,
			ScoreThreshold:        cfg.Scraper.ScoreThreshold,
			HighPriorityThreshold: cfg.Scraper.HighPriorityThreshold,
			BypassAllowance:       cfg.Scraper.PageCapBypassAllowance,
			Score: scraper.ScoreConfig{
				Critical:               cfg.Scraper.CriticalKeywords,
				HighPriority:           cfg.Scraper.HighPriorityKeywords,
				General:                cfg.Scraper.TargetLinkKeywords,
				MaxKeywordPathSegments: cfg.Scraper.MaxKeywordPathSegments,
			},
			ContentDir:    run.ContentDir,
			RespectRobots: cfg.Scraper.RespectRobots,
		},
	}

	result := crawler.ScrapeSite(ctx, site.entryURL)
	site.status = result.Status
	site.httpCode = result.HTTPCode
	site.pages = result.Pages

	run.Metrics.RecordScrapeStatus(result.StatusLabel())
	for _, page := range result.Pages {
		run.Metrics.RecordPageScraped(page.PageType)
	}

	if result.Status != scraper.StatusSuccess {
		log.Info().Str("status", result.StatusLabel()).Msg("site scrape did not succeed")
		failures.Record(owner.Index, owner.CompanyName, owner.GivenURL,
			"Scraping_"+result.StatusLabel(), result.StatusLabel(), map[string]any{"canonical_url": site.key, "http_code": result.HTTPCode})
		return
	}

	ext := extractor.New(cfg.Extractor.SnippetWindowChars, cfg.Extractor.MinDigits)
	site.candidates = ext.Extract(result.Pages)
	run.Metrics.RecordRegexExtraction(len(site.candidates))
	if len(site.candidates) == 0 {
		log.Info().Msg("no phone candidates on site")
		return
	}

	for i := range site.candidates {
		site.candidates[i].OriginalInputCompany = owner.CompanyName
	}

	prefix := urlnorm.SafeFilename(site.key)
	llmRes, err := p.Classifier.ClassifySite(ctx, prefix, site.candidates, owner.TargetCountryCodes)
	if llmRes != nil {
		run.Metrics.RecordLLMCall(err == nil, classifiedCount(llmRes.Numbers), llmRes.PromptTokens, llmRes.CompletionTokens)
	}
	if err != nil {
		site.llmErred = true
		site.llmDetail = err.Error()
		log.Warn().Err(err).Msg("LLM classification failed for site")
		failures.Record(owner.Index, owner.CompanyName, owner.GivenURL,
			"LLM_Processing_GeneralError", "llm_processing_error", map[string]any{"canonical_url": site.key, "error": err.Error()})
		return
	}

	site.numbers = llmRes.Numbers
	if llmRes.ErrorItems > 0 {
		site.llmDetail = llmRes.LastError
	}
}

// classifiedCount counts the outputs that carry a real classification, as
// opposed to error records standing in for failed candidates.
func classifiedCount(numbers []model.NumberOutput) int {
	n := 0
	for _, num := range numbers {
		if num.ErrorTag == "" {
			n++
		}
	}
	return n
}

// consolidateSites builds the per-site contact details for every site whose
// classification ran, even when it returned zero numbers.
func (p *Pipeline) consolidateSites(sites map[string]*siteState) {
	for _, site := range sites {
		if len(site.candidates) == 0 || site.llmErred {
			continue
		}
		names := site.companyNames()
		company := reports.AggregateCompanyName(site.key, names)
		site.details = consolidate.Consolidate(company, site.key, site.numbers)
		for _, r := range site.rows {
			site.details.OriginalInputURLs = append(site.details.OriginalInputURLs, r.row.GivenURL)
		}
	}
}

// classifyRows derives the final outcome reason and fault category for
// every input row from the recorded signals.
func (p *Pipeline) classifyRows(states []*rowState, failures *FailureLog) {
	for _, rs := range states {
		signals := outcome.RowSignals{Crashed: rs.crashed, InputStatus: rs.inputStatus}
		if site := rs.site; site != nil {
			signals.CanonicalKey = site.key
			signals.SiteStatus = site.status
			signals.SiteHTTPCode = site.httpCode
			signals.RegexCandidatesFound = len(site.candidates) > 0
			signals.LLMCallErrored = site.llmErred
			signals.LLMOutputCount = classifiedCount(site.numbers)
			if site.details != nil {
				signals.HasSiteDetails = true
				// Only numbers eligible for the contact reports count as an
				// extracted contact.
				signals.ConsolidatedCount = reports.CountEligible(site.details.ConsolidatedNumbers)
			}
		}

		rs.outcome, rs.fault = outcome.Classify(signals)
		failed := rs.fault != outcome.FaultNone
		p.Run.Metrics.RecordRowOutcome(rs.outcome, rs.fault, failed)
	}
}

// writeReports renders every per-run artifact into the run directory.
func (p *Pipeline) writeReports(states []*rowState, sites map[string]*siteState, stats InputStats, res *Result) error {
	run := p.Run
	cfg := run.Cfg
	now := time.Now()

	siteKeys := make([]string, 0, len(sites))
	for key := range sites {
		siteKeys = append(siteKeys, key)
	}
	sort.Strings(siteKeys)

	var (
		detailed  []reports.DetailedRow
		summary   []reports.SummaryRow
		attrition []reports.AttritionRow
	)
	for _, rs := range states {
		row := rs.row

		sr := reports.SummaryRow{
			InputRowID:         row.Index,
			CompanyName:        row.CompanyName,
			GivenURL:           row.GivenURL,
			GivenPhoneNumber:   row.GivenPhoneNumber,
			NormalizedGiven:    rs.normalizedGiven,
			Description:        row.Description,
			Outcome:            rs.outcome,
			Fault:              rs.fault,
			RunID:              run.ID,
			TargetCountryCodes: strings.Join(row.TargetCountryCodes, ","),
		}
		if site := rs.site; site != nil {
			sr.CanonicalURL = site.key
			sr.ScrapeStatus = scraper.Label(site.status, site.httpCode)
			if site.details != nil {
				top := reports.SelectTopContacts(site.details.ConsolidatedNumbers)
				for i := 0; i < len(top) && i < 3; i++ {
					sr.Top[i] = top[i]
				}
				for _, n := range site.details.ConsolidatedNumbers {
					src := ""
					if len(n.Sources) > 0 {
						src = n.Sources[0].SourceURL
					}
					detailed = append(detailed, reports.DetailedRow{
						InputRowID:     row.Index,
						CompanyName:    row.CompanyName,
						GivenURL:       row.GivenURL,
						CanonicalURL:   site.key,
						Number:         n.Number,
						Type:           n.Type,
						Classification: n.Classification,
						SourceURL:      src,
						ErrorTag:       n.ErrorTag,
					})
				}
			}
		}
		summary = append(summary, sr)

		if rs.outcome != outcome.ReasonContactExtracted {
			ar := reports.AttritionRow{
				InputRowID:  row.Index,
				CompanyName: row.CompanyName,
				GivenURL:    row.GivenURL,
				Reason:      rs.outcome,
				Fault:       rs.fault,
				Timestamp:   now,
			}
			if rs.site != nil {
				ar.RelevantCanonical = rs.site.key
				ar.LLMErrorDetail = rs.site.llmDetail
			}
			attrition = append(attrition, ar)
		}
	}

	var topRows []reports.TopContactsRow
	var domainRows []reports.DomainSummaryRow
	for _, key := range siteKeys {
		site := sites[key]

		dr := reports.DomainSummaryRow{
			CanonicalURL:    key,
			CompanyNames:    strings.Join(site.companyNames(), "; "),
			InputRows:       len(site.rows),
			ScrapeStatus:    scraper.Label(site.status, site.httpCode),
			RegexCandidates: len(site.candidates),
		}
		switch {
		case site.llmErred:
			dr.LLMCallOutcome = "error"
		case len(site.candidates) == 0:
			dr.LLMCallOutcome = "skipped"
		default:
			dr.LLMCallOutcome = "ok"
		}
		if site.details != nil {
			for _, n := range site.details.ConsolidatedNumbers {
				switch n.Classification {
				case model.ClassPrimary:
					dr.PrimaryCount++
				case model.ClassSecondary:
					dr.SecondaryCount++
				case model.ClassSupport:
					dr.SupportCount++
				case model.ClassLowRelevance:
					dr.LowRelevanceCount++
				case model.ClassNonBusiness:
					dr.NonBusinessCount++
				}
			}
			if top := reports.SelectTopContacts(site.details.ConsolidatedNumbers); len(top) > 0 {
				topRows = append(topRows, reports.TopContactsRow{
					CompanyName:  site.details.CompanyName,
					CanonicalURL: key,
					Numbers:      top,
				})
			}
		}
		domainRows = append(domainRows, dr)
	}

	prefix := cfg.App.OutputPrefix
	artifact := func(name string) string {
		return filepath.Join(run.Dir, fmt.Sprintf("%s_%s.xlsx", name, run.ID))
	}

	if err := reports.WriteDetailed(artifact(prefix+"_detailed"), detailed); err != nil {
		return err
	}
	if err := reports.WriteSummary(artifact(prefix+"_summary"), summary); err != nil {
		return err
	}
	if err := reports.WriteTopContacts(artifact("Top_Contacts_Report"), topRows); err != nil {
		return err
	}
	if err := reports.WriteFinalProcessed(artifact("Final_Processed_Contacts"), topRows); err != nil {
		return err
	}
	if err := reports.WriteDomainSummary(artifact("canonical_domain_summary"), domainRows); err != nil {
		return err
	}
	if err := reports.WriteAttrition(artifact("row_attrition_report"), attrition); err != nil {
		return err
	}

	data := reports.RunMetricsData{
		RunID:     run.ID,
		InputFile: cfg.App.InputFile,
		RowRange:  cfg.App.RowRange,
		Started:   run.Started,
		Finished:  now,

		InputRows:                   stats.Rows,
		UniqueCompanyNames:          stats.UniqueCompanyNames,
		UniqueCanonicalURLs:         stats.UniqueCanonicalURLs,
		CompanyNamesWithDuplicates:  stats.CompanyNamesWithDuplicates,
		CanonicalURLsWithDuplicates: stats.CanonicalURLsWithDuplicates,
		RowsConsideredDuplicates:    stats.RowsConsideredDuplicates,

		SitesAttempted: res.SitesAttempted,
		ContactsFound:  res.SitesWithContact,

		Metrics: run.Metrics.Snapshot(),
	}
	if err := reports.WriteRunMetrics(filepath.Join(run.Dir, fmt.Sprintf("run_metrics_%s.md", run.ID)), data); err != nil {
		return err
	}

	exportPath := filepath.Join(run.Dir, fmt.Sprintf("metrics_%s.prom", run.ID))
	if err := os.WriteFile(exportPath, []byte(run.Metrics.Export()), 0o644); err != nil {
		return err
	}
	return nil
}

// persistPromptTemplate stores the effective prompt template alongside the
// per-call context artifacts.
func (p *Pipeline) persistPromptTemplate() {
	template := llmclassify.DefaultPromptTemplate
	if path := p.Run.Cfg.LLM.PromptTemplatePath; path != "" {
		if loaded, err := llmclassify.LoadPromptTemplate(path); err == nil {
			template = loaded
		}
	}
	dest := filepath.Join(p.Run.ContextDir, "llm_prompt_template.txt")
	if err := os.WriteFile(dest, []byte(template), 0o644); err != nil {
		p.Run.Log.Warn().Err(err).Msg("failed to persist prompt template")
	}
}
