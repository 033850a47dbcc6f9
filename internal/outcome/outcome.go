package outcome

import (
	"github.com/ncecere/phonescout/internal/scraper"
)

// Fault categories blame a row failure on a coarse bucket.
const (
	FaultInputData   = "Input Data Issue"
	FaultWebsite     = "Website Issue"
	FaultPipelineCfg = "Pipeline Logic/Configuration"
	FaultLLM         = "LLM Issue"
	FaultPipeline    = "Pipeline Error"
	FaultUnknown     = "Unknown"
	FaultNone        = "N/A"
)

// Outcome reasons. The set is closed; report consumers key on these.
const (
	ReasonContactExtracted       = "Contact_Successfully_Extracted"
	ReasonInputURLInvalid        = "Input_URL_Invalid"
	ReasonMaxRedirectsInput      = "Pipeline_Skipped_MaxRedirects_ForInputURL"
	ReasonNoCanonicalDetermined  = "Unknown_NoCanonicalURLDetermined"
	ReasonScrapeFailedNetwork    = "Scraping_AllAttemptsFailed_Network"
	ReasonScrapeAccessDenied     = "Scraping_AllAttemptsFailed_AccessDenied"
	ReasonScrapeContentNotFound  = "Scraping_ContentNotFound_AllAttempts"
	ReasonCanonicalDuplicate     = "Canonical_Duplicate_SkippedProcessing"
	ReasonNoRegexCandidates      = "Canonical_NoRegexCandidatesFound"
	ReasonLLMProcessingError     = "LLM_Processing_Error_AllAttempts"
	ReasonLLMNoInput             = "LLM_NoInput_NoRegexCandidates"
	ReasonLLMNoNumbersFound      = "LLM_Output_NoNumbersFound_AllAttempts"
	ReasonLLMNoneRelevant        = "LLM_Output_NumbersFound_NoneRelevant_AllAttempts"
	ReasonUnknownProcessingGap   = "Unknown_Processing_Gap_NoContact"
	ReasonRowException           = "RowProcessing_Pass1_UnhandledException"
	prefixScrapeFailedInput      = "ScrapingFailure_InputURL_"
	prefixScrapeFailedCanonical  = "ScrapingFailed_Canonical_"
)

// RowSignals are the recorded statuses of one input row after both
// pipeline passes. Classify is a pure function of this struct: it never
// re-fetches or re-calls anything.
type RowSignals struct {
	// True when the row's worker panicked; the row is reported as failed
	// instead of taking the run down.
	Crashed bool

	// Status of handling the row's own input URL (invalid, duplicate,
	// redirect cap). StatusUnknown means the stage did not run.
	InputStatus scraper.ScrapeStatus

	// Canonical site key derived for the row, "" when none.
	CanonicalKey string

	// Scrape result of the canonical site (possibly from another row's
	// crawl via the cache).
	SiteStatus   scraper.ScrapeStatus
	SiteHTTPCode int

	// True when the candidate extractor found at least one candidate for
	// the canonical site.
	RegexCandidatesFound bool

	// True when the LLM call for the canonical site failed outright
	// (prompt missing, transport or processing error on every chunk).
	LLMCallErrored bool

	// Raw numbers the LLM returned for the canonical site.
	LLMOutputCount int

	// Consolidation signals.
	HasSiteDetails    bool
	ConsolidatedCount int
}

// Classify maps recorded row signals to the final outcome reason and its
// fault category. First match wins.
func Classify(in RowSignals) (string, string) {
	if in.Crashed {
		return ReasonRowException, FaultPipeline
	}
	if in.InputStatus == scraper.StatusInvalidURL {
		return ReasonInputURLInvalid, FaultInputData
	}
	if in.InputStatus == scraper.StatusMaxRedirects {
		return ReasonMaxRedirectsInput, FaultWebsite
	}
	if in.ConsolidatedCount > 0 {
		return ReasonContactExtracted, FaultNone
	}
	if in.CanonicalKey == "" {
		if in.InputStatus != scraper.StatusSuccess && in.InputStatus != scraper.StatusUnknown {
			return prefixScrapeFailedInput + scraper.Label(in.InputStatus, in.SiteHTTPCode), FaultWebsite
		}
		return ReasonNoCanonicalDetermined, FaultUnknown
	}
	if failed(in.SiteStatus) {
		return classifySiteFailure(in), FaultWebsite
	}
	if in.InputStatus == scraper.StatusAlreadyProcessed {
		return ReasonCanonicalDuplicate, FaultPipelineCfg
	}
	if !in.RegexCandidatesFound {
		return ReasonNoRegexCandidates, FaultPipelineCfg
	}
	if !in.HasSiteDetails {
		if in.LLMCallErrored {
			return ReasonLLMProcessingError, FaultLLM
		}
		return ReasonLLMNoInput, FaultPipelineCfg
	}
	if in.ConsolidatedCount == 0 {
		if in.LLMOutputCount == 0 {
			return ReasonLLMNoNumbersFound, FaultLLM
		}
		return ReasonLLMNoneRelevant, FaultLLM
	}
	return ReasonUnknownProcessingGap, FaultUnknown
}

func failed(s scraper.ScrapeStatus) bool {
	switch s {
	case scraper.StatusSuccess, scraper.StatusAlreadyProcessed, scraper.StatusUnknown:
		return false
	}
	return true
}

func classifySiteFailure(in RowSignals) string {
	switch in.SiteStatus {
	case scraper.StatusTimeout, scraper.StatusDNSError, scraper.StatusConnectionRefused:
		return ReasonScrapeFailedNetwork
	case scraper.StatusRobotsDisallowed:
		return ReasonScrapeAccessDenied
	case scraper.StatusHTTPError:
		switch in.SiteHTTPCode {
		case 401, 403:
			return ReasonScrapeAccessDenied
		case 404, 410:
			return ReasonScrapeContentNotFound
		}
	}
	return prefixScrapeFailedCanonical + scraper.Label(in.SiteStatus, in.SiteHTTPCode)
}
