package model

// InvalidFormat is the sentinel stored wherever a phone number could not
// be parsed into E.164.
const InvalidFormat = "InvalidFormat"

// Classification values the LLM may assign to a number. Anything outside
// this set is coerced to ClassNonBusiness during response handling.
const (
	ClassPrimary      = "Primary"
	ClassSecondary    = "Secondary"
	ClassSupport      = "Support"
	ClassLowRelevance = "Low Relevance"
	ClassNonBusiness  = "Non-Business"
)

// Number types excluded from Top Contacts output.
const (
	TypeUnknown = "Unknown"
	TypeFax     = "Fax"
	TypeMobile  = "Mobile"
	TypeDate    = "Date"
	TypeID      = "ID"
)

// CompanyRow is one preprocessed input row.
type CompanyRow struct {
	Index              int // 1-based position in the input file
	CompanyName        string
	GivenURL           string
	GivenPhoneNumber   string
	Description        string
	TargetCountryCodes []string
}

// Candidate is a regex hit with its surrounding context, the unit of work
// handed to the LLM.
type Candidate struct {
	Number               string `json:"candidate_number"`
	SourceURL            string `json:"source_url"`
	Snippet              string `json:"snippet"`
	OriginalInputCompany string `json:"original_input_company_name"`
}

// NumberOutput is one classified number after alignment: the LLM's type and
// classification joined back to the candidate's source page. Candidates
// that could not be classified keep their raw number and carry an ErrorTag
// naming the failure.
type NumberOutput struct {
	Number               string `json:"number"`
	Type                 string `json:"type"`
	Classification       string `json:"classification"`
	SourceURL            string `json:"source_url,omitempty"`
	OriginalInputCompany string `json:"-"`
	ErrorTag             string `json:"-"`
}

// Source records one page (and classification context) a consolidated
// number was seen on.
type Source struct {
	Type                 string
	SourceURL            string
	Classification       string
	OriginalInputCompany string
}

// ConsolidatedNumber is a deduplicated number for a site with its best
// type/classification and every distinct source it appeared under. A
// non-empty ErrorTag marks a number every occurrence of which failed
// classification; such entries are kept for the detailed report but are
// never contact-eligible.
type ConsolidatedNumber struct {
	Number         string
	Type           string
	Classification string
	ErrorTag       string
	Sources        []Source
}

// CompanyContactDetails is the per-canonical-site consolidation result
// shared by every input row that maps to the site.
type CompanyContactDetails struct {
	CompanyName         string
	CanonicalEntryURL   string
	ConsolidatedNumbers []ConsolidatedNumber
	OriginalInputURLs   []string
}
