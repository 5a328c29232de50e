package plusd

// Project codes selecting archive collections.
const (
	ProjectCablegate = "cg"
	ProjectCarter    = "cc"
	ProjectFord      = "fp"
	ProjectEO        = "ee"
	ProjectPodesta   = "ps"
)

// AllProjects lists every known collection, in the order the archive
// presents them.
var AllProjects = []string{
	ProjectCablegate,
	ProjectCarter,
	ProjectFord,
	ProjectEO,
	ProjectPodesta,
}

// SearchQuery describes one archive search. Immutable once a search
// starts.
type SearchQuery struct {
	Keyword  string
	DateFrom string
	DateTo   string
	// Projects defaults to Cablegate when empty.
	Projects []string
}

// ResultRecord is one row of the search listing.
type ResultRecord struct {
	CableID string `json:"cable_id"`
	Title   string `json:"title"`
	Date    string `json:"date,omitempty"`
}

// PageParameters is the pagination state embedded in the search page's
// script block. The continuation token travels separately since it is
// replaced on every continuation response.
type PageParameters struct {
	Project        string
	Subp           string
	QCanonical     string
	QCanonicalSeal string
	Session        string
}

// CableRecord is a fully fetched cable. A non-empty FetchError marks a
// record whose download failed; such records are retried on the next
// run while complete ones are skipped.
type CableRecord struct {
	CableID    string `json:"cable_id"`
	Title      string `json:"title"`
	Date       string `json:"date,omitempty"`
	FullText   string `json:"full_text"`
	Origin     string `json:"origin,omitempty"`
	FetchError string `json:"_fetch_error,omitempty"`
}
