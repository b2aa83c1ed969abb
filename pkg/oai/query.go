package oai

import (
	"net/url"
	"strings"
)

// VerbListRecords is the only OAI-PMH verb the harvester issues.
const VerbListRecords = "ListRecords"

// Query describes one ListRecords request.
type Query struct {
	// BaseURL is the provider endpoint, e.g. https://oai.zbmath.org/v1/
	BaseURL string

	// MetadataPrefix selects the record format (oai_zb_preview for zbMATH).
	MetadataPrefix string

	// From is the lower datestamp bound in YYYY-MM-DD form.
	From string

	// ResumptionToken continues a previous list request when non-empty.
	ResumptionToken string
}

// WithToken returns a copy of q that continues from token.
func (q Query) WithToken(token string) Query {
	q.ResumptionToken = token
	return q
}

// URL renders the GET request URL. zbMATH accepts from and metadataPrefix
// next to resumptionToken, so they are sent on every page.
func (q Query) URL() string {
	params := url.Values{}
	params.Set("verb", VerbListRecords)
	if q.From != "" {
		params.Set("from", q.From)
	}
	if q.MetadataPrefix != "" {
		params.Set("metadataPrefix", q.MetadataPrefix)
	}
	if q.ResumptionToken != "" {
		params.Set("resumptionToken", q.ResumptionToken)
	}

	sep := "?"
	if strings.Contains(q.BaseURL, "?") {
		sep = "&"
	}
	return q.BaseURL + sep + params.Encode()
}
