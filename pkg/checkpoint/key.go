package checkpoint

import (
	"fmt"
	"net/url"
	"strings"
)

const keyPrefix = "mscharvest:checkpoint"

// Key identifies one harvest.
type Key struct {
	// BaseURL of the OAI-PMH endpoint
	BaseURL string

	// From is the harvest start date
	From string

	// Series is the target serial title
	Series string

	// Output is the output file path
	Output string
}

// String generates a deterministic Redis key.
// Format: mscharvest:checkpoint:host/path:from=date:series=title:output=path
//
// Example:
//
//	mscharvest:checkpoint:oai.zbmath.org/v1:from=2020-01-01:series=Advances in Mathematics:output=data.csv
func (k Key) String() string {
	parts := []string{keyPrefix}

	endpoint := strings.TrimSpace(k.BaseURL)
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		endpoint = u.Host + u.Path
	}
	endpoint = strings.Trim(endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	parts = append(parts,
		fmt.Sprintf("from=%s", k.From),
		fmt.Sprintf("series=%s", strings.Join(strings.Fields(k.Series), " ")),
		fmt.Sprintf("output=%s", k.Output),
	)

	return strings.Join(parts, ":")
}
