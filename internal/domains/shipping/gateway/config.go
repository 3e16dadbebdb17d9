package gateway

import (
	"github.com/mahmoudtohamy2025/rappit-core/internal/domains/shipping/model"
)

// Carrier OAuth token endpoints, production and sandbox.
const (
	fedexProductionTokenURL = "https://apis.fedex.com/oauth/token"
	fedexSandboxTokenURL    = "https://apis-sandbox.fedex.com/oauth/token"
	dhlProductionTokenURL   = "https://api-eu.dhl.com/post/de/shipping/v2/token"
	dhlSandboxTokenURL      = "https://api-sandbox.dhl.com/post/de/shipping/v2/token"
)

// Endpoints resolves token URLs per carrier; tests override the table.
type Endpoints struct {
	urls map[model.Carrier][2]string // [production, sandbox]
}

func DefaultEndpoints() *Endpoints {
	return &Endpoints{
		urls: map[model.Carrier][2]string{
			model.CarrierFedEx: {fedexProductionTokenURL, fedexSandboxTokenURL},
			model.CarrierDHL:   {dhlProductionTokenURL, dhlSandboxTokenURL},
		},
	}
}

// NewEndpoints builds an endpoint table from explicit URLs (tests point both
// at a local server).
func NewEndpoints(urls map[model.Carrier][2]string) *Endpoints {
	return &Endpoints{urls: urls}
}

// TokenURL picks the sandbox endpoint for test-mode accounts.
func (e *Endpoints) TokenURL(carrier model.Carrier, testMode bool) (string, bool) {
	pair, ok := e.urls[carrier]
	if !ok {
		return "", false
	}
	if testMode {
		return pair[1], true
	}
	return pair[0], true
}
