package resolver

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"resty.dev/v3"
)

// Remote resolves competitor URLs from a mapping service over HTTP.
//
// Expected endpoint: GET {base}/products/{id}/competitors?brand=&model=
// responding {"competitors": {"Lazada": "https://...", ...}}.
type Remote struct {
	client *resty.Client
}

// NewRemote creates a Remote resolver against the given base URL.
func NewRemote(baseURL string, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		AddRetryConditions(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500 || r.StatusCode() == 429
		})
	return &Remote{client: client}
}

type competitorsResponse struct {
	Competitors map[string]string `json:"competitors"`
}

// Resolve queries the mapping service. Any transport or non-2xx failure is
// a resolver failure: without URLs no aggregation work is possible.
func (r *Remote) Resolve(ctx context.Context, productID, brand, model string) (map[string]string, error) {
	var out competitorsResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetPathParam("id", productID).
		SetQueryParam("brand", brand).
		SetQueryParam("model", model).
		SetResult(&out).
		Get("/products/{id}/competitors")
	if err != nil {
		return nil, NewError(productID, eris.Wrap(err, "remote lookup"))
	}
	if resp.IsError() {
		return nil, NewError(productID, eris.Errorf("remote lookup: status %d", resp.StatusCode()))
	}
	if out.Competitors == nil {
		return map[string]string{}, nil
	}
	return out.Competitors, nil
}

// Close releases the underlying HTTP client resources.
func (r *Remote) Close() error {
	return r.client.Close()
}
