package verification

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kube-credential/credential-service/config"
	"github.com/kube-credential/credential-service/internal/credential"
	"github.com/kube-credential/credential-service/internal/util"
)

// CredentialLookup resolves the authoritative issued record for a credential
// id. Implementations return nil with no error when no record exists; an
// error means the authority could not be consulted at all.
type CredentialLookup interface {
	GetCredential(ctx context.Context, id string) (*credential.IssuedCredential, error)
}

// HTTPCredentialLookup consults the issuance service over HTTP. One bounded
// attempt per call; retries are left to the caller resubmitting.
type HTTPCredentialLookup struct {
	client  *http.Client
	baseURL string
}

func NewHTTPCredentialLookup(baseURL string, timeout time.Duration) (*HTTPCredentialLookup, error) {
	if baseURL == "" {
		return nil, errors.New("issuance service url cannot be empty")
	}
	return &HTTPCredentialLookup{
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

func (h *HTTPCredentialLookup) GetCredential(ctx context.Context, id string) (*credential.IssuedCredential, error) {
	requestURL := fmt.Sprintf("%s/%s/credentials/%s", h.baseURL, config.APIVersion, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building issuance service request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to issuance service")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// a 404 is a normal negative outcome, not a fault
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if !util.Is2xxResponse(resp.StatusCode) {
		return nil, errors.Errorf("issuance service error: %d - %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	var envelope struct {
		Success bool                         `json:"success"`
		Data    *credential.IssuedCredential `json:"data,omitempty"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, errors.Wrap(err, "decoding issuance service response")
	}
	if !envelope.Success || envelope.Data == nil {
		return nil, nil
	}
	return envelope.Data, nil
}

var _ CredentialLookup = (*HTTPCredentialLookup)(nil)
