package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const maxNegotiateRedirects = 100

type availableTransport struct {
	Transport       string   `json:"transport"`
	TransferFormats []string `json:"transferFormats"`
}

type negotiateResponse struct {
	ConnectionID        string               `json:"connectionId,omitempty"`
	ConnectionToken     string               `json:"connectionToken,omitempty"`
	NegotiateVersion    int                  `json:"negotiateVersion,omitempty"`
	AvailableTransports []availableTransport `json:"availableTransports,omitempty"`
	URL                 string               `json:"url,omitempty"`
	AccessToken         string               `json:"accessToken,omitempty"`
	Error               string               `json:"error,omitempty"`
}

func (n negotiateResponse) supports(t TransportType) bool {
	if len(n.AvailableTransports) == 0 {
		return true
	}
	for _, at := range n.AvailableTransports {
		if !strings.EqualFold(at.Transport, string(t)) {
			continue
		}
		for _, f := range at.TransferFormats {
			if strings.EqualFold(f, "Text") {
				return true
			}
		}
	}
	return false
}

// token returns the id the transport must present; version 0 servers only
// hand out a connectionId.
func (n negotiateResponse) token() string {
	if n.NegotiateVersion >= 1 && n.ConnectionToken != "" {
		return n.ConnectionToken
	}
	return n.ConnectionID
}

func negotiateURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/negotiate"
	q := u.Query()
	q.Set("negotiateVersion", "1")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// negotiate follows redirect responses and returns the final endpoint with
// the negotiation result.
func negotiate(ctx context.Context, client *http.Client, endpoint string, header http.Header) (string, negotiateResponse, http.Header, error) {
	header = header.Clone()
	for i := 0; i < maxNegotiateRedirects; i++ {
		target, err := negotiateURL(endpoint)
		if err != nil {
			return "", negotiateResponse{}, nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, nil)
		if err != nil {
			return "", negotiateResponse{}, nil, err
		}
		for k, v := range header {
			req.Header[k] = v
		}
		resp, err := client.Do(req)
		if err != nil {
			return "", negotiateResponse{}, nil, err
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return "", negotiateResponse{}, nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return "", negotiateResponse{}, nil, fmt.Errorf("negotiate: unexpected status %s", resp.Status)
		}

		var n negotiateResponse
		if err := json.Unmarshal(body, &n); err != nil {
			return "", negotiateResponse{}, nil, fmt.Errorf("negotiate: %w", err)
		}
		if n.Error != "" {
			return "", negotiateResponse{}, nil, fmt.Errorf("negotiate: %s", n.Error)
		}
		if n.URL == "" {
			return endpoint, n, header, nil
		}
		endpoint = n.URL
		if n.AccessToken != "" {
			header.Set("Authorization", "Bearer "+n.AccessToken)
		}
	}
	return "", negotiateResponse{}, nil, fmt.Errorf("negotiate: exceeded %d redirects", maxNegotiateRedirects)
}

func withConnectionToken(endpoint, token string) (string, error) {
	if token == "" {
		return endpoint, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("id", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
