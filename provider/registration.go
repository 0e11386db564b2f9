package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jrsteele09/go-auth-state/internal/utils"
	"github.com/jrsteele09/go-auth-state/oauth2"
	"github.com/pkg/errors"
)

const maxRegistrationResponseSize = 1 << 20

type registrationResponseBody struct {
	ClientID                string `json:"client_id"`
	ClientSecret            string `json:"client_secret"`
	ClientIDIssuedAt        int64  `json:"client_id_issued_at"`
	ClientSecretExpiresAt   int64  `json:"client_secret_expires_at"`
	RegistrationAccessToken string `json:"registration_access_token"`
	RegistrationClientURI   string `json:"registration_client_uri"`
	TokenEndpointAuthMethod string `json:"token_endpoint_auth_method"`
}

type registrationErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// RegisterClient registers a new client with the server (RFC 7591).
func (s *Service) RegisterClient(ctx context.Context, req *oauth2.RegistrationRequest) (*oauth2.RegistrationResponse, error) {
	registrationURL, err := s.resolveRegistrationEndpoint(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[RegisterClient]")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "[RegisterClient] marshal request")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, registrationURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "[RegisterClient] new request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := s.client().Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "[RegisterClient] send")
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxRegistrationResponseSize))
	if err != nil {
		return nil, errors.Wrap(err, "[RegisterClient] read response")
	}

	if httpResp.StatusCode != http.StatusOK && httpResp.StatusCode != http.StatusCreated {
		var errBody registrationErrorBody
		if json.Unmarshal(data, &errBody) == nil && errBody.Error != "" {
			return nil, &oauth2.Error{
				Domain:      oauth2.GeneralDomain,
				Code:        errBody.Error,
				Description: errBody.ErrorDescription,
				Payload:     map[string]any{"status": httpResp.StatusCode},
			}
		}
		return nil, fmt.Errorf("[RegisterClient] unexpected status %d", httpResp.StatusCode)
	}

	var parsed registrationResponseBody
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, errors.Wrap(err, "[RegisterClient] decode response")
	}
	if parsed.ClientID == "" {
		return nil, errors.New("[RegisterClient] response has no client_id")
	}

	resp := &oauth2.RegistrationResponse{
		Request:                 req,
		ClientID:                parsed.ClientID,
		ClientSecret:            utils.NonEmpty(parsed.ClientSecret),
		RegistrationAccessToken: utils.NonEmpty(parsed.RegistrationAccessToken),
		RegistrationClientURI:   utils.NonEmpty(parsed.RegistrationClientURI),
		TokenEndpointAuthMethod: utils.NonEmpty(parsed.TokenEndpointAuthMethod),
		AdditionalParameters:    additionalStrings(data),
	}
	if parsed.ClientIDIssuedAt > 0 {
		resp.ClientIDIssuedAt = utils.Ptr(time.Unix(parsed.ClientIDIssuedAt, 0).UTC())
	}
	// 0 means the secret never expires.
	if parsed.ClientSecretExpiresAt > 0 {
		resp.ClientSecretExpiresAt = utils.Ptr(time.Unix(parsed.ClientSecretExpiresAt, 0).UTC())
	}
	return resp, nil
}

func (s *Service) resolveRegistrationEndpoint(ctx context.Context) (string, error) {
	if s.registrationEndpoint != "" {
		return s.registrationEndpoint, nil
	}
	p, err := s.Discover(ctx)
	if err != nil {
		return "", err
	}
	var claims struct {
		RegistrationEndpoint string `json:"registration_endpoint"`
	}
	if err := p.Claims(&claims); err != nil {
		return "", err
	}
	if claims.RegistrationEndpoint == "" {
		return "", ErrNoRegistrationEndpoint
	}
	return claims.RegistrationEndpoint, nil
}

// additionalStrings keeps the string valued fields of the response the typed body does not cover.
func additionalStrings(data []byte) map[string]string {
	var raw map[string]any
	if json.Unmarshal(data, &raw) != nil {
		return nil
	}
	known := map[string]bool{
		"client_id": true, "client_secret": true, "client_id_issued_at": true,
		"client_secret_expires_at": true, "registration_access_token": true,
		"registration_client_uri": true, "token_endpoint_auth_method": true,
	}
	var out map[string]string
	for k, v := range raw {
		str, ok := v.(string)
		if !ok || known[k] {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[k] = str
	}
	return out
}
