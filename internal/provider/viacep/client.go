// Package viacep implements the ceptracker.Provider adapter for ViaCEP.
package viacep

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	ceptracker "github.com/eugener/ceptracker/internal"
	"github.com/eugener/ceptracker/internal/provider"
)

const (
	// DefaultBaseURL is the public ViaCEP endpoint.
	DefaultBaseURL = "https://viacep.com.br"
	providerName   = "viacep"

	maxBodyBytes = 64 << 10
)

var _ ceptracker.Provider = (*Client)(nil)

// Client looks up CEPs with a single GET per call. It never retries; the
// caller bounds each call through ctx.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a ViaCEP Client. If baseURL is empty it defaults to
// DefaultBaseURL. A nil client gets a plain *http.Client.
func New(baseURL string, client *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    client,
	}
}

// Name returns the provider identifier.
func (c *Client) Name() string { return providerName }

// Find fetches {base}/ws/{cep}/json/. A body carrying "erro" is returned as
// an Address flagged not-found with a nil error.
func (c *Client) Find(ctx context.Context, cep string) (*ceptracker.Address, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ws/"+cep+"/json/", nil)
	if err != nil {
		return nil, fmt.Errorf("viacep: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, provider.TransportError(providerName, "do request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, provider.ParseAPIError(providerName, resp)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, provider.TransportError(providerName, "read body", err)
	}
	return decode(body)
}

// wireAddress mirrors Address minus the not-found flag, which ViaCEP has
// sent both as a JSON bool and as the string "true".
type wireAddress struct {
	CEP          string `json:"cep"`
	Street       string `json:"logradouro"`
	Complement   string `json:"complemento"`
	Neighborhood string `json:"bairro"`
	City         string `json:"localidade"`
	State        string `json:"uf"`
	IBGECode     string `json:"ibge"`
	GIACode      string `json:"gia"`
	AreaCode     string `json:"ddd"`
	SIAFICode    string `json:"siafi"`
}

func decode(body []byte) (*ceptracker.Address, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("viacep: decode response: %w", ceptracker.ErrUpstreamDecode)
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, fmt.Errorf("viacep: decode response: %w: not an object", ceptracker.ErrUpstreamDecode)
	}

	var w wireAddress
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("viacep: decode response: %w: %w", ceptracker.ErrUpstreamDecode, err)
	}
	addr := ceptracker.Address{
		CEP:          w.CEP,
		Street:       w.Street,
		Complement:   w.Complement,
		Neighborhood: w.Neighborhood,
		City:         w.City,
		State:        w.State,
		IBGECode:     w.IBGECode,
		GIACode:      w.GIACode,
		AreaCode:     w.AreaCode,
		SIAFICode:    w.SIAFICode,
	}
	if flag := root.Get("erro"); flag.Exists() {
		addr.NotFound = ceptracker.BoolPtr(flag.Bool())
	}
	return &addr, nil
}
