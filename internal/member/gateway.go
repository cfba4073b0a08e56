package member

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrNotFound means the backend answered and no member exists for the
// identity. It is distinct from transport or server errors: callers
// provision on ErrNotFound and degrade on anything else.
var ErrNotFound = errors.New("member: not found")

// Gateway is the HTTP client for the club backend's member API.
// It is the only place that knows the backend's wire shapes; everything
// above it sees typed members or errors.
type Gateway struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

func NewGateway(baseURL, serviceKey string) *Gateway {
	return &Gateway{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Find looks up the member for an identity id.
// Returns ErrNotFound when the backend reports no record.
func (g *Gateway) Find(ctx context.Context, identityID string) (*Member, error) {
	endpoint := fmt.Sprintf(
		"%s/member?user_id=%s",
		g.baseURL,
		url.QueryEscape(identityID),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	return g.do(req)
}

// Create provisions a brand-new member record.
func (g *Gateway) Create(ctx context.Context, nm NewMember) (*Member, error) {
	body, err := json.Marshal(nm)
	if err != nil {
		return nil, fmt.Errorf("member: failed to marshal create payload: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		g.baseURL+"/member",
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return g.do(req)
}

// UpdateName changes a member's display name.
func (g *Gateway) UpdateName(ctx context.Context, id int64, name string) (*Member, error) {
	body, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPatch,
		fmt.Sprintf("%s/member/%d", g.baseURL, id),
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return g.do(req)
}

func (g *Gateway) do(req *http.Request) (*Member, error) {
	if g.serviceKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.serviceKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("member: backend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("member: backend returned %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("member: failed to read response: %w", err)
	}

	return normalize(raw)
}

// normalize decodes the backend's member responses. Depending on the
// endpoint the member arrives either nested under a "member" key or as
// the top-level object; an empty object or null means not found.
func normalize(raw []byte) (*Member, error) {
	var envelope struct {
		Member *Member `json:"member"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Member != nil {
		return envelope.Member, nil
	}

	var m Member
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("member: failed to decode response: %w", err)
	}

	if m.ID == 0 && m.IdentityID == "" {
		return nil, ErrNotFound
	}

	return &m, nil
}
