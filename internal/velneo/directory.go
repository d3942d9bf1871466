package velneo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// DirectoryEntry is a client, company or section as listed by the backend.
type DirectoryEntry struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// UnmarshalJSON accepts numeric ids and the backend's Spanish name keys.
func (e *DirectoryEntry) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	e.ID = scalar(raw["id"])
	for _, k := range []string{"displayName", "nombre", "razonSocial", "descripcion"} {
		if s := scalar(raw[k]); s != "" {
			e.DisplayName = s
			break
		}
	}
	return nil
}

func scalar(m json.RawMessage) string {
	if len(m) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(m, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(m, &n); err == nil {
		return n.String()
	}
	return ""
}

// entryList decodes either a bare array or an {"items": [...]} envelope.
type entryList []DirectoryEntry

func (l *entryList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		return json.Unmarshal(b, (*[]DirectoryEntry)(l))
	}
	var env struct {
		Items []DirectoryEntry `json:"items"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	*l = env.Items
	return nil
}

// SearchClients lists clients whose name or document matches query.
func (c *Client) SearchClients(ctx context.Context, query string, limit int) ([]DirectoryEntry, error) {
	q := url.Values{"filtro": {strings.TrimSpace(query)}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.list(ctx, "search_clients", q, "clientes")
}

func (c *Client) Companies(ctx context.Context) ([]DirectoryEntry, error) {
	return c.list(ctx, "companies", nil, "companias")
}

// Sections lists the sections offered by a company.
func (c *Client) Sections(ctx context.Context, companyID string) ([]DirectoryEntry, error) {
	if companyID == "" {
		return nil, fmt.Errorf("velneo sections: company id is required")
	}
	return c.list(ctx, "sections", nil, "companias", companyID, "secciones")
}

func (c *Client) list(ctx context.Context, op string, q url.Values, elem ...string) ([]DirectoryEntry, error) {
	endpoint, err := c.endpoint(q, elem...)
	if err != nil {
		return nil, err
	}
	var out entryList
	if err := c.call(ctx, op, http.MethodGet, endpoint, c.cfg.Attempts, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitResult is the backend's answer to a policy submission.
type SubmitResult struct {
	ID      string `json:"id"`
	Message string `json:"message,omitempty"`
}

func (r *SubmitResult) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for _, k := range []string{"id", "polizaId", "poliza_id"} {
		if s := scalar(raw[k]); s != "" {
			r.ID = s
			break
		}
	}
	r.Message = scalar(raw["message"])
	if r.Message == "" {
		r.Message = scalar(raw["mensaje"])
	}
	return nil
}

// SubmitPolicy posts a payload keyed by backend field names. It is not idempotent and is
// tried once.
func (c *Client) SubmitPolicy(ctx context.Context, payload map[string]any) (SubmitResult, error) {
	endpoint, err := c.endpoint(nil, "polizas")
	if err != nil {
		return SubmitResult{}, err
	}
	var res SubmitResult
	if err := c.call(ctx, "submit_policy", http.MethodPost, endpoint, 1, payload, &res); err != nil {
		return SubmitResult{}, err
	}
	if res.ID == "" {
		return SubmitResult{}, fmt.Errorf("velneo submit_policy: response carries no id")
	}
	c.logger.Info("velneo.policy.submitted", "velneo_id", res.ID)
	return res, nil
}
