// Package everyaction provides a client for the EveryAction v4 API,
// covering the people, activist code and code endpoints the sync engine
// and inspection commands need.
package everyaction

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/surjbayarea/actionsync/internal/transport"
	"github.com/surjbayarea/actionsync/pkg/errors"
)

// DefaultBaseURL is the production EveryAction API endpoint.
const DefaultBaseURL = "https://api.securevan.com/v4"

// DefaultExpand lists the person sections the sync engine needs on lookup.
const DefaultExpand = "emails,phones,addresses,identifiers"

// Client talks to the EveryAction API.
type Client struct {
	baseURL   string
	transport *transport.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint (used by tests and sandboxes).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// New creates an EveryAction client authenticated with the given
// application name and API key in MyCampaign mode.
func New(appName, apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, &errors.AuthenticationError{
			Method:  "basic",
			Message: "EVERYACTION_API_KEY is not set",
			Err:     errors.ErrAPIKeyRequired,
		}
	}

	c := &Client{
		baseURL:   DefaultBaseURL,
		transport: transport.New(&transport.BasicAuth{AppName: appName, APIKey: apiKey}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// findRequest is the match candidate sent to /people/find.
type findRequest struct {
	Emails []Email `json:"emails"`
}

// findResponse carries the matched person's id.
type findResponse struct {
	VanID int `json:"vanId"`
}

// Lookup finds a person by email and returns the full record with the
// given sections expanded. Returns nil with no error when no person
// matches.
func (c *Client) Lookup(ctx context.Context, email string, expand string) (*Person, error) {
	resp, err := c.transport.Post(ctx, c.baseURL+"/people/find", findRequest{
		Emails: []Email{{Address: email}},
	})
	if err != nil {
		return nil, errors.WrapAPI("/people/find", 0, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		_ = resp.Body.Close()
		return nil, nil
	}

	var found findResponse
	if err := transport.DecodeResponse(resp, &found); err != nil {
		return nil, err
	}

	return c.Person(ctx, found.VanID, expand)
}

// Person fetches a person record by id with the given sections expanded.
func (c *Client) Person(ctx context.Context, vanID int, expand string) (*Person, error) {
	if expand == "" {
		expand = DefaultExpand
	}
	u := fmt.Sprintf("%s/people/%d?$expand=%s", c.baseURL, vanID, url.QueryEscape(expand))

	resp, err := c.transport.Get(ctx, u)
	if err != nil {
		return nil, errors.WrapAPI("/people", 0, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		_ = resp.Body.Close()
		return nil, nil
	}

	var person Person
	if err := transport.DecodeResponse(resp, &person); err != nil {
		return nil, err
	}
	return &person, nil
}

// Create finds or creates a person from the given fields and returns the
// stored record.
func (c *Client) Create(ctx context.Context, fields PersonFields) (*Person, error) {
	resp, err := c.transport.Post(ctx, c.baseURL+"/people/findOrCreate", fields)
	if err != nil {
		return nil, errors.WrapAPI("/people/findOrCreate", 0, err)
	}

	var person Person
	if err := transport.DecodeResponse(resp, &person); err != nil {
		return nil, err
	}
	return &person, nil
}

// Update pushes the given fields onto an existing person record.
func (c *Client) Update(ctx context.Context, vanID int, fields PersonFields) error {
	u := fmt.Sprintf("%s/people/%d", c.baseURL, vanID)
	resp, err := c.transport.Post(ctx, u, fields)
	if err != nil {
		return errors.WrapAPI("/people", 0, err)
	}
	return transport.Discard(resp)
}

// activistCodeItem is one entry of the /activistCodes catalog.
type activistCodeItem struct {
	ActivistCodeID int    `json:"activistCodeId"`
	Name           string `json:"name"`
	Type           string `json:"type"`
}

// codeItem is one entry of the /codes catalog.
type codeItem struct {
	CodeID   int    `json:"codeId"`
	Name     string `json:"name"`
	CodeType string `json:"codeType"`
}

// page is the envelope EveryAction wraps list responses in.
type page[T any] struct {
	Items        []T    `json:"items"`
	Count        int    `json:"count"`
	NextPageLink string `json:"nextPageLink"`
}

// ListActivistCodes returns every activist code in the remote catalog,
// following pagination.
func (c *Client) ListActivistCodes(ctx context.Context) ([]CodeRef, error) {
	var refs []CodeRef
	u := c.baseURL + "/activistCodes?$top=200"

	for u != "" {
		resp, err := c.transport.Get(ctx, u)
		if err != nil {
			return nil, errors.WrapAPI("/activistCodes", 0, err)
		}

		var pg page[activistCodeItem]
		if err := transport.DecodeResponse(resp, &pg); err != nil {
			return nil, err
		}
		for _, item := range pg.Items {
			refs = append(refs, CodeRef{ID: item.ActivistCodeID, Kind: CodeKindActivist, Name: item.Name})
		}
		u = pg.NextPageLink
	}

	return refs, nil
}

// ListTagCodes returns every generic code of type "Tag" in the remote
// catalog, following pagination.
func (c *Client) ListTagCodes(ctx context.Context) ([]CodeRef, error) {
	var refs []CodeRef
	u := c.baseURL + "/codes?codeType=Tag&$top=200"

	for u != "" {
		resp, err := c.transport.Get(ctx, u)
		if err != nil {
			return nil, errors.WrapAPI("/codes", 0, err)
		}

		var pg page[codeItem]
		if err := transport.DecodeResponse(resp, &pg); err != nil {
			return nil, err
		}
		for _, item := range pg.Items {
			if item.CodeType != "Tag" {
				continue
			}
			refs = append(refs, CodeRef{ID: item.CodeID, Kind: CodeKindGeneric, Name: item.Name})
		}
		u = pg.NextPageLink
	}

	return refs, nil
}

// appliedCodeItem is one activist code applied to a person.
type appliedCodeItem struct {
	ActivistCodeID   int    `json:"activistCodeId"`
	ActivistCodeName string `json:"activistCodeName"`
}

// AppliedCodes returns the activist codes currently applied to a person.
func (c *Client) AppliedCodes(ctx context.Context, vanID int) ([]CodeRef, error) {
	u := fmt.Sprintf("%s/people/%d/activistCodes", c.baseURL, vanID)

	resp, err := c.transport.Get(ctx, u)
	if err != nil {
		return nil, errors.WrapAPI("/people/activistCodes", 0, err)
	}

	var pg page[appliedCodeItem]
	if err := transport.DecodeResponse(resp, &pg); err != nil {
		return nil, err
	}

	refs := make([]CodeRef, 0, len(pg.Items))
	for _, item := range pg.Items {
		refs = append(refs, CodeRef{ID: item.ActivistCodeID, Kind: CodeKindActivist, Name: item.ActivistCodeName})
	}
	return refs, nil
}

// canvassResponseRequest is the payload for applying an activist code.
// omitActivistCodeContactHistory keeps bulk tagging from flooding the
// person's contact history.
type canvassResponseRequest struct {
	CanvassContext struct {
		OmitActivistCodeContactHistory bool `json:"omitActivistCodeContactHistory"`
	} `json:"canvassContext"`
	Responses []canvassResponse `json:"responses"`
}

type canvassResponse struct {
	Type           string `json:"type"`
	Action         string `json:"action"`
	ActivistCodeID int    `json:"activistCodeId"`
}

// ApplyActivistCode applies one activist code to a person.
func (c *Client) ApplyActivistCode(ctx context.Context, codeID, vanID int) error {
	var body canvassResponseRequest
	body.CanvassContext.OmitActivistCodeContactHistory = true
	body.Responses = []canvassResponse{{
		Type:           "ActivistCode",
		Action:         "Apply",
		ActivistCodeID: codeID,
	}}

	u := fmt.Sprintf("%s/people/%d/canvassResponses", c.baseURL, vanID)
	resp, err := c.transport.Post(ctx, u, body)
	if err != nil {
		return errors.WrapAPI("/people/canvassResponses", 0, err)
	}
	return transport.Discard(resp)
}
