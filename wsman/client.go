package wsman

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/smnsjas/go-cimclient/wsman/transport"
)

const (
	defaultMaxEnvelopeSize = 512000
	defaultTimeout         = "PT60S"
)

// Client is a WS-Management client for CIM/WMI operations against a
// single endpoint.
type Client struct {
	endpoint  string
	transport *transport.HTTPTransport
	sessionID string
}

// NewClient creates a new WS-Management client.
func NewClient(endpoint string, tr *transport.HTTPTransport) *Client {
	return &Client{
		endpoint:  endpoint,
		transport: tr,
		sessionID: "uuid:" + strings.ToUpper(uuid.New().String()),
	}
}

// Endpoint returns the endpoint URL this client talks to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// SetSessionID sets the WS-Management SessionId for the client.
func (c *Client) SetSessionID(sessionID string) {
	c.sessionID = sessionID
}

// CloseIdleConnections closes any idle connections in the underlying
// transport. This forces a fresh NTLM handshake for subsequent requests.
func (c *Client) CloseIdleConnections() {
	c.transport.CloseIdleConnections()
}

// newEnvelope builds an envelope with the headers every operation shares.
func (c *Client) newEnvelope(action, resourceURI string) *Envelope {
	return NewEnvelope().
		WithAction(action).
		WithTo(c.endpoint).
		WithResourceURI(resourceURI).
		WithMessageID("uuid:" + strings.ToUpper(uuid.New().String())).
		WithReplyTo(AddressAnonymous).
		WithSessionID(c.sessionID).
		WithMaxEnvelopeSize(defaultMaxEnvelopeSize).
		WithOperationTimeout(defaultTimeout).
		WithLocale("en-US").
		WithDataLocale("en-US")
}

// sendEnvelope marshals and sends a SOAP envelope, returning the response body.
func (c *Client) sendEnvelope(ctx context.Context, env *Envelope) ([]byte, error) {
	body, err := env.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}

	respBody, err := c.transport.Post(ctx, c.endpoint, body)
	if err != nil {
		return nil, err
	}

	// Check for SOAP Fault even in successful HTTP responses
	if err := CheckFault(respBody); err != nil {
		return nil, fmt.Errorf("wsman: %w", err)
	}

	return respBody, nil
}

// EnumerateResult holds one batch of an enumeration.
type EnumerateResult struct {
	// Items are the instances returned in this batch.
	Items []Instance

	// Context is the enumeration context for the next Pull, empty once
	// the sequence is exhausted.
	Context string

	// EndOfSequence is set when the provider reports no further batches.
	EndOfSequence bool
}

type enumerateResponse struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		EnumerateResponse struct {
			EnumerationContext string `xml:"EnumerationContext"`
			Items              struct {
				Inner []byte `xml:",innerxml"`
			} `xml:"Items"`
			EndOfSequence *struct{} `xml:"EndOfSequence"`
		} `xml:"EnumerateResponse"`
	} `xml:"Body"`
}

type pullResponse struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		PullResponse struct {
			EnumerationContext string `xml:"EnumerationContext"`
			Items              struct {
				Inner []byte `xml:",innerxml"`
			} `xml:"Items"`
			EndOfSequence *struct{} `xml:"EndOfSequence"`
		} `xml:"PullResponse"`
	} `xml:"Body"`
}

// EnumerateOptions controls the enumeration mode.
type EnumerateOptions struct {
	// Optimize asks the provider to return the first batch of items
	// directly in the EnumerateResponse.
	Optimize bool

	// MaxElements caps the batch size for optimized enumerations.
	MaxElements int

	// ObjectAndEPR asks for each object's EndpointReference alongside
	// the object, so instances carry their key selector sets.
	ObjectAndEPR bool
}

// Enumerate starts an enumeration of instances under resourceURI. A
// non-empty wql applies a WQL filter. Without Optimize, items must be
// fetched with Pull.
func (c *Client) Enumerate(ctx context.Context, resourceURI, wql string, opts EnumerateOptions) (*EnumerateResult, error) {
	env := c.newEnvelope(ActionEnumerate, resourceURI).WithEnumerationNamespace()

	var body bytes.Buffer
	body.WriteString(`<n:Enumerate>`)
	if opts.Optimize {
		fmt.Fprintf(&body, `<w:OptimizeEnumeration/><w:MaxElements>%d</w:MaxElements>`, opts.MaxElements)
	}
	if opts.ObjectAndEPR {
		body.WriteString(`<w:EnumerationMode>EnumerateObjectAndEPR</w:EnumerationMode>`)
	}
	if wql != "" {
		body.WriteString(`<w:Filter Dialect="` + DialectWQL + `">`)
		_ = xml.EscapeText(&body, []byte(wql))
		body.WriteString(`</w:Filter>`)
	}
	body.WriteString(`</n:Enumerate>`)
	env.WithBody(body.Bytes())

	respBody, err := c.sendEnvelope(ctx, env)
	if err != nil {
		return nil, fmt.Errorf("enumerate: %w", err)
	}

	var resp enumerateResponse
	if err := xml.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("enumerate: parse response: %w", err)
	}

	items, err := ParseInstances(resp.Body.EnumerateResponse.Items.Inner)
	if err != nil {
		return nil, fmt.Errorf("enumerate: %w", err)
	}

	return &EnumerateResult{
		Items:         items,
		Context:       strings.TrimSpace(resp.Body.EnumerateResponse.EnumerationContext),
		EndOfSequence: resp.Body.EnumerateResponse.EndOfSequence != nil,
	}, nil
}

// Pull retrieves the next batch from an open enumeration.
func (c *Client) Pull(ctx context.Context, resourceURI, enumCtx string, maxElements int) (*EnumerateResult, error) {
	env := c.newEnvelope(ActionPull, resourceURI).WithEnumerationNamespace()

	var body bytes.Buffer
	body.WriteString(`<n:Pull><n:EnumerationContext>`)
	_ = xml.EscapeText(&body, []byte(enumCtx))
	fmt.Fprintf(&body, `</n:EnumerationContext><n:MaxElements>%d</n:MaxElements></n:Pull>`, maxElements)
	env.WithBody(body.Bytes())

	respBody, err := c.sendEnvelope(ctx, env)
	if err != nil {
		return nil, fmt.Errorf("pull: %w", err)
	}

	var resp pullResponse
	if err := xml.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("pull: parse response: %w", err)
	}

	items, err := ParseInstances(resp.Body.PullResponse.Items.Inner)
	if err != nil {
		return nil, fmt.Errorf("pull: %w", err)
	}

	return &EnumerateResult{
		Items:         items,
		Context:       strings.TrimSpace(resp.Body.PullResponse.EnumerationContext),
		EndOfSequence: resp.Body.PullResponse.EndOfSequence != nil,
	}, nil
}

// Release releases an open enumeration context without draining it.
func (c *Client) Release(ctx context.Context, resourceURI, enumCtx string) error {
	env := c.newEnvelope(ActionRelease, resourceURI).WithEnumerationNamespace()

	var body bytes.Buffer
	body.WriteString(`<n:Release><n:EnumerationContext>`)
	_ = xml.EscapeText(&body, []byte(enumCtx))
	body.WriteString(`</n:EnumerationContext></n:Release>`)
	env.WithBody(body.Bytes())

	if _, err := c.sendEnvelope(ctx, env); err != nil {
		return fmt.Errorf("release: %w", err)
	}
	return nil
}

// Get retrieves a single instance identified by selectors.
func (c *Client) Get(ctx context.Context, resourceURI string, selectors []Selector) (*Instance, error) {
	env := c.newEnvelope(ActionGet, resourceURI)
	for _, s := range selectors {
		env.WithSelector(s.Name, s.Value)
	}

	respBody, err := c.sendEnvelope(ctx, env)
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}

	return parseSingleInstance(respBody, "get")
}

type createResponse struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		ResourceCreated struct {
			Address             string `xml:"Address"`
			ReferenceParameters struct {
				ResourceURI string `xml:"ResourceURI"`
				SelectorSet struct {
					Selectors []Selector `xml:"Selector"`
				} `xml:"SelectorSet"`
			} `xml:"ReferenceParameters"`
		} `xml:"ResourceCreated"`
	} `xml:"Body"`
}

// Create creates a new instance of className with the given properties
// and returns the EndpointReference of the created resource.
func (c *Client) Create(ctx context.Context, resourceURI, className string, props map[string][]string) (*EndpointReference, error) {
	env := c.newEnvelope(ActionCreate, resourceURI)
	env.WithBody(MarshalInstance(resourceURI, className, props))

	respBody, err := c.sendEnvelope(ctx, env)
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}

	var resp createResponse
	if err := xml.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("create: parse response: %w", err)
	}

	epr := &EndpointReference{
		Address:     resp.Body.ResourceCreated.Address,
		ResourceURI: resp.Body.ResourceCreated.ReferenceParameters.ResourceURI,
		Selectors:   resp.Body.ResourceCreated.ReferenceParameters.SelectorSet.Selectors,
	}
	if epr.ResourceURI == "" {
		epr.ResourceURI = resourceURI
	}

	return epr, nil
}

// Put commits the given properties to an existing instance and returns
// the provider's view of the updated instance.
func (c *Client) Put(ctx context.Context, resourceURI string, selectors []Selector, className string, props map[string][]string) (*Instance, error) {
	env := c.newEnvelope(ActionPut, resourceURI)
	for _, s := range selectors {
		env.WithSelector(s.Name, s.Value)
	}
	env.WithBody(MarshalInstance(resourceURI, className, props))

	respBody, err := c.sendEnvelope(ctx, env)
	if err != nil {
		return nil, fmt.Errorf("put: %w", err)
	}

	return parseSingleInstance(respBody, "put")
}

// Delete removes an instance identified by selectors.
func (c *Client) Delete(ctx context.Context, resourceURI string, selectors []Selector) error {
	env := c.newEnvelope(ActionDelete, resourceURI)
	for _, s := range selectors {
		env.WithSelector(s.Name, s.Value)
	}

	if _, err := c.sendEnvelope(ctx, env); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

// Invoke dispatches a method on a class (empty selectors, static scope)
// or on an instance (selectors identify it). The response instance is
// the <Method>_OUTPUT element, whose properties include ReturnValue and
// any method-specific output parameters.
func (c *Client) Invoke(ctx context.Context, resourceURI, method string, selectors []Selector, args map[string][]string) (*Instance, error) {
	env := c.newEnvelope(resourceURI+"/"+method, resourceURI)
	for _, s := range selectors {
		env.WithSelector(s.Name, s.Value)
	}

	inputName := method + "_INPUT"
	env.WithBody(MarshalInstance(resourceURI, inputName, args))

	respBody, err := c.sendEnvelope(ctx, env)
	if err != nil {
		return nil, fmt.Errorf("invoke %s: %w", method, err)
	}

	inst, err := parseSingleInstance(respBody, "invoke "+method)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(inst.ClassName, "_OUTPUT") {
		return nil, fmt.Errorf("invoke %s: unexpected response element %s", method, inst.ClassName)
	}
	return inst, nil
}

type bodyEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Inner []byte `xml:",innerxml"`
	} `xml:"Body"`
}

// parseSingleInstance extracts the one instance element a Get/Put/Invoke
// response body carries.
func parseSingleInstance(respBody []byte, op string) (*Instance, error) {
	var resp bodyEnvelope
	if err := xml.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%s: parse response: %w", op, err)
	}

	items, err := ParseInstances(resp.Body.Inner)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%s: response contained no instance", op)
	}
	return &items[0], nil
}
