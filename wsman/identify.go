package wsman

import (
	"context"
	"encoding/xml"
	"fmt"
)

// IdentifyResult holds the response to a wsmid:Identify probe.
type IdentifyResult struct {
	ProtocolVersion string
	ProductVendor   string
	ProductVersion  string
}

// identifyEnvelope is the fixed probe message. Identify deliberately
// carries no addressing headers; WinRM answers it even before auth when
// the listener allows it.
const identifyEnvelope = `<s:Envelope xmlns:s="` + NsSoap + `" xmlns:wsmid="` + NsIdentity + `"><s:Header/><s:Body><wsmid:Identify/></s:Body></s:Envelope>`

type identifyResponse struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		IdentifyResponse struct {
			ProtocolVersion string `xml:"ProtocolVersion"`
			ProductVendor   string `xml:"ProductVendor"`
			ProductVersion  string `xml:"ProductVersion"`
		} `xml:"IdentifyResponse"`
	} `xml:"Body"`
}

// Identify probes the endpoint for WS-Management capability. It is the
// lightweight check used before committing to a protocol.
func (c *Client) Identify(ctx context.Context) (*IdentifyResult, error) {
	respBody, err := c.transport.Post(ctx, c.endpoint, []byte(identifyEnvelope))
	if err != nil {
		return nil, fmt.Errorf("identify: %w", err)
	}
	if err := CheckFault(respBody); err != nil {
		return nil, fmt.Errorf("identify: %w", err)
	}

	var resp identifyResponse
	if err := xml.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("identify: parse response: %w", err)
	}
	if resp.Body.IdentifyResponse.ProtocolVersion == "" {
		return nil, fmt.Errorf("identify: endpoint did not return a protocol version")
	}

	return &IdentifyResult{
		ProtocolVersion: resp.Body.IdentifyResponse.ProtocolVersion,
		ProductVendor:   resp.Body.IdentifyResponse.ProductVendor,
		ProductVersion:  resp.Body.IdentifyResponse.ProductVersion,
	}, nil
}
