package wsman

import (
	"strings"
	"testing"
)

// TestEnvelope_Marshal verifies the basic envelope structure.
func TestEnvelope_Marshal(t *testing.T) {
	env := NewEnvelope().
		WithAction(ActionEnumerate).
		WithTo("http://srv1:5985/wsman").
		WithResourceURI(ResourceURI(`root\sms`, "SMS_ProviderLocation")).
		WithMessageID("uuid:TEST").
		WithReplyTo(AddressAnonymous).
		WithMaxEnvelopeSize(512000).
		WithOperationTimeout("PT60S").
		WithSessionID("uuid:SESSION").
		WithLocale("en-US").
		WithDataLocale("en-US").
		WithBody([]byte("<n:Enumerate/>"))

	data, err := env.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	xml := string(data)

	for _, want := range []string{
		`<s:Envelope`,
		`xmlns:s="` + NsSoap + `"`,
		`xmlns:w="` + NsWsman + `"`,
		`<a:Action>` + ActionEnumerate + `</a:Action>`,
		`<a:To>http://srv1:5985/wsman</a:To>`,
		`<a:MessageID>uuid:TEST</a:MessageID>`,
		`<w:MaxEnvelopeSize>512000</w:MaxEnvelopeSize>`,
		`<w:OperationTimeout>PT60S</w:OperationTimeout>`,
		`<p:SessionId>uuid:SESSION</p:SessionId>`,
		`<n:Enumerate/>`,
	} {
		if !strings.Contains(xml, want) {
			t.Errorf("envelope missing %q:\n%s", want, xml)
		}
	}
}

// TestEnvelope_Selectors verifies selector set rendering.
func TestEnvelope_Selectors(t *testing.T) {
	env := NewEnvelope().
		WithSelector("PackageID", "PS100001").
		WithSelector("SiteCode", "PS1")

	data, err := env.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	xml := string(data)

	if !strings.Contains(xml, `<w:Selector Name="PackageID">PS100001</w:Selector>`) {
		t.Errorf("missing first selector:\n%s", xml)
	}
	if !strings.Contains(xml, `<w:Selector Name="SiteCode">PS1</w:Selector>`) {
		t.Errorf("missing second selector:\n%s", xml)
	}
}

// TestEnvelope_Options verifies option set rendering.
func TestEnvelope_Options(t *testing.T) {
	env := NewEnvelope().WithOption("LegacyCompat", "True")

	data, err := env.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `<w:Option Name="LegacyCompat">True</w:Option>`) {
		t.Errorf("missing option:\n%s", data)
	}
}

// TestEnvelope_OmitsEmptyHeaders verifies unset headers are not emitted.
func TestEnvelope_OmitsEmptyHeaders(t *testing.T) {
	data, err := NewEnvelope().Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	xml := string(data)

	for _, unwanted := range []string{"a:Action", "w:SelectorSet", "w:OptionSet", "w:OperationTimeout"} {
		if strings.Contains(xml, unwanted) {
			t.Errorf("envelope unexpectedly contains %q:\n%s", unwanted, xml)
		}
	}
}
