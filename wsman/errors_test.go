package wsman

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// TestParseFault verifies SOAP fault parsing.
func TestParseFault(t *testing.T) {
	faultXML := `<?xml version="1.0" encoding="UTF-8"?>
<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"
            xmlns:a="http://schemas.xmlsoap.org/ws/2004/08/addressing">
  <s:Body>
    <s:Fault>
      <s:Code>
        <s:Value>s:Sender</s:Value>
        <s:Subcode>
          <s:Value>w:InvalidSelectors</s:Value>
        </s:Subcode>
      </s:Code>
      <s:Reason>
        <s:Text xml:lang="en-US">The specified instance was not found.</s:Text>
      </s:Reason>
      <s:Detail>
        <p:WSManFault xmlns:p="http://schemas.microsoft.com/wbem/wsman/1/wsman.xsd"
                      Code="2150858843" Machine="SERVER01">
          <p:Message>Instance not found</p:Message>
        </p:WSManFault>
      </s:Detail>
    </s:Fault>
  </s:Body>
</s:Envelope>`

	fault, err := ParseFault([]byte(faultXML))
	if err != nil {
		t.Fatalf("ParseFault failed: %v", err)
	}

	if fault.Code != "s:Sender" {
		t.Errorf("Code = %q, want %q", fault.Code, "s:Sender")
	}
	if fault.Subcode != "w:InvalidSelectors" {
		t.Errorf("Subcode = %q, want %q", fault.Subcode, "w:InvalidSelectors")
	}
	if !strings.Contains(fault.Reason, "was not found") {
		t.Errorf("Reason = %q, want to contain 'was not found'", fault.Reason)
	}
	if fault.WSManCode != 2150858843 {
		t.Errorf("WSManCode = %d, want %d", fault.WSManCode, 2150858843)
	}
	if fault.Machine != "SERVER01" {
		t.Errorf("Machine = %q, want %q", fault.Machine, "SERVER01")
	}
}

// TestParseFault_NotAFault verifies non-fault responses return nil.
func TestParseFault_NotAFault(t *testing.T) {
	normalXML := `<?xml version="1.0" encoding="UTF-8"?>
<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope">
  <s:Body><p:SMS_Package xmlns:p="uri"><p:Name>x</p:Name></p:SMS_Package></s:Body>
</s:Envelope>`

	fault, err := ParseFault([]byte(normalXML))
	if err != nil {
		t.Fatalf("ParseFault failed: %v", err)
	}
	if fault != nil {
		t.Errorf("expected nil fault, got %+v", fault)
	}
}

func rpcFault() *Fault {
	return &Fault{
		Code:      "s:Receiver",
		Subcode:   "w:InternalError",
		Reason:    "The remote procedure call failed.",
		WSManCode: CodeRPCCallFailed,
	}
}

// TestIsTransientRPC verifies classification of the retryable RPC fault.
func TestIsTransientRPC(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"rpc call failed", rpcFault(), true},
		{"wrapped rpc call failed", fmt.Errorf("enumerate: %w", rpcFault()), true},
		{"access denied fault", &Fault{WSManCode: CodeAccessDenied}, false},
		{"plain error without fault payload", errors.New("connection reset"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransientRPC(tt.err); got != tt.expected {
				t.Errorf("IsTransientRPC() = %v, want %v", got, tt.expected)
			}
		})
	}
}

// TestFault_Classification verifies the helper predicates.
func TestFault_Classification(t *testing.T) {
	denied := &Fault{Subcode: "w:AccessDenied"}
	if !denied.IsAccessDenied() {
		t.Error("AccessDenied subcode not detected")
	}

	deniedCode := &Fault{WSManCode: CodeAccessDenied}
	if !deniedCode.IsAccessDenied() {
		t.Error("ERROR_ACCESS_DENIED code not detected")
	}

	notFound := &Fault{WSManCode: CodeNotFound}
	if !notFound.IsNotFound() {
		t.Error("WBEM_E_NOT_FOUND not detected")
	}

	badClass := &Fault{WSManCode: CodeInvalidClass}
	if !badClass.IsNotFound() {
		t.Error("WBEM_E_INVALID_CLASS not detected")
	}

	timedOut := &Fault{Subcode: "w:TimedOut"}
	if !timedOut.IsTimeout() {
		t.Error("TimedOut subcode not detected")
	}
}

// TestFault_Error verifies the error string carries context.
func TestFault_Error(t *testing.T) {
	f := rpcFault()
	msg := f.Error()
	if !strings.Contains(msg, "wsman fault") {
		t.Errorf("Error() = %q, want wsman fault prefix", msg)
	}
	if !strings.Contains(msg, "0x800706BE") {
		t.Errorf("Error() = %q, want hex code", msg)
	}
}

// TestCheckFault verifies fault detection on response bodies.
func TestCheckFault(t *testing.T) {
	if err := CheckFault([]byte(`<s:Envelope><s:Body/></s:Envelope>`)); err != nil {
		t.Errorf("CheckFault on clean body = %v, want nil", err)
	}

	faultBody := `<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"><s:Body><s:Fault>
  <s:Code><s:Value>s:Receiver</s:Value></s:Code>
  <s:Reason><s:Text>boom</s:Text></s:Reason>
</s:Fault></s:Body></s:Envelope>`
	err := CheckFault([]byte(faultBody))
	if err == nil {
		t.Fatal("CheckFault on fault body = nil, want error")
	}

	var f *Fault
	if !errors.As(err, &f) {
		t.Errorf("CheckFault returned %T, want *Fault", err)
	}
}
