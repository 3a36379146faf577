// Package wsman provides namespace constants for the WS-Management protocol.
//
// These constants define the XML namespaces and action URIs used in SOAP
// envelopes for WS-Management operations against CIM/WMI providers.
package wsman

// XML Namespace URIs for WS-Management protocol.
const (
	// NsSoap is the SOAP 1.2 envelope namespace.
	NsSoap = "http://www.w3.org/2003/05/soap-envelope"

	// NsAddressing is the WS-Addressing namespace.
	NsAddressing = "http://schemas.xmlsoap.org/ws/2004/08/addressing"

	// NsWsman is the DMTF WS-Management namespace.
	NsWsman = "http://schemas.dmtf.org/wbem/wsman/1/wsman.xsd"

	// NsWsmanMicrosoft is the Microsoft WS-Management namespace extension.
	NsWsmanMicrosoft = "http://schemas.microsoft.com/wbem/wsman/1/wsman.xsd"

	// NsTransfer is the WS-Transfer namespace.
	NsTransfer = "http://schemas.xmlsoap.org/ws/2004/09/transfer"

	// NsEnumeration is the WS-Enumeration namespace.
	NsEnumeration = "http://schemas.xmlsoap.org/ws/2004/09/enumeration"

	// NsIdentity is the WS-Management identity namespace used by the
	// wsmid:Identify capability probe.
	NsIdentity = "http://schemas.dmtf.org/wbem/wsman/identity/1/wsmanidentity.xsd"

	// NsXsi is the XML Schema Instance namespace.
	NsXsi = "http://www.w3.org/2001/XMLSchema-instance"
)

// WS-Addressing constants.
const (
	// AddressAnonymous is the WS-Addressing anonymous reply address.
	AddressAnonymous = "http://schemas.xmlsoap.org/ws/2004/08/addressing/role/anonymous"
)

// WSMan Action URIs for WS-Transfer operations on CIM instances.
const (
	// ActionGet retrieves a single instance identified by selectors.
	ActionGet = "http://schemas.xmlsoap.org/ws/2004/09/transfer/Get"

	// ActionPut commits property changes to an existing instance.
	ActionPut = "http://schemas.xmlsoap.org/ws/2004/09/transfer/Put"

	// ActionCreate creates a new instance of a class.
	ActionCreate = "http://schemas.xmlsoap.org/ws/2004/09/transfer/Create"

	// ActionDelete removes an instance.
	ActionDelete = "http://schemas.xmlsoap.org/ws/2004/09/transfer/Delete"
)

// WSMan Action URIs for WS-Enumeration.
const (
	// ActionEnumerate starts an enumeration of instances.
	ActionEnumerate = "http://schemas.xmlsoap.org/ws/2004/09/enumeration/Enumerate"

	// ActionPull retrieves the next batch from an open enumeration.
	ActionPull = "http://schemas.xmlsoap.org/ws/2004/09/enumeration/Pull"

	// ActionRelease releases an open enumeration context early.
	ActionRelease = "http://schemas.xmlsoap.org/ws/2004/09/enumeration/Release"
)

// CIM binding constants.
const (
	// DialectWQL is the filter dialect for WQL query filters.
	DialectWQL = "http://schemas.microsoft.com/wbem/wsman/1/WQL"

	// ResourceURIWMIBase is the prefix for WMI resource URIs; the CIM
	// namespace path (with forward slashes) and class name are appended.
	ResourceURIWMIBase = "http://schemas.microsoft.com/wbem/wsman/1/wmi/"
)
