// Package wsman implements the WS-Management protocol layer used to talk
// to CIM/WMI providers over WinRM endpoints.
//
// It provides the SOAP envelope builder, fault parsing with numeric
// error-code classification, the wsmid:Identify capability probe, and a
// low-level operations client covering WS-Enumeration (Enumerate/Pull/
// Release), WS-Transfer (Get/Put/Create/Delete) and custom-action method
// invocation against WMI resource URIs.
//
// Higher layers (session, cim) build session caching, connection
// resolution and retry on top of this package.
package wsman
