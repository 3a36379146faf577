// Package cimclient provides a remote management-object client for
// ConfigMgr-style WMI/CIM providers over WS-Management (WinRM).
//
// It covers session establishment with protocol fallback, provider
// location resolution, and generic query/create/update/delete/invoke
// operations against named CIM classes, with bounded retry on transient
// RPC faults.
//
// # Architecture
//
// The library is organized into layers:
//
//	┌─────────────────────────────────────────────────────────┐
//	│  cim/          Connection + generic object client       │
//	├─────────────────────────────────────────────────────────┤
//	│  session/      Per-host session cache with fallback     │
//	├─────────────────────────────────────────────────────────┤
//	│  wsman/        WS-Management protocol layer (SOAP)      │
//	├─────────────────────────────────────────────────────────┤
//	│  wql/          Query filter expression builder          │
//	└─────────────────────────────────────────────────────────┘
//
// # Quick Start
//
//	c, err := cim.New(cim.Config{
//	    Server:   "cm01.contoso.com",
//	    SiteCode: "PS1",
//	    Username: "admin",
//	    Password: "password",
//	    AuthType: cim.AuthNTLM,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	pkgs, err := c.Query(ctx, "SMS_Package",
//	    cim.Where(wql.Like("Name", "Drivers%")))
package cimclient
