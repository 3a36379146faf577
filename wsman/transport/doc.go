// Package transport provides the HTTP/HTTPS transport for WS-Management
// SOAP messages.
package transport
