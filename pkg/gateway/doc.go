// Package gateway exposes the ask entry point and tool discovery over HTTP.
//
// Routes:
//
//	POST /api/v1/ask             {"question": "..."} -> {value, origin, plan, signature} | {error, kind}
//	GET  /api/v1/tools           tool names
//	GET  /api/v1/tools/{name}    one tool description
//	GET  /api/v1/virtual-tools   virtual tool entries (?active=true for promoted only)
//	GET  /healthz
//	GET  /metrics
package gateway
