// Package server exposes retrieval and answer generation over HTTP.
//
// Endpoints:
//
//	POST /chat               {"query": "...", "top_k": 3} -> {"response": "..."}
//	GET  /employees/search   ?query=...&top_k=3          -> {"results": [...]}
//	GET  /healthz            200, or 503 once index and metadata disagree
//	GET  /metrics            Prometheus exposition, when a gatherer is set
//
// Errors are returned as {"detail": "..."}. Invalid input maps to 400, a
// failed generation to 502, a desynchronized artifact to 503 and anything
// else to 500.
package server
