// Package payload defines the telemetry document shipped to the monitoring
// backend for every captured exchange.
//
// A Template holds the process-wide part of the document (credentials,
// server and runtime identity). It is computed once and every exchange gets
// its own copy through Template.NewPayload, so request-scoped mutation never
// leaks between concurrent exchanges.
//
// Wire format (JSON, keys as sent):
//
//	{
//	  "api_key": "...", "project_id": "...", "sdk": "go", "version": 1,
//	  "timestamp": "2025-01-02 15:04:05", "request_id": "<uuid>",
//	  "data": {
//	    "server":   {"ip": ..., "timezone": ..., "os": {...}, "software": ..., "protocol": ...},
//	    "language": {"name": "go", "version": "go1.25.0"},
//	    "request":  {...}, "response": {...}, "errors": []
//	  }
//	}
package payload
