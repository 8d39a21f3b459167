// Command treblle runs the Treblle telemetry agent as a reverse-proxy
// sidecar in front of an HTTP service and offers tooling around it.
//
// Usage:
//
//	# Capture traffic for an application listening on :3000
//	treblle run --upstream http://127.0.0.1:3000
//
//	# Check a configuration file
//	treblle validate --config treblle.yaml
//
//	# Send a synthetic payload and wait for the outcome
//	treblle ping
//
//	# Inspect the local delivery journal
//	treblle deliveries --limit 20
//	treblle deliveries --summary --since 24h
package main

import "os"

func main() {
	os.Exit(Execute())
}
