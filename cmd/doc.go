// Package cmd provides CLI commands for the swifter server core.
//
// # Commands
//
// demo: runs a standalone server exercising every response mode the core
// supports (fixed text, URL parameters, JSON, whole-file transfer,
// streamed bodies of unknown length, and a raw-echo protocol upgrade)
// alongside the operational sidecar (livez/readyz/drain) and the metrics
// listener.
//
//	go run ./cmd/demo --port=8080 --ops-addr=:8090
//	go run ./cmd/demo --config=demo.yaml
//
// # Configuration
//
// The demo supports a YAML configuration file via the --config flag.
// Command-line flags override config file values.
//
//	port: 8080
//	force_ipv4: false
//	priority: "normal"
//	ops_addr: ":8090"
//	metrics_addr: ":8091"
//	enable_pprof: false
//	log_json: false
//	log_debug: false
//	serve_file: "/var/www/index.html"
package cmd
