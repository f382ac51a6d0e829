// Package app wires the wage browser together and manages its lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration (defaults, optional YAML file, OEWS_* environment)
//	2. Initialize logging and OpenTelemetry
//	3. Create the process-lifetime caches and the remote client
//	4. Build the indexer, loader, browser, health and site services
//	5. Mount handlers and middleware on a chi router
//	6. Start the HTTP server and warm the year index
//
// # Graceful Shutdown
//
// SIGINT and SIGTERM stop accepting connections, let active requests finish
// within the shutdown timeout and flush OpenTelemetry providers. Errors are
// returned to the caller; the package never calls os.Exit.
package app
