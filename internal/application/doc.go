// Package application provides application initialization and dependency wiring.
// It builds the session manager, API handler, router and HTTP server from the
// resolved settings, keeping the main package focused on CLI parsing and
// orchestration.
package application
