// Package health provides probe handlers for the gateway router: Liveness
// (process is up), Readiness (dependency checks pass) and Stats (a JSON
// snapshot of runtime statistics). All responses disable caching.
package health
