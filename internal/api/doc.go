// Package api contains the HTTP handlers for the generation and task
// polling endpoints.
package api
