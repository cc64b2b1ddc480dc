// Package integration provides integration tests for the token registry admin
// API server. These tests validate the complete server lifecycle against a
// real Postgres instance, including credential enforcement, registration,
// identifier assignment, and queries.
package integration
