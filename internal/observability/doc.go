// Package observability provides structured logging for the authorizer.
package observability
