// Package authz orchestrates the authorization decision: it extracts the
// bearer token and target resource from the inbound request, validates the
// token, derives the principal's privilege from its group memberships, and
// renders a policy decision for the enforcement layer. Every validation
// failure is re-signalled as a single opaque unauthorized error so that no
// internal detail crosses the trust boundary.
package authz
