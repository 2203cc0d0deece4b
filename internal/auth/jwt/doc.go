// Package jwt verifies access tokens issued by a Cognito-style identity
// provider. It fetches the provider's published key set once per process,
// checks tokens through an ordered series of gates (structure, issuer,
// token purpose, signing key, signature and claims), and yields verified
// claims only after every gate passes.
package jwt
