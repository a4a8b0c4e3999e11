// Package auth is the identity, session, and authorization core for the
// Akhbarkom platform.
//
// Credential origins:
//   - Users authenticate either with a local email/password credential or
//     through an external identity provider (see the social subpackage). The
//     two origins converge on the same User record; CredentialOrigin makes the
//     shape explicit so verifiers can check their preconditions exhaustively.
//
// Sessions:
//   - TokenService signs stateless HS256 session tokens carrying the subject,
//     email, and role claims. Decoding a token requires no store round trip,
//     which is what lets every request handler validate sessions
//     independently. The role claim is frozen at issuance; the token TTL is
//     the maximum propagation delay for a role downgrade unless a Revoker is
//     configured for admin tokens.
//
// Authorization:
//   - middleware/guard evaluates a declarative route policy table (public,
//     authenticated, admin) before handlers run and fails closed on any
//     decode error.
//   - Registry manages the admin allowlist. The users table role column is
//     authoritative; the allowlist is a derived view kept in step by the
//     grant/revoke operations and rebuildable via Reconcile.
package auth
