// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides sign-in verification and session tokens.

# Google Sign-In

The front end obtains a Google ID token and posts it to /auth/google. The
token is checked against Google's tokeninfo endpoint:

	v := auth.NewGoogleVerifier(clientID, auth.DefaultTokenInfoURL)
	profile, err := v.Verify(ctx, idToken)

The audience must match the configured client ID (when one is set), the
email must be verified, and the token must not be expired.

# Session Tokens

After sign-in the API issues its own HS256 JWT. The subject is the user ID:

	token, expiresAt, err := auth.IssueSessionToken(userID, email, secret, ttl, time.Now())
	claims, err := auth.ParseSessionToken(token, secret, time.Now())

Clients send it as "Authorization: Bearer <token>" on every request.

# Identifiers

Row IDs are random UUIDs:

	id := auth.NewID()
*/
package auth
