// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides session token and ID generation utilities.

# Session Tokens

Tokens use HMAC-SHA256 to create verifiable bearer credentials:

	token := auth.GenerateToken(userID, secret, 24*time.Hour)
	userID, err := auth.VerifyToken(token, secret)

The token embeds the user ID and an expiry timestamp; the signature is
recomputed at verification time, so nothing is stored server-side.
Verification proves the token was minted by this server and is not
expired; it does NOT prove the account still exists. The websocket
session gate performs that second check against the account store so a
deleted account cannot ride in on a structurally valid token.

# ID Generation

Random hex IDs for database records:

	id, err := auth.GenerateID(16)  // 32 hex characters
*/
package auth
