package kotak

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"holdingscope/pkg/model"
)

// ParseSessionToken reads the claims of the portal's session JWT.
// The signature is not verified; the token only describes the session.
func ParseSessionToken(raw string) (*model.SessionInfo, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "Bearer ")
	raw = strings.Trim(raw, `"`)
	if raw == "" {
		return nil, fmt.Errorf("empty session token")
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("decoding session token: %w", err)
	}

	info := &model.SessionInfo{}
	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	if iss, err := claims.GetIssuer(); err == nil {
		info.Issuer = iss
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		info.ExpiresAt = &t
	}
	return info, nil
}

// inspectSession decodes the session token from localStorage when a key is
// configured. Failures are logged and yield nil.
func (c *Client) inspectSession(ctx context.Context) *model.SessionInfo {
	if c.opts.SessionTokenKey == "" {
		return nil
	}

	raw, err := c.session.LocalStorage(ctx, c.opts.SessionTokenKey)
	if err != nil {
		c.log.Warn().Err(err).Msg("Could not read session token")
		return nil
	}
	if raw == "" {
		c.log.Warn().Str("key", c.opts.SessionTokenKey).Msg("Session token not present")
		return nil
	}

	info, err := ParseSessionToken(raw)
	if err != nil {
		c.log.Warn().Err(err).Msg("Could not decode session token")
		return nil
	}

	ev := c.log.Info().Str("subject", info.Subject).Str("issuer", info.Issuer)
	if info.ExpiresAt != nil {
		ev = ev.Time("expires_at", *info.ExpiresAt)
	}
	ev.Msg("Session token inspected")
	return info
}
