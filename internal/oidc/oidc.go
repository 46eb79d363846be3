package oidc

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gogotex/pagebuilder/pkg/middleware"
)

// Verifier checks Keycloak-issued tokens against the realm's published keys.
type Verifier struct {
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
}

// NewVerifier discovers the provider for issuer. With an empty clientID the
// audience is not checked, since Keycloak access tokens carry "account".
func NewVerifier(ctx context.Context, issuer, clientID string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	cfg := &oidc.Config{ClientID: clientID, SkipClientIDCheck: clientID == ""}
	return &Verifier{provider: provider, verifier: provider.Verifier(cfg)}, nil
}

func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	return &rolesToken{tok: idToken}, nil
}

// rolesToken lifts Keycloak realm roles into the top-level "roles" claim
// the authorizer reads.
type rolesToken struct {
	tok *oidc.IDToken
}

func (t *rolesToken) Claims(v interface{}) error {
	if err := t.tok.Claims(v); err != nil {
		return err
	}
	m, ok := v.(*map[string]interface{})
	if !ok || *m == nil {
		return nil
	}
	liftRealmRoles(*m)
	return nil
}

func liftRealmRoles(claims map[string]interface{}) {
	if _, ok := claims["roles"]; ok {
		return
	}
	access, ok := claims["realm_access"].(map[string]interface{})
	if !ok {
		return
	}
	if roles, ok := access["roles"]; ok {
		claims["roles"] = roles
	}
}
