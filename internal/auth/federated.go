// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package auth

import "context"

// FederatedIdentity is what a FederatedVerifier extracts from a
// third-party assertion.
type FederatedIdentity struct {
	Email string
	Name  string
}

// FederatedVerifier checks a third-party identity assertion (an OIDC ID
// token, a SAML response, etc.) against its issuer.
type FederatedVerifier interface {
	Verify(ctx context.Context, assertion string) (FederatedIdentity, error)
}

// WithFederatedVerifier registers a FederatedVerifier under provider
// name (e.g. "google", "microsoft"), enabling federated_login for it.
func (s *Service) WithFederatedVerifier(provider string, verifier FederatedVerifier) *Service {
	if s.federatedVerifiers == nil {
		s.federatedVerifiers = make(map[string]FederatedVerifier)
	}
	s.federatedVerifiers[provider] = verifier
	return s
}
