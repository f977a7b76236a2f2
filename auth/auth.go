// Copyright 2025 OpenBallot Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package auth implements the access controller: it holds the single
// designated administrator identity, set once at construction and immutable
// thereafter, and decides whether a caller may perform a privileged action.
package auth

import (
	"crypto/hmac"
	"errors"
	"fmt"

	"github.com/openballot/ballotd/ledger"
)

var ErrEmptyAdminIdentity = errors.New("administrator identity must be non-empty")

// Authorizer checks callers against the designated administrator identity.
// A failed check never mutates any state; it only reports the error.
type Authorizer struct {
	admin ledger.Identity
}

func NewAuthorizer(admin ledger.Identity) (*Authorizer, error) {
	if admin == "" {
		return nil, ErrEmptyAdminIdentity
	}
	return &Authorizer{admin: admin}, nil
}

// Authorize returns nil if caller is the administrator, and an error
// wrapping ledger.ErrUnauthorized otherwise. Identities are compared in
// constant time to avoid leaking prefix information about the admin
// identity through timing.
func (a *Authorizer) Authorize(
	caller ledger.Identity,
	action ledger.Action,
) error {
	if !hmac.Equal([]byte(caller), []byte(a.admin)) {
		return fmt.Errorf(
			"%w: %s requires the administrator identity",
			ledger.ErrUnauthorized,
			action,
		)
	}
	return nil
}

// Admin returns the designated administrator identity
func (a *Authorizer) Admin() ledger.Identity {
	return a.admin
}
