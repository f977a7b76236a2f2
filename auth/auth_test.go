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

package auth_test

import (
	"testing"

	"github.com/openballot/ballotd/auth"
	"github.com/openballot/ballotd/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizeAdmin(t *testing.T) {
	a, err := auth.NewAuthorizer("admin")
	require.NoError(t, err)
	assert.NoError(t, a.Authorize("admin", ledger.ActionAddCandidate))
	assert.NoError(t, a.Authorize("admin", ledger.ActionTogglePhase))
	assert.Equal(t, ledger.Identity("admin"), a.Admin())
}

func TestAuthorizeNonAdmin(t *testing.T) {
	a, err := auth.NewAuthorizer("admin")
	require.NoError(t, err)
	for _, caller := range []ledger.Identity{"", "Admin", "admin ", "mallory"} {
		err := a.Authorize(caller, ledger.ActionAddCandidate)
		assert.ErrorIs(t, err, ledger.ErrUnauthorized, "caller %q", caller)
	}
}

func TestNewAuthorizerEmptyAdmin(t *testing.T) {
	_, err := auth.NewAuthorizer("")
	require.ErrorIs(t, err, auth.ErrEmptyAdminIdentity)
}
