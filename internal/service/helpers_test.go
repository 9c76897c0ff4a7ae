package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/dom/stay-portal/internal/apiclient"
	"github.com/dom/stay-portal/internal/auth"
	"github.com/dom/stay-portal/internal/domain"
	"github.com/dom/stay-portal/internal/repository/memory"
	"github.com/dom/stay-portal/internal/session"
	"github.com/dom/stay-portal/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	api      *testutil.FakeAPI
	sessions *session.Manager
	base     *apiclient.Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	sealer, err := session.NewRandomSealer()
	require.NoError(t, err)

	api := testutil.NewFakeAPI(t)
	return &testEnv{
		api:      api,
		sessions: session.NewManager(memory.NewSessionRepository(), sealer, time.Hour),
		base:     apiclient.New(api.URL(), 5*time.Second),
	}
}

// signIn stores a fresh token for user in a new browser session
func (e *testEnv) signIn(t *testing.T, user domain.User) (*apiclient.Client, *domain.Identity) {
	t.Helper()
	token := e.api.IssueToken(user.Email)
	require.NotEmpty(t, token)

	store := e.sessions.For(uuid.New())
	require.NoError(t, store.Save(context.Background(), token, user.Role))

	id := auth.Resolve(token)
	require.NotNil(t, id)
	return e.base.ForSession(store), id
}
