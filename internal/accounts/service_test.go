package accounts_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/retail-console/internal/accounts"
	"finitefield.org/retail-console/internal/api"
	"finitefield.org/retail-console/internal/rbac"
	"finitefield.org/retail-console/internal/testutil/fakeapi"
	"finitefield.org/retail-console/internal/transport"
)

func newService(t *testing.T) (*accounts.Service, *fakeapi.Server) {
	t.Helper()
	fake := fakeapi.New(t)
	tc, err := transport.New(fake.BaseURL(), transport.WithHTTPClient(fake.Client()))
	require.NoError(t, err)
	return accounts.NewService(api.New(tc), nil), fake
}

func TestUsers(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)

	rows, ok := svc.Users(context.Background())
	require.True(t, ok)
	require.Len(t, rows, 3)

	require.Equal(t, accounts.Row{ID: 1, Name: "Admin User", Email: fakeapi.AdminEmail, Role: rbac.RoleAdmin, RoleLabel: "Admin", Staff: true}, rows[0])
	require.Equal(t, "Seller", rows[1].RoleLabel)
	require.True(t, rows[1].Staff)
	require.Equal(t, "Customer", rows[2].RoleLabel)
	require.False(t, rows[2].Staff)
	require.Equal(t, "+90 555 000 0000", rows[2].Phone)
}

func TestDeleteUser(t *testing.T) {
	t.Parallel()

	svc, fake := newService(t)
	ctx := context.Background()

	err := svc.DeleteUser(ctx, 1, 1)
	require.ErrorIs(t, err, accounts.ErrSelfDelete)
	require.Equal(t, transport.KindValidation, transport.KindOf(err))
	require.Zero(t, fake.Calls("/users/1"))

	require.NoError(t, svc.DeleteUser(ctx, fakeapi.CustomerID, 1))
	rows, ok := svc.Users(ctx)
	require.True(t, ok)
	require.Len(t, rows, 2)

	err = svc.DeleteUser(ctx, fakeapi.CustomerID, 1)
	require.Equal(t, "User not found", transport.MessageOf(err))
}
