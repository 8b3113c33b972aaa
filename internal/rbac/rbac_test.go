package rbac

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasCapability(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		role       string
		capability Capability
		want       bool
	}{
		{name: "anonymous cannot browse", role: "", capability: CapStorefrontBrowse, want: false},
		{name: "anonymous has no cart", role: "", capability: CapCart, want: false},
		{name: "customer browses", role: "customer", capability: CapStorefrontBrowse, want: true},
		{name: "customer fills cart", role: "customer", capability: CapCart, want: true},
		{name: "unknown role", role: "auditor", capability: CapStorefrontBrowse, want: false},
		{name: "customer has no dashboard", role: "customer", capability: CapDashboardView, want: false},
		{name: "seller has no dashboard", role: "seller", capability: CapDashboardView, want: false},
		{name: "admin dashboard", role: "admin", capability: CapDashboardView, want: true},
		{name: "admin case insensitive", role: " ADMIN ", capability: CapCampaignsApply, want: true},
		{name: "unknown capability", role: "admin", capability: Capability("reports.export"), want: false},
		{name: "empty capability", role: "", capability: "", want: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, HasCapability(tc.role, tc.capability))
		})
	}
}

func TestCapabilities(t *testing.T) {
	t.Parallel()

	require.Empty(t, Capabilities(""))
	require.Equal(t, []Capability{CapStorefrontBrowse, CapCart}, Capabilities("seller"))
	require.Len(t, Capabilities("admin"), 10)
}

func TestBadge(t *testing.T) {
	t.Parallel()

	label, ok := Badge("admin")
	require.True(t, ok)
	require.Equal(t, "Admin", label)

	label, ok = Badge("seller")
	require.True(t, ok)
	require.Equal(t, "Seller", label)

	_, ok = Badge("customer")
	require.False(t, ok)

	require.Equal(t, "Customer", Label("customer"))
	require.Equal(t, "auditor", Label("auditor"))
	require.True(t, Normalise("Seller").Known())
	require.False(t, Role("auditor").Known())
}
