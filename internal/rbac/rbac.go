package rbac

import (
	"strings"
)

// Role represents an account tier as reported by the API.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleSeller   Role = "seller"
	RoleCustomer Role = "customer"
)

// Capability represents a feature that the console shows or hides.
type Capability string

const (
	CapStorefrontBrowse Capability = "storefront.browse"
	CapCart             Capability = "storefront.cart"
	CapDashboardView    Capability = "dashboard.view"
	CapProductsManage   Capability = "products.manage"
	CapInventoryManage  Capability = "inventory.manage"
	CapOrdersList       Capability = "orders.list"
	CapPriceHistoryView Capability = "pricehistory.view"
	CapUsersManage      Capability = "users.manage"
	CapSuppliersManage  Capability = "suppliers.manage"
	CapCampaignsApply   Capability = "campaigns.apply"
)

// capabilityRoles maps each capability to the roles permitted to access it.
// Every capability needs a signed-in role.
var capabilityRoles = map[Capability]Roles{
	CapStorefrontBrowse: {RoleAdmin, RoleSeller, RoleCustomer},
	CapCart:             {RoleAdmin, RoleSeller, RoleCustomer},
	CapDashboardView:    {RoleAdmin},
	CapProductsManage:   {RoleAdmin},
	CapInventoryManage:  {RoleAdmin},
	CapOrdersList:       {RoleAdmin},
	CapPriceHistoryView: {RoleAdmin},
	CapUsersManage:      {RoleAdmin},
	CapSuppliersManage:  {RoleAdmin},
	CapCampaignsApply:   {RoleAdmin},
}

var roleLabels = map[Role]string{
	RoleAdmin:  "Admin",
	RoleSeller: "Seller",
}

// Roles captures a list of roles.
type Roles []Role

// Has returns true if the provided role exists in the set.
func (rs Roles) Has(role Role) bool {
	for _, r := range rs {
		if r == role {
			return true
		}
	}
	return false
}

// Normalise converts a raw role string into its canonical Role value.
func Normalise(raw string) Role {
	return Role(strings.ToLower(strings.TrimSpace(raw)))
}

// Known reports whether the role is one the console understands.
func (r Role) Known() bool {
	switch r {
	case RoleAdmin, RoleSeller, RoleCustomer:
		return true
	}
	return false
}

// HasCapability reports whether role grants the capability. An empty role is an anonymous
// visitor and holds none. Admin users implicitly possess every known capability.
func HasCapability(role string, capability Capability) bool {
	if capability == "" {
		return true
	}
	allowed, ok := capabilityRoles[capability]
	if !ok {
		return false
	}
	normalised := Normalise(role)
	if normalised == RoleAdmin {
		return true
	}
	return allowed.Has(normalised)
}

// Capabilities lists every capability granted to role, in a stable order.
func Capabilities(role string) []Capability {
	ordered := []Capability{
		CapStorefrontBrowse,
		CapCart,
		CapDashboardView,
		CapProductsManage,
		CapInventoryManage,
		CapOrdersList,
		CapPriceHistoryView,
		CapUsersManage,
		CapSuppliersManage,
		CapCampaignsApply,
	}
	granted := make([]Capability, 0, len(ordered))
	for _, capability := range ordered {
		if HasCapability(role, capability) {
			granted = append(granted, capability)
		}
	}
	return granted
}

// Badge returns the label shown next to the account name and whether one is shown at all.
// Only staff roles carry a badge.
func Badge(role string) (string, bool) {
	label, ok := roleLabels[Normalise(role)]
	return label, ok
}

// Label returns a display name for any role, falling back to the raw value.
func Label(role string) string {
	normalised := Normalise(role)
	if label, ok := roleLabels[normalised]; ok {
		return label
	}
	if normalised == RoleCustomer {
		return "Customer"
	}
	return role
}
