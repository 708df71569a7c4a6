package rbac

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
)

func TestDefaultPolicyTable(t *testing.T) {
	policy := DefaultPolicy()
	cases := []struct {
		role    shared.Role
		action  string
		allowed bool
	}{
		{shared.RoleSeller, shared.ActionInvoiceCreate, true},
		{shared.RoleTechnician, shared.ActionInvoiceCreate, false},
		{shared.RoleTechnician, shared.ActionQuoteCreate, true},
		{shared.RoleManager, shared.ActionInvoiceCancel, false},
		{shared.RoleAdmin, shared.ActionInvoiceCancel, true},
		{shared.RoleSeller, shared.ActionCreditNoteCreate, false},
		{shared.RoleAccountant, shared.ActionCreditNoteCreate, true},
		{shared.RoleSeller, shared.ActionPettyCashView, true},
		{shared.RoleSeller, shared.ActionPettyCashDiscrepancyView, false},
		{shared.RoleAccountant, shared.ActionPettyCashDiscrepancyView, true},
		{shared.RoleManager, shared.ActionPettyCashClose, false},
		{shared.RoleAdmin, shared.ActionPettyCashClose, true},
		{shared.RoleSeller, shared.ActionDailyCloseViewAll, false},
		{shared.RoleTechnician, shared.ActionCatalogView, true},
	}
	for _, tc := range cases {
		p := shared.Principal{UserID: 1, Role: tc.role}
		require.Equal(t, tc.allowed, policy.Allowed(p, tc.action), "%s %s", tc.role, tc.action)
	}
}

func TestAuthorizeWrapsUnauthorized(t *testing.T) {
	policy := DefaultPolicy()
	err := policy.Authorize(shared.Principal{UserID: 3, Role: shared.RoleSeller}, shared.ActionPettyCashClose)
	require.ErrorIs(t, err, shared.ErrUnauthorized)
	require.NoError(t, policy.Authorize(shared.Principal{UserID: 1, Role: shared.RoleAdmin}, shared.ActionPettyCashClose))
}

func TestCustomRoleUsesCapabilities(t *testing.T) {
	policy := DefaultPolicy()
	p := shared.Principal{UserID: 9, Role: shared.RoleCustom, Capabilities: map[string]bool{
		shared.ActionPaymentRegister: true,
		shared.ActionInvoiceCreate:   false,
	}}
	require.True(t, policy.Allowed(p, shared.ActionPaymentRegister))
	require.False(t, policy.Allowed(p, shared.ActionInvoiceCreate))
	require.Equal(t, []string{shared.ActionPaymentRegister}, policy.Actions(p))
}

func TestZeroPrincipalIsDenied(t *testing.T) {
	require.False(t, DefaultPolicy().Allowed(shared.Principal{}, shared.ActionCatalogView))
}
