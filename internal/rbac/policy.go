// Package rbac holds the role policy table and the HTTP authentication helpers.
package rbac

import (
	"fmt"
	"sort"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
)

// Policy maps roles to the actions they may run. CUSTOM principals are
// resolved against their own capability set.
type Policy struct {
	grants map[shared.Role]map[string]struct{}
}

var everyRole = []shared.Role{
	shared.RoleAdmin,
	shared.RoleAccountant,
	shared.RoleSeller,
	shared.RoleManager,
	shared.RoleTechnician,
}

// DefaultGrants is the back office policy table.
func DefaultGrants() map[string][]shared.Role {
	admin, accountant, seller, manager, technician := shared.RoleAdmin, shared.RoleAccountant, shared.RoleSeller, shared.RoleManager, shared.RoleTechnician
	return map[string][]shared.Role{
		shared.ActionCatalogView:              everyRole,
		shared.ActionInvoiceCreate:            {admin, manager, seller},
		shared.ActionInvoiceView:              {admin, manager, seller, accountant},
		shared.ActionInvoiceCancel:            {admin},
		shared.ActionQuoteCreate:              {admin, manager, seller, technician},
		shared.ActionQuoteConvert:             {admin, manager, seller},
		shared.ActionCreditNoteCreate:         {admin, manager, accountant},
		shared.ActionPaymentRegister:          {admin, manager, seller, accountant},
		shared.ActionPurchaseCreate:           {admin, manager, accountant},
		shared.ActionPettyCashEntry:           {admin, manager, accountant},
		shared.ActionPettyCashView:            {admin, manager, accountant, seller},
		shared.ActionPettyCashDiscrepancyView: {admin, accountant},
		shared.ActionPettyCashClose:           {admin},
		shared.ActionDailyCloseSave:           {admin, manager, seller, accountant},
		shared.ActionDailyCloseViewAll:        {admin, accountant},
	}
}

// NewPolicy builds a policy from action -> roles grants.
func NewPolicy(grants map[string][]shared.Role) *Policy {
	p := &Policy{grants: make(map[shared.Role]map[string]struct{})}
	for action, roles := range grants {
		for _, role := range roles {
			if p.grants[role] == nil {
				p.grants[role] = make(map[string]struct{})
			}
			p.grants[role][action] = struct{}{}
		}
	}
	return p
}

// DefaultPolicy returns the policy built from DefaultGrants.
func DefaultPolicy() *Policy {
	return NewPolicy(DefaultGrants())
}

// Allowed reports whether principal may run action.
func (p *Policy) Allowed(principal shared.Principal, action string) bool {
	if p == nil || principal.IsZero() {
		return false
	}
	if principal.Role == shared.RoleCustom {
		return principal.Can(action)
	}
	_, ok := p.grants[principal.Role][action]
	return ok
}

// Authorize returns shared.ErrUnauthorized when principal may not run action.
func (p *Policy) Authorize(principal shared.Principal, action string) error {
	if p.Allowed(principal, action) {
		return nil
	}
	return fmt.Errorf("%w: role %q may not %s", shared.ErrUnauthorized, principal.Role, action)
}

// Actions lists the actions granted to principal, sorted.
func (p *Policy) Actions(principal shared.Principal) []string {
	actions := make([]string, 0)
	for _, action := range shared.AllActions() {
		if p.Allowed(principal, action) {
			actions = append(actions, action)
		}
	}
	sort.Strings(actions)
	return actions
}

var _ shared.Authorizer = (*Policy)(nil)
