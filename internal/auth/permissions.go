// Package auth - permissions.go defines the permission vocabulary used by the
// built-in routes and the PermissionMap that roles and tokens carry.
package auth

import "sort"

// Permission names checked by the built-in routes. Roles may grant any other
// string as well; the vocabulary is open.
const (
	PermViewUser      = "viewUser"
	PermUpdateAnyUser = "updateAnyUser"

	PermViewBug     = "viewBug"
	PermInsertBug   = "insertBug"
	PermUpdateBug   = "updateBug"
	PermClassifyBug = "classifyBug"
	PermAssignBug   = "assignBug"
	PermCloseBug    = "closeBug"

	PermViewComment   = "viewComment"
	PermInsertComment = "insertComment"

	PermViewTestCase    = "viewTestCase"
	PermInsertTestCase  = "insertTestCase"
	PermUpdateTestCase  = "updateTestCase"
	PermExecuteTestCase = "executeTestCase"
	PermDeleteTestCase  = "deleteTestCase"

	PermViewRole   = "viewRole"
	PermUpdateRole = "updateRole"

	PermViewEdit = "viewEdit"
)

// AllPermissions returns every permission the built-in routes check.
func AllPermissions() []string {
	return []string{
		PermViewUser, PermUpdateAnyUser,
		PermViewBug, PermInsertBug, PermUpdateBug, PermClassifyBug, PermAssignBug, PermCloseBug,
		PermViewComment, PermInsertComment,
		PermViewTestCase, PermInsertTestCase, PermUpdateTestCase, PermExecuteTestCase, PermDeleteTestCase,
		PermViewRole, PermUpdateRole,
		PermViewEdit,
	}
}

// PermissionMap maps a permission name to whether it is granted. A missing
// key is not granted; nothing is ever implicitly denied.
type PermissionMap map[string]bool

// Has reports whether name is granted.
func (p PermissionMap) Has(name string) bool {
	return p[name]
}

// Grant merges every permission granted by other into p.
func (p PermissionMap) Grant(other map[string]bool) {
	for name, granted := range other {
		if granted {
			p[name] = true
		}
	}
}

// Granted returns the granted permission names in sorted order.
func (p PermissionMap) Granted() []string {
	names := make([]string, 0, len(p))
	for name, granted := range p {
		if granted {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
