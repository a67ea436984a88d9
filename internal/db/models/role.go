// Package models - role.go defines the Role model, a named permission set, and
// the predefined roles seeded by `server seed-roles`.
package models

import "time"

// Role grants the permissions marked true in Permissions to every user
// assigned to it.
type Role struct {
	Name        string        `db:"name" json:"name"`
	Permissions PermissionSet `db:"permissions" json:"permissions"`
	CreatedAt   time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updatedAt"`
}

// PredefinedRoles returns the default roles
func PredefinedRoles() []Role {
	return []Role{
		{
			Name: "Developer",
			Permissions: PermissionSet{
				"viewUser": true, "viewBug": true, "insertBug": true, "updateBug": true,
				"closeBug": true, "viewComment": true, "insertComment": true,
				"viewTestCase": true,
			},
		},
		{
			Name: "Business Analyst",
			Permissions: PermissionSet{
				"viewUser": true, "viewBug": true, "insertBug": true, "updateBug": true,
				"classifyBug": true, "viewComment": true, "insertComment": true,
				"viewTestCase": true,
			},
		},
		{
			Name: "Quality Analyst",
			Permissions: PermissionSet{
				"viewUser": true, "viewBug": true, "insertBug": true, "viewComment": true,
				"insertComment": true, "viewTestCase": true, "insertTestCase": true,
				"updateTestCase": true, "executeTestCase": true, "deleteTestCase": true,
			},
		},
		{
			Name: "Product Manager",
			Permissions: PermissionSet{
				"viewUser": true, "viewBug": true, "insertBug": true, "updateBug": true,
				"classifyBug": true, "assignBug": true, "closeBug": true,
				"viewComment": true, "insertComment": true, "viewTestCase": true,
			},
		},
		{
			Name: "Technical Manager",
			Permissions: PermissionSet{
				"viewUser": true, "updateAnyUser": true, "viewBug": true, "insertBug": true,
				"updateBug": true, "classifyBug": true, "assignBug": true, "closeBug": true,
				"viewComment": true, "insertComment": true, "viewTestCase": true,
				"insertTestCase": true, "updateTestCase": true, "executeTestCase": true,
				"deleteTestCase": true, "viewRole": true, "updateRole": true, "viewEdit": true,
			},
		},
	}
}
