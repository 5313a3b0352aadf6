package model

import "time"

// Modules of the dashboard subject to the permission matrix.
const (
	ModuleAPIKeys      = "api_keys"
	ModulePrompts      = "prompt_templates"
	ModulePinTemplates = "pin_templates"
	ModuleBulkJobs     = "bulk_jobs"
	ModuleExports      = "exports"
	ModuleUsers        = "users"
)

// Actions evaluated against a module.
const (
	ActionView    = "view"
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionExecute = "execute"
)

// Permission is one cell of the role/module/action matrix.
type Permission struct {
	Module string
	Action string
}

type Role struct {
	ID          string
	Name        string
	Permissions []Permission
	CreatedAt   time.Time
}

// Allows reports whether the role grants the module/action pair.
// A wildcard "*" module grants every module; same for action.
func (r *Role) Allows(module, action string) bool {
	if r == nil {
		return false
	}
	for _, p := range r.Permissions {
		if (p.Module == module || p.Module == "*") && (p.Action == action || p.Action == "*") {
			return true
		}
	}
	return false
}
