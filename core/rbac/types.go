package rbac

import "strings"

const (
	ResourceUser      = "user"
	ResourceAlert     = "alert"
	ResourceReport    = "report"
	ResourceShift     = "shift"
	ResourceFloor     = "floor"
	ResourceDashboard = "dashboard"
	ResourceSystem    = "system"
)

const (
	ActionCreate  = "create"
	ActionRead    = "read"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionManage  = "manage"
	ActionExecute = "execute"
)

// Capability is a single (resource, action) permission tuple. Matching is
// exact: manage does not stand in for the CRUD actions.
type Capability struct {
	Resource string
	Action   string
}

func Cap(resource, action string) Capability {
	return Capability{Resource: resource, Action: action}
}

func (c Capability) Name() string {
	return c.Resource + "." + c.Action
}

// Permission is a catalog entry: a capability plus its description.
type Permission struct {
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Description string `json:"description"`
}

func (p Permission) Name() string {
	return p.Resource + "." + p.Action
}

// Catalog is the static set of capabilities known to the system. Roles refer
// to entries by name; names are unique by construction.
func Catalog() []Permission {
	return []Permission{
		{ResourceUser, ActionCreate, "Create users"},
		{ResourceUser, ActionRead, "Read users"},
		{ResourceUser, ActionUpdate, "Update users"},
		{ResourceUser, ActionDelete, "Delete users"},
		{ResourceAlert, ActionCreate, "Create alerts"},
		{ResourceAlert, ActionRead, "Read alerts"},
		{ResourceAlert, ActionUpdate, "Update alerts"},
		{ResourceAlert, ActionManage, "Manage alerts"},
		{ResourceReport, ActionCreate, "Create reports"},
		{ResourceReport, ActionRead, "Read reports"},
		{ResourceShift, ActionRead, "Read shifts"},
		{ResourceShift, ActionManage, "Manage shifts"},
		{ResourceFloor, ActionRead, "Read floors"},
		{ResourceFloor, ActionManage, "Manage floors"},
		{ResourceDashboard, ActionRead, "View dashboard"},
		{ResourceSystem, ActionExecute, "Execute system operations"},
	}
}

var catalogByName = func() map[string]Permission {
	m := make(map[string]Permission)
	for _, p := range Catalog() {
		m[p.Name()] = p
	}
	return m
}()

// ParseCapability resolves a catalog name ("alert.update") to its
// capability. Unknown names report false.
func ParseCapability(name string) (Capability, bool) {
	p, ok := catalogByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Capability{}, false
	}
	return Cap(p.Resource, p.Action), true
}
