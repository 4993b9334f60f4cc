package auth

import (
	"fmt"
	"net/http"
	"staffing_platform/backoffice/schema"
)

type Resource string

const (
	ResourceUser         Resource = "user"
	ResourceLecture      Resource = "lecture"
	ResourceRecruitment  Resource = "recruitment"
	ResourceApplication  Resource = "application"
	ResourceAnnouncement Resource = "announcement"
	ResourceNotification Resource = "notification"
	ResourceMessage      Resource = "message"
)

type Action string

const (
	ActionList     Action = "list"
	ActionRetrieve Action = "retrieve"
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionMarkRead Action = "mark-read"
)

// Scope is the outcome of the coarse permission check. ScopeOwn means the
// action is allowed but the handler must restrict it to records owned by the
// principal; ScopeAny places no ownership restriction.
type Scope int

const (
	ScopeNone Scope = iota
	ScopeOwn
	ScopeAny
)

type rule map[Action]map[string]Scope

// policyTable is the complete authorization policy: resource x action x role.
// Anything absent from the table is denied. Ownership ("own") enforcement is
// left to the handlers, which scope their queries to the principal.
var policyTable = map[Resource]rule{
	ResourceUser: {
		ActionList:     {schema.RoleManager: ScopeAny},
		ActionRetrieve: {schema.RoleManager: ScopeAny, schema.RoleInstructor: ScopeOwn},
		ActionUpdate:   {schema.RoleManager: ScopeAny, schema.RoleInstructor: ScopeOwn},
	},
	ResourceLecture: {
		ActionList:     {schema.RoleManager: ScopeAny, schema.RoleInstructor: ScopeAny},
		ActionRetrieve: {schema.RoleManager: ScopeAny, schema.RoleInstructor: ScopeAny},
		ActionCreate:   {schema.RoleManager: ScopeAny},
		ActionUpdate:   {schema.RoleManager: ScopeAny},
		ActionDelete:   {schema.RoleManager: ScopeAny},
	},
	ResourceRecruitment: {
		ActionList:     {schema.RoleManager: ScopeAny, schema.RoleInstructor: ScopeAny},
		ActionRetrieve: {schema.RoleManager: ScopeAny, schema.RoleInstructor: ScopeAny},
		ActionCreate:   {schema.RoleManager: ScopeAny},
		ActionUpdate:   {schema.RoleManager: ScopeAny},
		ActionDelete:   {schema.RoleManager: ScopeAny},
	},
	ResourceApplication: {
		ActionList:     {schema.RoleManager: ScopeAny, schema.RoleInstructor: ScopeOwn},
		ActionRetrieve: {schema.RoleManager: ScopeAny, schema.RoleInstructor: ScopeOwn},
		ActionCreate:   {schema.RoleInstructor: ScopeOwn},
		ActionUpdate:   {schema.RoleManager: ScopeAny, schema.RoleInstructor: ScopeOwn},
		ActionDelete:   {schema.RoleInstructor: ScopeOwn},
	},
	ResourceAnnouncement: {
		ActionList:     {schema.RoleManager: ScopeAny, schema.RoleInstructor: ScopeAny},
		ActionRetrieve: {schema.RoleManager: ScopeAny, schema.RoleInstructor: ScopeAny},
		ActionCreate:   {schema.RoleManager: ScopeAny},
		ActionUpdate:   {schema.RoleManager: ScopeAny},
		ActionDelete:   {schema.RoleManager: ScopeAny},
	},
	ResourceNotification: {
		ActionList:     {schema.RoleManager: ScopeAny, schema.RoleInstructor: ScopeOwn},
		ActionRetrieve: {schema.RoleManager: ScopeAny, schema.RoleInstructor: ScopeOwn},
		ActionCreate:   {schema.RoleManager: ScopeAny},
		ActionUpdate:   {schema.RoleManager: ScopeAny},
		ActionDelete:   {schema.RoleManager: ScopeAny},
		ActionMarkRead: {schema.RoleManager: ScopeAny, schema.RoleInstructor: ScopeOwn},
	},
	ResourceMessage: {
		ActionList:     {schema.RoleManager: ScopeOwn, schema.RoleInstructor: ScopeOwn},
		ActionRetrieve: {schema.RoleManager: ScopeOwn, schema.RoleInstructor: ScopeOwn},
		ActionCreate:   {schema.RoleManager: ScopeOwn, schema.RoleInstructor: ScopeOwn},
	},
}

// Allowed is the coarse check: it decides from role, resource, and action
// alone, without ever touching a target instance.
func Allowed(role string, resource Resource, action Action) Scope {
	actions, ok := policyTable[resource]
	if !ok {
		return ScopeNone
	}
	roles, ok := actions[action]
	if !ok {
		return ScopeNone
	}
	return roles[role]
}

// RequirePermission denies the request before any data access when the
// principal's role may not attempt the action at all. The response is a
// uniform "forbidden" so a denied caller learns nothing about the target.
func RequirePermission(resource Resource, action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			user, err := UserFromContext(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			if Allowed(user.Role, resource, action) == ScopeNone {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(hfn)
	}
}

func ManagerOnly() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			user, err := UserFromContext(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			if !user.IsManager() {
				http.Error(w, fmt.Sprintf("user %v is not a manager", user.Id), http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(hfn)
	}
}
