package auth

import (
	"staffing_platform/backoffice/schema"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnknownRolesAndResourcesDenied(t *testing.T) {
	assert.Equal(t, ScopeNone, Allowed("", ResourceLecture, ActionList))
	assert.Equal(t, ScopeNone, Allowed("admin", ResourceLecture, ActionList))
	assert.Equal(t, ScopeNone, Allowed(schema.RoleManager, Resource("team"), ActionList))
	assert.Equal(t, ScopeNone, Allowed(schema.RoleManager, ResourceLecture, Action("export")))
}

func TestManagerPolicy(t *testing.T) {
	cases := []struct {
		resource Resource
		action   Action
		scope    Scope
	}{
		{ResourceUser, ActionList, ScopeAny},
		{ResourceUser, ActionRetrieve, ScopeAny},
		{ResourceUser, ActionUpdate, ScopeAny},
		{ResourceUser, ActionDelete, ScopeNone},

		{ResourceLecture, ActionCreate, ScopeAny},
		{ResourceLecture, ActionUpdate, ScopeAny},
		{ResourceLecture, ActionDelete, ScopeAny},
		{ResourceRecruitment, ActionCreate, ScopeAny},
		{ResourceRecruitment, ActionDelete, ScopeAny},

		// Managers decide on applications but never file or withdraw them.
		{ResourceApplication, ActionList, ScopeAny},
		{ResourceApplication, ActionRetrieve, ScopeAny},
		{ResourceApplication, ActionUpdate, ScopeAny},
		{ResourceApplication, ActionCreate, ScopeNone},
		{ResourceApplication, ActionDelete, ScopeNone},

		{ResourceAnnouncement, ActionCreate, ScopeAny},
		{ResourceAnnouncement, ActionUpdate, ScopeAny},
		{ResourceAnnouncement, ActionDelete, ScopeAny},

		{ResourceNotification, ActionCreate, ScopeAny},
		{ResourceNotification, ActionMarkRead, ScopeAny},

		{ResourceMessage, ActionList, ScopeOwn},
		{ResourceMessage, ActionRetrieve, ScopeOwn},
		{ResourceMessage, ActionCreate, ScopeOwn},
	}

	for _, c := range cases {
		assert.Equal(t, c.scope, Allowed(schema.RoleManager, c.resource, c.action), "manager %v %v", c.resource, c.action)
	}
}

func TestInstructorPolicy(t *testing.T) {
	cases := []struct {
		resource Resource
		action   Action
		scope    Scope
	}{
		{ResourceUser, ActionList, ScopeNone},
		{ResourceUser, ActionRetrieve, ScopeOwn},
		{ResourceUser, ActionUpdate, ScopeOwn},

		{ResourceLecture, ActionList, ScopeAny},
		{ResourceLecture, ActionRetrieve, ScopeAny},
		{ResourceLecture, ActionCreate, ScopeNone},
		{ResourceLecture, ActionUpdate, ScopeNone},
		{ResourceLecture, ActionDelete, ScopeNone},

		{ResourceRecruitment, ActionList, ScopeAny},
		{ResourceRecruitment, ActionCreate, ScopeNone},
		{ResourceRecruitment, ActionUpdate, ScopeNone},
		{ResourceRecruitment, ActionDelete, ScopeNone},

		{ResourceApplication, ActionList, ScopeOwn},
		{ResourceApplication, ActionRetrieve, ScopeOwn},
		{ResourceApplication, ActionCreate, ScopeOwn},
		{ResourceApplication, ActionUpdate, ScopeOwn},
		{ResourceApplication, ActionDelete, ScopeOwn},

		{ResourceAnnouncement, ActionList, ScopeAny},
		{ResourceAnnouncement, ActionRetrieve, ScopeAny},
		{ResourceAnnouncement, ActionCreate, ScopeNone},
		{ResourceAnnouncement, ActionUpdate, ScopeNone},
		{ResourceAnnouncement, ActionDelete, ScopeNone},

		{ResourceNotification, ActionList, ScopeOwn},
		{ResourceNotification, ActionRetrieve, ScopeOwn},
		{ResourceNotification, ActionMarkRead, ScopeOwn},
		{ResourceNotification, ActionCreate, ScopeNone},
		{ResourceNotification, ActionUpdate, ScopeNone},
		{ResourceNotification, ActionDelete, ScopeNone},

		{ResourceMessage, ActionCreate, ScopeOwn},
		{ResourceMessage, ActionRetrieve, ScopeOwn},
	}

	for _, c := range cases {
		assert.Equal(t, c.scope, Allowed(schema.RoleInstructor, c.resource, c.action), "instructor %v %v", c.resource, c.action)
	}
}
