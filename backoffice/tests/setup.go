package tests

import (
	"bytes"
	"testing"

	"staffing_platform/backoffice/auth"
	"staffing_platform/backoffice/schema"
	"staffing_platform/backoffice/services"

	"github.com/go-chi/chi/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	backoffice services.Backoffice
	api        chi.Router
	db         *gorm.DB
}

const (
	managerUsername = "manager123"
	managerEmail    = "manager123@mail.com"
	managerPassword = "manager_password123"
)

func setupTestEnv(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}

	err = db.AutoMigrate(schema.AllModels()...)
	if err != nil {
		t.Fatal(err)
	}

	secret := []byte("290zcv02ai249")

	userAuth, err := auth.NewBasicIdentityProvider(
		db,
		auth.NewAuditLogger(new(bytes.Buffer)),
		auth.BasicProviderArgs{
			Secret:          secret,
			ManagerUsername: managerUsername,
			ManagerEmail:    managerEmail,
			ManagerPassword: managerPassword,
		},
	)
	if err != nil {
		t.Fatal(err)
	}

	backoffice := services.NewBackoffice(db, userAuth)

	return &testEnv{backoffice: backoffice, api: backoffice.Routes(), db: db}
}

func (t *testEnv) newClient() client {
	return client{api: t.api}
}

// newInstructor registers and logs in a fresh instructor account.
func (t *testEnv) newInstructor(username string) (client, error) {
	c := t.newClient()
	login, err := c.register(username, username+"@mail.com", username, username+"_password")
	if err != nil {
		return client{}, err
	}

	err = c.login(login)
	if err != nil {
		return client{}, err
	}

	return c, nil
}

func (t *testEnv) managerClient() (client, error) {
	c := t.newClient()
	err := c.login(loginInfo{Email: managerEmail, Password: managerPassword})
	return c, err
}
