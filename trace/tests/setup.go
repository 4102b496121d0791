package tests

import (
	"bytes"
	"fmt"
	"testing"
	"tracehub/trace/auth"
	"tracehub/trace/schema"
	"tracehub/trace/services"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	adminUsername = "admin"
	adminPassword = "admin123"

	testJwtSecret = "290zcv02ai249"
)

type testEnv struct {
	hub services.TraceHub
	api chi.Router
	db  *gorm.DB
}

func setupTestEnv(t *testing.T) *testEnv {
	// Each env gets its own named in-memory database, otherwise gorm's pool
	// keeps a shared one alive and rows leak between tests.
	dsn := fmt.Sprintf("file:%v?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if sqlDb, err := db.DB(); err == nil {
			sqlDb.Close()
		}
	})

	err = db.AutoMigrate(
		&schema.User{}, &schema.Item{},
		&schema.RawMaterialTraceRecord{}, &schema.BatchTraceRelation{}, &schema.QualityRiskWarning{},
	)
	if err != nil {
		t.Fatal(err)
	}

	identity := auth.NewIdentity(db, auth.NewAuditLogger(new(bytes.Buffer)), []byte(testJwtSecret))

	hub := services.NewTraceHub(db, identity)

	if err := hub.InitAdmin(adminUsername, adminPassword); err != nil {
		t.Fatal(err)
	}

	return &testEnv{hub: hub, api: hub.Routes(), db: db}
}

func (e *testEnv) newClient() client {
	return client{api: e.api}
}

func (e *testEnv) adminClient(t *testing.T) client {
	c := e.newClient()
	if err := c.login(adminUsername, adminPassword); err != nil {
		t.Fatal(err)
	}
	return c
}

// newUser inserts a regular (non-admin) user directly into the store, since
// there is no public registration endpoint, and returns a logged in client.
func (e *testEnv) newUser(t *testing.T, username string) client {
	password := username + "_password"

	digest, err := auth.HashPassword(password)
	if err != nil {
		t.Fatal(err)
	}

	user := schema.User{Id: uuid.New(), Username: username, HashedPassword: digest, Role: schema.RoleUser}
	if result := e.db.Create(&user); result.Error != nil {
		t.Fatal(result.Error)
	}

	c := e.newClient()
	if err := c.login(username, password); err != nil {
		t.Fatal(err)
	}
	return c
}
