package services

import (
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"tracehub/trace/auth"
	"tracehub/trace/schema"
	"tracehub/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TraceHub struct {
	auth     AuthService
	item     ItemService
	material MaterialTraceService
	relation BatchRelationService
	warning  RiskWarningService

	db       *gorm.DB
	identity *auth.Identity
}

func NewTraceHub(db *gorm.DB, identity *auth.Identity) TraceHub {
	return TraceHub{
		auth:     AuthService{db: db, identity: identity},
		item:     ItemService{db: db, identity: identity},
		material: MaterialTraceService{db: db, identity: identity},
		relation: BatchRelationService{db: db, identity: identity},
		warning:  RiskWarningService{db: db, identity: identity},
		db:       db,
		identity: identity,
	}
}

func (t *TraceHub) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger: log.New(os.Stderr, "", log.LstdFlags), NoColor: false,
	}))

	r.Mount("/auth", t.auth.Routes())
	r.Mount("/items", t.item.Routes())
	r.Mount("/raw-material-trace", t.material.Routes())
	r.Mount("/batch-trace-relations", t.relation.Routes())
	r.Mount("/quality-risk-warnings", t.warning.Routes())

	r.Group(func(r chi.Router) {
		r.Use(t.identity.AuthMiddleware()...)

		r.Get("/me", t.auth.Me)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteSuccess(w)
	})

	return r
}

// InitAdmin seeds the admin account at startup. It is a no-op when a user
// with the given username already exists.
func (t *TraceHub) InitAdmin(username, password string) error {
	digest, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("error hashing admin password: %w", err)
	}

	admin := schema.User{
		Id:             uuid.New(),
		Username:       username,
		HashedPassword: digest,
		Role:           schema.RoleAdmin,
	}

	err = t.db.Transaction(func(txn *gorm.DB) error {
		var existing schema.User
		result := txn.Limit(1).Find(&existing, "username = ?", username)
		if result.Error != nil {
			slog.Error("sql error checking if admin has already been seeded", "error", result.Error)
			return schema.ErrDbAccessFailed
		}
		if result.RowsAffected == 0 {
			if result := txn.Create(&admin); result.Error != nil {
				slog.Error("sql error creating initial admin user", "error", result.Error)
				return schema.ErrDbAccessFailed
			}
			slog.Info("seeded initial admin user", "username", username)
		}
		return nil
	})

	if err != nil {
		return fmt.Errorf("error seeding initial admin: %w", err)
	}

	return nil
}
