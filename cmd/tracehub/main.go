package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"tracehub/trace/auth"
	"tracehub/trace/schema"
	"tracehub/trace/services"
	"tracehub/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Defaults match the original deployment of this service. The fixed secret
// and seeded password are known weaknesses, kept so existing installs keep
// working; override them via env in any real deployment.
const (
	defaultSqlitePath    = "app.db"
	defaultJwtSecret     = "tracehub-dev-secret"
	defaultAdminUsername = "admin"
	defaultAdminPassword = "admin123"
)

type tracehubEnv struct {
	DatabaseUri string
	JwtSecret   string

	AdminUsername string
	AdminPassword string
}

func loadEnvFile(envFile string) {
	slog.Info(fmt.Sprintf("loading env from file %v", envFile))
	err := godotenv.Load(envFile)
	if err != nil {
		log.Fatalf("error loading .env file '%v': %v", envFile, err)
	}
}

func loadEnv() tracehubEnv {
	return tracehubEnv{
		DatabaseUri:   utils.OptionalEnv("DATABASE_URI"),
		JwtSecret:     utils.EnvWithDefault("JWT_SECRET", defaultJwtSecret),
		AdminUsername: utils.EnvWithDefault("ADMIN_USERNAME", defaultAdminUsername),
		AdminPassword: utils.EnvWithDefault("ADMIN_PASSWORD", defaultAdminPassword),
	}
}

func postgresDsn(databaseUri string) string {
	parts, err := url.Parse(databaseUri)
	if err != nil {
		log.Fatalf("error parsing db uri: %v", err)
	}
	pwd, _ := parts.User.Password()
	dbname := strings.TrimPrefix(parts.Path, "/")
	return fmt.Sprintf("host=%v user=%v password=%v dbname=%v port=%v", parts.Hostname(), parts.User.Username(), pwd, dbname, parts.Port())
}

func initDb(env tracehubEnv) *gorm.DB {
	var dialector gorm.Dialector
	if env.DatabaseUri != "" {
		dialector = postgres.Open(postgresDsn(env.DatabaseUri))
	} else {
		dialector = sqlite.Open(defaultSqlitePath)
	}

	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("error opening database connection: %v", err)
	}

	err = db.AutoMigrate(
		&schema.User{}, &schema.Item{},
		&schema.RawMaterialTraceRecord{}, &schema.BatchTraceRelation{}, &schema.QualityRiskWarning{},
	)
	if err != nil {
		log.Fatalf("error migrating db schema: %v", err)
	}

	return db
}

func main() {
	envFile := flag.String("env", "", "File to load env variables from. If not specified will just load them from the environment variables already defined.")
	port := flag.Int("port", 8000, "Port to run server on")

	flag.Parse()

	if *envFile != "" {
		loadEnvFile(*envFile)
	}
	env := loadEnv()

	log.SetFlags(log.Lshortfile | log.Ltime | log.Ldate)

	db := initDb(env)

	identity := auth.NewIdentity(db, auth.NewAuditLogger(os.Stderr), []byte(env.JwtSecret))

	hub := services.NewTraceHub(db, identity)

	if err := hub.InitAdmin(env.AdminUsername, env.AdminPassword); err != nil {
		log.Fatalf("error initializing admin at startup: %v", err)
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Mount("/", hub.Routes())

	slog.Info("starting server", "port", *port)
	err := http.ListenAndServe(fmt.Sprintf(":%v", *port), r)
	if err != nil {
		log.Fatal(err)
	}
}
