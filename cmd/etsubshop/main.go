package main

import (
	"database/sql"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/bekeleetsub857-cloud/etsub-shop/internal/catalog"
	"github.com/bekeleetsub857-cloud/etsub-shop/internal/kvstore"
	"github.com/bekeleetsub857-cloud/etsub-shop/internal/links"
	"github.com/bekeleetsub857-cloud/etsub-shop/internal/rates"
	"github.com/bekeleetsub857-cloud/etsub-shop/internal/session"
	"github.com/bekeleetsub857-cloud/etsub-shop/pkg/kit"
)

const (
	loginLimitPerMin = 5
	limitWindow      = 60 * time.Second
)

func main() {
	_ = godotenv.Load()

	service := "etsubshop"
	log := kit.NewLogger(service)
	defer func() { _ = log.Sync() }()

	port := getenv("PORT", "8080")
	dataPath := getenv("DATA_PATH", "etsubshop.db")

	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		log.Fatal("ADMIN_PASSWORD is required")
	}
	jwtSecret := os.Getenv("JWT_SECRET")
	if len(jwtSecret) < 32 {
		log.Fatal("JWT_SECRET is required and must be at least 32 chars")
	}

	kv, err := kvstore.OpenBolt(dataPath)
	if err != nil {
		log.Fatal("open data file", zap.Error(err), zap.String("path", dataPath))
	}
	defer func() { _ = kv.Close() }()

	var store catalog.Store
	switch backend := getenv("STORE_BACKEND", "kv"); backend {
	case "kv":
		store = catalog.NewKVStore(kv, log)
	case "postgres":
		db, err := sql.Open("pgx", os.Getenv("DATABASE_URL"))
		if err != nil {
			log.Fatal("open database", zap.Error(err))
		}
		defer func() { _ = db.Close() }()
		store = catalog.NewPostgresStore(db)
	default:
		log.Fatal("unknown STORE_BACKEND", zap.String("backend", backend))
	}

	defaultRate, _ := strconv.ParseFloat(os.Getenv("DEFAULT_USD_RATE"), 64)
	engine := rates.NewEngine(kv, store, []rates.Provider{
		rates.NewFrankfurter(),
		rates.NewExchangeRateAPI(),
	}, defaultRate, log)

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("hash admin password", zap.Error(err))
	}
	guard := session.NewGuard(kv, session.NewTokenMaker(jwtSecret), hash, log)
	guard.SetHooks(session.Hooks{
		OnLogin:  engine.StartSchedule,
		OnLogout: engine.StopSchedule,
	})
	guard.ResumeIfActive()

	shop := &catalog.Server{
		Store: store,
		Log:   log,
		Contacts: links.Contacts{
			WhatsAppPhone:  getenv("WHATSAPP_PHONE", "251992011629"),
			TelegramHandle: getenv("TELEGRAM_HANDLE", "EtsubOnline"),
		},
		Rate: func() float64 { return engine.Current().Rate },
	}
	sess := &session.Server{Log: log, Guard: guard}
	rateAPI := &rates.Server{Log: log, Engine: engine}

	reg := prometheus.NewRegistry()
	metrics := kit.NewMetrics(reg)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer)
	r.Use(kit.Logging(log))
	r.Use(metrics.Middleware(service, kit.ChiRoutePatternOrPath))

	if getenv("METRICS_ENABLED", "false") == "true" {
		r.With(kit.MetricsAuth(os.Getenv("METRICS_TOKEN"))).
			Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	loginLimiter := kit.NewIPRateLimiter(loginLimitPerMin, limitWindow)
	r.Route("/admin", func(ar chi.Router) {
		sess.Register(ar, loginLimiter.Middleware)
		ar.Group(func(pr chi.Router) {
			pr.Use(session.RequireAdmin(guard))
			rateAPI.Register(pr)
			shop.RegisterAdmin(pr)
		})
	})
	r.Mount("/", shop.Routes())

	if err := kit.RunHTTPServer(":"+port, r, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
