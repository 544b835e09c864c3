package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/moteeees/library/backend/authz"
	"github.com/moteeees/library/backend/config"
	"github.com/moteeees/library/backend/handlers"
	"github.com/moteeees/library/backend/middleware"
	"github.com/moteeees/library/backend/service"
	"github.com/moteeees/library/backend/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config:", err)
	}

	ctx := context.Background()
	db, err := store.NewMongoDB(ctx, cfg.MongoURI, cfg.DBName)
	if err != nil {
		log.Fatal("mongodb:", err)
	}
	defer func() {
		if err := db.Disconnect(context.Background()); err != nil {
			log.Println("mongodb disconnect:", err)
		}
	}()

	if err := db.EnsureIndexes(ctx); err != nil {
		log.Fatal("indexes:", err)
	}
	if err := db.EnsureSeedData(ctx); err != nil {
		log.Fatal("seed:", err)
	}

	// Left nil when S3 is unconfigured; the handlers check for that.
	var blob handlers.CoverStore
	if cfg.S3Bucket != "" {
		b, err := service.NewBlobStore(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3AccessKeyID, cfg.S3SecretKey)
		if err != nil {
			log.Fatal("s3:", err)
		}
		blob = b
	} else {
		log.Println("warning: AWS_S3_BUCKET not set; cover uploads will fail")
	}

	var translator service.Translator
	if cfg.TranslateURL != "" {
		translator = service.NewHTTPTranslator(cfg.TranslateURL)
	} else {
		log.Println("warning: TRANSLATE_URL not set; book text is stored untranslated")
	}

	var provider *handlers.OIDC
	if cfg.OIDCIssuerURL != "" {
		provider, err = handlers.NewOIDC(ctx, cfg.OIDCIssuerURL, cfg.OIDCClientID,
			cfg.OIDCClientSecret, cfg.OIDCRedirectURL, cfg.OIDCPostLogoutRedirect)
		if err != nil {
			log.Fatal("oidc:", err)
		}
	}

	maxBytes := cfg.MaxUploadMB * 1024 * 1024
	authHandler := &handlers.AuthHandler{DB: db, JWTSecret: cfg.JWTSecret, OIDC: provider}
	booksHandler := &handlers.BooksHandler{DB: db, Blob: blob, Translator: translator, MaxBytes: maxBytes}
	cartHandler := &handlers.CartHandler{DB: db}
	usersHandler := &handlers.UsersHandler{DB: db}
	uploadHandler := &handlers.UploadHandler{Blob: blob, MaxBytes: maxBytes}

	r := chi.NewRouter()
	r.Use(middleware.AllowAll())
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"welcome to the library."}`))
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		if provider != nil {
			r.Get("/auth/oidc/login", authHandler.OIDCLogin)
			r.Get("/auth/oidc/callback", authHandler.OIDCCallback)
		}

		// Public catalog
		r.Get("/books", booksHandler.List)
		r.Get("/books/{id}", booksHandler.Get)
		r.Get("/books/{id}/cover", booksHandler.Cover)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret, db))
			r.Post("/auth/logout", authHandler.Logout)

			r.Post("/cart/add/{bookID}", cartHandler.Add)
			r.Post("/cart/remove/{itemID}", cartHandler.Remove)
			r.Get("/cart", cartHandler.List)

			// Staff-only routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.Require(authz.Staff))
				r.Post("/books", booksHandler.Create)
				r.Put("/books/{id}", booksHandler.Update)
				r.Delete("/books/{id}", booksHandler.Delete)
				r.Post("/upload", uploadHandler.Upload)
				r.Get("/manage/users", usersHandler.List)
				r.Post("/manage/users/{id}/promote", usersHandler.Promote)
				r.Get("/manage/stats", usersHandler.Stats)
			})
		})
	})

	server := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Println("server listening on :" + cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Println("shutdown:", err)
	}
}
