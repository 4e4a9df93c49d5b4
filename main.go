package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"inkwell/admin"
	"inkwell/assist"
	"inkwell/backoffice"
	"inkwell/blog"
	"inkwell/cache"
	"inkwell/common"
	"inkwell/database"
	"inkwell/feed"
	viewspkg "inkwell/views"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}

	db, err := common.ConnectDb()
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}
	defer common.CloseDb(db)

	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations: ", err)
	}

	router := gin.Default()

	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		log.Fatal("SESSION_SECRET environment variable not set")
	}

	store := cookie.NewStore([]byte(sessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   false,
	})

	router.Use(sessions.Sessions("inkwell-session", store))
	router.Use(common.HostMiddleware(os.Getenv("CANONICAL_HOST")))
	router.Use(cache.CacheMiddleware(10 * time.Minute))

	router.SetFuncMap(map[string]interface{}{
		"now": func() time.Time {
			return time.Now()
		},
		"domain": func() string {
			d := os.Getenv("DOMAIN")
			if d == "" {
				return "http://localhost:8080"
			}
			return d
		},
	})

	router.LoadHTMLGlob("*/views/*.html")

	router.Static("/public", "./public")

	feedService := feed.NewService(db)
	viewsModule := viewspkg.NewModule(db)

	adminModule := admin.NewAdminModule(db, viewsModule)
	adminModule.RegisterRoutes(router)

	blogModule := blog.NewBlogModule(db, feedService, viewsModule)
	blogModule.RegisterRoutes(router)

	backofficeModule := backoffice.NewBackofficeModule(db)
	backofficeModule.RegisterRoutes(router)

	assistModule := assist.NewAssistModule()
	assistModule.RegisterRoutes(router, adminModule.RequireAuth)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting server on port %s...", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}
