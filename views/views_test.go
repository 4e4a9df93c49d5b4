package views

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"inkwell/models"
)

func setupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		panic("failed to connect database")
	}

	db.AutoMigrate(&models.User{}, &models.Post{}, &models.View{})
	return db
}

func setupTestRouter(module *Module, postID *uint) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/tracked", func(c *gin.Context) {
		module.TrackView(c, postID, nil)
		c.Status(http.StatusOK)
	})
	return router
}

func createTestPost(db *gorm.DB, authorID uint, title string) *models.Post {
	post := &models.Post{
		AuthorID:  authorID,
		Title:     title,
		Slug:      "test-post",
		Content:   "content",
		Status:    models.StatusPublished,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	db.Create(post)
	return post
}

func TestTrackView_SetsVisitorCookie(t *testing.T) {
	db := setupTestDB()
	module := NewModule(db)
	router := setupTestRouter(module, nil)

	req, _ := http.NewRequest("GET", "/tracked", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), visitorCookie)

	var count int64
	db.Model(&models.View{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestTrackView_ThrottlesRepeatVisits(t *testing.T) {
	db := setupTestDB()
	module := NewModule(db)
	router := setupTestRouter(module, nil)

	req, _ := http.NewRequest("GET", "/tracked", nil)
	req.AddCookie(&http.Cookie{Name: visitorCookie, Value: "visitor-1"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Same visitor again inside the throttle window.
	req, _ = http.NewRequest("GET", "/tracked", nil)
	req.AddCookie(&http.Cookie{Name: visitorCookie, Value: "visitor-1"})
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var count int64
	db.Model(&models.View{}).Count(&count)
	assert.Equal(t, int64(1), count)

	// A different visitor still counts.
	req, _ = http.NewRequest("GET", "/tracked", nil)
	req.AddCookie(&http.Cookie{Name: visitorCookie, Value: "visitor-2"})
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	db.Model(&models.View{}).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestTrackView_HomeAndPostThrottledSeparately(t *testing.T) {
	db := setupTestDB()
	module := NewModule(db)

	postID := uint(7)
	homeRouter := setupTestRouter(module, nil)
	postRouter := setupTestRouter(module, &postID)

	req, _ := http.NewRequest("GET", "/tracked", nil)
	req.AddCookie(&http.Cookie{Name: visitorCookie, Value: "visitor-1"})
	w := httptest.NewRecorder()
	homeRouter.ServeHTTP(w, req)

	req, _ = http.NewRequest("GET", "/tracked", nil)
	req.AddCookie(&http.Cookie{Name: visitorCookie, Value: "visitor-1"})
	w = httptest.NewRecorder()
	postRouter.ServeHTTP(w, req)

	var count int64
	db.Model(&models.View{}).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestTrackView_CapturesRequestMetadata(t *testing.T) {
	db := setupTestDB()
	module := NewModule(db)
	router := setupTestRouter(module, nil)

	req, _ := http.NewRequest("GET", "/tracked", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 Chrome/120.0")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,pt-BR;q=0.8")
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var view models.View
	db.First(&view)
	assert.Equal(t, "203.0.113.9", view.IP)
	assert.NotNil(t, view.Browser)
	assert.Equal(t, "Chrome", *view.Browser)
	assert.NotNil(t, view.Language)
	assert.Equal(t, "en-US", *view.Language)
}

func TestGetPostViewCount(t *testing.T) {
	db := setupTestDB()
	module := NewModule(db)

	postID := uint(3)
	db.Create(&models.View{PostID: &postID, VisitorID: "a", IP: "127.0.0.1", CreatedAt: time.Now()})
	db.Create(&models.View{PostID: &postID, VisitorID: "b", IP: "127.0.0.1", CreatedAt: time.Now()})
	db.Create(&models.View{VisitorID: "c", IP: "127.0.0.1", CreatedAt: time.Now()})

	assert.Equal(t, int64(2), module.GetPostViewCount(postID))
	assert.Equal(t, int64(0), module.GetPostViewCount(99))
}

func TestGetViewsByDay_ZeroFilled(t *testing.T) {
	db := setupTestDB()
	module := NewModule(db)

	author := models.User{Name: "Author", Email: "a@example.com", PasswordHash: "x"}
	db.Create(&author)
	post := createTestPost(db, author.ID, "Post")

	db.Create(&models.View{PostID: &post.ID, VisitorID: "a", IP: "127.0.0.1", CreatedAt: time.Now()})
	db.Create(&models.View{PostID: &post.ID, VisitorID: "b", IP: "127.0.0.1", CreatedAt: time.Now()})

	days := module.GetViewsByDay(author.ID, 7)
	assert.Equal(t, 7, len(days))

	today := time.Now().Format("2006-01-02")
	assert.Equal(t, today, days[6].Date)
	assert.Equal(t, int64(2), days[6].Count)

	for _, day := range days[:6] {
		assert.Equal(t, int64(0), day.Count)
	}
}

func TestGetTopPosts_OrderedByViews(t *testing.T) {
	db := setupTestDB()
	module := NewModule(db)

	author := models.User{Name: "Author", Email: "a@example.com", PasswordHash: "x"}
	db.Create(&author)
	quiet := createTestPost(db, author.ID, "Quiet Post")
	popular := createTestPost(db, author.ID, "Popular Post")

	db.Create(&models.View{PostID: &quiet.ID, VisitorID: "a", IP: "127.0.0.1", CreatedAt: time.Now()})
	db.Create(&models.View{PostID: &popular.ID, VisitorID: "b", IP: "127.0.0.1", CreatedAt: time.Now()})
	db.Create(&models.View{PostID: &popular.ID, VisitorID: "c", IP: "127.0.0.1", CreatedAt: time.Now()})

	top := module.GetTopPosts(author.ID, 30, 10)
	assert.Equal(t, 2, len(top))
	assert.Equal(t, "Popular Post", top[0].PostTitle)
	assert.Equal(t, int64(2), top[0].Count)
	assert.Equal(t, "Quiet Post", top[1].PostTitle)
}

func TestExtractBrowser(t *testing.T) {
	tests := []struct {
		userAgent string
		expected  string
	}{
		{"Mozilla/5.0 Chrome/120.0 Safari/537.36", "Chrome"},
		{"Mozilla/5.0 Firefox/121.0", "Firefox"},
		{"Mozilla/5.0 Version/17.0 Safari/605.1", "Safari"},
		{"Mozilla/5.0 Chrome/120.0 Edg/120.0", "Edge"},
		{"SomethingElse/1.0", "Other"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			browser := extractBrowser(tt.userAgent)
			assert.NotNil(t, browser)
			assert.Equal(t, tt.expected, *browser)
		})
	}
}

func TestExtractBrowser_EmptyUserAgent(t *testing.T) {
	assert.Nil(t, extractBrowser(""))
}
