package views

import (
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"inkwell/models"
)

const visitorCookie = "inkwell_visitor_id"

// throttle window: repeated loads by the same visitor inside this window
// count as one view.
const throttleWindow = 30 * time.Minute

type Module struct {
	db *gorm.DB
}

func NewModule(db *gorm.DB) *Module {
	return &Module{db: db}
}

// TrackView records a view of a post (or of the home page when postID is
// nil). Views by the same visitor within the throttle window are dropped.
func (m *Module) TrackView(c *gin.Context, postID, userID *uint) {
	visitorID := m.getOrCreateVisitorID(c)

	cutoff := time.Now().Add(-throttleWindow)
	query := m.db.Model(&models.View{}).
		Where("visitor_id = ? AND created_at > ?", visitorID, cutoff)
	if postID != nil {
		query = query.Where("post_id = ?", *postID)
	} else {
		query = query.Where("post_id IS NULL")
	}

	var recent int64
	if err := query.Count(&recent).Error; err == nil && recent > 0 {
		return
	}

	view := models.View{
		PostID:    postID,
		UserID:    userID,
		VisitorID: visitorID,
		IP:        clientIP(c),
		Browser:   extractBrowser(c.Request.UserAgent()),
		Language:  extractLanguage(c),
		CreatedAt: time.Now(),
	}

	if err := m.db.Create(&view).Error; err != nil {
		log.Printf("error saving view: %v", err)
	}
}

func (m *Module) getOrCreateVisitorID(c *gin.Context) string {
	if cookie, err := c.Cookie(visitorCookie); err == nil && cookie != "" {
		return cookie
	}

	visitorID := uuid.NewString()
	c.SetCookie(
		visitorCookie,
		visitorID,
		60*60*24*365*2, // 2 years
		"/",
		"",
		false,
		true,
	)
	return visitorID
}

// clientIP resolves the real client IP behind common proxy headers.
func clientIP(c *gin.Context) string {
	if ip := c.GetHeader("X-Forwarded-For"); ip != "" {
		parts := strings.Split(ip, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if ip := c.GetHeader("X-Real-IP"); ip != "" {
		return ip
	}
	return c.ClientIP()
}

func extractBrowser(userAgent string) *string {
	if userAgent == "" {
		return nil
	}

	ua := strings.ToLower(userAgent)
	var browser string

	// Order matters, the more specific tokens come first.
	switch {
	case strings.Contains(ua, "edg"):
		browser = "Edge"
	case strings.Contains(ua, "chrome"):
		browser = "Chrome"
	case strings.Contains(ua, "safari"):
		browser = "Safari"
	case strings.Contains(ua, "firefox"):
		browser = "Firefox"
	case strings.Contains(ua, "opera") || strings.Contains(ua, "opr"):
		browser = "Opera"
	default:
		browser = "Other"
	}

	return &browser
}

func extractLanguage(c *gin.Context) *string {
	acceptLang := c.GetHeader("Accept-Language")
	if acceptLang == "" {
		return nil
	}

	// "en-US,en;q=0.9,pt-BR;q=0.8" -> "en-US"
	parts := strings.Split(acceptLang, ",")
	lang := strings.TrimSpace(parts[0])
	lang = strings.Split(lang, ";")[0]
	return &lang
}

// DayViews is the number of views on one day.
type DayViews struct {
	Date  string
	Count int64
}

// PostViews is the view count of one post.
type PostViews struct {
	PostID    uint
	PostTitle string
	Count     int64
}

// GetPostViewCount returns the total view count of a post.
func (m *Module) GetPostViewCount(postID uint) int64 {
	var count int64
	m.db.Model(&models.View{}).Where("post_id = ?", postID).Count(&count)
	return count
}

// GetViewsByDay returns the per-day view counts of an author's posts over
// the last N days, zero-filled for days without views.
func (m *Module) GetViewsByDay(authorID uint, days int) []DayViews {
	startDate := time.Now().AddDate(0, 0, -days)

	var results []struct {
		Date  string
		Count int64
	}

	m.db.Model(&models.View{}).
		Select("DATE(views.created_at) as date, COUNT(*) as count").
		Joins("INNER JOIN posts ON posts.id = views.post_id").
		Where("posts.author_id = ? AND views.created_at >= ?", authorID, startDate).
		Group("DATE(views.created_at)").
		Order("date ASC").
		Scan(&results)

	dayViews := make([]DayViews, days)
	for i := 0; i < days; i++ {
		date := time.Now().AddDate(0, 0, -(days - 1 - i))
		dayViews[i] = DayViews{Date: date.Format("2006-01-02"), Count: 0}
	}

	for _, result := range results {
		for i := range dayViews {
			if dayViews[i].Date == result.Date {
				dayViews[i].Count = result.Count
				break
			}
		}
	}

	return dayViews
}

// GetTopPosts returns the author's N most viewed posts over the last X days.
func (m *Module) GetTopPosts(authorID uint, days, limit int) []PostViews {
	startDate := time.Now().AddDate(0, 0, -days)

	var results []PostViews
	m.db.Model(&models.View{}).
		Select("views.post_id as post_id, posts.title as post_title, COUNT(*) as count").
		Joins("INNER JOIN posts ON posts.id = views.post_id").
		Where("posts.author_id = ? AND views.created_at >= ?", authorID, startDate).
		Group("views.post_id").
		Order("count DESC").
		Limit(limit).
		Scan(&results)

	return results
}
