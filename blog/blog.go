package blog

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
	"gorm.io/gorm"

	"inkwell/cache"
	"inkwell/feed"
	"inkwell/models"
	viewspkg "inkwell/views"
)

type BlogModule struct {
	db    *gorm.DB
	feed  *feed.Service
	views *viewspkg.Module
}

// markdown renderer configured with Goldmark and useful extensions
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,     // tables, strikethrough, task lists, autolinks (GFM set)
		extension.Linkify, // linkify raw URLs
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithUnsafe(), // allow raw HTML passthrough in Markdown
	),
)

func NewBlogModule(db *gorm.DB, feedService *feed.Service, viewsModule *viewspkg.Module) *BlogModule {
	return &BlogModule{db: db, feed: feedService, views: viewsModule}
}

func (b *BlogModule) RegisterRoutes(router *gin.Engine) {
	router.GET("/", b.home)
	router.GET("/p/:postSlug", b.post)
	router.POST("/p/:postSlug/comments", b.createComment)
	router.POST("/posts/:id/like", b.toggleLike)
	router.GET("/category/:name", b.byCategory)
	router.GET("/tag/:name", b.byTag)
	router.GET("/sitemap.xml", b.sitemap)
}

// viewerID resolves the logged-in user from the session, nil for anonymous
// visitors.
func viewerID(c *gin.Context) *uint {
	session := sessions.Default(c)
	raw := session.Get("user_id")
	if raw == nil {
		return nil
	}
	uid, ok := raw.(uint)
	if !ok {
		return nil
	}
	return &uid
}

func (b *BlogModule) home(c *gin.Context) {
	viewer := viewerID(c)

	payload, err := b.feed.HomeFeed(viewer)
	if err != nil {
		c.HTML(http.StatusInternalServerError, "blog_error.html", gin.H{
			"error": "Could not load the feed",
		})
		return
	}

	b.views.TrackView(c, nil, viewer)

	c.HTML(http.StatusOK, "home.html", gin.H{
		"posts":      payload.Posts,
		"categories": payload.Categories,
		"tags":       payload.Tags,
		"authors":    payload.Authors,
		"viewer":     viewer,
	})
}

func (b *BlogModule) post(c *gin.Context) {
	postSlug := c.Param("postSlug")
	viewer := viewerID(c)

	var post models.Post
	err := b.db.
		Preload("Author").
		Preload("Category").
		Preload("Tags").
		Where("slug = ? AND status = ?", postSlug, models.StatusPublished).
		First(&post).Error
	if err != nil {
		c.HTML(http.StatusNotFound, "blog_error.html", gin.H{
			"error": "Post not found",
		})
		return
	}

	likeCount, err := b.feed.LikeCount(post.ID)
	if err != nil {
		likeCount = 0
	}
	liked, _ := b.feed.ViewerLiked(viewer, post.ID)

	comments := b.commentsFor(post.ID)

	b.views.TrackView(c, &post.ID, viewer)

	c.HTML(http.StatusOK, "blog_post.html", gin.H{
		"post": gin.H{
			"ID":              post.ID,
			"Title":           post.Title,
			"Slug":            post.Slug,
			"Content":         template.HTML(renderMarkdown(post.Content)),
			"Author":          post.Author.Name,
			"Category":        categoryName(&post),
			"Tags":            post.Tags,
			"ImageURL":        post.ImageURL,
			"ImageAlt":        post.ImageAlt,
			"Photographer":    post.Photographer,
			"PhotographerURL": post.PhotographerURL,
			"CreatedAt":       post.CreatedAt,
		},
		"likeCount": likeCount,
		"liked":     liked,
		"viewer":    viewer,
		"comments":  comments,
	})
}

type commentView struct {
	Author    string
	Body      string
	CreatedAt time.Time
}

func (b *BlogModule) commentsFor(postID uint) []commentView {
	var comments []models.Comment
	if err := b.db.Where("post_id = ?", postID).Order("created_at ASC").Find(&comments).Error; err != nil {
		return nil
	}

	result := make([]commentView, 0, len(comments))
	for _, comment := range comments {
		author := comment.GuestName
		if comment.UserID != nil {
			var user models.User
			if err := b.db.First(&user, *comment.UserID).Error; err == nil {
				author = user.Name
			}
		}
		if author == "" {
			author = "Anonymous"
		}
		result = append(result, commentView{
			Author:    author,
			Body:      comment.Body,
			CreatedAt: comment.CreatedAt,
		})
	}
	return result
}

func (b *BlogModule) createComment(c *gin.Context) {
	postSlug := c.Param("postSlug")

	var post models.Post
	err := b.db.Where("slug = ? AND status = ?", postSlug, models.StatusPublished).First(&post).Error
	if err != nil {
		c.HTML(http.StatusNotFound, "blog_error.html", gin.H{"error": "Post not found"})
		return
	}

	body := strings.TrimSpace(c.PostForm("body"))
	if body == "" {
		c.Redirect(http.StatusFound, "/p/"+post.Slug)
		return
	}

	comment := models.Comment{
		PostID:    post.ID,
		Body:      body,
		GuestName: strings.TrimSpace(c.PostForm("name")),
		CreatedAt: time.Now(),
	}
	if viewer := viewerID(c); viewer != nil {
		comment.UserID = viewer
		comment.GuestName = ""
	}

	if err := b.db.Create(&comment).Error; err != nil {
		c.HTML(http.StatusInternalServerError, "blog_error.html", gin.H{"error": "Could not save comment"})
		return
	}

	// The cached page no longer matches.
	cache.ClearCache(post.Slug)

	c.Redirect(http.StatusFound, "/p/"+post.Slug)
}

func (b *BlogModule) toggleLike(c *gin.Context) {
	viewer := viewerID(c)
	if viewer == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Login required"})
		return
	}

	postID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post id"})
		return
	}

	result, err := b.feed.ToggleLike(*viewer, uint(postID))
	if err != nil {
		if errors.Is(err, feed.ErrPostNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not toggle like"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"liked":     result.Liked,
		"likeCount": result.LikeCount,
	})
}

func (b *BlogModule) byCategory(c *gin.Context) {
	name := c.Param("name")

	var category models.Category
	if err := b.db.Where("name = ?", name).First(&category).Error; err != nil {
		c.HTML(http.StatusNotFound, "blog_error.html", gin.H{"error": "Category not found"})
		return
	}

	var posts []models.Post
	err := b.db.Preload("Author").
		Where("category_id = ? AND status = ?", category.ID, models.StatusPublished).
		Order("created_at DESC").
		Order("id DESC").
		Find(&posts).Error
	if err != nil {
		c.HTML(http.StatusInternalServerError, "blog_error.html", gin.H{"error": "Could not load posts"})
		return
	}

	c.HTML(http.StatusOK, "blog_listing.html", gin.H{
		"heading": "Category: " + category.Name,
		"posts":   posts,
	})
}

func (b *BlogModule) byTag(c *gin.Context) {
	name := c.Param("name")

	var tag models.Tag
	if err := b.db.Where("name = ?", name).First(&tag).Error; err != nil {
		c.HTML(http.StatusNotFound, "blog_error.html", gin.H{"error": "Tag not found"})
		return
	}

	var posts []models.Post
	err := b.db.Preload("Author").
		Joins("INNER JOIN post_tags ON post_tags.post_id = posts.id").
		Where("post_tags.tag_id = ? AND posts.status = ?", tag.ID, models.StatusPublished).
		Order("posts.created_at DESC").
		Order("posts.id DESC").
		Find(&posts).Error
	if err != nil {
		c.HTML(http.StatusInternalServerError, "blog_error.html", gin.H{"error": "Could not load posts"})
		return
	}

	c.HTML(http.StatusOK, "blog_listing.html", gin.H{
		"heading": "Tag: " + tag.Name,
		"posts":   posts,
	})
}

func (b *BlogModule) sitemap(c *gin.Context) {
	domain := os.Getenv("DOMAIN")
	if domain == "" {
		domain = "http://localhost:8080"
	}
	domain = strings.TrimSuffix(domain, "/")

	var sitemap strings.Builder
	sitemap.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	sitemap.WriteString("\n")
	sitemap.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	sitemap.WriteString("\n")

	sitemap.WriteString("  <url>\n")
	sitemap.WriteString("    <loc>" + domain + "/</loc>\n")
	sitemap.WriteString("    <changefreq>daily</changefreq>\n")
	sitemap.WriteString("    <priority>1.0</priority>\n")
	sitemap.WriteString("  </url>\n")

	var posts []models.Post
	b.db.Where("status = ?", models.StatusPublished).Order("created_at DESC").Find(&posts)

	for _, post := range posts {
		sitemap.WriteString("  <url>\n")
		sitemap.WriteString("    <loc>" + domain + "/p/" + post.Slug + "</loc>\n")
		sitemap.WriteString("    <lastmod>" + post.UpdatedAt.Format(time.RFC3339) + "</lastmod>\n")
		sitemap.WriteString("    <changefreq>monthly</changefreq>\n")
		sitemap.WriteString("    <priority>0.7</priority>\n")
		sitemap.WriteString("  </url>\n")
	}

	var categories []models.Category
	b.db.Find(&categories)
	for _, category := range categories {
		sitemap.WriteString("  <url>\n")
		sitemap.WriteString("    <loc>" + domain + "/category/" + category.Name + "</loc>\n")
		sitemap.WriteString("    <changefreq>weekly</changefreq>\n")
		sitemap.WriteString("    <priority>0.5</priority>\n")
		sitemap.WriteString("  </url>\n")
	}

	var tags []models.Tag
	b.db.Find(&tags)
	for _, tag := range tags {
		sitemap.WriteString("  <url>\n")
		sitemap.WriteString("    <loc>" + domain + "/tag/" + tag.Name + "</loc>\n")
		sitemap.WriteString("    <changefreq>weekly</changefreq>\n")
		sitemap.WriteString("    <priority>0.4</priority>\n")
		sitemap.WriteString("  </url>\n")
	}

	sitemap.WriteString("</urlset>\n")

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.String(http.StatusOK, sitemap.String())
}

func categoryName(post *models.Post) string {
	if post.Category == nil {
		return ""
	}
	return post.Category.Name
}

func renderMarkdown(content string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		// Fall back to the raw content rather than breaking the page.
		return content
	}
	return buf.String()
}
