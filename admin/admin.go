package admin

import (
	"crypto/rand"
	"encoding/base64"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"inkwell/cache"
	emailpkg "inkwell/email"
	"inkwell/models"
	viewspkg "inkwell/views"
)

type AdminModule struct {
	db    *gorm.DB
	views *viewspkg.Module
}

func NewAdminModule(db *gorm.DB, viewsModule *viewspkg.Module) *AdminModule {
	return &AdminModule{
		db:    db,
		views: viewsModule,
	}
}

func (a *AdminModule) RegisterRoutes(router *gin.Engine) {
	router.GET("/login", a.loginPage)
	router.POST("/login", a.loginPost)
	router.GET("/register", a.registerPage)
	router.POST("/register", a.registerPost)
	router.GET("/confirm/:token", a.confirmEmail)
	router.GET("/logout", a.logout)

	adminGroup := router.Group("/admin")
	adminGroup.Use(a.RequireAuth)
	{
		adminGroup.GET("/", a.dashboard)
		adminGroup.GET("/posts", a.listPosts)
		adminGroup.GET("/post/new", a.newPost)
		adminGroup.POST("/post/save", a.savePost)
		adminGroup.GET("/post/:id", a.editPost)
		adminGroup.POST("/post/:id", a.updatePost)
		adminGroup.POST("/post/:id/autosave", a.autoSavePost)
		adminGroup.DELETE("/post/:id", a.deletePost)
		adminGroup.GET("/stats", a.statsPage)
	}
}

// RequireAuth redirects anonymous requests to the login page and exposes
// the resolved user id on the context. Exported so sibling modules (the
// writing assistant) can share the same gate.
func (a *AdminModule) RequireAuth(c *gin.Context) {
	session := sessions.Default(c)
	userID := session.Get("user_id")

	if userID == nil {
		c.Redirect(http.StatusFound, "/login")
		c.Abort()
		return
	}

	c.Set("user_id", userID)
	c.Next()
}

func currentUserID(c *gin.Context) uint {
	raw, _ := c.Get("user_id")
	uid, _ := raw.(uint)
	return uid
}

func (a *AdminModule) loginPage(c *gin.Context) {
	session := sessions.Default(c)
	if session.Get("user_id") != nil {
		c.Redirect(http.StatusFound, "/admin/")
		return
	}

	c.HTML(http.StatusOK, "admin_login.html", gin.H{})
}

func (a *AdminModule) loginPost(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")

	var user models.User
	if err := a.db.Where("email = ?", email).First(&user).Error; err != nil {
		c.HTML(http.StatusUnauthorized, "admin_login.html", gin.H{
			"error": "Wrong email or password",
			"email": email,
		})
		return
	}

	if !checkPasswordHash(password, user.PasswordHash) {
		c.HTML(http.StatusUnauthorized, "admin_login.html", gin.H{
			"error": "Wrong email or password",
			"email": email,
		})
		return
	}

	if !user.EmailVerified {
		c.HTML(http.StatusUnauthorized, "admin_login.html", gin.H{
			"error": "Email not verified yet. Please check your inbox and confirm your address.",
			"email": email,
		})
		return
	}

	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	session.Save()

	c.Redirect(http.StatusFound, "/admin/")
}

func (a *AdminModule) registerPage(c *gin.Context) {
	session := sessions.Default(c)
	if session.Get("user_id") != nil {
		c.Redirect(http.StatusFound, "/admin/")
		return
	}

	c.HTML(http.StatusOK, "admin_register.html", gin.H{})
}

func (a *AdminModule) registerPost(c *gin.Context) {
	name := c.PostForm("name")
	email := c.PostForm("email")
	password := c.PostForm("password")

	// Echoed back on error, never including the password.
	formData := gin.H{
		"name":  name,
		"email": email,
	}

	var existingUser models.User
	if err := a.db.Where("email = ?", email).First(&existingUser).Error; err == nil {
		formData["error"] = "This email is already registered"
		c.HTML(http.StatusBadRequest, "admin_register.html", formData)
		return
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		formData["error"] = "Could not create the account"
		c.HTML(http.StatusInternalServerError, "admin_register.html", formData)
		return
	}

	verificationToken, err := generateToken()
	if err != nil {
		formData["error"] = "Could not generate the verification token"
		c.HTML(http.StatusInternalServerError, "admin_register.html", formData)
		return
	}

	user := models.User{
		Name:                   name,
		Email:                  email,
		PasswordHash:           passwordHash,
		Role:                   models.RoleUser,
		EmailVerified:          false,
		EmailVerificationToken: verificationToken,
	}

	if err := a.db.Create(&user).Error; err != nil {
		formData["error"] = "Could not create the account"
		c.HTML(http.StatusInternalServerError, "admin_register.html", formData)
		return
	}

	emailService := emailpkg.NewEmailService()
	emailErr := emailService.SendVerificationEmail(user.Email, verificationToken)

	// Always land on the success page, but surface delivery problems.
	if emailErr != nil {
		log.Printf("error sending verification email to %s: %v", user.Email, emailErr)
		c.HTML(http.StatusOK, "admin_register_success.html", gin.H{
			"email":      user.Email,
			"emailError": "Could not send the email: " + emailErr.Error() + ". Please contact support.",
		})
		return
	}

	c.HTML(http.StatusOK, "admin_register_success.html", gin.H{
		"email": user.Email,
	})
}

func (a *AdminModule) confirmEmail(c *gin.Context) {
	token := c.Param("token")

	var user models.User
	if err := a.db.Where("email_verification_token = ?", token).First(&user).Error; err != nil {
		c.HTML(http.StatusNotFound, "admin_confirm_email.html", gin.H{
			"success": false,
			"message": "Invalid or expired token",
		})
		return
	}

	if user.EmailVerified {
		c.HTML(http.StatusOK, "admin_confirm_email.html", gin.H{
			"success": true,
			"message": "Email already confirmed",
		})
		return
	}

	user.EmailVerified = true
	user.EmailVerificationToken = ""

	if err := a.db.Save(&user).Error; err != nil {
		c.HTML(http.StatusInternalServerError, "admin_confirm_email.html", gin.H{
			"success": false,
			"message": "Could not confirm the email",
		})
		return
	}

	c.HTML(http.StatusOK, "admin_confirm_email.html", gin.H{
		"success": true,
		"message": "Email confirmed. You can log in now.",
	})
}

func (a *AdminModule) logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()

	c.Redirect(http.StatusFound, "/login")
}

func (a *AdminModule) dashboard(c *gin.Context) {
	userID := currentUserID(c)

	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		c.HTML(http.StatusInternalServerError, "admin_error.html", gin.H{
			"error": "Could not load your account",
		})
		return
	}

	var postCount, publishedCount int64
	a.db.Model(&models.Post{}).Where("author_id = ?", userID).Count(&postCount)
	a.db.Model(&models.Post{}).Where("author_id = ? AND status = ?", userID, models.StatusPublished).Count(&publishedCount)

	c.HTML(http.StatusOK, "admin_dashboard.html", gin.H{
		"user":           user,
		"postCount":      postCount,
		"publishedCount": publishedCount,
	})
}

func (a *AdminModule) listPosts(c *gin.Context) {
	userID := currentUserID(c)

	var posts []models.Post
	err := a.db.Preload("Category").
		Where("author_id = ?", userID).
		Order("created_at DESC").
		Find(&posts).Error
	if err != nil {
		c.HTML(http.StatusInternalServerError, "admin_error.html", gin.H{
			"error": "Could not load posts",
		})
		return
	}

	c.HTML(http.StatusOK, "admin_list_posts.html", gin.H{
		"posts": posts,
	})
}

func (a *AdminModule) newPost(c *gin.Context) {
	c.HTML(http.StatusOK, "admin_new_post.html", gin.H{
		"categories": a.allCategories(),
	})
}

func (a *AdminModule) savePost(c *gin.Context) {
	userID := currentUserID(c)

	title := c.PostForm("title")
	content := c.PostForm("content")
	tags := c.PostForm("tags")
	action := c.PostForm("action")

	status := models.StatusPublished
	if action == "save_draft" {
		status = models.StatusDraft
	}

	post := models.Post{
		AuthorID:        userID,
		Title:           title,
		Slug:            generateSlug(title),
		Content:         content,
		Status:          status,
		CategoryID:      parseCategoryID(c.PostForm("category_id")),
		ImageURL:        c.PostForm("image_url"),
		ImageAlt:        c.PostForm("image_alt"),
		Photographer:    c.PostForm("photographer"),
		PhotographerURL: c.PostForm("photographer_url"),
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	if err := a.db.Create(&post).Error; err != nil {
		c.HTML(http.StatusInternalServerError, "admin_error.html", gin.H{
			"error": "Could not create the post",
		})
		return
	}

	if tags != "" {
		if err := a.assignTags(&post, tags); err != nil {
			c.HTML(http.StatusInternalServerError, "admin_error.html", gin.H{
				"error": "Could not process tags: " + err.Error(),
			})
			return
		}
	}

	c.Redirect(http.StatusFound, "/admin/posts")
}

func (a *AdminModule) editPost(c *gin.Context) {
	userID := currentUserID(c)
	postID := c.Param("id")

	var post models.Post
	err := a.db.Preload("Tags").
		Where("id = ? AND author_id = ?", postID, userID).
		First(&post).Error
	if err != nil {
		c.HTML(http.StatusNotFound, "admin_error.html", gin.H{
			"error": "Post not found",
		})
		return
	}

	viewCount := a.views.GetPostViewCount(post.ID)

	var selectedCategory uint
	if post.CategoryID != nil {
		selectedCategory = *post.CategoryID
	}

	c.HTML(http.StatusOK, "admin_edit_post.html", gin.H{
		"post":             post,
		"tags":             tagLine(post.Tags),
		"categories":       a.allCategories(),
		"selectedCategory": selectedCategory,
		"viewCount":        viewCount,
	})
}

func (a *AdminModule) updatePost(c *gin.Context) {
	userID := currentUserID(c)
	postID := c.Param("id")

	var post models.Post
	if err := a.db.Where("id = ? AND author_id = ?", postID, userID).First(&post).Error; err != nil {
		c.HTML(http.StatusNotFound, "admin_error.html", gin.H{
			"error": "Post not found",
		})
		return
	}

	oldSlug := post.Slug

	post.Title = c.PostForm("title")
	post.Content = c.PostForm("content")
	post.CategoryID = parseCategoryID(c.PostForm("category_id"))
	post.ImageURL = c.PostForm("image_url")
	post.ImageAlt = c.PostForm("image_alt")
	post.Photographer = c.PostForm("photographer")
	post.PhotographerURL = c.PostForm("photographer_url")
	post.UpdatedAt = time.Now()

	switch c.PostForm("action") {
	case "publish":
		post.Status = models.StatusPublished
	case "unpublish":
		post.Status = models.StatusDraft
	case "save", "update":
	}

	if err := a.db.Save(&post).Error; err != nil {
		c.HTML(http.StatusInternalServerError, "admin_error.html", gin.H{
			"error": "Could not update the post",
		})
		return
	}

	if tags := c.PostForm("tags"); tags != "" {
		if err := a.assignTags(&post, tags); err != nil {
			c.HTML(http.StatusInternalServerError, "admin_error.html", gin.H{
				"error": "Could not process tags: " + err.Error(),
			})
			return
		}
	}

	cache.ClearCache(oldSlug)

	c.Redirect(http.StatusFound, "/admin/posts")
}

// autoSavePost saves draft content in the background while editing.
func (a *AdminModule) autoSavePost(c *gin.Context) {
	userID := currentUserID(c)
	postID := c.Param("id")

	var post models.Post
	if err := a.db.Where("id = ? AND author_id = ?", postID, userID).First(&post).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	if post.Status != models.StatusDraft {
		c.JSON(http.StatusForbidden, gin.H{"error": "Auto-save is only allowed on drafts"})
		return
	}

	var request struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	updates := map[string]interface{}{
		"content":    request.Content,
		"updated_at": time.Now(),
	}

	if request.Title != "" {
		updates["title"] = request.Title
		updates["slug"] = generateSlug(request.Title)
	}

	if err := a.db.Model(&post).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Auto-save failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"saved_at": time.Now().Format("15:04:05"),
	})
}

func (a *AdminModule) deletePost(c *gin.Context) {
	userID := currentUserID(c)

	postID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return
	}

	var post models.Post
	if err := a.db.Where("id = ? AND author_id = ?", postID, userID).First(&post).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	if err := a.db.Select("Tags").Delete(&post).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not delete the post"})
		return
	}

	cache.ClearCache(post.Slug)

	c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
}

func (a *AdminModule) allCategories() []models.Category {
	var categories []models.Category
	a.db.Order("name ASC").Find(&categories)
	return categories
}

// assignTags replaces the post's tags from a comma-separated line, creating
// tags that do not exist yet.
func (a *AdminModule) assignTags(post *models.Post, tagsLine string) error {
	names := strings.Split(tagsLine, ",")

	var tags []models.Tag
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}

		var tag models.Tag
		err := a.db.Where("name = ?", name).First(&tag).Error
		if err == gorm.ErrRecordNotFound {
			tag = models.Tag{Name: name}
			if err := a.db.Create(&tag).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		tags = append(tags, tag)
	}

	return a.db.Model(post).Association("Tags").Replace(tags)
}

func tagLine(tags []models.Tag) string {
	names := make([]string, len(tags))
	for i, tag := range tags {
		names[i] = tag.Name
	}
	return strings.Join(names, ", ")
}

func parseCategoryID(raw string) *uint {
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil
	}
	categoryID := uint(id)
	return &categoryID
}

func generateSlug(title string) string {
	accentMap := map[rune]rune{
		'á': 'a', 'à': 'a', 'ã': 'a', 'â': 'a', 'ä': 'a', 'å': 'a', 'ā': 'a',
		'é': 'e', 'è': 'e', 'ê': 'e', 'ë': 'e', 'ē': 'e',
		'í': 'i', 'ì': 'i', 'î': 'i', 'ï': 'i', 'ī': 'i',
		'ó': 'o', 'ò': 'o', 'õ': 'o', 'ô': 'o', 'ö': 'o', 'ø': 'o', 'ō': 'o',
		'ú': 'u', 'ù': 'u', 'û': 'u', 'ü': 'u', 'ū': 'u',
		'ç': 'c', 'ć': 'c', 'č': 'c',
		'ñ': 'n', 'ń': 'n',
		'ý': 'y', 'ÿ': 'y',
		'ß': 's',
		'Á': 'a', 'À': 'a', 'Ã': 'a', 'Â': 'a', 'Ä': 'a', 'Å': 'a', 'Ā': 'a',
		'É': 'e', 'È': 'e', 'Ê': 'e', 'Ë': 'e', 'Ē': 'e',
		'Í': 'i', 'Ì': 'i', 'Î': 'i', 'Ï': 'i', 'Ī': 'i',
		'Ó': 'o', 'Ò': 'o', 'Õ': 'o', 'Ô': 'o', 'Ö': 'o', 'Ø': 'o', 'Ō': 'o',
		'Ú': 'u', 'Ù': 'u', 'Û': 'u', 'Ü': 'u', 'Ū': 'u',
		'Ç': 'c', 'Ć': 'c', 'Č': 'c',
		'Ñ': 'n', 'Ń': 'n',
		'Ý': 'y', 'Ÿ': 'y',
	}

	slug := strings.ToLower(title)
	slug = strings.Map(func(r rune) rune {
		if replacement, exists := accentMap[r]; exists {
			return replacement
		}
		return r
	}, slug)

	slug = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		if r == ' ' {
			return '-'
		}
		return -1
	}, slug)

	slug = strings.Trim(slug, "-")
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}

	return slug
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	return string(bytes), err
}

func checkPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// Chart rows for the stats page, counts normalized against the busiest
// day/post so the template can draw bars.
type DayViewChart struct {
	Date       string
	Count      int64
	Percentage float64
}

type PostViewChart struct {
	PostID     uint
	PostTitle  string
	Count      int64
	Percentage float64
}

func (a *AdminModule) statsPage(c *gin.Context) {
	userID := currentUserID(c)

	viewsByDay := a.views.GetViewsByDay(userID, 15)
	topPosts := a.views.GetTopPosts(userID, 30, 10)

	maxViewsPerDay := int64(1)
	for _, day := range viewsByDay {
		if day.Count > maxViewsPerDay {
			maxViewsPerDay = day.Count
		}
	}

	maxViewsPerPost := int64(1)
	for _, post := range topPosts {
		if post.Count > maxViewsPerPost {
			maxViewsPerPost = post.Count
		}
	}

	dayCharts := make([]DayViewChart, len(viewsByDay))
	for i, day := range viewsByDay {
		dayCharts[i] = DayViewChart{
			Date:       day.Date,
			Count:      day.Count,
			Percentage: float64(day.Count) / float64(maxViewsPerDay) * 100,
		}
	}

	postCharts := make([]PostViewChart, len(topPosts))
	for i, post := range topPosts {
		postCharts[i] = PostViewChart{
			PostID:     post.PostID,
			PostTitle:  post.PostTitle,
			Count:      post.Count,
			Percentage: float64(post.Count) / float64(maxViewsPerPost) * 100,
		}
	}

	c.HTML(http.StatusOK, "admin_stats.html", gin.H{
		"viewsByDay": dayCharts,
		"topPosts":   postCharts,
	})
}
