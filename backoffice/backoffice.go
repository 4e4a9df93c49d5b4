package backoffice

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"inkwell/cache"
	"inkwell/models"
)

type BackofficeModule struct {
	db *gorm.DB
}

func NewBackofficeModule(db *gorm.DB) *BackofficeModule {
	return &BackofficeModule{db: db}
}

func (b *BackofficeModule) RegisterRoutes(router *gin.Engine) {
	backofficeGroup := router.Group("/backoffice")
	backofficeGroup.Use(b.requireAdmin)
	{
		backofficeGroup.GET("/", b.index)
		backofficeGroup.POST("/users/:userID/toggle-role", b.toggleRole)
		backofficeGroup.POST("/users/:userID/verify", b.verifyUser)
		backofficeGroup.POST("/posts/:postID/unpublish", b.unpublishPost)
		backofficeGroup.DELETE("/posts/:postID", b.deletePost)
		backofficeGroup.POST("/categories", b.createCategory)
		backofficeGroup.POST("/clear-cache", b.clearCache)
	}
}

// requireAdmin gates the back-office on the admin role.
func (b *BackofficeModule) requireAdmin(c *gin.Context) {
	session := sessions.Default(c)
	userID := session.Get("user_id")

	if userID == nil {
		c.Redirect(http.StatusFound, "/login")
		c.Abort()
		return
	}

	var user models.User
	if err := b.db.First(&user, userID).Error; err != nil {
		c.Redirect(http.StatusFound, "/login")
		c.Abort()
		return
	}

	if user.Role != models.RoleAdmin {
		c.HTML(http.StatusForbidden, "backoffice_error.html", gin.H{
			"error": "Access denied",
		})
		c.Abort()
		return
	}

	c.Set("backoffice_user", user)
	c.Next()
}

func (b *BackofficeModule) index(c *gin.Context) {
	var users []models.User
	if err := b.db.Order("id ASC").Find(&users).Error; err != nil {
		c.HTML(http.StatusInternalServerError, "backoffice_error.html", gin.H{
			"error": "Could not load users",
		})
		return
	}

	type UserWithStats struct {
		User           models.User
		PostCount      int64
		PublishedCount int64
	}

	usersWithStats := make([]UserWithStats, len(users))
	for i, user := range users {
		var postCount, publishedCount int64
		b.db.Model(&models.Post{}).Where("author_id = ?", user.ID).Count(&postCount)
		b.db.Model(&models.Post{}).
			Where("author_id = ? AND status = ?", user.ID, models.StatusPublished).
			Count(&publishedCount)

		usersWithStats[i] = UserWithStats{
			User:           user,
			PostCount:      postCount,
			PublishedCount: publishedCount,
		}
	}

	var posts []models.Post
	b.db.Preload("Author").Order("created_at DESC").Limit(50).Find(&posts)

	var categories []models.Category
	b.db.Order("name ASC").Find(&categories)

	c.HTML(http.StatusOK, "backoffice_index.html", gin.H{
		"users":      usersWithStats,
		"posts":      posts,
		"categories": categories,
	})
}

func (b *BackofficeModule) toggleRole(c *gin.Context) {
	userID := c.Param("userID")

	var user models.User
	if err := b.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if user.Role == models.RoleAdmin {
		user.Role = models.RoleUser
	} else {
		user.Role = models.RoleAdmin
	}

	if err := b.db.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update the user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"role":    user.Role,
	})
}

func (b *BackofficeModule) verifyUser(c *gin.Context) {
	userID := c.Param("userID")

	var user models.User
	if err := b.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	user.EmailVerified = true
	user.EmailVerificationToken = ""

	if err := b.db.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not verify the user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"emailVerified": user.EmailVerified,
	})
}

func (b *BackofficeModule) unpublishPost(c *gin.Context) {
	postID := c.Param("postID")

	var post models.Post
	if err := b.db.First(&post, postID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	post.Status = models.StatusDraft
	if err := b.db.Save(&post).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not unpublish the post"})
		return
	}

	cache.ClearCache(post.Slug)

	c.JSON(http.StatusOK, gin.H{"success": true, "status": post.Status})
}

func (b *BackofficeModule) deletePost(c *gin.Context) {
	postID := c.Param("postID")

	var post models.Post
	if err := b.db.First(&post, postID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	if err := b.db.Select("Tags").Delete(&post).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not delete the post"})
		return
	}

	cache.ClearCache(post.Slug)

	c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
}

func (b *BackofficeModule) createCategory(c *gin.Context) {
	name := c.PostForm("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Category name is required"})
		return
	}

	category := models.Category{Name: name}
	if err := b.db.Create(&category).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Could not create the category"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"id":      category.ID,
		"name":    category.Name,
	})
}

func (b *BackofficeModule) clearCache(c *gin.Context) {
	if err := cache.ClearAllCache(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not clear the cache: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Cache cleared",
	})
}
