package models

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"

	StatusDraft     = "draft"
	StatusPublished = "published"
)

type User struct {
	ID                     uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name                   string `gorm:"not null" json:"name"`
	Email                  string `gorm:"unique;not null" json:"email"`
	PasswordHash           string `gorm:"not null" json:"-"`
	Image                  string `json:"image"`
	Role                   string `gorm:"not null;default:'user'" json:"role"`
	EmailVerified          bool   `gorm:"default:false" json:"email_verified"`
	EmailVerificationToken string `json:"-"`
}

type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AuthorID  uint      `gorm:"not null;index" json:"author_id"`
	Author    User      `json:"author"`
	Title     string    `gorm:"not null" json:"title"`
	Slug      string    `gorm:"not null;index" json:"slug"`
	Content   string    `gorm:"type:text" json:"content"`
	Status    string    `gorm:"not null;default:'draft';index" json:"status"`
	CategoryID *uint    `gorm:"index" json:"category_id,omitempty"`
	Category  *Category `json:"category,omitempty"`
	Tags      []Tag     `gorm:"many2many:post_tags" json:"tags"`

	// Featured image picked through the photo search helper.
	ImageURL        string `json:"image_url"`
	ImageAlt        string `json:"image_alt"`
	Photographer    string `json:"photographer"`
	PhotographerURL string `json:"photographer_url"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Category struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"unique;not null" json:"name"`
}

type Tag struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"unique;not null" json:"name"`
}

// Like is unique per (user, post); the index is the authoritative guard
// against a double-like race, the application pre-check is not.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_likes_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_likes_user_post;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	UserID    *uint     `gorm:"index" json:"user_id,omitempty"`
	GuestName string    `json:"guest_name"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// View rows are append-mostly; PostID is nil for home page visits.
type View struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	PostID    *uint     `gorm:"index"`
	UserID    *uint     `gorm:"index"`
	VisitorID string    `gorm:"not null;index"`
	IP        string    `gorm:"not null"`
	Browser   *string
	Language  *string
	CreatedAt time.Time `gorm:"index"`
}
