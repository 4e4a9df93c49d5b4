package feed

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"inkwell/models"
)

var (
	// ErrAggregationFailed wraps any store error hit while assembling the
	// home feed. The caller gets no partial payload.
	ErrAggregationFailed = errors.New("feed aggregation failed")

	// ErrToggleFailed wraps like-toggle failures other than the benign
	// duplicate-insert race.
	ErrToggleFailed = errors.New("like toggle failed")

	ErrPostNotFound = errors.New("post not found")
)

const rankingLimit = 10

// Service computes the home feed rollups and the like toggle. It holds no
// state beyond the injected store handle; every call is an independent read
// (or a single small write for ToggleLike).
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Post is a published post enriched with everything the home page needs.
type Post struct {
	ID              uint     `json:"id"`
	Title           string   `json:"title"`
	Slug            string   `json:"slug"`
	Content         string   `json:"content"`
	AuthorName      string   `json:"author_name"`
	AuthorEmail     string   `json:"author_email"`
	CategoryName    string   `json:"category_name,omitempty"`
	TagNames        []string `json:"tags"`
	ImageURL        string   `json:"image_url,omitempty"`
	ImageAlt        string   `json:"image_alt,omitempty"`
	Photographer    string   `json:"photographer,omitempty"`
	PhotographerURL string   `json:"photographer_url,omitempty"`
	CreatedISO      string   `json:"created_iso"`
	CreatedDisplay  string   `json:"created_display"`
	LikeCount       int64    `json:"like_count"`
	ViewerLiked     bool     `json:"viewer_liked"`
}

type CategoryCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

type TagCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

type AuthorRank struct {
	ID             uint   `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Image          string `json:"image"`
	PublishedCount int64  `json:"published_count"`
}

// HomeFeed is the four-collection payload returned by one aggregation pass.
type HomeFeed struct {
	Posts      []Post          `json:"posts"`
	Categories []CategoryCount `json:"categories"`
	Tags       []TagCount      `json:"tags"`
	Authors    []AuthorRank    `json:"authors"`
}

// LikeResult is the outcome of a like toggle. The count is recomputed by
// counting, never tracked incrementally, so it cannot drift.
type LikeResult struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"like_count"`
}

// HomeFeed assembles the enriched published-post list plus the category,
// tag and author rankings. viewerID may be nil for anonymous viewers, in
// which case ViewerLiked is false on every post. Each request is consistent
// as of its own read time; there is no snapshot across the four rollups.
func (s *Service) HomeFeed(viewerID *uint) (*HomeFeed, error) {
	posts, err := s.enrichedPosts(viewerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAggregationFailed, err)
	}

	categories, err := s.categoryCounts()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAggregationFailed, err)
	}

	tags, err := s.tagCounts()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAggregationFailed, err)
	}

	authors, err := s.authorRanking()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAggregationFailed, err)
	}

	return &HomeFeed{
		Posts:      posts,
		Categories: categories,
		Tags:       tags,
		Authors:    authors,
	}, nil
}

func (s *Service) enrichedPosts(viewerID *uint) ([]Post, error) {
	var records []models.Post
	err := s.db.
		Preload("Author").
		Preload("Category").
		Preload("Tags").
		Where("status = ?", models.StatusPublished).
		Order("created_at DESC").
		Order("id DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	postIDs := make([]uint, len(records))
	for i, p := range records {
		postIDs[i] = p.ID
	}

	likeCounts, err := s.likeCounts(postIDs)
	if err != nil {
		return nil, err
	}

	viewerLikes, err := s.viewerLikes(viewerID, postIDs)
	if err != nil {
		return nil, err
	}

	posts := make([]Post, len(records))
	for i, p := range records {
		posts[i] = enrich(p, likeCounts[p.ID], viewerLikes[p.ID])
	}
	return posts, nil
}

// likeCounts computes like counts for the given post-id set in one grouped
// query. Posts absent from the result simply have zero likes.
func (s *Service) likeCounts(postIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(postIDs))
	if len(postIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		PostID uint
		Count  int64
	}
	err := s.db.Model(&models.Like{}).
		Select("post_id, COUNT(*) as count").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.PostID] = row.Count
	}
	return counts, nil
}

// viewerLikes builds a membership set of the viewer's likes restricted to
// the given post-id set. Anonymous viewers get an empty set.
func (s *Service) viewerLikes(viewerID *uint, postIDs []uint) (map[uint]bool, error) {
	liked := make(map[uint]bool)
	if viewerID == nil || len(postIDs) == 0 {
		return liked, nil
	}

	var likedIDs []uint
	err := s.db.Model(&models.Like{}).
		Where("user_id = ? AND post_id IN ?", *viewerID, postIDs).
		Pluck("post_id", &likedIDs).Error
	if err != nil {
		return nil, err
	}

	for _, id := range likedIDs {
		liked[id] = true
	}
	return liked, nil
}

func enrich(p models.Post, likeCount int64, viewerLiked bool) Post {
	post := Post{
		ID:              p.ID,
		Title:           p.Title,
		Slug:            p.Slug,
		Content:         p.Content,
		AuthorName:      p.Author.Name,
		AuthorEmail:     p.Author.Email,
		ImageURL:        p.ImageURL,
		ImageAlt:        p.ImageAlt,
		Photographer:    p.Photographer,
		PhotographerURL: p.PhotographerURL,
		CreatedISO:      p.CreatedAt.UTC().Format(time.RFC3339),
		CreatedDisplay:  p.CreatedAt.Format("January 2, 2006"),
		LikeCount:       likeCount,
		ViewerLiked:     viewerLiked,
	}

	if p.Category != nil {
		post.CategoryName = p.Category.Name
	}

	post.TagNames = make([]string, len(p.Tags))
	for i, tag := range p.Tags {
		post.TagNames[i] = tag.Name
	}
	return post
}

// categoryCounts counts published posts per category. Categories with zero
// posts stay in the list, so the LEFT JOIN carries the status filter.
func (s *Service) categoryCounts() ([]CategoryCount, error) {
	var rows []CategoryCount
	err := s.db.Table("categories").
		Select("categories.name as name, COUNT(posts.id) as count").
		Joins("LEFT JOIN posts ON posts.category_id = categories.id AND posts.status = ?", models.StatusPublished).
		Group("categories.id").
		Order("count DESC").
		Order("categories.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []CategoryCount{}
	}
	return rows, nil
}

// tagCounts counts published posts per tag, drops zero-count tags and keeps
// the top 10. Ties break on name ascending for reproducible ordering.
func (s *Service) tagCounts() ([]TagCount, error) {
	var rows []TagCount
	err := s.db.Table("tags").
		Select("tags.name as name, COUNT(posts.id) as count").
		Joins("INNER JOIN post_tags ON post_tags.tag_id = tags.id").
		Joins("INNER JOIN posts ON posts.id = post_tags.post_id AND posts.status = ?", models.StatusPublished).
		Group("tags.id").
		Order("count DESC").
		Order("tags.name ASC").
		Limit(rankingLimit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []TagCount{}
	}
	return rows, nil
}

// authorRanking ranks authors by published-post count, top 10, excluding
// authors with nothing published.
func (s *Service) authorRanking() ([]AuthorRank, error) {
	var rows []AuthorRank
	err := s.db.Table("users").
		Select("users.id as id, users.name as name, users.email as email, users.image as image, COUNT(posts.id) as published_count").
		Joins("INNER JOIN posts ON posts.author_id = users.id AND posts.status = ?", models.StatusPublished).
		Group("users.id").
		Order("published_count DESC").
		Order("users.name ASC").
		Limit(rankingLimit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []AuthorRank{}
	}
	return rows, nil
}

// ToggleLike removes the (user, post) like if present, otherwise creates
// it. The delete-then-insert sequence is not transactional; the unique
// index backstops concurrent double-submission, and a duplicate-key failure
// on the insert means another request of the same user won the race, which
// is reported as "liked" rather than an error.
func (s *Service) ToggleLike(userID, postID uint) (*LikeResult, error) {
	var post models.Post
	if err := s.db.Select("id").First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrToggleFailed, err)
	}

	liked := false
	res := s.db.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.Like{})
	if res.Error != nil {
		return nil, fmt.Errorf("%w: %v", ErrToggleFailed, res.Error)
	}

	if res.RowsAffected == 0 {
		err := s.db.Create(&models.Like{UserID: userID, PostID: postID}).Error
		if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: %v", ErrToggleFailed, err)
		}
		liked = true
	}

	count, err := s.LikeCount(postID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrToggleFailed, err)
	}

	return &LikeResult{Liked: liked, LikeCount: count}, nil
}

// LikeCount recounts the likes of a single post.
func (s *Service) LikeCount(postID uint) (int64, error) {
	var count int64
	err := s.db.Model(&models.Like{}).Where("post_id = ?", postID).Count(&count).Error
	return count, err
}

// ViewerLiked reports whether the viewer has liked the post. Anonymous
// viewers never have.
func (s *Service) ViewerLiked(viewerID *uint, postID uint) (bool, error) {
	if viewerID == nil {
		return false, nil
	}
	var count int64
	err := s.db.Model(&models.Like{}).
		Where("user_id = ? AND post_id = ?", *viewerID, postID).
		Count(&count).Error
	return count > 0, err
}
