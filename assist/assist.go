package assist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// AssistModule proxies two writer-facing SaaS integrations: an
// OpenAI-style chat-completions endpoint for writing helpers and an
// Unsplash-style endpoint for featured-photo search. Base URLs come from
// the environment so tests can point them at a local server.
type AssistModule struct {
	client *http.Client

	llmBaseURL string
	llmAPIKey  string
	llmModel   string

	photoBaseURL string
	photoAPIKey  string
}

func NewAssistModule() *AssistModule {
	model := os.Getenv("LLM_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &AssistModule{
		client:       &http.Client{Timeout: 30 * time.Second},
		llmBaseURL:   strings.TrimSuffix(os.Getenv("LLM_BASE_URL"), "/"),
		llmAPIKey:    os.Getenv("LLM_API_KEY"),
		llmModel:     model,
		photoBaseURL: strings.TrimSuffix(os.Getenv("PHOTO_API_BASE_URL"), "/"),
		photoAPIKey:  os.Getenv("PHOTO_API_KEY"),
	}
}

// RegisterRoutes mounts the helper endpoints behind the caller-supplied
// auth middleware (the admin session gate).
func (a *AssistModule) RegisterRoutes(router *gin.Engine, requireAuth gin.HandlerFunc) {
	group := router.Group("/admin", requireAuth)
	{
		group.POST("/assist/title", a.suggestTitle)
		group.POST("/assist/improve", a.improveText)
		group.GET("/photos", a.searchPhotos)
	}
}

const titlePrompt = "Suggest a short, engaging blog post title for the following draft. Reply with the title only, no quotes."
const improvePrompt = "Improve the clarity and flow of the following blog paragraph. Keep the author's voice. Reply with the improved text only."

func (a *AssistModule) suggestTitle(c *gin.Context) {
	a.completionHandler(c, titlePrompt)
}

func (a *AssistModule) improveText(c *gin.Context) {
	a.completionHandler(c, improvePrompt)
}

func (a *AssistModule) completionHandler(c *gin.Context, instruction string) {
	if a.llmBaseURL == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Writing assistant is not configured"})
		return
	}

	var request struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	result, err := a.complete(instruction, request.Text)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Assistant request failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (a *AssistModule) complete(instruction, text string) (string, error) {
	payload := chatRequest{
		Model: a.llmModel,
		Messages: []chatMessage{
			{Role: "system", Content: instruction},
			{Role: "user", Content: text},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest("POST", a.llmBaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if a.llmAPIKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.llmAPIKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("assistant upstream returned %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("assistant upstream returned no choices")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// Photo is one featured-image candidate.
type Photo struct {
	URL             string `json:"url"`
	Alt             string `json:"alt"`
	Photographer    string `json:"photographer"`
	PhotographerURL string `json:"photographer_url"`
}

type photoSearchResponse struct {
	Results []struct {
		URLs struct {
			Regular string `json:"regular"`
		} `json:"urls"`
		AltDescription string `json:"alt_description"`
		User           struct {
			Name  string `json:"name"`
			Links struct {
				HTML string `json:"html"`
			} `json:"links"`
		} `json:"user"`
	} `json:"results"`
}

func (a *AssistModule) searchPhotos(c *gin.Context) {
	if a.photoBaseURL == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Photo search is not configured"})
		return
	}

	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing query"})
		return
	}

	photos, err := a.SearchPhotos(query)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Photo search failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"photos": photos})
}

// SearchPhotos queries the photo API and maps results to featured-image
// candidates with photographer credit.
func (a *AssistModule) SearchPhotos(query string) ([]Photo, error) {
	endpoint := fmt.Sprintf("%s/search/photos?query=%s&per_page=12", a.photoBaseURL, url.QueryEscape(query))

	req, err := http.NewRequest("GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	if a.photoAPIKey != "" {
		req.Header.Set("Authorization", "Client-ID "+a.photoAPIKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("photo upstream returned %d", resp.StatusCode)
	}

	var parsed photoSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	photos := make([]Photo, 0, len(parsed.Results))
	for _, result := range parsed.Results {
		photos = append(photos, Photo{
			URL:             result.URLs.Regular,
			Alt:             result.AltDescription,
			Photographer:    result.User.Name,
			PhotographerURL: result.User.Links.HTML,
		})
	}
	return photos, nil
}
