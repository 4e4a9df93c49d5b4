package admin

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"inkwell/models"
	viewspkg "inkwell/views"
)

func postForm(router http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestLoginPost_WrongPassword(t *testing.T) {
	db := setupTestDB()
	adminModule := NewAdminModule(db, viewspkg.NewModule(db))
	router := setupTestRouter(db, adminModule)

	passwordHash, _ := hashPassword("rightpassword")
	db.Create(&models.User{
		Name:          "Test",
		Email:         "login@example.com",
		PasswordHash:  passwordHash,
		EmailVerified: true,
	})

	form := url.Values{}
	form.Set("email", "login@example.com")
	form.Set("password", "wrongpassword")

	w := postForm(router, "/login", form)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Wrong email or password")
}

func TestLoginPost_UnknownEmail(t *testing.T) {
	db := setupTestDB()
	adminModule := NewAdminModule(db, viewspkg.NewModule(db))
	router := setupTestRouter(db, adminModule)

	form := url.Values{}
	form.Set("email", "nobody@example.com")
	form.Set("password", "whatever")

	w := postForm(router, "/login", form)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginPost_UnverifiedEmail(t *testing.T) {
	db := setupTestDB()
	adminModule := NewAdminModule(db, viewspkg.NewModule(db))
	router := setupTestRouter(db, adminModule)

	passwordHash, _ := hashPassword("password123")
	db.Create(&models.User{
		Name:          "Test",
		Email:         "unverified@example.com",
		PasswordHash:  passwordHash,
		EmailVerified: false,
	})

	form := url.Values{}
	form.Set("email", "unverified@example.com")
	form.Set("password", "password123")

	w := postForm(router, "/login", form)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "not verified")
}

func TestLoginPost_Success(t *testing.T) {
	db := setupTestDB()
	adminModule := NewAdminModule(db, viewspkg.NewModule(db))
	router := setupTestRouter(db, adminModule)

	passwordHash, _ := hashPassword("password123")
	db.Create(&models.User{
		Name:          "Test",
		Email:         "login@example.com",
		PasswordHash:  passwordHash,
		EmailVerified: true,
	})

	form := url.Values{}
	form.Set("email", "login@example.com")
	form.Set("password", "password123")

	w := postForm(router, "/login", form)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/", w.Header().Get("Location"))
	assert.NotEmpty(t, w.Header().Get("Set-Cookie"))
}

func TestRegisterPost_DuplicateEmail(t *testing.T) {
	db := setupTestDB()
	adminModule := NewAdminModule(db, viewspkg.NewModule(db))
	router := setupTestRouter(db, adminModule)

	createTestUser(db)

	form := url.Values{}
	form.Set("name", "Someone Else")
	form.Set("email", "test@example.com")
	form.Set("password", "password123")

	w := postForm(router, "/register", form)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "already registered")
}

func TestRegisterPost_CreatesUnverifiedUser(t *testing.T) {
	db := setupTestDB()
	adminModule := NewAdminModule(db, viewspkg.NewModule(db))
	router := setupTestRouter(db, adminModule)

	form := url.Values{}
	form.Set("name", "New User")
	form.Set("email", "new@example.com")
	form.Set("password", "password123")

	w := postForm(router, "/register", form)

	assert.Equal(t, http.StatusOK, w.Code)

	var user models.User
	err := db.Where("email = ?", "new@example.com").First(&user).Error
	assert.NoError(t, err)
	assert.False(t, user.EmailVerified)
	assert.NotEmpty(t, user.EmailVerificationToken)
	assert.True(t, checkPasswordHash("password123", user.PasswordHash))
}

func TestConfirmEmail_Success(t *testing.T) {
	db := setupTestDB()
	adminModule := NewAdminModule(db, viewspkg.NewModule(db))
	router := setupTestRouter(db, adminModule)

	token, _ := generateToken()
	db.Create(&models.User{
		Name:                   "Pending",
		Email:                  "pending@example.com",
		PasswordHash:           "hash",
		EmailVerified:          false,
		EmailVerificationToken: token,
	})

	req, _ := http.NewRequest("GET", "/confirm/"+token, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var user models.User
	db.Where("email = ?", "pending@example.com").First(&user)
	assert.True(t, user.EmailVerified)
	assert.Empty(t, user.EmailVerificationToken)
}

func TestConfirmEmail_InvalidToken(t *testing.T) {
	db := setupTestDB()
	adminModule := NewAdminModule(db, viewspkg.NewModule(db))
	router := setupTestRouter(db, adminModule)

	req, _ := http.NewRequest("GET", "/confirm/not-a-real-token", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLogout(t *testing.T) {
	db := setupTestDB()
	adminModule := NewAdminModule(db, viewspkg.NewModule(db))
	router := setupTestRouter(db, adminModule)

	user := createTestUser(db)
	sessionCookie := loginCookie(t, router, user.ID)

	req, _ := http.NewRequest("GET", "/logout", nil)
	req.Header.Set("Cookie", sessionCookie)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}
