package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alumnihub/apiserver/internal/auth"
	"github.com/alumnihub/apiserver/internal/oauth"
	"github.com/alumnihub/apiserver/internal/services"
	"github.com/alumnihub/apiserver/internal/store"
	"github.com/alumnihub/apiserver/types"
	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
)

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int]types.User{}}
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return types.User{}, store.ErrDuplicateEmail
		}
	}
	f.nextID++
	user.ID = f.nextID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, email, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for id, user := range f.users {
		if user.Email == email {
			user.PasswordHash = passwordHash
			f.users[id] = user
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeUserRepo) UpdateRole(_ context.Context, id int, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.Role = role
	f.users[id] = user
	return nil
}

func (f *fakeUserRepo) List(_ context.Context, offset, limit int) ([]types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var users []types.User
	for id := 1; id <= f.nextID; id++ {
		if user, ok := f.users[id]; ok {
			users = append(users, user)
		}
	}
	if offset >= len(users) {
		return nil, nil
	}
	end := offset + limit
	if end > len(users) {
		end = len(users)
	}
	return users[offset:end], nil
}

func (f *fakeUserRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users)
}

type fakeOtpRepo struct {
	mu   sync.Mutex
	otps map[string]types.Otp
}

func newFakeOtpRepo() *fakeOtpRepo {
	return &fakeOtpRepo{otps: map[string]types.Otp{}}
}

func (f *fakeOtpRepo) Upsert(_ context.Context, email, code string) (types.Otp, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	otp := types.Otp{
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Code:      code,
		CreatedAt: time.Now(),
	}
	f.otps[otp.Email] = otp
	return otp, nil
}

func (f *fakeOtpRepo) Get(_ context.Context, email string) (types.Otp, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	otp, ok := f.otps[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return types.Otp{}, store.ErrNotFound
	}
	return otp, nil
}

func (f *fakeOtpRepo) DeleteByEmail(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.otps, strings.ToLower(strings.TrimSpace(email)))
	return nil
}

func (f *fakeOtpRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.otps)
}

func (f *fakeOtpRepo) backdate(email string, age time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	otp := f.otps[email]
	otp.CreatedAt = otp.CreatedAt.Add(-age)
	f.otps[email] = otp
}

type fakeNotifier struct {
	mu    sync.Mutex
	codes map[string]string
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{codes: map[string]string{}}
}

func (n *fakeNotifier) SendPasswordResetCode(_ context.Context, email, code string, _ time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.codes[email] = code
	return nil
}

func (n *fakeNotifier) codeFor(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.codes[email]
}

type fakeProvider struct {
	claims oauth.Claims
	err    error
}

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://provider.example/authorize?state=" + state
}

func (p *fakeProvider) Authenticate(_ context.Context, code string) (oauth.Claims, error) {
	if p.err != nil {
		return oauth.Claims{}, p.err
	}
	if code == "" {
		return oauth.Claims{}, errors.New("missing code")
	}
	return p.claims, nil
}

type testEnv struct {
	router   *chi.Mux
	users    *fakeUserRepo
	otps     *fakeOtpRepo
	notifier *fakeNotifier
	provider *fakeProvider
	codec    *auth.TokenCodec
	service  *services.UserService
}

const testFrontendURL = "http://frontend.example"

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users := newFakeUserRepo()
	otps := newFakeOtpRepo()
	notifier := newFakeNotifier()
	provider := &fakeProvider{}
	codec := auth.NewTokenCodec("test-secret")
	cookies := NewCookiePolicy(false)

	userService := services.NewUserService(users)
	resetService := services.NewPasswordResetService(users, otps, notifier)
	sessionMiddleware := RequireSession(codec)

	router := chi.NewRouter()
	router.Route("/auth", func(r chi.Router) {
		AuthRouter(r, userService, codec, cookies)
		r.Route("/password-reset", func(r chi.Router) {
			PasswordResetRouter(r, resetService)
		})
		OAuthRouter(r, provider, userService, codec, cookies, testFrontendURL, nil)
	})
	router.Route("/users", func(r chi.Router) {
		UserRouter(r, userService, sessionMiddleware)
	})
	router.Route("/admin", func(r chi.Router) {
		AdminRouter(r, userService, sessionMiddleware)
	})

	return &testEnv{
		router:   router,
		users:    users,
		otps:     otps,
		notifier: notifier,
		provider: provider,
		codec:    codec,
		service:  userService,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// seedUser creates an account directly in the fake store.
func (e *testEnv) seedUser(t *testing.T, name, email, password, role string) types.User {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	gender := "female"
	user := types.User{
		Name:         name,
		Email:        email,
		Role:         role,
		PasswordHash: string(hashed),
		Gender:       &gender,
	}
	created, err := e.users.Create(context.Background(), user)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return created
}

func (e *testEnv) sessionCookieFor(t *testing.T, user types.User) *http.Cookie {
	t.Helper()

	token, err := e.codec.IssueSession(user.ID, user.Email)
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	return &http.Cookie{Name: sessionCookieName, Value: token}
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var value T
	if err := json.NewDecoder(rec.Body).Decode(&value); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return value
}

func sessionCookieFrom(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == sessionCookieName {
			return cookie
		}
	}
	return nil
}
