//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alumnihub/apiserver/config"
	"github.com/alumnihub/apiserver/internal/server"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

const (
	serverPort = 18080
)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	if err := waitForPostgres(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := runMigrations(root); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := startServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown()
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown()
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

func TestAuthLifecycle(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	email := fmt.Sprintf("student_%d@example.edu", time.Now().UnixNano())
	password := "testpass123!"

	client := newCookieClient(t)

	userID, err := signupStudent(t, baseURL, email, password)
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	loginResp, err := login(t, client, baseURL, email, password)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if loginResp.UserID != userID {
		t.Fatalf("login user id = %d, signup user id = %d", loginResp.UserID, userID)
	}

	session, err := getSession(t, client, baseURL)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if !session.Authenticated || session.UserID != userID {
		t.Fatalf("unexpected session: %+v", session)
	}

	// A student account must not reach admin routes until the stored
	// role changes; the still-valid cookie then suffices.
	if status := getStatus(t, client, baseURL+"/admin/users"); status != http.StatusForbidden {
		t.Fatalf("student on admin route: status %d, want 403", status)
	}
	if err := promoteToAdmin(email); err != nil {
		t.Fatalf("promote user: %v", err)
	}
	if status := getStatus(t, client, baseURL+"/admin/users"); status != http.StatusOK {
		t.Fatalf("promoted admin: status %d, want 200", status)
	}
}

func TestLoginRejectsUnknownAndWrongEqually(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	email := fmt.Sprintf("alum_%d@example.edu", time.Now().UnixNano())

	if _, err := signupStudent(t, baseURL, email, "correct-pass"); err != nil {
		t.Fatalf("signup: %v", err)
	}

	unknown := postJSON(t, baseURL+"/auth/login", map[string]string{"email": "ghost@example.edu", "password": "x"})
	wrong := postJSON(t, baseURL+"/auth/login", map[string]string{"email": email, "password": "incorrect"})
	if unknown.status != http.StatusUnauthorized || wrong.status != http.StatusUnauthorized {
		t.Fatalf("statuses = %d, %d, want both 401", unknown.status, wrong.status)
	}
	if unknown.body != wrong.body {
		t.Fatalf("bodies differ:\n%s\n%s", unknown.body, wrong.body)
	}
}

type loginResponse struct {
	LoginStatus bool   `json:"loginStatus"`
	UserID      int    `json:"userId"`
	UserType    string `json:"userType"`
}

type sessionResponse struct {
	Authenticated bool `json:"authenticated"`
	UserID        int  `json:"userId"`
}

type signupResponse struct {
	SignupStatus bool   `json:"signupStatus"`
	UserID       int    `json:"userId"`
	Error        string `json:"error"`
}

type rawResponse struct {
	status int
	body   string
}

func newCookieClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{Jar: jar, Timeout: 10 * time.Second}
}

func signupStudent(t *testing.T, baseURL, email, password string) (int, error) {
	t.Helper()

	payload := map[string]any{
		"name":           "E2E Student",
		"email":          email,
		"password":       password,
		"userType":       "student",
		"gender":         "other",
		"enrollmentYear": time.Now().Year() - 1,
		"currentYear":    2,
		"course":         "CSE",
		"rollNumber":     fmt.Sprintf("CSE-%d", time.Now().UnixNano()%100000),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}

	resp, err := http.Post(baseURL+"/auth/signup", "application/json", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("signup status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed signupResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, err
	}
	if !parsed.SignupStatus || parsed.UserID == 0 {
		return 0, fmt.Errorf("unexpected signup response: %+v", parsed)
	}
	return parsed.UserID, nil
}

func login(t *testing.T, client *http.Client, baseURL, email, password string) (loginResponse, error) {
	t.Helper()

	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return loginResponse{}, err
	}

	resp, err := client.Post(baseURL+"/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return loginResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return loginResponse{}, fmt.Errorf("login status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return loginResponse{}, err
	}
	return parsed, nil
}

func getSession(t *testing.T, client *http.Client, baseURL string) (sessionResponse, error) {
	t.Helper()

	resp, err := client.Get(baseURL + "/auth/session")
	if err != nil {
		return sessionResponse{}, err
	}
	defer resp.Body.Close()

	var parsed sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return sessionResponse{}, err
	}
	return parsed, nil
}

func getStatus(t *testing.T, client *http.Client, url string) int {
	t.Helper()

	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, payload any) rawResponse {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	return rawResponse{status: resp.StatusCode, body: string(data)}
}

func promoteToAdmin(email string) error {
	cfg := config.LoadConfig()
	dsn := buildPostgresURL(cfg)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = db.ExecContext(ctx, "UPDATE users SET role = 'admin', updated_at = NOW() WHERE email = $1", strings.ToLower(email))
	return err
}

func waitForPostgres(ctx context.Context) error {
	cfg := config.LoadConfig()
	dsn := buildPostgresURL(cfg)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func runMigrations(root string) error {
	cfg := config.LoadConfig()
	dsn := buildPostgresURL(cfg)
	migrationsPath := filepath.Join(root, "internal", "db", "migrations")
	migrationsURL := "file://" + migrationsPath

	migrator, err := migrate.New(migrationsURL, dsn)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func buildPostgresURL(cfg config.Config) string {
	sslmode := "disable"
	if cfg.Database.UseSSL {
		sslmode = "require"
	}
	host := fmt.Sprintf("%s:%d", cfg.Database.Host, cfg.Database.Port)
	return fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		host,
		cfg.Database.DBName,
		sslmode,
	)
}

func startServer() (*server.Server, error) {
	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "alumnihub")
	_ = os.Setenv("DB_PASSWORD", "alumnihub")
	_ = os.Setenv("DB_NAME", "alumnihub")
	_ = os.Setenv("DB_SSL", "false")

	cfg := config.LoadConfig()
	srv, err := server.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	go func() {
		_ = srv.Start()
	}()

	return srv, nil
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
