package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/openveil/veilforum/internal/auth"
	"github.com/openveil/veilforum/internal/config"
	"github.com/openveil/veilforum/internal/crypto"
	"github.com/openveil/veilforum/internal/database"
	"github.com/openveil/veilforum/internal/handlers"
	"github.com/openveil/veilforum/internal/repositories"
	"github.com/openveil/veilforum/internal/routes"
	"github.com/openveil/veilforum/internal/services"
	pkghttp "github.com/openveil/veilforum/pkg/http"
	pkglogger "github.com/openveil/veilforum/pkg/logger"
)

// TestServer wraps httptest.Server with the full dependency graph
type TestServer struct {
	Server *httptest.Server
	DB     *database.DB
	Config *config.Config

	IdentityRepo *repositories.IdentityRepository
	MessageRepo  *repositories.MessageRepository
	SessionRepo  *repositories.SessionRepository
}

// NewTestServer initializes a complete HTTP server on a real database
func NewTestServer(db *database.DB) *TestServer {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:        "test-secret-32-characters-long-for-testing",
			TokenExpiry:      time.Hour,
			SessionTTL:       time.Hour,
			LoginWindow:      time.Hour,
			LoginMaxAttempts: 5,
			RegNoIndexKey:    []byte("test-index-key-32-characters-ok!"),
			RegistrationMin:  2411033010001,
			RegistrationMax:  2411033010057,
		},
		Forum: config.ForumConfig{
			EncryptionKey:      []byte("test-message-key-32-characters!!"),
			PostWindow:         time.Minute,
			PostMaxPerWindow:   5,
			MaxContentLen:      1000,
			FeedLimit:          100,
			VisibilityWindow:   24 * time.Hour,
			SweepInterval:      time.Hour,
			HardRetention:      48 * time.Hour,
			ActiveMemberWindow: time.Hour,
		},
		Server: config.ServerConfig{
			Port:           "0",
			Env:            "test",
			AllowedOrigins: []string{},
			TrustedProxies: []string{},
		},
	}

	identityRepo := repositories.NewIdentityRepository(db)
	messageRepo := repositories.NewMessageRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)

	cipher, err := crypto.NewMessageCipher(cfg.Forum.EncryptionKey)
	if err != nil {
		panic(fmt.Sprintf("failed to create message cipher: %v", err))
	}

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{})
	auditLogger := pkglogger.NewAuditLogger(logger)

	accountService := services.NewAccountService(identityRepo, sessionRepo, tokenManager, timingDelay, logger, auditLogger, cfg.Auth)
	messageService := services.NewMessageService(messageRepo, cipher, logger, auditLogger, cfg.Forum)
	statsService := services.NewStatsService(identityRepo, messageRepo, logger, cfg.Forum)

	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	cookieConfig := auth.CookieConfig{SameSite: "strict"}
	authHandler := handlers.NewAuthHandler(accountService, ipConfig, cookieConfig)
	messageHandler := handlers.NewMessageHandler(messageService)
	statsHandler := handlers.NewStatsHandler(statsService)

	router := chi.NewRouter()
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Recoverer)

	routes.RegisterRoutes(router, authHandler, messageHandler, statsHandler, tokenManager, sessionRepo)

	return &TestServer{
		Server:       httptest.NewServer(router),
		DB:           db,
		Config:       cfg,
		IdentityRepo: identityRepo,
		MessageRepo:  messageRepo,
		SessionRepo:  sessionRepo,
	}
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	ts.Server.Close()
}

// DoJSON performs a JSON request against the test server. A non-empty token
// is sent as a bearer credential.
func (ts *TestServer) DoJSON(method, path, token string, body interface{}) (*http.Response, []byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, nil, err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, reader)
	if err != nil {
		return nil, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}

	return resp, payload, nil
}
