package server

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	accountapp "github.com/sngm3741/wanderlust/api/internal/account/application"
	"github.com/sngm3741/wanderlust/api/internal/config"
	"github.com/sngm3741/wanderlust/api/internal/infrastructure/geocoding"
	mongodoc "github.com/sngm3741/wanderlust/api/internal/infrastructure/mongo"
	accounthttp "github.com/sngm3741/wanderlust/api/internal/interfaces/http/account"
	commonhttp "github.com/sngm3741/wanderlust/api/internal/interfaces/http/common"
	listingshttp "github.com/sngm3741/wanderlust/api/internal/interfaces/http/listings"
	listingapp "github.com/sngm3741/wanderlust/api/internal/listing/application"
	"go.mongodb.org/mongo-driver/mongo"
)

// connectionChecker reports the memoised state of the document store.
type connectionChecker interface {
	Check(ctx context.Context) mongodoc.ConnectionState
}

// imageSource streams stored images back to clients.
type imageSource interface {
	Open(ctx context.Context, key string) (io.ReadCloser, mongodoc.StoredImage, error)
}

// Server は HTTP サーバーのライフサイクルを管理し、各ハンドラへ依存注入するコンポジションルート。
type Server struct {
	logger         *log.Logger
	client         *mongo.Client
	redis          *redis.Client
	addr           string
	allowedOrigins []string
	health         connectionChecker
	accounts       accountapp.AccountService
	images         imageSource
	flash          *commonhttp.FlashStore
	errors         commonhttp.ErrorResponder
	listings       *listingshttp.Handler
	accountRoutes  *accounthttp.Handler
}

// Run はHTTPサーバーを起動し、シグナルを受けるまでブロックする。
func (s *Server) Run() error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Printf("HTTP サーバー起動: http://%s", s.addr)
		errChan <- httpServer.ListenAndServe()
	}()

	waitForShutdown(httpServer, errChan, s)
	return nil
}

// Router assembles middleware and routes.
// methodOverride はルーティング前に動く必要があるため、トップレベルの Use に置く。
func (s *Server) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(withCORS(s.allowedOrigins))
	router.Use(methodOverride)
	router.Use(s.connectionState)
	router.Use(s.optionalAuth)

	router.NotFound(s.errors.NotFound)
	router.MethodNotAllowed(s.errors.MethodNotAllowed)

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/listings", http.StatusFound)
	})
	router.Get("/healthz", s.healthHandler())
	router.Get("/images/*", s.imageHandler())

	s.accountRoutes.Register(router)
	s.listings.Register(router, s.requireAuth)

	return router
}

// healthHandler はミドルウェアが記録した接続状態をそのまま返す。
func (s *Server) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, _ := commonhttp.ConnectionStateFromContext(r.Context())
		if !state.Connected {
			message := "database unreachable"
			if state.Err != nil {
				message = state.Err.Error()
			}
			commonhttp.WriteJSON(s.logger, w, http.StatusServiceUnavailable, map[string]any{
				"status":    "degraded",
				"error":     message,
				"checkedAt": state.CheckedAt.Format(time.RFC3339),
			})
			return
		}

		commonhttp.WriteJSON(s.logger, w, http.StatusOK, map[string]any{
			"status":    "ok",
			"time":      time.Now().Format(time.RFC3339),
			"checkedAt": state.CheckedAt.Format(time.RFC3339),
		})
	}
}

// imageHandler streams an uploaded image from GridFS.
func (s *Server) imageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "*")
		if key == "" {
			s.errors.NotFound(w, r)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
		defer cancel()

		body, meta, err := s.images.Open(ctx, key)
		if err != nil {
			s.errors.Respond(w, r, err)
			return
		}
		defer body.Close()

		contentType := meta.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", contentType)
		if meta.Length > 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(meta.Length, 10))
		}
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, body); err != nil {
			s.logger.Printf("画像の送信に失敗 key=%s: %v", key, err)
		}
	}
}

// shutdown は MongoDB / Redis クライアントをタイムアウト付きで切断する。
func (s *Server) shutdown(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if s.client != nil {
		if err := s.client.Disconnect(shutdownCtx); err != nil {
			s.logger.Printf("MongoDB 切断時にエラー: %v", err)
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Printf("Redis 切断時にエラー: %v", err)
		}
	}
}

// waitForShutdown は ListenAndServe の終了と OS シグナルを監視し、graceful shutdown を実現する。
func waitForShutdown(httpServer *http.Server, errChan <-chan error, srv *Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			srv.logger.Fatalf("サーバーが異常終了: %v", err)
		}
	case sig := <-sigChan:
		srv.logger.Printf("シグナル %s を受信。サーバー停止処理を開始します。", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			srv.logger.Printf("サーバー停止時にエラー: %v", err)
		}
	}

	srv.shutdown(context.Background())
}

// New は Config と接続済みクライアントからリポジトリ・サービス・ハンドラを組み立てる。
// redisClient が nil の場合はジオコーディング結果をキャッシュしない。
func New(cfg config.Config, client *mongo.Client, redisClient *redis.Client) *Server {
	logger := cfg.ServerLog
	database := client.Database(cfg.MongoDatabase)

	listingRepo := mongodoc.NewListingRepository(database, cfg.ListingCollection, cfg.ReviewCollection, cfg.UserCollection)
	reviewRepo := mongodoc.NewReviewRepository(database, cfg.ReviewCollection, cfg.ListingCollection)
	userRepo := mongodoc.NewUserRepository(database, cfg.UserCollection)
	imageStore := mongodoc.NewImageStore(database, cfg.ImageBucket, mongodoc.UploadFolder(cfg.Env), cfg.MediaBaseURL)

	var geocoder listingapp.Geocoder = geocoding.NewNominatimClient(geocoding.NominatimConfig{
		Endpoint:  cfg.Geocoder.Endpoint,
		UserAgent: cfg.Geocoder.UserAgent,
		Timeout:   cfg.Geocoder.Timeout,
		Logger:    logger,
	})
	if redisClient != nil {
		geocoder = geocoding.NewCachedGeocoder(geocoder, redisClient, cfg.Geocoder.CacheTTL, logger)
	}

	opts := listingapp.Options{OwnershipGuard: cfg.OwnershipGuard}
	if !cfg.OwnershipGuard {
		logger.Printf("warning: LISTING_OWNER_GUARD is off; any logged-in user can edit or delete any listing or review")
	}

	accounts := accountapp.NewAccountService(userRepo, accountapp.TokenConfig{
		Secret:   cfg.Auth.Secret,
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
		TTL:      cfg.Auth.TTL,
	})
	flash := commonhttp.NewFlashStore(cfg.Auth.Secret, cfg.CookieSecure)
	responder := commonhttp.ErrorResponder{Logger: logger, Production: cfg.Production()}

	return &Server{
		logger:         logger,
		client:         client,
		redis:          redisClient,
		addr:           cfg.Addr,
		allowedOrigins: append([]string(nil), cfg.AllowedOrigins...),
		health:         mongodoc.NewHealthChecker(client, 0),
		accounts:       accounts,
		images:         imageStore,
		flash:          flash,
		errors:         responder,
		listings: listingshttp.NewHandler(listingshttp.Config{
			Logger:    logger,
			Lifecycle: listingapp.NewListingLifecycle(listingRepo, geocoder, opts),
			Queries:   listingapp.NewListingQueryService(listingRepo),
			Reviews:   listingapp.NewReviewService(listingRepo, reviewRepo, opts),
			Images:    imageStore,
			Flash:     flash,
			Errors:    responder,
		}),
		accountRoutes: accounthttp.NewHandler(accounthttp.Config{
			Logger:       logger,
			Accounts:     accounts,
			Flash:        flash,
			Errors:       responder,
			CookieSecure: cfg.CookieSecure,
		}),
	}
}
