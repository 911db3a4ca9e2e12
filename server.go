package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smartjects/importer_backend/bot"
	"github.com/smartjects/importer_backend/config"
	"github.com/smartjects/importer_backend/importer"
	"github.com/smartjects/importer_backend/models"
	"github.com/smartjects/importer_backend/utils"
)

const defaultPort = "8080"

func main() {
	logger := config.GetLogger()

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(correlationId())
	r.Use(customErrorLogger(logger))
	r.Use(cors.Default())

	var importBot *bot.Bot

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/stats", func(c *gin.Context) {
		if importBot == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "bot not started"})
			return
		}
		report := importBot.LastReport()
		if report == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no import has run yet"})
			return
		}
		c.JSON(http.StatusOK, report)
	})
	r.GET("/smartjects/:id", func(c *gin.Context) {
		if config.GetDB() == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database not connected"})
			return
		}
		details, err := models.GetSmartjectDetails(c.Request.Context(), c.Param("id"))
		if errors.Is(err, utils.ErrorRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "smartject not found"})
			return
		}
		if err != nil {
			c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
			return
		}
		c.JSON(http.StatusOK, details)
	})

	// Start listening immediately (startup probe is TCP based).
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	botCfg := config.GetBotConfig()
	if botCfg.Token == "" {
		logger.WithFields(logrus.Fields{"field": "bot"}).Error("BOT_TOKEN is required")
		os.Exit(1)
	}

	logos, err := importer.LoadLogoIndex(botCfg.LogosFile)
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "logos"}).Warn("logos file not loaded; imports run without logo matching: " + err.Error())
		logos = nil
	} else {
		logger.WithFields(logrus.Fields{"field": "logos", "count": logos.Size()}).Info("logo references loaded")
	}

	importBot, err = bot.New(botCfg, logos, logger)
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "bot"}).Error("failed to start bot: " + err.Error())
		os.Exit(1)
	}

	botCtx, cancelBot := context.WithCancel(context.Background())
	defer cancelBot()
	go importBot.Run(botCtx)

	logger.WithFields(logrus.Fields{"info": "Connection Established"}).Info("importer bot listening on :", port)

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop the bot first so no new import starts while we're draining.
	cancelBot()

	shutdownTimeout := 30 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

// correlationId tags every request so its log lines and response can be
// matched up. An incoming X-Correlation-Id header is honored.
func correlationId() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Correlation-Id")
		if id == "" {
			id = utils.CorrelationIdFromContextOrNew(c.Request.Context())
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), id))
		c.Header("X-Correlation-Id", id)
		c.Next()
	}
}

// customErrorLogger logs only requests that produced errors.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			id, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
			logger.WithFields(logrus.Fields{
				"path":           c.Request.URL.Path,
				"correlation_id": id,
			}).Error(c.Errors.String())
		}
	}
}
