package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"acadboard/internal/attendance"
	"acadboard/internal/auth"
	"acadboard/internal/config"
	"acadboard/internal/dashboard"
	"acadboard/internal/httpmiddleware"
	"acadboard/internal/queue"
	"acadboard/internal/report"
	"acadboard/internal/store"
	"acadboard/internal/upstream"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "acadboard:warnings")
	}

	client := upstream.New(cfg.UpstreamBaseURL, cfg.UpstreamTimeout)
	cache := store.NewCache(redisClient.Client, cfg.CacheTTL)
	mgr := dashboard.NewManager(client, cache, cfg.SessionTTL)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				mgr.Sweep()
			case <-sweepCtx.Done():
				return
			}
		}
	}()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		status := http.StatusOK
		if !redisHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy})
	})

	// Limits are keyed by the authenticated teacher so one teacher behind a
	// shared campus NAT cannot exhaust another's budget; requests rejected
	// before auth fall back to the client IP inside the middleware.
	limiter := httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	authGroup := r.Group("/v1",
		auth.TeacherAuth(cfg.JWTSigningKey, cfg.JWTIssuer),
		limiter.GinMiddlewareKeyed(func(c *gin.Context) string {
			claims, _ := auth.FromContext(c)
			return claims.TeacherID
		}),
	)

	authGroup.GET("/attendance/daily", func(c *gin.Context) {
		claims, token := auth.FromContext(c)
		session, err := mgr.Get(c.Request.Context(), claims.TeacherID, token)
		if err != nil {
			upstreamError(c, err)
			return
		}

		date, err := parseDate(c.Query("date"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		filter := attendance.Filter{
			Search:            c.Query("q"),
			Subject:           c.Query("subject"),
			Course:            c.Query("course"),
			Semester:          c.Query("semester"),
			NotMarkedOnly:     c.Query("not_marked") == "true",
			LowAttendanceOnly: c.Query("low_attendance") == "true",
		}

		rows := attendance.Reconcile(session.Roster.All(), session.Logs.All(), date)
		rows = filter.Apply(rows)

		filtered := make([]attendance.Student, len(rows))
		for i, row := range rows {
			filtered[i] = row.Student
		}
		day := attendance.LocalDate(date)
		stats := attendance.ComputeStats(filtered, session.Logs.ForDate(day), date, filter.Subject)

		// Alerting is roster-wide on purpose: the warning list must not
		// shrink just because the table is filtered.
		alerts := attendance.LowAttendance(session.Roster.All())

		c.JSON(http.StatusOK, gin.H{
			"date":           day,
			"state":          session.State().String(),
			"rows":           rows,
			"stats":          stats,
			"low_attendance": alertViews(alerts),
		})
	})

	authGroup.POST("/attendance/edits", func(c *gin.Context) {
		claims, token := auth.FromContext(c)

		var req struct {
			RollNo  string `json:"roll_no" binding:"required"`
			Subject string `json:"subject" binding:"required"`
			Date    string `json:"date" binding:"required"`
			Status  string `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		status, ok := attendance.ParseStatus(req.Status)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status must be present or absent"})
			return
		}
		date, err := parseDate(req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		session, err := mgr.Get(c.Request.Context(), claims.TeacherID, token)
		if err != nil {
			upstreamError(c, err)
			return
		}
		if _, ok := session.Roster.Find(req.RollNo, req.Subject); !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "student not in roster"})
			return
		}

		entry := session.ApplyEdit(req.RollNo, req.Subject, date, status)
		c.JSON(http.StatusOK, gin.H{
			"entry": entry,
			"state": session.State().String(),
		})
	})

	authGroup.POST("/attendance/save", func(c *gin.Context) {
		claims, token := auth.FromContext(c)

		var req struct {
			Date string `json:"date" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		date, err := parseDate(req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		session, err := mgr.Get(c.Request.Context(), claims.TeacherID, token)
		if err != nil {
			upstreamError(c, err)
			return
		}

		outcomes, err := session.Save(c.Request.Context(), client, token, date)
		switch {
		case errors.Is(err, dashboard.ErrSaveInFlight):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		case errors.Is(err, attendance.ErrNothingToSave):
			c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to save for this date"})
			return
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		cache.Invalidate(c.Request.Context(), claims.TeacherID)

		results := make([]gin.H, len(outcomes))
		for i, o := range outcomes {
			res := gin.H{"subject": o.Subject, "present": o.Present, "absent": o.Absent, "ok": o.Err == nil}
			if o.Err != nil {
				res["error"] = o.Err.Error()
			}
			results[i] = res
		}
		c.JSON(http.StatusOK, gin.H{
			"saved":    attendance.SavedCount(outcomes),
			"subjects": results,
			"state":    session.State().String(),
		})
	})

	authGroup.POST("/attendance/refresh", func(c *gin.Context) {
		claims, token := auth.FromContext(c)
		session, err := mgr.Get(c.Request.Context(), claims.TeacherID, token)
		if err != nil {
			upstreamError(c, err)
			return
		}
		if err := mgr.Refresh(c.Request.Context(), session, token); err != nil {
			upstreamError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"state": session.State().String()})
	})

	authGroup.GET("/reports/monthly", func(c *gin.Context) {
		claims, token := auth.FromContext(c)
		session, err := mgr.Get(c.Request.Context(), claims.TeacherID, token)
		if err != nil {
			upstreamError(c, err)
			return
		}

		semester, _ := strconv.Atoi(c.Query("semester"))
		req := report.Request{
			Month:    c.Query("month"),
			Subject:  c.Query("subject"),
			Course:   c.Query("course"),
			Semester: semester,
		}

		matrix, err := report.BuildMonthlyMatrix(session.Roster.All(), session.Logs.All(), req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		data, err := matrix.WriteXLSX()
		if err != nil {
			log.Printf("report serialization failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "report generation failed"})
			return
		}

		filename := report.Filename(matrix.Subject, matrix.Month)
		c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
		c.Data(http.StatusOK, xlsxContentType, data)
	})

	authGroup.POST("/warnings", func(c *gin.Context) {
		claims, token := auth.FromContext(c)

		var req struct {
			RollNo  string `json:"roll_no" binding:"required"`
			Subject string `json:"subject" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		session, err := mgr.Get(c.Request.Context(), claims.TeacherID, token)
		if err != nil {
			upstreamError(c, err)
			return
		}
		student, ok := session.Roster.Find(req.RollNo, req.Subject)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "student not in roster"})
			return
		}

		if err := client.SendWarning(c.Request.Context(), token, student.Raw); err != nil {
			upstreamError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"sent": true, "roll_no": req.RollNo})
	})

	authGroup.POST("/warnings/bulk", func(c *gin.Context) {
		claims, token := auth.FromContext(c)
		session, err := mgr.Get(c.Request.Context(), claims.TeacherID, token)
		if err != nil {
			upstreamError(c, err)
			return
		}

		alerts := attendance.LowAttendance(session.Roster.All())
		if len(alerts) == 0 {
			c.JSON(http.StatusOK, gin.H{"queued": 0})
			return
		}

		raws := make([]json.RawMessage, len(alerts))
		for i, st := range alerts {
			raws[i] = st.Raw
		}
		body, err := json.Marshal(raws)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "encode warning batch failed"})
			return
		}
		if err := q.Publish(c.Request.Context(), queue.NewMessage(queue.TypeBulkWarning, body)); err != nil {
			log.Printf("queue publish failed: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "warning queue unavailable"})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"queued": len(alerts)})
	})

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	// The dashboard works in the server's local calendar day.
	return time.ParseInLocation("2006-01-02", s, time.Local)
}

func alertViews(alerts []attendance.Student) []gin.H {
	out := make([]gin.H, len(alerts))
	for i, st := range alerts {
		out[i] = gin.H{
			"roll_no":        st.RollNo,
			"name":           st.Name,
			"subject":        st.Subject,
			"attendance_pct": st.AttendancePct,
		}
	}
	return out
}

func upstreamError(c *gin.Context, err error) {
	if errors.Is(err, upstream.ErrUnauthorized) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized, please log in again"})
		return
	}
	log.Printf("upstream call failed: %v", err)
	c.JSON(http.StatusBadGateway, gin.H{"error": "academic backend unavailable"})
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
