package apiserver

import (
	goctx "context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/netrixframework/timeoutd/context"
	"github.com/netrixframework/timeoutd/log"
	"github.com/netrixframework/timeoutd/metrics"
	"github.com/netrixframework/timeoutd/types"
)

// DefaultAddr is the default address of the APIServer
const DefaultAddr = "0.0.0.0:7074"

// ReturnAddressHeader carries the address replies are sent to
const ReturnAddressHeader = "X-Return-Address"

// APIServer is the HTTP transport of the timeout service. It accepts
// timeout requests and exposes the pending timeouts, stats and metrics.
type APIServer struct {
	router *gin.Engine
	ctx    *context.RootContext

	server   *http.Server
	addr     string
	listener net.Listener
	lock     *sync.Mutex

	*types.BaseService
}

// NewAPIServer instantiates APIServer
func NewAPIServer(ctx *context.RootContext) *APIServer {
	server := &APIServer{
		ctx:         ctx,
		addr:        ctx.Config.APIServerAddr,
		lock:        new(sync.Mutex),
		BaseService: types.NewBaseService("APIServer", ctx.Logger),
	}
	if server.addr == "" {
		server.addr = DefaultAddr
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(server.logMiddleware)

	router.POST("/timeout", server.HandleTimeout)
	router.POST("/message", server.HandleMessage)

	router.GET("/timeouts", server.handleTimeouts)
	router.GET("/stats", server.handleStats)
	router.GET("/healthz", server.handleHealth)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	server.router = router
	return server
}

// Handler returns the http handler serving the routes
func (a *APIServer) Handler() http.Handler {
	return a.router
}

func (a *APIServer) logMiddleware(c *gin.Context) {
	start := time.Now()
	path := c.Request.URL.Path
	raw := c.Request.URL.RawQuery

	// Process request
	c.Next()

	end := time.Now()
	if raw != "" {
		path = path + "?" + raw
	}
	a.Logger.With(log.LogParams{
		"timestamp":   end,
		"latency":     end.Sub(start).String(),
		"client_ip":   c.ClientIP(),
		"method":      c.Request.Method,
		"status_code": c.Writer.Status(),
		"error":       c.Errors.ByType(gin.ErrorTypePrivate).String(),
		"body_size":   c.Writer.Size(),
		"path":        path,
	}).Debug("Handled request")
}

// Addr returns the address the server listens on once started
func (a *APIServer) Addr() string {
	a.lock.Lock()
	defer a.lock.Unlock()
	if a.listener != nil {
		return a.listener.Addr().String()
	}
	return a.addr
}

// Start starts the APIServer and implements Service
func (a *APIServer) Start() error {
	a.lock.Lock()
	defer a.lock.Unlock()
	if a.Running() {
		return nil
	}

	lis, err := net.Listen("tcp", a.addr)
	if err != nil {
		return err
	}
	a.listener = lis
	a.server = &http.Server{
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.StartRunning()

	srv := a.server
	go func() {
		a.Logger.With(log.LogParams{
			"addr": lis.Addr().String(),
		}).Info("API server starting!")
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.With(log.LogParams{
				"addr": lis.Addr().String(),
				"err":  err,
			}).Error("API server closed!")
		}
	}()
	return nil
}

// Stop stops the APIServer and implements Service
func (a *APIServer) Stop() error {
	a.lock.Lock()
	defer a.lock.Unlock()
	if !a.StopRunning() {
		return nil
	}
	ctx, cancel := goctx.WithTimeout(goctx.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(ctx); err != nil {
		a.Logger.Error("API server forcefully shutdown")
		return err
	}
	a.listener = nil
	a.Logger.Info("API server stopped!")
	return nil
}
