package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultHistoryLimit = 20

type controlResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Data  any    `json:"data,omitempty"`
}

type runRequest struct {
	GatewayURL string `json:"gateway_url"`
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.startedAt).String(),
			"service": "proxyctl",
		})
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	proxy := s.engine.Group("/proxy")
	proxy.GET("/initialize", s.handleInitialize)
	proxy.POST("/run", s.handleRun)
	proxy.POST("/stop", s.handleStop)
	proxy.POST("/restore", s.handleRestore)
	proxy.GET("/status", s.handleStatus)
	proxy.GET("/history", s.handleHistory)
}

func (s *Server) handleInitialize(c *gin.Context) {
	res, err := s.ctl.Initialize()
	if err != nil {
		failure(c, http.StatusInternalServerError, err)
		return
	}
	success(c, res)
}

func (s *Server) handleRun(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.GatewayURL) == "" {
		c.JSON(http.StatusBadRequest, controlResponse{OK: false, Error: "gateway_url required"})
		return
	}
	res, err := s.ctl.Run(req.GatewayURL)
	if err != nil {
		failure(c, http.StatusInternalServerError, err)
		return
	}
	success(c, res)
}

func (s *Server) handleStop(c *gin.Context) {
	res, err := s.ctl.Stop()
	if err != nil {
		failure(c, http.StatusInternalServerError, err)
		return
	}
	success(c, res)
}

func (s *Server) handleRestore(c *gin.Context) {
	res, err := s.ctl.Restore()
	if err != nil {
		failure(c, http.StatusInternalServerError, err)
		return
	}
	success(c, res)
}

func (s *Server) handleStatus(c *gin.Context) {
	res, err := s.ctl.Status()
	if err != nil {
		failure(c, http.StatusInternalServerError, err)
		return
	}
	success(c, res)
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.jr == nil {
		c.JSON(http.StatusServiceUnavailable, controlResponse{OK: false, Error: "journal disabled"})
		return
	}
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, controlResponse{OK: false, Error: "limit must be a positive integer"})
			return
		}
		limit = parsed
	}
	entries, err := s.jr.Recent(limit)
	if err != nil {
		failure(c, http.StatusInternalServerError, err)
		return
	}
	success(c, entries)
}

func success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, controlResponse{OK: true, Data: data})
}

func failure(c *gin.Context, status int, err error) {
	c.JSON(status, controlResponse{OK: false, Error: err.Error()})
}
