package gateway

import (
	"errors"
	"net/http"
	"path"
	"time"

	"github.com/danmuck/ascmdctl/internal/protocol"
	"github.com/danmuck/ascmdctl/internal/protocol/session"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	errnoNoEntry = 2
	errnoExists  = 17
)

type pathRequest struct {
	Path string `json:"path" binding:"required"`
}

type transferRequest struct {
	Source      string `json:"source" binding:"required"`
	Destination string `json:"destination" binding:"required"`
}

func (g *Gateway) registerRoutes() {
	routes := g.routes()
	routes.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(g.appeared).String(),
			"service": g.cfg.ID,
		})
	})

	routes.GET("/metrics", gin.WrapH(promhttp.Handler()))

	routes.GET("/ready", func(c *gin.Context) {
		status := http.StatusOK
		if !g.Connected() {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ready":   g.Connected(),
			"uptime":  time.Since(g.appeared).String(),
			"service": g.cfg.ID,
		})
	})

	v1 := g.router.Group(path.Join("/", g.cfg.BasePath, "v1"))
	if g.cfg.Token != "" {
		v1.Use(g.authenticate())
	}

	v1.GET("/info", func(c *gin.Context) {
		var info protocol.Info
		err := g.do(c.Request.Context(), "info", func(s *session.Session) (err error) {
			info, err = s.Info()
			return err
		})
		g.reply(c, err, info)
	})

	v1.GET("/df", func(c *gin.Context) {
		var mounts protocol.Mounts
		err := g.do(c.Request.Context(), "df", func(s *session.Session) (err error) {
			mounts, err = s.Df()
			return err
		})
		g.reply(c, err, mounts)
	})

	v1.GET("/ls", func(c *gin.Context) {
		p, ok := queryPath(c)
		if !ok {
			return
		}
		var entries []protocol.Stat
		err := g.do(c.Request.Context(), "ls", func(s *session.Session) (err error) {
			entries, err = s.Ls(p)
			return err
		})
		g.reply(c, err, gin.H{"path": p, "entries": entries})
	})

	v1.GET("/du", func(c *gin.Context) {
		p, ok := queryPath(c)
		if !ok {
			return
		}
		var size protocol.Size
		err := g.do(c.Request.Context(), "du", func(s *session.Session) (err error) {
			size, err = s.Du(p)
			return err
		})
		g.reply(c, err, size)
	})

	v1.GET("/md5sum", func(c *gin.Context) {
		p, ok := queryPath(c)
		if !ok {
			return
		}
		var sum string
		err := g.do(c.Request.Context(), "md5sum", func(s *session.Session) (err error) {
			sum, err = s.Md5sum(p)
			return err
		})
		g.reply(c, err, gin.H{"path": p, "md5sum": sum})
	})

	v1.POST("/mkdir", g.pathAction("mkdir", (*session.Session).Mkdir))
	v1.POST("/rm", g.pathAction("rm", (*session.Session).Rm))
	v1.POST("/cp", g.transferAction("cp", (*session.Session).Cp))
	v1.POST("/mv", g.transferAction("mv", (*session.Session).Mv))
}

func (g *Gateway) routes() gin.IRoutes {
	if g.cfg.BasePath == "" {
		return g.router
	}
	return g.router.Group(g.cfg.BasePath)
}

func (g *Gateway) pathAction(verb string, op func(*session.Session, string) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req pathRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		err := g.do(c.Request.Context(), verb, func(s *session.Session) error {
			return op(s, req.Path)
		})
		g.reply(c, err, gin.H{"status": "ok"})
	}
}

func (g *Gateway) transferAction(verb string, op func(*session.Session, string, string) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req transferRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		err := g.do(c.Request.Context(), verb, func(s *session.Session) error {
			return op(s, req.Source, req.Destination)
		})
		g.reply(c, err, gin.H{"status": "ok"})
	}
}

func queryPath(c *gin.Context) (string, bool) {
	p := c.Query("path")
	if p == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return "", false
	}
	return p, true
}

// reply writes body on success or maps err onto a status code.
func (g *Gateway) reply(c *gin.Context, err error, body any) {
	if err == nil {
		c.JSON(http.StatusOK, body)
		return
	}

	var opErr *session.OperationError
	switch {
	case errors.As(err, &opErr):
		status := http.StatusUnprocessableEntity
		switch opErr.Errno {
		case errnoNoEntry:
			status = http.StatusNotFound
		case errnoExists:
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": opErr.Errstr, "errno": opErr.Errno, "verb": opErr.Verb})
	case errors.Is(err, ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, ErrCommandTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "kind": session.Classify(err)})
	}
}
