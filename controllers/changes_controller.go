package controllers

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/powder-coating-api/logger"
	"github.com/kendall-kelly/powder-coating-api/services"
	"go.uber.org/zap"
)

// ChangeTables are the tables a client may follow
var ChangeTables = []string{
	"orders",
	"order_status_history",
	"order_files",
	"quote_negotiations",
	"order_team_assignments",
	"team_members",
}

const keepAliveInterval = 25 * time.Second

// StreamChanges handles GET /api/v1/changes?tables=orders,quote_negotiations
// as a server-sent event stream. Events carry only {table, action, id, at};
// clients refetch what they need.
func StreamChanges(c *gin.Context) {
	if _, ok := currentPrincipal(c); !ok {
		return
	}

	feed := services.GetChangeFeed()
	if feed == nil {
		respondError(c, http.StatusServiceUnavailable, "FEED_UNAVAILABLE", "Change feed is not configured")
		return
	}

	tables, ok := requestedTables(c.Query("tables"))
	if !ok {
		respondError(c, http.StatusBadRequest, "INVALID_TABLES", "Unknown table in tables parameter")
		return
	}

	ctx := c.Request.Context()
	events, err := feed.Subscribe(ctx, tables...)
	if err != nil {
		logger.L().Error("change feed subscribe failed", zap.Error(err))
		respondError(c, http.StatusServiceUnavailable, "FEED_UNAVAILABLE", "Could not subscribe to changes")
		return
	}

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, open := <-events:
			if !open {
				return false
			}
			c.SSEvent("change", ev)
			return true
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		}
	})
}

func requestedTables(param string) ([]string, bool) {
	if param == "" {
		return ChangeTables, true
	}
	known := make(map[string]bool, len(ChangeTables))
	for _, t := range ChangeTables {
		known[t] = true
	}
	var out []string
	for _, t := range strings.Split(param, ",") {
		t = strings.TrimSpace(t)
		if !known[t] {
			return nil, false
		}
		out = append(out, t)
	}
	return out, true
}
