package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
}

func statsOf(stat *pgxpool.Stat) PoolStats {
	return PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
	}
}

// healthBody is shared by the pool health endpoint's success and failure
// responses.
type healthBody struct {
	Status string    `json:"status"`
	Error  string    `json:"error,omitempty"`
	Pool   PoolStats `json:"pool"`
}

func healthResult(stats PoolStats, pingErr error) (int, healthBody) {
	if pingErr != nil {
		return http.StatusServiceUnavailable, healthBody{Status: "unhealthy", Error: pingErr.Error(), Pool: stats}
	}
	return http.StatusOK, healthBody{Status: "healthy", Pool: stats}
}

// HealthHandler pings the pool and reports its statistics. Mounted at
// /health/db when the postgres store is in use.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		err := pool.Ping(ctx)
		code, body := healthResult(statsOf(pool.Stat()), err)
		return c.JSON(code, body)
	}
}
