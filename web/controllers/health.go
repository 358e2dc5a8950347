package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type Health struct {
	db      Pinger
	ledger  string
	started time.Time
}

func NewHealth(db Pinger, ledger string) *Health {
	return &Health{db: db, ledger: ledger, started: time.Now()}
}

func (h *Health) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	dbState := "up"
	if err := h.db.PingContext(ctx); err != nil {
		status = http.StatusServiceUnavailable
		dbState = "down"
	}

	info := gin.H{
		"success":  status == http.StatusOK,
		"database": dbState,
		"ledger":   h.ledger,
		"uptime":   time.Since(h.started).Round(time.Second).String(),
	}
	if cpuUsage, err := cpu.Percent(0, false); err == nil && len(cpuUsage) > 0 {
		info["cpu"] = cpuUsage[0]
	}
	if memInfo, err := mem.VirtualMemory(); err == nil {
		info["memory"] = memInfo.UsedPercent
	}

	c.JSON(status, info)
}
