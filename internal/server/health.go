package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

const gb = 1024 * 1024 * 1024

// serverHealthHandler collects and returns system-level metrics.
func (s *Server) serverHealthHandler(c echo.Context) error {
	ctx := c.Request().Context()
	payload := map[string]interface{}{
		"status":     "online",
		"dashboards": s.hub.Connected(),
	}

	// 1. Host/Runtime Info
	runtime := map[string]interface{}{
		"uptime":     time.Since(s.startTime).Round(time.Second).String(),
		"start_time": s.startTime.Format(time.RFC3339),
	}
	if hInfo, err := host.InfoWithContext(ctx); err == nil {
		runtime["os"] = hInfo.OS
		runtime["platform"] = hInfo.Platform
		runtime["arch"] = hInfo.KernelArch
		runtime["hostname"] = hInfo.Hostname
		runtime["processes"] = hInfo.Procs
	}
	payload["runtime"] = runtime

	// 2. CPU Usage (sampled over 200ms)
	if cpuPercent, err := cpu.PercentWithContext(ctx, 200*time.Millisecond, false); err == nil && len(cpuPercent) > 0 {
		payload["cpu"] = map[string]interface{}{
			"usage_percent": fmt.Sprintf("%.2f%%", cpuPercent[0]),
		}
	}

	// 3. Memory Stats
	if v, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		payload["memory"] = map[string]interface{}{
			"total_gb":     fmt.Sprintf("%.2f GB", float64(v.Total)/gb),
			"used_gb":      fmt.Sprintf("%.2f GB", float64(v.Used)/gb),
			"used_percent": fmt.Sprintf("%.2f%%", v.UsedPercent),
			"free_gb":      fmt.Sprintf("%.2f GB", float64(v.Free)/gb),
		}
	}

	// 4. Disk Stats (Root partition)
	if d, err := disk.UsageWithContext(ctx, "/"); err == nil {
		payload["disk"] = map[string]interface{}{
			"total_gb":     fmt.Sprintf("%.2f GB", float64(d.Total)/gb),
			"used_gb":      fmt.Sprintf("%.2f GB", float64(d.Used)/gb),
			"used_percent": fmt.Sprintf("%.2f%%", d.UsedPercent),
		}
	}

	payload["database"] = s.db.Health(ctx)

	return c.JSON(http.StatusOK, payload)
}
