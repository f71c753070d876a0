package app

import (
	"context"
	"fmt"
	"time"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

type HealthService struct {
	app *App
}

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}
	if err := ctx.Err(); err != nil {
		status.Status = "down"
		status.Components["context"] = err.Error()
		return status
	}

	if s.app.Types == nil {
		status.Status = "degraded"
		status.Components["types"] = "missing"
	} else {
		status.Components["types"] = fmt.Sprintf("ok (%d registered)", len(s.app.Types.Names()))
	}

	if s.app.Catalog == nil {
		status.Status = "degraded"
		status.Components["indirection_catalog"] = "missing"
	} else {
		status.Components["indirection_catalog"] = fmt.Sprintf("ok (%d proxies, %d pending)",
			len(s.app.Catalog.Proxies()), len(s.app.Catalog.Pending()))
	}

	status.Components["assets"] = fmt.Sprintf("ok (%d shared)", s.app.sharedAssets.Len())
	status.Components["global_registry"] = fmt.Sprintf("ok (%d registered)", s.app.Registry.Len())

	if s.app.History != nil {
		status.Components["history"] = "ok"
	} else if s.app.Config.DB.Enabled {
		status.Status = "degraded"
		status.Components["history"] = "missing but enabled in config"
	}

	return status
}
