package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/klurigast/griffel/internal/app"
	"github.com/klurigast/griffel/internal/handlers"
)

func main() {
	service, err := app.NewService("config.toml")
	if err != nil {
		logger.Error.Fatalf("Failed to load config: %v", err)
	}
	defer service.Close()

	if err := service.Store.ApplyMigrations(service.Config.Database.MigrationsDir); err != nil {
		logger.Error.Fatalf("Failed to apply migrations: %v", err)
	}

	gradeHandler := handlers.NewGradeHandler(service)

	routes := map[string]http.HandlerFunc{
		"POST /api/v1/classrooms/{classroom}/roster/upload":   gradeHandler.HandleRosterUpload,
		"GET /api/v1/classrooms/{classroom}/roster/download":  gradeHandler.HandleRosterDownload,
		"GET /api/v1/classrooms/{classroom}/roster":           gradeHandler.HandleRosterList,
		"POST /api/v1/classrooms/{classroom}/roster/remap":    gradeHandler.HandleRosterRemap,
		"GET /api/v1/classrooms/{classroom}/compositions":     gradeHandler.HandleCompositionList,
		"PUT /api/v1/classrooms/{classroom}/compositions":     gradeHandler.HandleCompositionEdit,
		"POST /api/v1/classrooms/{classroom}/compositions/{composition}/grades/upload":  gradeHandler.HandleGradesUpload,
		"GET /api/v1/classrooms/{classroom}/compositions/{composition}/grades/download": gradeHandler.HandleGradesDownload,
		"GET /api/v1/classrooms/{classroom}/compositions/{composition}/grades":          gradeHandler.HandleGradesList,
		"PATCH /api/v1/classrooms/{classroom}/compositions/{composition}/grades":        gradeHandler.HandleGradesEdit,
		"POST /api/v1/classrooms/{classroom}/board/upload":    gradeHandler.HandleBoardUpload,
		"GET /api/v1/classrooms/{classroom}/board/download":   gradeHandler.HandleBoardDownload,
		"GET /api/v1/classrooms/{classroom}/board":            gradeHandler.HandleBoardView,
		"GET /api/v1/classrooms/{classroom}/board/me":         gradeHandler.HandleBoardMe,
		"POST /api/v1/classrooms/{classroom}/reviews":         gradeHandler.HandleReviewCreate,
	}
	for pattern, handler := range routes {
		http.HandleFunc(pattern, handlers.Timed(handler))
	}

	http.Handle("/metrics", promhttp.Handler())

	logger.Info.Printf("Starting griffel server on %s", service.Config.Server.Port)
	if err := http.ListenAndServe(service.Config.Server.Port, nil); err != nil {
		logger.Error.Fatalf("Griffel server failed: %v", err)
	}
}
