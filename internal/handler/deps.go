package handler

import (
	"wadash/internal/app/storage"
	"wadash/internal/configs"
	"wadash/internal/pkg/metrics"
)

// AppDeps carries everything the HTTP handlers need.
type AppDeps struct {
	Config         *configs.AppConfig
	StorageService storage.StorageService
	Metrics        *metrics.Metrics
}
