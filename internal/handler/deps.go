package handler

import (
	"wschat/internal/app/chat"
	"wschat/internal/configs"
)

// AppDeps bundles what the HTTP handlers need.
type AppDeps struct {
	Hub    *chat.Hub
	Config *configs.AppConfig
}
