package di

import (
	"go.uber.org/zap"

	"muse-backend/application/agent"
	"muse-backend/application/dispatcher"
	"muse-backend/application/intent"
	"muse-backend/application/memory"
	"muse-backend/application/ports"
	"muse-backend/infrastructure/config"
	"muse-backend/infrastructure/spotify"
	"muse-backend/pkg/auth"
)

// Container holds all application dependencies
type Container struct {
	Config        *config.Config
	Logger        *zap.Logger
	Store         ports.Store
	RateLimiter   *auth.RateLimiter
	StateSigner   *auth.StateSigner
	Authenticator *spotify.Authenticator
	Media         ports.MediaController
	Messenger     ports.Messenger
	Completer     ports.Completer
	Memory        *memory.Manager
	Resolver      *intent.Resolver
	Loop          *agent.Loop
	Metrics       ports.MetricsRecorder
	TaskQueue     ports.TaskQueue
	Dispatcher    *dispatcher.Dispatcher
}
