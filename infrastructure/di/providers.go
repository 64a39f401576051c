package di

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"

	"muse-backend/application/agent"
	"muse-backend/application/dispatcher"
	"muse-backend/application/intent"
	"muse-backend/application/memory"
	"muse-backend/application/ports"
	"muse-backend/infrastructure/config"
	"muse-backend/infrastructure/discord"
	"muse-backend/infrastructure/llm"
	"muse-backend/infrastructure/messaging/eventbridge"
	"muse-backend/infrastructure/observability"
	dynamostore "muse-backend/infrastructure/persistence/dynamodb"
	"muse-backend/infrastructure/spotify"
	"muse-backend/pkg/auth"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideStore creates the expiring key-value store
func ProvideStore(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.Store {
	return dynamostore.NewKVStore(client, cfg.DynamoDBTable, logger)
}

// ProvideRateLimiter creates the per-(command,user) admission controller
func ProvideRateLimiter(store ports.Store, cfg *config.Config) *auth.RateLimiter {
	return auth.NewRateLimiter(store, cfg.RateLimitWindow, cfg.RateLimitDefault, dispatcher.CommandLimits())
}

// ProvideStateSigner creates the authorization state signer
func ProvideStateSigner(cfg *config.Config) *auth.StateSigner {
	return auth.NewStateSigner(cfg.StateSecret, cfg.StateExpiry)
}

// ProvideAuthenticator creates the media-account OAuth authenticator
func ProvideAuthenticator(cfg *config.Config, store ports.Store) *spotify.Authenticator {
	return spotify.NewAuthenticator(cfg.SpotifyClientID, cfg.SpotifyClientSecret, cfg.SpotifyRedirectURL, store)
}

// ProvideMediaController creates the media-control client
func ProvideMediaController(authenticator *spotify.Authenticator, cfg *config.Config, logger *zap.Logger) ports.MediaController {
	return spotify.NewClient(authenticator, logger, cfg.UpstreamCallTimeout)
}

// ProvideMessenger creates the chat platform REST client, circuit-broken
func ProvideMessenger(cfg *config.Config, logger *zap.Logger) ports.Messenger {
	client := discord.NewClient(cfg.FollowupBaseURL, cfg.ApplicationID, cfg.BotToken, logger, cfg.UpstreamCallTimeout)
	return discord.NewBreaker(client, logger)
}

// ProvideCompleter creates the completion stack: circuit-broken primary
// with a circuit-broken fallback behind it.
func ProvideCompleter(cfg *config.Config, logger *zap.Logger) ports.Completer {
	primary := llm.NewBreaker("openai",
		llm.NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIModel, cfg.UpstreamCallTimeout), logger)

	var secondary ports.Completer
	if cfg.FallbackEndpoint != "" {
		secondary = llm.NewBreaker("fallback",
			llm.NewRESTProvider(cfg.FallbackEndpoint, cfg.FallbackKey, cfg.FallbackModel, cfg.UpstreamCallTimeout), logger)
	}

	return llm.NewFallback(primary, secondary, logger)
}

// ProvideMemoryManager creates the conversational memory manager
func ProvideMemoryManager(store ports.Store, completer ports.Completer, cfg *config.Config, logger *zap.Logger) *memory.Manager {
	return memory.NewManager(store, completer, logger, cfg.MemoryMaxMessages, cfg.MemorySummarizeAt, cfg.MemoryIdleExpiry)
}

// ProvideResolver creates the intent resolver
func ProvideResolver(completer ports.Completer, logger *zap.Logger) *intent.Resolver {
	return intent.NewResolver(completer, logger)
}

// ProvideLoop creates the agentic execution loop
func ProvideLoop(resolver *intent.Resolver, media ports.MediaController, cfg *config.Config, logger *zap.Logger) *agent.Loop {
	return agent.NewLoop(resolver, media, logger, cfg.UpstreamCallTimeout)
}

// ProvideMetrics creates the metrics recorder; local development runs
// without CloudWatch.
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config, logger *zap.Logger) ports.MetricsRecorder {
	if !cfg.IsProduction() {
		return observability.NopMetrics{}
	}
	return observability.NewCloudWatchMetrics(client, logger)
}

// ProvideTaskQueue creates the continuation queue
func ProvideTaskQueue(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.TaskQueue {
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideDispatcher creates the interaction state machine
func ProvideDispatcher(
	limiter *auth.RateLimiter,
	mem *memory.Manager,
	loop *agent.Loop,
	media ports.MediaController,
	queue ports.TaskQueue,
	sender ports.Messenger,
	signer *auth.StateSigner,
	authenticator *spotify.Authenticator,
	metrics ports.MetricsRecorder,
	cfg *config.Config,
	logger *zap.Logger,
) *dispatcher.Dispatcher {
	return dispatcher.New(
		limiter, mem, loop, media, queue, sender, signer,
		authenticator, metrics, logger,
		cfg.AgentMaxIterations, cfg.AgentRetryEnabled,
	)
}
