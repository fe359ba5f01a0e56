package di

import (
	"context"
	"io"
	"sync"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-email-agent/internal/adapters/cli"
	"github.com/mikey/llm-email-agent/internal/config"
	"github.com/mikey/llm-email-agent/internal/core"
	"github.com/mikey/llm-email-agent/internal/delivery"
	"github.com/mikey/llm-email-agent/internal/factory"
	"github.com/mikey/llm-email-agent/internal/logging"
	"github.com/mikey/llm-email-agent/internal/message"
	"github.com/mikey/llm-email-agent/internal/utils"
	"github.com/mikey/llm-email-agent/internal/whitelist"
)

// Streams are the terminal streams used by the shell and the OAuth consent step
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Resources collects components that hold connections or files
type Resources struct {
	mu      sync.Mutex
	closers []io.Closer
}

// Track registers v for Close if it implements io.Closer
func (r *Resources) Track(v interface{}) {
	c, ok := v.(io.Closer)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closers = append(r.closers, c)
}

// Close closes tracked resources in reverse order
func (r *Resources) Close(logger *zap.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			logger.Warn("Failed to close resource", zap.Error(err))
		}
	}
	r.closers = nil
}

// CloseResources closes whatever the container tracked so far. It is meant
// for the path where a constructor failed before run could defer Close.
func CloseResources(container *dig.Container) {
	logger := zap.NewNop()
	_ = container.Invoke(func(l *zap.Logger) { logger = l })
	_ = container.Invoke(func(res *Resources) { res.Close(logger) })
}

// BuildContainer creates and configures a dependency injection container.
// Components are built lazily, so invoking only the history repository
// never touches the LLM or the mail provider.
func BuildContainer(ctx context.Context, flags *CLIFlags, streams Streams) (*dig.Container, error) {
	container := dig.New()

	// Register run context, flags and streams
	if err := container.Provide(func() context.Context { return ctx }); err != nil {
		return nil, err
	}
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}
	if err := container.Provide(func() Streams { return streams }); err != nil {
		return nil, err
	}
	if err := container.Provide(func() *Resources { return &Resources{} }); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags) (*config.Config, error) {
		cfg, err := config.New(flags.ConfigFile)
		if err != nil {
			return nil, err
		}
		if flags.NoHTML {
			cfg.Set("delivery.use_html", false)
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(cfg *config.Config, flags *CLIFlags) (*zap.Logger, error) {
		logger, err := logging.InitLogger(cfg, flags.Verbose, flags.JSONLog)
		if err != nil {
			return nil, err
		}
		if file := cfg.GetViper().ConfigFileUsed(); file != "" {
			logger.Debug("Loaded configuration from file", zap.String("file", file))
		}
		return logger, nil
	}); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewHistoryFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger, streams Streams) *factory.DeliveryFactory {
		return factory.NewDeliveryFactory(cfg, logger, streams.In, streams.Err)
	}); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}

	// Register chat client and the two agents on top of it
	if err := container.Provide(func(ctx context.Context, f *factory.LLMFactory, res *Resources) (core.ChatClient, error) {
		chat, err := f.CreateChatClient(ctx)
		if err != nil {
			return nil, err
		}
		res.Track(chat)
		return chat, nil
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.LLMFactory, chat core.ChatClient) *core.IntentParser {
		return f.CreateIntentParser(chat)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.LLMFactory, chat core.ChatClient) *core.BodyWriter {
		return f.CreateBodyWriter(chat)
	}); err != nil {
		return nil, err
	}

	// Register message builder
	if err := container.Provide(message.NewBuilder); err != nil {
		return nil, err
	}

	// Register mail transport and delivery client
	if err := container.Provide(func(ctx context.Context, f *factory.DeliveryFactory) (delivery.Transport, error) {
		return f.CreateTransport(ctx)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.DeliveryFactory, transport delivery.Transport) *delivery.Client {
		return f.CreateClient(transport)
	}); err != nil {
		return nil, err
	}

	// Register recipient policy
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *whitelist.Checker {
		domains := cfg.GetAllowedDomains()
		if len(domains) > 0 {
			logger.Info("Loaded allowed recipient domains", zap.Strings("domains", domains))
		}
		return whitelist.NewChecker(domains, logger)
	}); err != nil {
		return nil, err
	}

	// Register history repository, nil when disabled
	if err := container.Provide(func(
		ctx context.Context,
		f *factory.HistoryFactory,
		res *Resources,
		logger *zap.Logger,
	) (core.HistoryRepository, error) {
		if !f.IsHistoryEnabled() {
			return nil, nil
		}
		repo, err := f.CreateHistoryRepository()
		if err != nil {
			return nil, err
		}
		res.Track(repo)
		if err := f.PruneExpired(ctx, repo); err != nil {
			logger.Warn("History cleanup failed", zap.Error(err))
		}
		return repo, nil
	}); err != nil {
		return nil, err
	}

	// Register email agent service. The sender is resolved once here.
	if err := container.Provide(func(
		ctx context.Context,
		parser *core.IntentParser,
		writer *core.BodyWriter,
		builder *message.Builder,
		client *delivery.Client,
		policy *whitelist.Checker,
		history core.HistoryRepository,
		logger *zap.Logger,
	) (*core.EmailAgentService, error) {
		sender, err := client.SenderAddress(ctx)
		if err != nil {
			return nil, err
		}
		logger.Debug("Resolved sender", zap.String("sender", sender))
		return core.NewEmailAgentService(parser, writer, builder, client, policy, history, logger, sender), nil
	}); err != nil {
		return nil, err
	}

	// Register shell
	if err := container.Provide(func(
		service *core.EmailAgentService,
		text *utils.TextProcessor,
		texts *factory.TextProcessorFactory,
		cfg *config.Config,
		flags *CLIFlags,
		streams Streams,
		logger *zap.Logger,
	) *cli.Shell {
		return cli.NewShell(service, text, logger, streams.Out, cli.Options{
			Verbose:       flags.Verbose,
			JSON:          flags.JSON,
			UseHTML:       cfg.GetDelivery().UseHTML,
			MaxPromptSize: texts.MaxPromptSize(),
		})
	}); err != nil {
		return nil, err
	}

	return container, nil
}
