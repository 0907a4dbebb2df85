package llm

import (
	"time"

	"go.uber.org/zap"

	"github.com/voicebot/codexreview/pkg/logger"
)

// BaseClient provides common functionality for LLM clients.
// Concrete implementations should embed this struct.
type BaseClient struct {
	config *ClientConfig
	logger *zap.Logger
}

// NewBaseClient creates a new BaseClient with the given configuration
func NewBaseClient(config *ClientConfig) *BaseClient {
	if config == nil {
		config = NewClientConfig("unknown")
	}

	return &BaseClient{
		config: config,
		logger: logger.Named("llm." + config.Name),
	}
}

// Name returns the client name
func (b *BaseClient) Name() string {
	return b.config.Name
}

// GetConfig returns the client configuration
func (b *BaseClient) GetConfig() *ClientConfig {
	return b.config
}

// Logger returns the client's logger
func (b *BaseClient) Logger() *zap.Logger {
	return b.logger
}

func metadataFields(req *Request) []zap.Field {
	var fields []zap.Field
	if req == nil {
		return fields
	}
	for _, key := range []string{logger.FieldTaskID, logger.FieldJobID} {
		if v := req.GetMetadata(key); v != "" {
			fields = append(fields, zap.String(key, v))
		}
	}
	return fields
}

// LogRequest logs request details
func (b *BaseClient) LogRequest(req *Request, operation string) {
	fields := append(metadataFields(req),
		zap.String("operation", operation),
		zap.String("model", b.config.GetModel(req)),
		zap.String("work_dir", b.config.GetWorkDir(req)),
		zap.Int("prompt_length", len(req.Prompt)),
	)
	b.logger.Debug("Sending request", fields...)
}

// LogResponse logs response details or the error
func (b *BaseClient) LogResponse(req *Request, resp *Response, duration time.Duration, err error) {
	fields := append(metadataFields(req), zap.Duration("duration", duration))
	if err != nil {
		b.logger.Warn("Request failed", append(fields, zap.Error(err))...)
		return
	}
	if resp != nil {
		fields = append(fields, zap.Int("content_length", len(resp.Content)))
	}
	b.logger.Debug("Received response", fields...)
}
