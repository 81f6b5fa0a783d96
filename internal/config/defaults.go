package config

const (
	defaultDataDir                  = "~/.local/share/daybook"
	defaultLogDir                   = "~/.local/share/daybook/logs"
	defaultAPIBind                  = "127.0.0.1:7410"
	defaultWorkerConcurrency        = 2
	defaultMaxAttempts              = 3
	defaultBackoffInitialMS         = 2000
	defaultRetainCompleted          = 50
	defaultRetainFailed             = 50
	defaultSpeechModel              = "whisper-1"
	defaultSpeechRequestTimeout     = 120
	defaultCallbackRequestTimeout   = 15
	defaultStreamConsumerName       = "view-materializer"
	defaultStreamPollInterval       = 2
	defaultStreamBatchSize          = 100
	defaultNotifyRequestTimeout     = 10
	defaultNotifyDedupWindowSecs    = 600
	defaultQueuePollInterval        = 2
	defaultErrorRetryInterval       = 10
	defaultWorkflowHeartbeatTick    = 15
	defaultWorkflowHeartbeatTimeout = 120
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Transcription: Transcription{
			Concurrency:      defaultWorkerConcurrency,
			MaxAttempts:      defaultMaxAttempts,
			BackoffInitialMS: defaultBackoffInitialMS,
			RetainCompleted:  defaultRetainCompleted,
			RetainFailed:     defaultRetainFailed,
		},
		Speech: Speech{
			Model:          defaultSpeechModel,
			RequestTimeout: defaultSpeechRequestTimeout,
		},
		Callback: Callback{
			RequestTimeout: defaultCallbackRequestTimeout,
		},
		Stream: Stream{
			ConsumerName: defaultStreamConsumerName,
			PollInterval: defaultStreamPollInterval,
			BatchSize:    defaultStreamBatchSize,
		},
		Notifications: Notifications{
			RequestTimeout:     defaultNotifyRequestTimeout,
			Errors:             true,
			Queue:              true,
			DedupWindowSeconds: defaultNotifyDedupWindowSecs,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultWorkflowHeartbeatTick,
			HeartbeatTimeout:   defaultWorkflowHeartbeatTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
