package notice

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogNotifier implements Notifier by logging notices
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a LogNotifier writing to the global logger
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: log.Logger}
}

// NewLogNotifierWith creates a LogNotifier writing to logger
func NewLogNotifierWith(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the notice; destructive notices are logged as warnings
func (n *LogNotifier) Notify(ctx context.Context, notice Notice) {
	event := n.logger.Info()
	if notice.Destructive {
		event = n.logger.Warn()
	}
	event.
		Str("notice", string(notice.Kind)).
		Str("title", notice.Title).
		Msg(notice.Message)
}
