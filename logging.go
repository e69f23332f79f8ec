package taskloop

import (
	"github.com/m-mizutani/ctxlog"
)

var (
	// promptScope logs every input sent to the model.
	promptScope = ctxlog.NewScope("prompt", ctxlog.EnabledBy("TASKLOOP_LOGGING_PROMPT"))

	// responseScope logs every reply of the model.
	responseScope = ctxlog.NewScope("response", ctxlog.EnabledBy("TASKLOOP_LOGGING_RESPONSE"))
)
