package compositions

import (
	"sync"

	"github.com/GriffinCanCode/composer/internal/infrastructure/logging"
	"github.com/GriffinCanCode/composer/internal/sandbox"
	"github.com/GriffinCanCode/composer/internal/serve"
	"go.uber.org/zap"
)

// subscribeErrors forwards the first uncaught page exception to onError as
// an *OutOfBandError. Later exceptions are ignored. The returned func
// unsubscribes.
func subscribeErrors(page Page, maps *serve.SourceMapContext, onError func(error)) func() {
	var once sync.Once
	return page.OnPageError(func(pe *sandbox.PageError) {
		once.Do(func() {
			onError(&OutOfBandError{
				Name:    pe.Name,
				Message: pe.Message,
				Stack:   maps.Symbolicate(pe.Stack),
			})
		})
	})
}

// forwardConsole logs console lines of page and hands them to observe
func forwardConsole(page Page, log logging.LogOptions, logger *logging.Logger, observe func(sandbox.ConsoleMessage)) func() {
	return page.OnConsole(func(msg sandbox.ConsoleMessage) {
		if observe != nil {
			observe(msg)
		}
		level := logging.LevelVerbose
		switch msg.Type {
		case "warn":
			level = logging.LevelWarn
		case "error":
			level = logging.LevelError
		}
		log.Log(logger, level, msg.Text, zap.String("source", "browser"), zap.String("type", msg.Type))
	})
}
