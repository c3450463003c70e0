package logger

import (
	"strings"

	"go.uber.org/fx/fxevent"
)

// FxLoggerAdapter routes fx container events through this package's levelled output.
type FxLoggerAdapter struct{}

// NewFxLoggerAdapter creates a new instance of FxLoggerAdapter.
func NewFxLoggerAdapter() fxevent.Logger {
	return &FxLoggerAdapter{}
}

// LogEvent logs events from Fx.
func (l *FxLoggerAdapter) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuting:
		Tracef("OnStart hook executing: %s (caller: %s)", shortFunctionName(e.FunctionName), e.CallerName)
	case *fxevent.OnStartExecuted:
		if e.Err != nil {
			Errorf("OnStart hook failed: %s, error: %v", shortFunctionName(e.FunctionName), e.Err)
		} else {
			Debugf("OnStart hook executed: %s in %s", shortFunctionName(e.FunctionName), e.Runtime)
		}
	case *fxevent.OnStopExecuting:
		Tracef("OnStop hook executing: %s", shortFunctionName(e.FunctionName))
	case *fxevent.OnStopExecuted:
		if e.Err != nil {
			Errorf("OnStop hook failed: %s, error: %v", shortFunctionName(e.FunctionName), e.Err)
		} else {
			Debugf("OnStop hook executed: %s in %s", shortFunctionName(e.FunctionName), e.Runtime)
		}
	case *fxevent.Supplied:
		if e.Err != nil {
			Errorf("Supply failed for %s: %v", e.TypeName, e.Err)
		} else {
			Tracef("Supplied: %s", e.TypeName)
		}
	case *fxevent.Provided:
		if e.Err != nil {
			Errorf("Provide failed for %s: %v", shortFunctionName(e.ConstructorName), e.Err)
			return
		}
		for _, t := range e.OutputTypeNames {
			Tracef("Provided: %s <= %s", t, shortFunctionName(e.ConstructorName))
		}
	case *fxevent.Invoking:
		Tracef("Invoking: %s", shortFunctionName(e.FunctionName))
	case *fxevent.Invoked:
		if e.Err != nil {
			Errorf("Invoke failed: %s, error: %v", shortFunctionName(e.FunctionName), e.Err)
		}
	case *fxevent.Stopping:
		Debugf("Stopping on signal: %s", strings.ToUpper(e.Signal.String()))
	case *fxevent.Stopped:
		if e.Err != nil {
			Errorf("Stop failed: %v", e.Err)
		}
	case *fxevent.RollingBack:
		Errorf("Start failed, rolling back: %v", e.StartErr)
	case *fxevent.RolledBack:
		if e.Err != nil {
			Errorf("Rollback failed: %v", e.Err)
		}
	case *fxevent.Started:
		if e.Err != nil {
			Errorf("Start failed: %v", e.Err)
		} else {
			Debugf("Application container started.")
		}
	case *fxevent.LoggerInitialized:
		if e.Err != nil {
			Errorf("Custom fx logger initialization failed: %v", e.Err)
		}
	}
}

// shortFunctionName drops anonymous closure suffixes such as ".func1" from fx function names.
func shortFunctionName(name string) string {
	if idx := strings.LastIndex(name, ".func"); idx != -1 {
		return name[:idx]
	}
	return name
}
