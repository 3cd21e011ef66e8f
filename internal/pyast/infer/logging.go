package infer

import "github.com/mvp-joe/logsift/internal/pyast"

// levelConstants are the numeric level constants exported by logging.
var levelConstants = map[string]int64{
	"CRITICAL": 50,
	"FATAL":    50,
	"ERROR":    40,
	"WARNING":  30,
	"WARN":     30,
	"INFO":     20,
	"DEBUG":    10,
	"NOTSET":   0,
}

// loggerMethods are the Logger methods reachable on instances whose class
// has no source in the file.
var loggerMethods = setOf(
	"debug", "info", "warning", "warn", "error", "exception", "critical", "fatal", "log",
	"setLevel", "getEffectiveLevel", "isEnabledFor", "getChild",
	"addHandler", "removeHandler", "hasHandlers", "addFilter", "removeFilter",
	"handle", "makeRecord", "findCaller",
)

func setOf(names ...string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}

// loggingMember models attribute access on a logging module.
func (e *Inferencer) loggingMember(module, attr string, line int) ([]pyast.Node, error) {
	if v, ok := levelConstants[attr]; ok {
		return []pyast.Node{pyast.NewConst(v, line)}, nil
	}
	switch attr {
	case "Logger":
		return []pyast.Node{pyast.NewBuiltin(pyast.LoggerQName, e.logger, line)}, nil
	case "RootLogger":
		return []pyast.Node{pyast.NewBuiltin(e.rootLogger.QName, e.rootLogger, line)}, nil
	case "root":
		return []pyast.Node{pyast.NewInstance(e.rootLogger, line)}, nil
	case "getLogger", "getLoggerClass",
		"debug", "info", "warning", "warn", "error", "exception", "critical", "fatal", "log":
		return []pyast.Node{pyast.NewBuiltin(module+"."+attr, nil, line)}, nil
	}
	return nil, ErrUninferable
}

func (e *Inferencer) isLoggingBuiltin(b *pyast.Builtin, name string) bool {
	for m := range e.loggingModules {
		if b.QName == m+"."+name {
			return true
		}
	}
	return false
}

// callBuiltin models calling an object from the logging module.
func (e *Inferencer) callBuiltin(b *pyast.Builtin, c *pyast.Call) ([]pyast.Node, error) {
	switch {
	case b.Class != nil:
		return []pyast.Node{pyast.NewInstance(b.Class, c.Line())}, nil
	case e.isLoggingBuiltin(b, "getLogger"):
		if len(c.Args) == 0 && len(c.Keywords) == 0 {
			return []pyast.Node{pyast.NewInstance(e.rootLogger, c.Line())}, nil
		}
		return []pyast.Node{pyast.NewInstance(e.logger, c.Line())}, nil
	case e.isLoggingBuiltin(b, "getLoggerClass"):
		return []pyast.Node{pyast.NewBuiltin(pyast.LoggerQName, e.logger, c.Line())}, nil
	}
	return nil, ErrUninferable
}
