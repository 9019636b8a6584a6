package logsvc

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/trezcool/gradebook/core"
)

// ConsoleLogger only prints. Debug lines are dropped unless verbose.
type ConsoleLogger struct {
	std     *log.Logger
	verbose bool
}

var _ core.Logger = (*ConsoleLogger)(nil)

func NewConsoleLogger(std *log.Logger, verbose bool) *ConsoleLogger {
	return &ConsoleLogger{std: std, verbose: verbose}
}

func (l ConsoleLogger) Debug(msg string, args ...interface{}) {
	if l.verbose {
		printArgs(l.std, "DEBUG", msg, args)
	}
}

func (l ConsoleLogger) Info(msg string, args ...interface{}) {
	printArgs(l.std, "INFO", msg, args)
}

func (l ConsoleLogger) Warn(msg string, args ...interface{}) {
	printArgs(l.std, "WARN", msg, args)
}

func (l ConsoleLogger) Error(msg string, args ...interface{}) {
	printArgs(l.std, "ERROR", msg, args)
}

func (l ConsoleLogger) Fatal(msg string, args ...interface{}) {
	printArgs(l.std, "FATAL", msg, args)
	l.std.Fatal(msg)
}

// printArgs prints msg on one line: maps as sorted key=value pairs, anything else with %v.
func printArgs(std *log.Logger, level, msg string, args []interface{}) {
	var b strings.Builder
	b.WriteString(level)
	b.WriteString(" ")
	b.WriteString(msg)
	for _, arg := range args {
		switch a := arg.(type) {
		case nil:
		case map[string]interface{}:
			keys := make([]string, 0, len(a))
			for k := range a {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(&b, " %s=%v", k, a[k])
			}
		default:
			fmt.Fprintf(&b, " | %v", a)
		}
	}
	std.Println(b.String())
}
