package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

var (
	successLine = color.New(color.FgGreen)
	warnLine    = color.New(color.FgYellow)
	fatalLine   = color.New(color.FgRed, color.Bold)
)

func Successf(format string, args ...interface{}) {
	successLine.Fprintf(os.Stdout, "✅ "+format+"\n", args...)
}

func Warnf(format string, args ...interface{}) {
	warnLine.Fprintf(os.Stderr, "⚠️  "+format+"\n", args...)
}

func Fatalf(format string, args ...interface{}) {
	fatalLine.Fprintf(os.Stderr, "❌ "+format+"\n", args...)
}

// Machinef prints a KEY=value line for callers that parse our output. Never
// colored; color codes would corrupt the value.
func Machinef(key, value string) {
	fmt.Fprintf(os.Stdout, "%s=%s\n", key, value)
}
