// Package cli parses command-line arguments into an app.Config.
package cli

import (
	"flag"
	"fmt"
	"io"

	"github.com/coblang/cob/internal/app"
)

// ExitError carries a process exit code alongside the message. flag's own
// help output uses code 0; usage mistakes use code 2.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// Parse reads the arguments (excluding the program name) and returns a
// validated configuration. Usage and error text is written to errW.
func Parse(args []string, errW io.Writer) (*app.Config, error) {
	fs := flag.NewFlagSet("cob", flag.ContinueOnError)
	fs.SetOutput(errW)
	fs.Usage = func() {
		fmt.Fprintf(errW, "Usage: cob [options] <path>\n\n")
		fmt.Fprintf(errW, "Loads and resolves the .cob file at <path>, or every .cob file under it.\n\n")
		fmt.Fprintf(errW, "Options:\n")
		fs.PrintDefaults()
	}

	logFormat := fs.String("log-format", "text", `log output format: "text" or "json"`)
	logLevel := fs.String("log-level", "info", `log verbosity: "debug", "info", "warn", or "error"`)
	dump := fs.Bool("dump", false, "print each resolved file as JSON on stdout")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, &ExitError{Code: 0}
		}
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return nil, &ExitError{Code: 2, Message: "expected exactly one path argument"}
	}

	cfg, err := app.NewConfig(fs.Arg(0), *logFormat, *logLevel, *dump)
	if err != nil {
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}
	return cfg, nil
}
