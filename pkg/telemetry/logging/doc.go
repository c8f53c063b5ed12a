// Package logging builds the process-wide slog logger.
//
// Credentials pass through several layers of this tool: bearer tokens in
// request headers, the Threads access token in query strings, and app
// passwords in config. Every record written by a logger from New is passed
// through a Redactor so none of these reach the output, including when they
// are embedded in error messages.
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Redact: true,
//	})
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger)
//
// Formats:
//
//   - json: one JSON object per line
//   - text: slog's key=value format
//   - console: key=value without timestamps, for interactive use
package logging
