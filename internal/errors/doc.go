// Package errors provides structured, actionable error messages for projet-ui.
//
// Every error the CLI or server reports to an operator carries a code that
// maps to a short message and a longer explanation:
//
//   - E1xx config: loading and validating projet.json / projet.yaml
//   - E2xx cli: commands, the pages directory and the tailwind toolchain
//   - E3xx store: preference persistence (memory, file, S3)
//   - E4xx protocol: websocket messages from the browser client
//
// # Usage
//
//	err := errors.New("E101").
//	    WithLocation("projet.json", 12, 5).
//	    WithSuggestion("Check for a trailing comma").
//	    Wrap(parseErr)
//
//	errors.PrintError(err)
//	// ERROR E101: Config file could not be parsed
//	//
//	//   projet.json:12:5
//	//   ...
//
// Errors wrap their cause, so errors.Is and errors.As from the standard
// library keep working. HasCode reports whether any error in a chain
// carries a given code.
package errors
