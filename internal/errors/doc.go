// Package errors provides structured, actionable error messages for
// scrollkit's command line and server startup.
//
// Every user-facing failure carries a code that maps to a short message,
// a longer explanation and a documentation link. Manifest errors also
// carry the file position reported by the YAML decoder, so the terminal
// output can point at the offending line.
//
// # Error Categories
//
//   - scroll: subscriber and hub misuse
//   - protocol: malformed client frames, handshake failures
//   - config: bad flags, environment or config file values
//   - manifest: site manifest parse and validation failures
//   - cli: command usage errors
//
// # Usage
//
//	err := errors.New("M202").
//	    WithLocation("site.yaml", 14, 5).
//	    WithSuggestion("Section ids must be unique within a page")
//
//	errors.PrintError(err)
//	// ERROR M202: Duplicate id on page
//	//
//	//   site.yaml:14:5
//	//
//	//     12 │   - id: intro
//	//     13 │     title: Intro
//	//   → 14 │   - id: intro
//	//        │     ^
//	//
//	//   Hint: Section ids must be unique within a page
package errors
