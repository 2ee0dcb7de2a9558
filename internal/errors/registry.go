package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

const docBase = "https://scrollkit.dev/docs/errors/"

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// Scroll (S001-S099)
	"S001": {
		Category: CategoryScroll,
		Message:  "Hub closed",
		Detail:   "The scroll hub was closed, usually because its session ended. Subscribers registered after close are ignored.",
		DocURL:   docBase + "S001",
	},
	"S002": {
		Category: CategoryScroll,
		Message:  "Subscriber panicked",
		Detail:   "A scroll subscriber panicked. The panic was recovered and the remaining subscribers still ran for this tick.",
		DocURL:   docBase + "S002",
	},

	// Protocol (P001-P099)
	"P001": {
		Category: CategoryProtocol,
		Message:  "Malformed frame",
		Detail:   "The client sent a frame that could not be decoded.",
		DocURL:   docBase + "P001",
	},
	"P002": {
		Category: CategoryProtocol,
		Message:  "Handshake failed",
		Detail:   "The first frame on a connection must be a ClientHello with a compatible protocol version.",
		DocURL:   docBase + "P002",
	},
	"P003": {
		Category: CategoryProtocol,
		Message:  "Too many sessions",
		Detail:   "The server reached its session limit and refused the connection.",
		DocURL:   docBase + "P003",
	},

	// Config (C101-C199)
	"C101": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "A configuration value from flags, environment or the config file is out of range.",
		DocURL:   docBase + "C101",
	},
	"C102": {
		Category: CategoryConfig,
		Message:  "Config file not readable",
		Detail:   "The config file passed with --config could not be read or parsed.",
		DocURL:   docBase + "C102",
	},
	"C103": {
		Category: CategoryConfig,
		Message:  "Server failed to start",
		Detail:   "The HTTP listener could not be started on the configured address.",
		DocURL:   docBase + "C103",
	},

	// Manifest (M201-M299)
	"M201": {
		Category: CategoryManifest,
		Message:  "Manifest parse error",
		Detail:   "The site manifest is not valid YAML or has fields of the wrong type.",
		DocURL:   docBase + "M201",
	},
	"M202": {
		Category: CategoryManifest,
		Message:  "Duplicate id on page",
		Detail:   "Two sections, parallax layers or fades on the same page share an id or target, so one of them would never run.",
		DocURL:   docBase + "M202",
	},
	"M203": {
		Category: CategoryManifest,
		Message:  "Invalid effect",
		Detail:   "A parallax, fade or theme entry has an out-of-range value.",
		DocURL:   docBase + "M203",
	},
	"M204": {
		Category: CategoryManifest,
		Message:  "Manifest source unavailable",
		Detail:   "The manifest could not be loaded from its source (file or S3).",
		DocURL:   docBase + "M204",
	},
	"M205": {
		Category: CategoryManifest,
		Message:  "Unknown page",
		Detail:   "The client asked for a page path that the manifest does not define and no default page exists.",
		DocURL:   docBase + "M205",
	},

	// CLI (C001-C099)
	"C001": {
		Category: CategoryCLI,
		Message:  "Invalid command usage",
		DocURL:   docBase + "C001",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Codes returns all registered codes.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}
