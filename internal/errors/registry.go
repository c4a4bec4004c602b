package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Config Errors (E100-E199)
	// ============================================

	"E100": {
		Category: CategoryConfig,
		Message:  "Config file not found",
		Detail:   "No projet.json, projet.yaml or projet.yml was found in the project directory.",
	},
	"E101": {
		Category: CategoryConfig,
		Message:  "Config file could not be parsed",
		Detail:   "The config file is not valid JSON or YAML.",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Invalid config value",
		Detail:   "A config value is out of range or has the wrong form.",
	},
	"E103": {
		Category: CategoryConfig,
		Message:  "Unsupported config format",
		Detail:   "Config files must end in .json, .yaml or .yml.",
	},
	"E104": {
		Category: CategoryConfig,
		Message:  "Config file could not be written",
		Detail:   "The config file could not be created or saved.",
	},

	// ============================================
	// CLI Errors (E200-E299)
	// ============================================

	"E200": {
		Category: CategoryCLI,
		Message:  "Tailwind download failed",
		Detail:   "The standalone Tailwind CSS binary could not be downloaded.",
	},
	"E201": {
		Category: CategoryCLI,
		Message:  "Tailwind build failed",
		Detail:   "The Tailwind CSS binary exited with an error.",
	},
	"E202": {
		Category: CategoryCLI,
		Message:  "Unsupported platform",
		Detail:   "No standalone Tailwind CSS binary exists for this operating system and architecture.",
	},
	"E203": {
		Category: CategoryCLI,
		Message:  "Pages directory not found",
		Detail:   "The directory configured under pages.dir does not exist.",
	},
	"E204": {
		Category: CategoryCLI,
		Message:  "Server failed",
		Detail:   "The HTTP server could not start or stopped with an error.",
	},
	"E205": {
		Category: CategoryCLI,
		Message:  "Tailwind config could not be written",
		Detail:   "The generated tailwind.config.js could not be saved.",
	},

	// ============================================
	// Store Errors (E300-E399)
	// ============================================

	"E300": {
		Category: CategoryStore,
		Message:  "Preference read failed",
		Detail:   "The preference store returned an error while reading a key.",
	},
	"E301": {
		Category: CategoryStore,
		Message:  "Preference write failed",
		Detail:   "The preference store returned an error while writing a key.",
	},
	"E302": {
		Category: CategoryStore,
		Message:  "Unknown store backend",
		Detail:   "theme.store must be one of memory, file or s3.",
	},
	"E303": {
		Category: CategoryStore,
		Message:  "Invalid preference key",
		Detail:   "Preference keys must be non-empty and must not contain '..'.",
	},

	// ============================================
	// Protocol Errors (E400-E499)
	// ============================================

	"E400": {
		Category: CategoryProtocol,
		Message:  "Malformed client message",
		Detail:   "A websocket message from the browser was not valid JSON.",
	},
	"E401": {
		Category: CategoryProtocol,
		Message:  "Unknown message type",
		Detail:   "The browser sent a message type the server does not handle.",
	},
	"E402": {
		Category: CategoryProtocol,
		Message:  "Unknown target element",
		Detail:   "The event refers to an element that is no longer on the page.",
	},
	"E403": {
		Category: CategoryProtocol,
		Message:  "Event rate limit exceeded",
		Detail:   "The browser sent events faster than the configured limit; extra events were dropped.",
	},
	"E404": {
		Category: CategoryProtocol,
		Message:  "Session handshake failed",
		Detail:   "The first message on a websocket must be a hello for a known page.",
	},
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
