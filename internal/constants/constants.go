package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second
)

// Transport retry limits. Retries are opt-in; RetryMax defaults to zero.
const (
	// DefaultRetryWaitMin is the minimum wait between opted-in transport retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait between opted-in transport retries.
	DefaultRetryWaitMax = 30 * time.Second
)

// Polling defaults.
const (
	// DefaultPollInterval is the wait between two VM state queries.
	DefaultPollInterval = 5 * time.Second

	// DefaultPollMaxInterval caps the exponential poll interval.
	DefaultPollMaxInterval = 1 * time.Minute

	// DefaultPollMaxAttempts is the number of state queries before giving up.
	DefaultPollMaxAttempts = 20

	// DefaultWaitConcurrency limits concurrent pollers when waiting on several VMs.
	DefaultWaitConcurrency = 4
)

// REST path segments and query parameters of the IM service.
const (
	PathInfrastructures = "/infrastructures"
	PathVMs             = "vms"
	PathVersion         = "/version"

	PropertyState   = "state"
	PropertyOutputs = "outputs"
	PropertyContMsg = "contmsg"

	ActionReboot = "reboot"

	QueryContext = "context"
	QueryVMList  = "vm_list"
)

// HTTP headers and media types.
const (
	HeaderAuthorization = "Authorization"
	HeaderAccept        = "Accept"
	HeaderContentType   = "Content-Type"
	HeaderUserAgent     = "User-Agent"
	HeaderRequestID     = "X-Request-ID"

	MediaTypeText    = "text/plain"
	MediaTypeYAML    = "text/yaml"
	MediaTypeJSON    = "application/json"
	MediaTypeURIList = "text/uri-list"

	DefaultUserAgent = "im-client-go"
)

// Auth file syntax.
const (
	// AuthTypeInfrastructureManager is the credential type of the IM service itself.
	AuthTypeInfrastructureManager = "InfrastructureManager"

	// AuthFieldType is the field every credential must carry.
	AuthFieldType = "type"

	// AuthFieldSeparator separates fields within one credential.
	AuthFieldSeparator = ";"

	// AuthKeyValueSeparator separates a field key from its value.
	AuthKeyValueSeparator = "="

	// AuthHeaderLineSeparator joins credentials in the Authorization header.
	// It is the two-character sequence backslash + 'n', not a newline.
	AuthHeaderLineSeparator = `\n`

	// AuthCommentPrefix marks a comment line in an auth file.
	AuthCommentPrefix = "#"
)

// UI and display constants.
const (
	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"

	// MaskedSecret is used to hide sensitive information.
	MaskedSecret = "***"
)

// Format constants.
const (
	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"

	// FormatTable for table output format.
	FormatTable = "table"

	// FormatPlain for unformatted output.
	FormatPlain = "plain"
)

// Event publishing.
const (
	// DefaultEventSubjectPrefix is the NATS subject prefix for VM state events.
	DefaultEventSubjectPrefix = "im.infrastructures"
)

// Metrics.
const (
	MetricsNamespace = "im"
	MetricsSubsystem = "client"
)

// CLI argument counts.
const (
	// MinimumArgumentCount is the argument count of KEY VALUE style commands.
	MinimumArgumentCount = 2
)
