package im

// MessageCatalogVersion identifies the revision of the message catalog. Bump it
// whenever a message text changes so log consumers can tell revisions apart.
const MessageCatalogVersion = "1"

// MessageKey identifies a catalog entry. Error entries use the ErrorKind name.
type MessageKey string

// Warning and informational catalog keys.
const (
	WarnNullOrEmptyParameterValues MessageKey = "WarnNullOrEmptyParameterValues"
	WarnNullParameterName          MessageKey = "WarnNullParameterName"
	WarnNullServiceResult          MessageKey = "WarnNullServiceResult"
	InfoEmptyPutContent            MessageKey = "InfoEmptyPutContent"
	MsgToscaNotSupported           MessageKey = "ToscaNotSupported"
	MsgInfrastructureOutputs       MessageKey = "InfrastructureOutputs"
)

var messageCatalog = map[MessageKey]string{
	MessageKey(KindInvalidArgument):  "null or empty value is not accepted",
	MessageKey(KindAuthFileNotFound): "authorization file not found",
	MessageKey(KindAuthFileParse):    "error reading the authorization file",
	MessageKey(KindTransport):        "unable to reach the IM service",
	MessageKey(KindDecode):           "unexpected response body",
	MessageKey(KindService):          "request rejected by the IM service",
	MessageKey(KindPollingTimeout):   "VM did not reach an accepted state",

	WarnNullOrEmptyParameterValues: "null or empty list passed as parameter values",
	WarnNullParameterName:          "null string passed as parameter name",
	WarnNullServiceResult:          "null result set in the service response",
	InfoEmptyPutContent:            "empty PUT body content",
	MsgToscaNotSupported:           "TOSCA content type not supported",
	MsgInfrastructureOutputs:       "error retrieving the infrastructure outputs",
}

// Message returns the catalog text for key, or the key itself when absent.
func Message(key MessageKey) string {
	if msg, ok := messageCatalog[key]; ok {
		return msg
	}

	return string(key)
}
