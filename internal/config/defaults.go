package config

// Transports accepted by server.transport.
const (
	TransportStdio     = "stdio"
	TransportWebSocket = "websocket"
)

// Pickers accepted by repository.picker.
const (
	PickerStatic = "static"
	PickerPrompt = "prompt"
	PickerDialog = "dialog"
)

// DefaultMaxResults is the largest fuzzy filter result a client can receive.
const DefaultMaxResults = 50

// DefaultWatchedFiles are the repository-root files whose changes make the
// tracked file list stale.
var DefaultWatchedFiles = []string{
	".gitattributes",
	".lfsconfig",
}

// DefaultDialogCommand opens a native directory chooser on Linux desktops.
// Exit status 1 means the user cancelled.
var DefaultDialogCommand = []string{
	"zenity",
	"--file-selection",
	"--directory",
	"--title=Select repository",
}
