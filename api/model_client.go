package api

type ClientEvent struct {
	EventType ClientEventType `json:"eventType"`
	EventData interface{}     `json:"eventData"`
	Status    string          `json:"status"`
	Error     error           `json:"error"`
}

type ClientEventType string

const (
	ClientEventType_Initialized        ClientEventType = "initialized"
	ClientEventType_Error              ClientEventType = "error"
	ClientEventType_Connected          ClientEventType = "connected"
	ClientEventType_Disconnected       ClientEventType = "disconnected"
	ClientEventType_Reconnecting       ClientEventType = "reconnecting"
	ClientEventType_ReconnectFailed    ClientEventType = "reconnectFailed"
	ClientEventType_RoutesLoaded       ClientEventType = "routesLoaded"
	ClientEventType_PermissionsFailed  ClientEventType = "permissionsFailed"
	ClientEventType_CredentialsUpdated ClientEventType = "credentialsUpdated"
)
