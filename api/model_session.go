package api

type Credential struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest uses the field name the server binds, refresh_token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LoginUser struct {
	Id       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	RoleId   uint   `json:"role_id"`
}

// LoginResponse is the data of POST /login. POST /refresh-token returns the
// same shape without the user.
type LoginResponse struct {
	Credential
	User *LoginUser `json:"user,omitempty"`
}

// ResponseEnvelope is the wrapper every REST response uses.
type ResponseEnvelope[T any] struct {
	Data  T      `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

type ConnectionState int32

const (
	ConnectionState_Disconnected ConnectionState = iota
	ConnectionState_Connecting
	ConnectionState_Connected
	ConnectionState_Reconnecting
)

func (s ConnectionState) String() string {
	switch s {
	case ConnectionState_Disconnected:
		return "disconnected"
	case ConnectionState_Connecting:
		return "connecting"
	case ConnectionState_Connected:
		return "connected"
	case ConnectionState_Reconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}
