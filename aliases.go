package console

import (
	"github.com/normaladmin/go-console-sdk/api"
	"github.com/normaladmin/go-console-sdk/util"
)

type Credential = api.Credential
type MenuNode = api.MenuNode
type MenuTreeNode = api.MenuTreeNode
type AuthMenus = api.AuthMenus
type Message = api.Message
type RecallEvent = api.RecallEvent
type ClientEvent = api.ClientEvent
type ConnectionState = api.ConnectionState
type LoginResponse = api.LoginResponse
type Logger = util.Logger
type DiscardLogger = util.DiscardLogger

func SetLogger(log Logger) { util.SetLogger(log) }
