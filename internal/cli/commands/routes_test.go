package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	console "github.com/normaladmin/go-console-sdk"
	"github.com/normaladmin/go-console-sdk/api"
)

func TestRenderRoutes(t *testing.T) {
	var buf bytes.Buffer
	renderRoutes(&buf, nil)
	assert.Equal(t, "(0 routes)\n", buf.String())

	buf.Reset()
	renderRoutes(&buf, []*console.Route{
		{Name: "Admins", Path: "/layout/admins", Component: "system/Admins", Title: "Administrators"},
	})
	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "/layout/admins")
	assert.Contains(t, out, "system/Admins")
}

func TestPrintMenuTree(t *testing.T) {
	var buf bytes.Buffer
	printMenuTree(&buf, []*api.MenuTreeNode{{
		MenuNode: api.MenuNode{Id: 1, Title: "System"},
		Children: []*api.MenuTreeNode{{MenuNode: api.MenuNode{Id: 2, Title: "Admins", Path: "/admins"}}},
	}}, 0)
	assert.Equal(t, "System\n  Admins (/admins)\n", buf.String())
}
