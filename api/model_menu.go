package api

// MenuNode is one entry of the server-declared navigation tree. A zero ParentID
// marks a root entry; an empty Component marks a group-only entry with no page.
type MenuNode struct {
	Id        uint   `json:"id" validate:"required"`
	ParentId  uint   `json:"parent_id"`
	Title     string `json:"title"`
	Icon      string `json:"icon,omitempty"`
	Path      string `json:"path" validate:"required_with=Component"`
	Name      string `json:"name" validate:"required_with=Component"`
	Component string `json:"component,omitempty"`
	Sort      int    `json:"sort"`
}

func (m MenuNode) IsRoot() bool {
	return m.ParentId == 0
}

func (m MenuNode) HasPage() bool {
	return m.Component != ""
}

type MenuTreeNode struct {
	MenuNode
	Children []*MenuTreeNode `json:"children"`
}

// AuthMenus is the payload returned by GET /authmenus.
type AuthMenus struct {
	Menus       []MenuNode `json:"menus"`
	Permissions []string   `json:"permissions"`
}
