package console

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/twmb/murmur3"

	"github.com/normaladmin/go-console-sdk/api"
	"github.com/normaladmin/go-console-sdk/util"
)

// BuildMenuTree turns the flat menu list into a forest. Entries with a zero
// parent id are roots. Entries whose parent is not in the list are dropped
// along with their descendants; they are never promoted to roots.
// Siblings keep their server order, stable-sorted by Sort.
func BuildMenuTree(menus []api.MenuNode) []*api.MenuTreeNode {
	lookup := make(map[uint]*api.MenuTreeNode, len(menus))
	for _, m := range menus {
		lookup[m.Id] = &api.MenuTreeNode{MenuNode: m, Children: []*api.MenuTreeNode{}}
	}

	roots := make([]*api.MenuTreeNode, 0)
	for _, m := range menus {
		node := lookup[m.Id]
		if m.IsRoot() {
			roots = append(roots, node)
			continue
		}
		parent, ok := lookup[m.ParentId]
		if !ok {
			util.Debugf("Dropping menu %d: parent %d does not exist", m.Id, m.ParentId)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	// Duplicate ids share one node. Cycles are unreachable from any root.
	visited := make(map[uint]bool, len(menus))
	var walk func(nodes []*api.MenuTreeNode) []*api.MenuTreeNode
	walk = func(nodes []*api.MenuTreeNode) []*api.MenuTreeNode {
		kept := nodes[:0]
		for _, n := range nodes {
			if visited[n.Id] {
				continue
			}
			visited[n.Id] = true
			n.Children = walk(n.Children)
			kept = append(kept, n)
		}
		sort.SliceStable(kept, func(i, j int) bool {
			return kept[i].Sort < kept[j].Sort
		})
		return kept
	}
	return walk(roots)
}

// pageEntries keeps the menu entries that name a page component, in payload
// order. Group-only entries never become routes.
func pageEntries(menus []api.MenuNode) []api.MenuNode {
	entries := make([]api.MenuNode, 0, len(menus))
	for _, m := range menus {
		if m.HasPage() {
			entries = append(entries, m)
		}
	}
	return entries
}

func validateAuthMenus(menus *api.AuthMenus) error {
	if menus == nil {
		return fmt.Errorf("permission provider returned no payload")
	}
	return nil
}

// validMenuEntries drops entries that fail validation, such as a zero id or a
// page entry without a name, so one bad row does not cost the rest.
func validMenuEntries(menus []api.MenuNode) []api.MenuNode {
	valid := make([]api.MenuNode, 0, len(menus))
	for _, m := range menus {
		if err := validate.Struct(m); err != nil {
			util.Warnf("Dropping menu %d (%s): %v", m.Id, m.Path, err)
			continue
		}
		valid = append(valid, m)
	}
	return valid
}

// menuFingerprint hashes the page entries and permissions so an unchanged
// payload can be recognised without rebuilding the route table.
func menuFingerprint(entries []api.MenuNode, permissions []string) uint32 {
	h := murmur3.SeedNew32(0)
	for _, e := range entries {
		_, _ = h.Write([]byte(strconv.FormatUint(uint64(e.Id), 10)))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(e.Path))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(e.Name))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(e.Component))
		_, _ = h.Write([]byte{1})
	}
	sorted := append([]string(nil), permissions...)
	sort.Strings(sorted)
	for _, p := range sorted {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
	}
	return h.Sum32()
}
