// Package nav holds the dashboard sidebar and decides which entry is active
// for a request path.
//
// An entry matches a path when the path equals its href or continues it past
// a "/" boundary. When several siblings match, the one with the longest href
// wins: /dashboard matches every dashboard page, but /dashboard/settings/...
// belongs to Settings, /dashboard/shop/... to Shop and
// /dashboard/competitions/... to Competitions.
package nav

import "strings"

// Item is a sidebar entry.
type Item struct {
	Label    string
	Href     string
	Icon     string
	Children []Item
}

// Entry is an Item rendered for one path.
type Entry struct {
	Item
	Active   bool
	Children []Entry
}

// Sidebar is the dashboard navigation in display order.
var Sidebar = []Item{
	{Label: "Dashboard", Href: "/dashboard", Icon: "grid"},
	{Label: "Accounts", Href: "/dashboard/accounts", Icon: "wallet"},
	{Label: "Competitions", Href: "/dashboard/competitions", Icon: "trophy"},
	{Label: "Leaderboard", Href: "/dashboard/leaderboard", Icon: "bar-chart"},
	{Label: "Shop", Href: "/dashboard/shop", Icon: "shopping-bag"},
	{Label: "Payouts", Href: "/dashboard/payouts", Icon: "banknote"},
	{Label: "Settings", Href: "/dashboard/settings", Icon: "settings", Children: []Item{
		{Label: "Profile", Href: "/dashboard/settings/profile"},
		{Label: "Security", Href: "/dashboard/settings/security"},
		{Label: "Notifications", Href: "/dashboard/settings/notifications"},
	}},
}

// Matches reports whether href covers path on a segment boundary.
func Matches(href, path string) bool {
	if href == "" {
		return false
	}
	path = clean(path)
	href = clean(href)
	if path == href {
		return true
	}
	if href == "/" {
		return true
	}
	return strings.HasPrefix(path, href+"/")
}

func clean(p string) string {
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}

// ActiveIndex returns the index of the active item among siblings, or -1.
func ActiveIndex(items []Item, path string) int {
	best, bestLen := -1, -1
	for i, it := range items {
		if !Matches(it.Href, path) {
			continue
		}
		if l := len(clean(it.Href)); l > bestLen {
			best, bestLen = i, l
		}
	}
	return best
}

// Build marks the active entries for path, descending into the active item's children.
func Build(items []Item, path string) []Entry {
	active := ActiveIndex(items, path)
	out := make([]Entry, len(items))
	for i, it := range items {
		out[i] = Entry{Item: it, Active: i == active}
		if i == active && len(it.Children) > 0 {
			out[i].Children = Build(it.Children, path)
		} else if len(it.Children) > 0 {
			out[i].Children = Build(it.Children, "")
		}
	}
	return out
}

// Trail returns the active item and, when one matches, its active child.
func Trail(items []Item, path string) (item, child *Item) {
	i := ActiveIndex(items, path)
	if i < 0 {
		return nil, nil
	}
	item = &items[i]
	if j := ActiveIndex(item.Children, path); j >= 0 {
		child = &item.Children[j]
	}
	return item, child
}
