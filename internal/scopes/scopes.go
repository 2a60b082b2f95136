// Package scopes holds the static catalog of scopes an app can request.
package scopes

import "errors"

var ErrInvalidScope = errors.New("invalid scope")

// Catalog maps every known scope id to its consent-prompt description.
// The catalog is fixed at compile time.
var Catalog = map[string]string{
	"agenda-read":  "View your agendas, tags, and tasks",
	"agenda-write": "Edit your agendas, tags, and tasks",
	"agenda-share": "Share your agendas with others",
}

// Validate checks a requested scope list against the catalog and returns it
// as a set. An empty list or any unknown id fails with ErrInvalidScope.
func Validate(requested []string) (map[string]bool, error) {
	if len(requested) == 0 {
		return nil, ErrInvalidScope
	}

	set := make(map[string]bool, len(requested))
	for _, scope := range requested {
		if _, ok := Catalog[scope]; !ok {
			return nil, ErrInvalidScope
		}
		set[scope] = true
	}

	return set, nil
}

// Describe returns the catalog descriptions for the given scopes, in order.
func Describe(requested []string) []string {
	text := make([]string, 0, len(requested))
	for _, scope := range requested {
		if description, ok := Catalog[scope]; ok {
			text = append(text, description)
		}
	}
	return text
}
