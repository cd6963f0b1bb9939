// Package roster derives the participant list from roster snapshot frames.
package roster

import (
	"net/url"

	"github.com/samber/lo"
)

const avatarBase = "https://avatars.dicebear.com/api/adventurer-neutral"

// Participant is one roster entry. The avatar is a pure function of the
// name, so participants compare by value and carry no identity across
// snapshots.
type Participant struct {
	Name      string
	AvatarURL string
}

// AvatarURL derives the identicon address for a display name.
func AvatarURL(name string) string {
	return avatarBase + "/" + url.PathEscape(name) + ".svg"
}

// Reconcile maps a snapshot's names to participants. Order is preserved and
// duplicates are kept; the caller replaces its whole list with the result.
// There is no diffing against the previous roster.
func Reconcile(names []string) []Participant {
	return lo.Map(names, func(name string, _ int) Participant {
		return Participant{Name: name, AvatarURL: AvatarURL(name)}
	})
}
