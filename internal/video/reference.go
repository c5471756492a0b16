// Package video resolves free-form YouTube links into canonical video references.
package video

import (
	"errors"
	"fmt"
	"regexp"
)

// IDLength is the fixed length of a YouTube video identifier.
const IDLength = 11

// ErrInvalidReference is returned when an input holds no recognizable,
// correctly sized video identifier.
var ErrInvalidReference = errors.New("invalid video reference")

var idRE = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// Reference is a resolved video. The zero value is unresolved.
type Reference struct {
	id string
}

// ParseID validates a bare identifier.
func ParseID(id string) (Reference, error) {
	if !idRE.MatchString(id) {
		return Reference{}, fmt.Errorf("%w: %q", ErrInvalidReference, id)
	}
	return Reference{id: id}, nil
}

func (r Reference) ID() string { return r.id }

func (r Reference) IsZero() bool { return r.id == "" }

func (r Reference) WatchURL() string {
	return "https://www.youtube.com/watch?v=" + r.id
}

func (r Reference) EmbedURL() string {
	return "https://www.youtube.com/embed/" + r.id
}

func (r Reference) ThumbnailURL() string {
	return "https://i.ytimg.com/vi/" + r.id + "/hqdefault.jpg"
}
