package video

import (
	"regexp"
	"strings"
)

// shapeRE matches every supported link shape in one pass:
//
//	youtu.be/<id>
//	youtube.com/embed/<id>, youtube-nocookie.com/embed/<id>
//	youtube.com/v/<id>, /shorts/<id>, /live/<id>
//	youtube.com/watch?...v=<id>
//	youtube.com/user/<name>#p/u/<n>/<id>  (legacy per-user links)
//
// The capture stops at the first delimiter so trailing parameters never
// become part of the identifier. Length and alphabet are checked afterwards.
// When input holds several links, the last one wins.
var shapeRE = regexp.MustCompile(
	`(?i:youtu\.be/|youtube(?:-nocookie)?\.com/(?:embed/|v/|shorts/|live/|watch\?(?:[^#\s]*?&)??v=|\S*?#p/(?:\w/)*u/\w+/))([^#&?/\s]*)`,
)

// Resolve extracts the canonical identifier from input. The boolean is false
// when no supported shape matches or the captured segment is not a valid
// 11-character identifier; no partial result is ever returned.
func Resolve(input string) (Reference, bool) {
	s := strings.TrimSpace(input)
	if s == "" {
		return Reference{}, false
	}
	all := shapeRE.FindAllStringSubmatch(s, -1)
	if len(all) == 0 {
		return Reference{}, false
	}
	m := all[len(all)-1]
	if len(m) < 2 || len(m[1]) != IDLength {
		return Reference{}, false
	}
	ref, err := ParseID(m[1])
	if err != nil {
		return Reference{}, false
	}
	return ref, true
}

// Validate is Resolve for callers that want an error.
func Validate(input string) (Reference, error) {
	ref, ok := Resolve(input)
	if !ok {
		return Reference{}, ErrInvalidReference
	}
	return ref, nil
}
