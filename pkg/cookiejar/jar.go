// Package cookiejar holds the name/value cookie state the upstream portal
// uses to track authentication. It is deliberately simpler than
// net/http/cookiejar: the portal's session handling only cares about the
// latest value per cookie name, so attributes (Path, Expires, Secure, ...)
// are parsed and then discarded.
package cookiejar

import (
	"maps"
	"net/http"
	"sort"
	"strings"
	"sync"
)

// SetCookie is one parsed Set-Cookie header entry. Attributes carries the
// raw attribute segments after the name=value pair; the Jar never stores
// them, but callers can inspect them if needed.
type SetCookie struct {
	Name       string
	Value      string
	Attributes []string
}

// ParseSetCookie splits a single Set-Cookie header value into its
// name/value pair and attribute segments. It returns false for malformed
// entries (empty name, or no "=" in the first segment).
func ParseSetCookie(header string) (SetCookie, bool) {
	segments := strings.Split(header, ";")

	name, value, found := strings.Cut(segments[0], "=")
	name = strings.TrimSpace(name)
	if !found || name == "" {
		return SetCookie{}, false
	}

	var attrs []string
	for _, seg := range segments[1:] {
		if seg = strings.TrimSpace(seg); seg != "" {
			attrs = append(attrs, seg)
		}
	}

	return SetCookie{Name: name, Value: strings.TrimSpace(value), Attributes: attrs}, true
}

// Jar is a mutable set of cookie name/value pairs. Exactly one session or
// one pending login challenge owns a Jar at a time; the internal lock only
// guards against torn reads while a snapshot is taken.
type Jar struct {
	mu      sync.Mutex
	cookies map[string]string
}

// New returns an empty jar.
func New() *Jar {
	return &Jar{cookies: make(map[string]string)}
}

// Absorb parses every Set-Cookie entry in the response headers and stores
// the name/value pairs. Within one absorption the last entry per name wins.
// Malformed entries are skipped without error; the portal occasionally
// emits attribute-only fragments and they carry no session state.
func (j *Jar) Absorb(headers http.Header) {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, h := range headers.Values("Set-Cookie") {
		if c, ok := ParseSetCookie(h); ok {
			j.cookies[c.Name] = c.Value
		}
	}
}

// Serialize renders the jar as a single outbound Cookie header value,
// "name=value" pairs joined by "; " in stable (sorted) order.
func (j *Jar) Serialize() string {
	j.mu.Lock()
	defer j.mu.Unlock()

	names := make([]string, 0, len(j.cookies))
	for name := range j.cookies {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(j.cookies[name])
	}
	return b.String()
}

// Len reports the number of distinct cookie names held.
func (j *Jar) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.cookies)
}

// Get returns the current value for name, if any.
func (j *Jar) Get(name string) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	v, ok := j.cookies[name]
	return v, ok
}

// Set stores a single cookie directly, bypassing header parsing.
func (j *Jar) Set(name, value string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cookies[name] = value
}

// Clone returns an independent copy of the jar. Refresh logins run over a
// clone so a failed attempt cannot corrupt the live session's cookies.
func (j *Jar) Clone() *Jar {
	j.mu.Lock()
	defer j.mu.Unlock()
	return &Jar{cookies: maps.Clone(j.cookies)}
}

// Snapshot returns a copy of the underlying name/value table, used when
// persisting a session.
func (j *Jar) Snapshot() map[string]string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return maps.Clone(j.cookies)
}

// FromSnapshot rebuilds a jar from a persisted name/value table.
func FromSnapshot(cookies map[string]string) *Jar {
	j := New()
	for name, value := range cookies {
		j.cookies[name] = value
	}
	return j
}
