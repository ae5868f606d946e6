// Package admingate checks HTTP Basic credentials for the admin surface.
package admingate

import (
	"crypto/subtle"
	"encoding/base64"
	"strings"
)

// Realm is advertised in the WWW-Authenticate challenge.
const Realm = "Admin Area"

// Gate compares Basic credentials against a configured pair.
// A gate without configured credentials denies everything.
type Gate struct {
	user string
	pass string
}

// New creates a gate for the given credentials.
func New(user, pass string) *Gate {
	return &Gate{user: user, pass: pass}
}

// Configured reports whether both credentials are set.
func (g *Gate) Configured() bool {
	return g.user != "" && g.pass != ""
}

// Authorize reports whether header carries the configured credentials. It never fails open.
func (g *Gate) Authorize(header string) bool {
	if !g.Configured() {
		return false
	}

	encoded, ok := strings.CutPrefix(header, "Basic ")
	if !ok {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return false
	}

	user, pass, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return false
	}

	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(g.user)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(g.pass)) == 1

	return userOK && passOK
}

// Challenge returns the WWW-Authenticate header value sent on denial.
func (g *Gate) Challenge() string {
	return `Basic realm="` + Realm + `", charset="UTF-8"`
}
