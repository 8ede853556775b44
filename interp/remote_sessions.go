package interp

import (
	"context"
	"net"
	"strconv"
	"strings"

	"github.com/braedencu/ps4sh/internal/remote"
)

// sessionFor returns a cached SSH session for host, dialing a fresh one
// on first use and caching it for the Interpreter's lifetime, per
// SPEC_FULL.md §4.5.1's "opens, or reuses, per Interpreter-held cache"
// note. host may be "user@hostname", "hostname:port", or both combined;
// a bare hostname authenticates as $USER on port 22.
func (i *Interpreter) sessionFor(ctx context.Context, host string) (*remote.SSHSession, error) {
	i.mu.Lock()
	if sess, ok := i.sessions[host]; ok {
		i.mu.Unlock()
		return sess, nil
	}
	i.mu.Unlock()

	user, addr := splitUserHost(host)
	hostname, port := splitHostPort(addr)

	sess, err := remote.Dial(ctx, hostname, port, user, "", "")
	if err != nil {
		return nil, err
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	// Another goroutine may have dialed and cached host concurrently
	// (two backgrounded subshells to the same host racing past the
	// first, unlocked check above); keep whichever landed first and
	// close the loser rather than leaking a connection.
	if existing, ok := i.sessions[host]; ok {
		_ = sess.Close()
		return existing, nil
	}
	i.sessions[host] = sess
	return sess, nil
}

// splitUserHost splits "user@host" into its parts; user is empty when
// absent, leaving remote.Dial to default it to $USER.
func splitUserHost(spec string) (user, hostport string) {
	if idx := strings.IndexByte(spec, '@'); idx >= 0 {
		return spec[:idx], spec[idx+1:]
	}
	return "", spec
}

// splitHostPort splits "host:port" into its parts; port is 0 (meaning
// "default to 22") when absent or unparseable.
func splitHostPort(spec string) (host string, port int) {
	h, p, err := net.SplitHostPort(spec)
	if err != nil {
		return spec, 0
	}
	n, err := strconv.Atoi(p)
	if err != nil {
		return h, 0
	}
	return h, n
}
