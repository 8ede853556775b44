package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/braedencu/ps4sh/core/types"
	"github.com/braedencu/ps4sh/internal/invariant"
)

// SSHSession implements Session for remote command execution over SSH
// (SPEC_FULL.md §4.5.1). One SSHSession wraps one *ssh.Client; a new
// *ssh.Session is opened per Run/Put/Get call (the underlying protocol
// does not allow concurrent commands to share a session), but the TCP
// connection and authentication are reused across calls.
type SSHSession struct {
	client *ssh.Client
	host   string
	cwd    string
}

// Dial opens an SSH session to host:port, per the Interpreter's
// connection cache (SPEC_FULL.md §4.5.1's "opens, or reuses" note — the
// cache itself lives in the interp package; Dial always makes a fresh
// connection). Authentication uses the private-key file at keyPath, or
// the running ssh-agent when no key file is usable. Host keys are verified
// against knownHostsPath, matching only plain (unhashed) entries that name
// a single host; a missing or unreadable known_hosts file disables host-key
// checking and accepts any key.
func Dial(ctx context.Context, host string, port int, user, keyPath, knownHostsPath string) (*SSHSession, error) {
	invariant.Precondition(host != "", "host cannot be empty")
	if port == 0 {
		port = 22
	}
	if user == "" {
		user = os.Getenv("USER")
	}

	var authMethods []ssh.AuthMethod
	if keyPath != "" {
		if m := keyFileAuth(keyPath); m != nil {
			authMethods = append(authMethods, m)
		}
	}
	if len(authMethods) == 0 {
		if m := agentAuth(); m != nil {
			authMethods = append(authMethods, m)
		}
	}

	config := &ssh.ClientConfig{
		User:            user,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback(knownHostsPath),
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("remote: dial %s: %w", host, err)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		return nil, fmt.Errorf("remote: handshake with %s: %w", host, err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)

	sess := &SSHSession{client: client, host: host}
	if cwd, err := sess.Getwd(ctx); err == nil {
		sess.cwd = cwd
	}
	return sess, nil
}

// Run executes argv as a single shell-quoted command line in the
// session's current remote directory, honoring ctx cancellation by
// signaling the remote process.
func (s *SSHSession) Run(ctx context.Context, argv []string, opts RunOpts) (Result, error) {
	invariant.Precondition(len(argv) > 0, "argv cannot be empty")
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	session, err := s.client.NewSession()
	if err != nil {
		return Result{}, fmt.Errorf("remote: new session on %s: %w", s.host, err)
	}
	defer session.Close()

	for k, v := range opts.Env {
		_ = session.Setenv(k, v) // best-effort: many sftp-only servers reject this
	}

	cmd := shellEscape(argv)
	if s.cwd != "" {
		cmd = fmt.Sprintf("cd %s && %s", shellQuote(s.cwd), cmd)
	}

	session.Stdin = opts.Stdin
	var stdout, stderr bytes.Buffer
	session.Stdout = firstNonNil(opts.Stdout, &stdout)
	session.Stderr = firstNonNil(opts.Stderr, &stderr)

	done := make(chan error, 1)
	go func() { done <- session.Run(cmd) }()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return Result{Status: 128 + 9}, ctx.Err()
	case runErr := <-done:
		return Result{Status: statusFromSSHError(runErr)}, nil
	}
}

// Put writes data to path on the remote host via a `cat` pipe.
func (s *SSHSession) Put(ctx context.Context, data []byte, path string) error {
	invariant.Precondition(path != "", "path cannot be empty")
	session, err := s.client.NewSession()
	if err != nil {
		return fmt.Errorf("remote: new session on %s: %w", s.host, err)
	}
	defer session.Close()

	session.Stdin = bytes.NewReader(data)
	return session.Run(fmt.Sprintf("cat > %s", shellQuote(s.resolve(path))))
}

// Get reads path from the remote host via a `cat` invocation.
func (s *SSHSession) Get(ctx context.Context, path string) ([]byte, error) {
	invariant.Precondition(path != "", "path cannot be empty")
	session, err := s.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("remote: new session on %s: %w", s.host, err)
	}
	defer session.Close()

	var stdout bytes.Buffer
	session.Stdout = &stdout
	if err := session.Run(fmt.Sprintf("cat %s", shellQuote(s.resolve(path)))); err != nil {
		return nil, err
	}
	return stdout.Bytes(), nil
}

// Chdir changes the session's remote working directory after verifying
// the target exists and is a directory — entirely session-local state,
// never touching the host Interpreter's own cwd.
func (s *SSHSession) Chdir(ctx context.Context, dir string) error {
	session, err := s.client.NewSession()
	if err != nil {
		return fmt.Errorf("remote: new session on %s: %w", s.host, err)
	}
	defer session.Close()

	target := s.resolve(dir)
	var stdout bytes.Buffer
	session.Stdout = &stdout
	if err := session.Run(fmt.Sprintf("cd %s && pwd", shellQuote(target))); err != nil {
		return fmt.Errorf("remote: cd %s on %s: %w", dir, s.host, err)
	}
	s.cwd = strings.TrimSpace(stdout.String())
	return nil
}

// Getwd returns the session's remote working directory, querying the
// host with `pwd` on first use.
func (s *SSHSession) Getwd(ctx context.Context) (string, error) {
	if s.cwd != "" {
		return s.cwd, nil
	}
	session, err := s.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("remote: new session on %s: %w", s.host, err)
	}
	defer session.Close()

	var stdout bytes.Buffer
	session.Stdout = &stdout
	if err := session.Run("pwd"); err != nil {
		return "", err
	}
	s.cwd = strings.TrimSpace(stdout.String())
	return s.cwd, nil
}

// Close closes the underlying SSH connection.
func (s *SSHSession) Close() error {
	return s.client.Close()
}

func (s *SSHSession) resolve(path string) string {
	if strings.HasPrefix(path, "/") || s.cwd == "" {
		return path
	}
	return s.cwd + "/" + path
}

func statusFromSSHError(err error) types.Status {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*ssh.ExitError); ok {
		return types.ClampErrno(exitErr.ExitStatus())
	}
	return types.ClampErrno(1)
}

func firstNonNil(v, fallback io.Writer) io.Writer {
	if v == nil {
		return fallback
	}
	return v
}

func hostKeyCallback(knownHostsPath string) ssh.HostKeyCallback {
	if knownHostsPath == "" {
		knownHostsPath = os.ExpandEnv("$HOME/.ssh/known_hosts")
	}
	data, err := os.ReadFile(knownHostsPath)
	if err != nil {
		// No known_hosts to check against: accept any host key (nothing is
		// recorded) rather than refusing every remote subshell outright.
		return ssh.InsecureIgnoreHostKey()
	}

	known := make(map[string]ssh.PublicKey)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		pubKey, _, _, _, err := ssh.ParseAuthorizedKey([]byte(fields[1] + " " + fields[2]))
		if err != nil {
			continue
		}
		known[fields[0]+":"+fields[1]] = pubKey
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		// hostname is the host:port dial address; known_hosts lists port-22
		// hosts bare and other ports as [host]:port.
		if h, p, err := net.SplitHostPort(hostname); err == nil {
			if p == "22" {
				hostname = h
			} else {
				hostname = "[" + h + "]:" + p
			}
		}
		lookup := hostname + ":" + key.Type()
		knownKey, ok := known[lookup]
		if !ok {
			return fmt.Errorf("remote: host key not found in known_hosts: %s", hostname)
		}
		if !bytes.Equal(key.Marshal(), knownKey.Marshal()) {
			return fmt.Errorf("remote: host key mismatch for %s", hostname)
		}
		return nil
	}
}

func keyFileAuth(keyPath string) ssh.AuthMethod {
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return nil
	}
	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		return nil
	}
	return ssh.PublicKeys(signer)
}

func agentAuth() ssh.AuthMethod {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil
	}
	conn, err := net.Dial("unix", socket)
	if err != nil {
		return nil
	}
	client := agent.NewClient(conn)
	return ssh.PublicKeysCallback(client.Signers)
}

func shellEscape(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		parts[i] = shellQuote(a)
	}
	return strings.Join(parts, " ")
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
