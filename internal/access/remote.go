package access

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/fgeck/blue-backup/internal/errs"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/term"
)

const dialTimeout = 30 * time.Second

// Remote implements Access over a single SSH session established once per
// run. Listing, stat and append are routed through fixed remote commands so
// that the host needs nothing beyond a POSIX userland.
type Remote struct {
	address string // as configured, possibly user@host
	client  *ssh.Client
	logger  zerolog.Logger
}

// Connect opens the SSH session for the given address ("host" or
// "user@host"). Host keys are verified against the system known_hosts file.
// Public-key authentication (agent, then default key files) is tried first;
// a password is prompted interactively only when a terminal is available.
func Connect(address string, logger zerolog.Logger) (*Remote, error) {
	userName, host := splitUserHost(address)

	cfg := &ssh.ClientConfig{
		User:    userName,
		Auth:    authMethods(address),
		Timeout: dialTimeout,
	}

	hostKeys, err := knownHostsCallback()
	if err != nil {
		return nil, errs.Connection(host, err)
	}
	cfg.HostKeyCallback = hostKeys

	logger.Debug().Str("host", host).Str("user", userName).Msg("opening SSH session")
	client, err := ssh.Dial("tcp", net.JoinHostPort(host, "22"), cfg)
	if err != nil {
		return nil, errs.Connection(host, err)
	}
	return &Remote{address: address, client: client, logger: logger}, nil
}

func splitUserHost(address string) (string, string) {
	if i := strings.Index(address, "@"); i >= 0 {
		return address[:i], address[i+1:]
	}
	if u, err := user.Current(); err == nil {
		return u.Username, address
	}
	return os.Getenv("USER"), address
}

func knownHostsCallback() (ssh.HostKeyCallback, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("locating known_hosts: %w", err)
	}
	return knownhosts.New(filepath.Join(home, ".ssh", "known_hosts"))
}

// authMethods returns public-key methods followed by an interactive password
// fallback. The password callback only runs when every key is rejected.
func authMethods(address string) []ssh.AuthMethod {
	var methods []ssh.AuthMethod

	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if conn, err := net.Dial("unix", sock); err == nil {
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		var signers []ssh.Signer
		for _, name := range []string{"id_ed25519", "id_rsa"} {
			key, err := os.ReadFile(filepath.Join(home, ".ssh", name))
			if err != nil {
				continue
			}
			signer, err := ssh.ParsePrivateKey(key)
			if err != nil {
				continue
			}
			signers = append(signers, signer)
		}
		if len(signers) > 0 {
			methods = append(methods, ssh.PublicKeys(signers...))
		}
	}

	methods = append(methods, ssh.RetryableAuthMethod(ssh.PasswordCallback(func() (string, error) {
		return promptPassword(address)
	}), 1))

	return methods
}

func promptPassword(address string) (string, error) {
	if os.Stdin == nil {
		return "", fmt.Errorf("no input, cannot get password")
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no terminal, cannot get password")
	}
	fmt.Fprintf(os.Stderr, "%s's password: ", address)
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(password), nil
}

func (r *Remote) Host() string { return r.address }

func (r *Remote) List(dir string) ([]Entry, error) {
	// -A skips . and .., -p marks directories with a trailing slash.
	result, err := r.Run("ls", "-1Ap", "--", dir)
	if err != nil {
		return nil, err
	}
	if result.ExitCode != 0 {
		return nil, fmt.Errorf("listing '%s': %s", dir, strings.TrimSpace(string(result.Stderr)))
	}
	var entries []Entry
	for _, line := range strings.Split(string(result.Stdout), "\n") {
		if line == "" {
			continue
		}
		if name, isDir := strings.CutSuffix(line, "/"); isDir {
			entries = append(entries, Entry{Name: name, IsDir: true})
		} else {
			entries = append(entries, Entry{Name: line})
		}
	}
	return entries, nil
}

func (r *Remote) Stat(path string) (Info, error) {
	result, err := r.Run("test", "-d", path)
	if err != nil {
		return Info{}, err
	}
	if result.ExitCode == 0 {
		return Info{IsDir: true}, nil
	}
	result, err = r.Run("test", "-e", path)
	if err != nil {
		return Info{}, err
	}
	if result.ExitCode != 0 {
		return Info{}, ErrNotFound
	}
	return Info{}, nil
}

func (r *Remote) Run(name string, args ...string) (*RunResult, error) {
	return r.run(name, args, nil)
}

func (r *Remote) Append(path string, data []byte) error {
	dir := shellQuote(filepath.Dir(path))
	cmd := fmt.Sprintf("mkdir -p %s && cat >> %s", dir, shellQuote(path))
	result, err := r.runRaw(cmd, data)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("appending to '%s': %s", path, strings.TrimSpace(string(result.Stderr)))
	}
	return nil
}

func (r *Remote) Close() error { return r.client.Close() }

func (r *Remote) run(name string, args []string, stdin []byte) (*RunResult, error) {
	quoted := make([]string, 0, len(args)+1)
	quoted = append(quoted, shellQuote(name))
	for _, arg := range args {
		quoted = append(quoted, shellQuote(arg))
	}
	return r.runRaw(strings.Join(quoted, " "), stdin)
}

func (r *Remote) runRaw(command string, stdin []byte) (*RunResult, error) {
	r.logger.Debug().Str("host", r.address).Str("command", command).Msg("running remote command")

	session, err := r.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("opening session on %s: %w", r.address, err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr
	if stdin != nil {
		session.Stdin = bytes.NewReader(stdin)
	}

	err = session.Run(command)
	result := &RunResult{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err != nil {
		var exitErr *ssh.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("running remote command on %s: %w", r.address, err)
		}
		result.ExitCode = exitErr.ExitStatus()
	}
	return result, nil
}

// shellQuote wraps a string in single quotes for the remote shell,
// escaping embedded single quotes.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
