// Package sftp implements remote.Source over an SFTP session authenticated
// with a passphrase protected private key.
package sftp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"bin-ranges/internal/domain"
	"bin-ranges/internal/remote"
)

// Config configures the SFTP connection.
type Config struct {
	Host       string
	Port       int
	Username   string
	PrivateKey []byte // PEM encoded
	Passphrase []byte
	// KnownHostsFile pins the server host key. Empty accepts any host key.
	KnownHostsFile string
	// DialTimeout bounds the TCP connect and SSH handshake.
	DialTimeout time.Duration
}

// DefaultDialTimeout matches the session authorisation timeout used for the operator's server.
const DefaultDialTimeout = 10 * time.Second

// Client is a connected SFTP session.
type Client struct {
	ssh  *ssh.Client
	sftp *sftp.Client
}

var _ remote.Source = (*Client)(nil)

// Dial connects and authenticates. The caller must Close the client.
func Dial(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}

	signer, err := parseKey(cfg.PrivateKey, cfg.Passphrase)
	if err != nil {
		return nil, err
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if cfg.KnownHostsFile != "" {
		hostKeyCallback, err = knownhosts.New(cfg.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("load known hosts: %w", err)
		}
	} else {
		logger.Warn("sftp host key is not pinned", "host", cfg.Host)
	}

	sshCfg := &ssh.ClientConfig{
		User:            cfg.Username,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         cfg.DialTimeout,
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	logger.Debug("authorising sftp session", "addr", addr, "user", cfg.Username)
	c, chans, reqs, err := handshake(ctx, conn, addr, sshCfg, cfg.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("ssh handshake %s: %w", addr, err)
	}
	sshClient := ssh.NewClient(c, chans, reqs)

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("start sftp subsystem: %w", err)
	}
	logger.Debug("sftp session authorised", "addr", addr)

	return &Client{ssh: sshClient, sftp: sftpClient}, nil
}

// handshake runs the SSH handshake on conn within timeout. Cancelling ctx
// closes conn. conn is closed on any error.
func handshake(ctx context.Context, conn net.Conn, addr string, cfg *ssh.ClientConfig, timeout time.Duration) (ssh.Conn, <-chan ssh.NewChannel, <-chan *ssh.Request, error) {
	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		conn.Close()
		return nil, nil, nil, err
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if !stop() {
		if err == nil {
			c.Close()
		}
		return nil, nil, nil, ctx.Err()
	}
	if err != nil {
		conn.Close()
		return nil, nil, nil, err
	}
	if err := conn.SetDeadline(time.Time{}); err != nil {
		c.Close()
		return nil, nil, nil, err
	}
	return c, chans, reqs, nil
}

func parseKey(pemBytes, passphrase []byte) (ssh.Signer, error) {
	if len(passphrase) == 0 {
		signer, err := ssh.ParsePrivateKey(pemBytes)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		return signer, nil
	}
	signer, err := ssh.ParsePrivateKeyWithPassphrase(pemBytes, passphrase)
	if err != nil {
		return nil, fmt.Errorf("parse private key with passphrase: %w", err)
	}
	return signer, nil
}

// List returns the regular files in dir.
func (c *Client) List(ctx context.Context, dir string) ([]domain.RemoteEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	infos, err := c.sftp.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	entries := make([]domain.RemoteEntry, 0, len(infos))
	for _, fi := range infos {
		if !fi.Mode().IsRegular() {
			continue
		}
		entries = append(entries, domain.RemoteEntry{Name: fi.Name(), Size: fi.Size()})
	}
	return entries, nil
}

// Open opens a remote file for streaming.
func (c *Client) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := c.sftp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

// Close ends the SFTP session and the SSH connection.
func (c *Client) Close() error {
	err := c.sftp.Close()
	if c.ssh != nil {
		if sshErr := c.ssh.Close(); err == nil {
			err = sshErr
		}
	}
	return err
}
