package addrfile

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// InboxOptions configures the FTP address-file drop box (§6.1): batch files
// land in InboxPath, and a successfully-submitted file is moved to
// ResultPath so the next poll doesn't resubmit it.
type InboxOptions struct {
	Host       string
	User       string
	Password   string
	InboxPath  string
	ResultPath string
	Timeout    time.Duration
}

// Inbox pulls batch address files from an FTP drop box.
type Inbox struct {
	opts InboxOptions
}

// NewInbox creates an Inbox with the given options.
func NewInbox(opts InboxOptions) *Inbox {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Inbox{opts: opts}
}

func (b *Inbox) dial(ctx context.Context) (*ftp.ServerConn, error) {
	host := b.opts.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "21")
	}

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(b.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "addrfile: ftp dial")
	}
	if err := conn.Login(b.opts.User, b.opts.Password); err != nil {
		conn.Quit()
		return nil, eris.Wrap(err, "addrfile: ftp login")
	}
	return conn, nil
}

// Poll lists every file waiting in InboxPath, in no particular order.
func (b *Inbox) Poll(ctx context.Context) ([]string, error) {
	conn, err := b.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Quit()

	entries, err := conn.List(b.opts.InboxPath)
	if err != nil {
		return nil, eris.Wrap(err, "addrfile: ftp list inbox")
	}

	var names []string
	for _, e := range entries {
		if e.Type == ftp.EntryTypeFile {
			names = append(names, e.Name)
		}
	}
	return names, nil
}

// Fetch downloads name from InboxPath into localDir and, on success, moves
// the remote file into ResultPath so subsequent polls skip it. Returns the
// local file path.
func (b *Inbox) Fetch(ctx context.Context, name string, localDir string) (string, error) {
	conn, err := b.dial(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Quit()

	remotePath := filepath.Join(b.opts.InboxPath, name)
	resp, err := conn.Retr(remotePath)
	if err != nil {
		return "", eris.Wrap(err, "addrfile: ftp retrieve")
	}
	defer resp.Close()

	localPath := filepath.Join(localDir, name)
	f, err := os.Create(localPath)
	if err != nil {
		return "", eris.Wrap(err, "addrfile: create local file")
	}
	defer f.Close()

	if _, err := io.Copy(f, resp); err != nil {
		return "", eris.Wrap(err, "addrfile: write local file")
	}

	if b.opts.ResultPath != "" {
		donePath := filepath.Join(b.opts.ResultPath, name)
		if err := conn.Rename(remotePath, donePath); err != nil {
			zap.L().Warn("addrfile: could not move processed inbox file",
				zap.String("file", name), zap.Error(err))
		}
	}

	return localPath, nil
}
