package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/lepostier/lepostier/internal/progress"
)

// Files at or below this size are treated as broken and downloaded again.
const minCompleteSize = 100

// DefaultRetries is how many times a connection or a download is attempted.
const DefaultRetries = 3

// Conn is the subset of an FTP connection the mirror needs.
type Conn interface {
	List(path string) ([]*ftp.Entry, error)
	Retr(path string) (io.ReadCloser, error)
	Quit() error
}

// Dialer opens a logged in connection.
type Dialer func() (Conn, error)

type serverConn struct{ *ftp.ServerConn }

func (c serverConn) Retr(p string) (io.ReadCloser, error) { return c.ServerConn.Retr(p) }

// DialFTP returns a Dialer for the FTP server at addr.
func DialFTP(addr, user, password string, timeout time.Duration) Dialer {
	return func() (Conn, error) {
		conn, err := ftp.Dial(addr, ftp.DialWithTimeout(timeout))
		if err != nil {
			return nil, err
		}
		if err := conn.Login(user, password); err != nil {
			conn.Quit()
			return nil, err
		}
		return serverConn{conn}, nil
	}
}

// SyncOptions drives Syncer.Sync.
type SyncOptions struct {
	// RemotePath is the directory holding one subfolder per media folder.
	RemotePath string
	Folders    []string
	// Limit caps the files considered per folder; zero means all.
	Limit int
}

// FolderResult counts what happened to one folder.
type FolderResult struct {
	Folder     string `json:"folder"`
	Found      int    `json:"found"`
	Downloaded int    `json:"downloaded"`
	Skipped    int    `json:"skipped"`
	Failed     int    `json:"failed"`
	Err        error  `json:"-"`
}

// Syncer mirrors remote media folders into the media root.
type Syncer struct {
	Dial       Dialer
	Root       string
	Retries    int
	RetryDelay time.Duration
	Progress   progress.Reporter

	conn Conn
}

// Sync mirrors every folder of opts. A folder that cannot be listed is
// reported in its result and does not stop the others.
func (s *Syncer) Sync(ctx context.Context, opts SyncOptions) ([]FolderResult, error) {
	if s.Retries <= 0 {
		s.Retries = DefaultRetries
	}
	if s.Progress == nil {
		s.Progress = progress.Nop{}
	}
	if err := s.connect(ctx); err != nil {
		return nil, err
	}
	defer s.close()

	var results []FolderResult
	for _, folder := range opts.Folders {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := s.syncFolder(ctx, folder, opts)
		if res.Err != nil {
			log.Printf("media: sync %s: %v", folder, res.Err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *Syncer) syncFolder(ctx context.Context, folder string, opts SyncOptions) FolderResult {
	res := FolderResult{Folder: folder}
	remoteDir := path.Join(opts.RemotePath, folder)
	dir := localDir(s.Root, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		res.Err = err
		return res
	}

	entries, err := s.conn.List(remoteDir)
	if err != nil {
		res.Err = fmt.Errorf("listing %s: %w", remoteDir, err)
		return res
	}
	var names []string
	for _, e := range entries {
		if e.Type != ftp.EntryTypeFile || !accepts(folder, e.Name) {
			continue
		}
		names = append(names, e.Name)
	}
	res.Found = len(names)
	if opts.Limit > 0 && len(names) > opts.Limit {
		names = names[:opts.Limit]
	}

	s.Progress.Start(len(names))
	defer s.Progress.Finish()
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}
		s.Progress.Update(i+1, path.Join(folder, name))

		local := filepath.Join(dir, name)
		if info, err := os.Stat(local); err == nil && info.Size() > minCompleteSize {
			res.Skipped++
			continue
		}
		if err := s.fetchWithRetry(ctx, path.Join(remoteDir, name), local); err != nil {
			res.Failed++
			log.Printf("media: download %s: %v", name, err)
			continue
		}
		res.Downloaded++
	}
	return res
}

// fetchWithRetry reconnects between failed attempts.
func (s *Syncer) fetchWithRetry(ctx context.Context, remote, local string) error {
	var err error
	for attempt := 1; attempt <= s.Retries; attempt++ {
		if err = s.fetch(remote, local); err == nil {
			return nil
		}
		if attempt == s.Retries {
			break
		}
		s.close()
		if cerr := s.connect(ctx); cerr != nil {
			return fmt.Errorf("%w (reconnect: %v)", err, cerr)
		}
	}
	return err
}

// fetch downloads remote into a temporary file renamed over local, so an
// interrupted transfer never leaves a truncated image.
func (s *Syncer) fetch(remote, local string) error {
	if s.conn == nil {
		return errors.New("not connected")
	}
	r, err := s.conn.Retr(remote)
	if err != nil {
		return err
	}
	defer r.Close()

	tmp, err := os.CreateTemp(filepath.Dir(local), ".sync-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), local)
}

func (s *Syncer) connect(ctx context.Context) error {
	var err error
	for attempt := 1; attempt <= s.Retries; attempt++ {
		var conn Conn
		if conn, err = s.Dial(); err == nil {
			s.conn = conn
			return nil
		}
		log.Printf("media: ftp connection attempt %d failed: %v", attempt, err)
		if attempt == s.Retries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.RetryDelay):
		}
	}
	return fmt.Errorf("connecting to ftp: %w", err)
}

func (s *Syncer) close() {
	if s.conn != nil {
		s.conn.Quit()
		s.conn = nil
	}
}
