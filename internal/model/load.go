package model

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
)

const ftpTimeout = 30 * time.Second

// Load reads a forest artifact from a local path or an ftp:// URL.
func Load(ctx context.Context, src string) (*Forest, error) {
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(src, "ftp://") {
		data, err = fetchFTP(ctx, src)
	} else {
		data, err = os.ReadFile(src)
	}
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", src, err)
	}

	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse model %s: %w", src, err)
	}
	log.Printf("model: loaded %s (version %q, %d trees)", src, f.Version, len(f.Trees))
	return f, nil
}

// ftpTarget is an ftp:// URL resolved into what the client needs.
type ftpTarget struct {
	addr string
	user string
	pass string
	path string
}

// parseFTPURL defaults the port to 21 and the credentials to anonymous.
func parseFTPURL(raw string) (ftpTarget, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return ftpTarget{}, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "ftp" || u.Hostname() == "" {
		return ftpTarget{}, fmt.Errorf("parse url: want ftp://host/path, got %q", raw)
	}
	if u.Path == "" || u.Path == "/" {
		return ftpTarget{}, fmt.Errorf("parse url: no file path in %q", raw)
	}
	t := ftpTarget{addr: u.Host, user: "anonymous", pass: "anonymous", path: u.Path}
	if u.Port() == "" {
		t.addr = net.JoinHostPort(u.Hostname(), "21")
	}
	if u.User != nil {
		t.user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			t.pass = p
		}
	}
	return t, nil
}

func fetchFTP(ctx context.Context, raw string) ([]byte, error) {
	t, err := parseFTPURL(raw)
	if err != nil {
		return nil, err
	}

	conn, err := ftp.Dial(t.addr, ftp.DialWithTimeout(ftpTimeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("ftp dial: %w", err)
	}
	defer conn.Quit()

	if err := conn.Login(t.user, t.pass); err != nil {
		return nil, fmt.Errorf("ftp login: %w", err)
	}

	resp, err := conn.Retr(t.path)
	if err != nil {
		return nil, fmt.Errorf("ftp retr: %w", err)
	}
	defer resp.Close()

	body, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
