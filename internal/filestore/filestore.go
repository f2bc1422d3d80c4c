// Package filestore guards every filesystem touch on evidence binaries.
//
// A path is usable only after Resolve: it is cleaned, must be absolute, must
// sit under the configured evidence root (symlinks included) and must carry
// an allow-listed extension. Uploads get random names, so concurrent writers
// never share a path.
package filestore

import (
	"context"
	"crypto/md5" //nolint:gosec // MD5 is recorded for forensic tooling compatibility, never for security
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "custodian/pkg/domain-errors"
	strutil "custodian/pkg/platform/strings"
)

// DefaultExtensions are the forensic image formats accepted out of the box.
var DefaultExtensions = []string{".e01", ".dd", ".raw", ".img", ".001"}

// Store is rooted at one evidence directory.
type Store struct {
	root       string
	extensions map[string]struct{}
}

// FileInfo is what Stat reports about a stored binary.
type FileInfo struct {
	Path    string
	Size    uint64
	ModTime time.Time
}

// Written describes a completed upload. Hashes are lower-case hex.
type Written struct {
	Path   string
	Size   uint64
	MD5    string
	SHA256 string
}

// New creates root if needed. An empty extension list means DefaultExtensions.
func New(root string, extensions []string) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("evidence root is required")
	}
	abs, err := filepath.Abs(filepath.Clean(root))
	if err != nil {
		return nil, fmt.Errorf("resolve evidence root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create evidence root: %w", err)
	}
	rooted, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve evidence root: %w", err)
	}

	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	exts := make(map[string]struct{}, len(extensions))
	for _, ext := range strutil.DedupeAndTrimLower(extensions) {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[ext] = struct{}{}
	}
	return &Store{root: rooted, extensions: exts}, nil
}

// Root is the resolved evidence directory.
func (s *Store) Root() string { return s.root }

// Resolve validates p and returns the normalized path to use for I/O.
func (s *Store) Resolve(p string) (string, error) {
	if strings.TrimSpace(p) == "" || strings.ContainsRune(p, 0) {
		return "", dErrors.New(dErrors.CodeValidation, "file path is required")
	}
	clean := filepath.Clean(p)
	if !filepath.IsAbs(clean) {
		return "", dErrors.New(dErrors.CodeValidation, "file path must be absolute")
	}
	if !s.within(clean) {
		return "", dErrors.New(dErrors.CodeValidation, "file path is outside the evidence root")
	}
	if _, ok := s.extensions[strings.ToLower(filepath.Ext(clean))]; !ok {
		return "", dErrors.New(dErrors.CodeValidation, "file extension is not allowed")
	}

	// A symlink planted under the root must not lead out of it.
	if target, err := filepath.EvalSymlinks(clean); err == nil {
		if !s.within(target) {
			return "", dErrors.New(dErrors.CodeValidation, "file path is outside the evidence root")
		}
		return target, nil
	}
	return clean, nil
}

func (s *Store) within(p string) bool {
	rel, err := filepath.Rel(s.root, p)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

func notFound(err error, p string) error {
	if errors.Is(err, fs.ErrNotExist) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "evidence file not found")
	}
	return fmt.Errorf("access evidence file %s: %w", filepath.Base(p), err)
}

func (s *Store) Stat(ctx context.Context, p string) (FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return FileInfo{}, err
	}
	resolved, err := s.Resolve(p)
	if err != nil {
		return FileInfo{}, err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return FileInfo{}, notFound(err, resolved)
	}
	if info.IsDir() {
		return FileInfo{}, dErrors.New(dErrors.CodeValidation, "file path is a directory")
	}
	return FileInfo{Path: resolved, Size: uint64(info.Size()), ModTime: info.ModTime()}, nil
}

func (s *Store) ReadFile(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resolved, err := s.Resolve(p)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(resolved) // #nosec G304 -- path validated by Resolve
	if err != nil {
		return nil, notFound(err, resolved)
	}
	return b, nil
}

// Open streams a stored binary. The caller closes it.
func (s *Store) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resolved, err := s.Resolve(p)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(resolved) // #nosec G304 -- path validated by Resolve
	if err != nil {
		return nil, notFound(err, resolved)
	}
	return f, nil
}

// Write stores r under a fresh random name with the given extension, hashing
// while it copies. A failed copy leaves no partial file behind.
func (s *Store) Write(ctx context.Context, ext string, r io.Reader) (Written, error) {
	if err := ctx.Err(); err != nil {
		return Written{}, err
	}
	ext = strings.ToLower(strings.TrimSpace(ext))
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	target, err := s.Resolve(filepath.Join(s.root, uuid.NewString()+ext))
	if err != nil {
		return Written{}, err
	}

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640) // #nosec G304 -- path validated by Resolve
	if err != nil {
		return Written{}, fmt.Errorf("create evidence file: %w", err)
	}

	md5h := md5.New() //nolint:gosec // see import
	shah := sha256.New()
	n, copyErr := io.Copy(io.MultiWriter(f, md5h, shah), &ctxReader{ctx: ctx, r: r})
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(target)
		if copyErr != nil {
			return Written{}, fmt.Errorf("write evidence file: %w", copyErr)
		}
		return Written{}, fmt.Errorf("close evidence file: %w", closeErr)
	}

	return Written{
		Path:   target,
		Size:   uint64(n),
		MD5:    hex.EncodeToString(md5h.Sum(nil)),
		SHA256: hex.EncodeToString(shah.Sum(nil)),
	}, nil
}

// Hash streams the stored file through MD5 and SHA-256.
func (s *Store) Hash(ctx context.Context, p string) (Written, error) {
	rc, err := s.Open(ctx, p)
	if err != nil {
		return Written{}, err
	}
	defer rc.Close()

	md5h := md5.New() //nolint:gosec // see import
	shah := sha256.New()
	n, err := io.Copy(io.MultiWriter(md5h, shah), &ctxReader{ctx: ctx, r: rc})
	if err != nil {
		return Written{}, fmt.Errorf("hash evidence file: %w", err)
	}
	return Written{
		Path:   p,
		Size:   uint64(n),
		MD5:    hex.EncodeToString(md5h.Sum(nil)),
		SHA256: hex.EncodeToString(shah.Sum(nil)),
	}, nil
}

// Unlink removes a stored file. A file that is already gone is not an error.
func (s *Store) Unlink(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	resolved, err := s.Resolve(p)
	if err != nil {
		return err
	}
	if err := os.Remove(resolved); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove evidence file: %w", err)
	}
	return nil
}

// ctxReader stops long copies once the request is gone.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
