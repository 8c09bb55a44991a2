// Package backup snapshots the data file to a local directory and,
// when configured, to S3-compatible storage.
package backup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dukerupert/pawboard/internal/store/docstore"
	_ "modernc.org/sqlite"
)

const (
	encSuffix = ".enc"
	s3Prefix  = "backups/"
)

var sqliteHeader = []byte("SQLite format 3\x00")

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

func (c S3Config) enabled() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

type Config struct {
	DataPath   string
	Dir        string // defaults to the directory of DataPath
	Passphrase string // encrypts snapshots when set
	S3         S3Config
}

// Result describes one written snapshot.
type Result struct {
	Path      string
	S3Key     string
	Size      int64
	Encrypted bool
}

type Manager struct {
	cfg    Config
	db     *sql.DB
	client s3Client
	logger *slog.Logger
	now    func() time.Time
}

// NewManager returns a manager for cfg. db is the open SQLite handle when
// the data file is a database, or nil for the JSON document.
func NewManager(cfg Config, db *sql.DB, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{cfg: cfg, db: db, logger: logger, now: time.Now}
	if cfg.S3.enabled() {
		m.client = newS3Client(cfg.S3)
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// S3Enabled reports whether snapshots are uploaded.
func (m *Manager) S3Enabled() bool { return m.client != nil }

func (m *Manager) dir() string {
	if m.cfg.Dir != "" {
		return m.cfg.Dir
	}
	return filepath.Dir(m.cfg.DataPath)
}

func (m *Manager) prefix() string {
	return filepath.Base(m.cfg.DataPath) + ".bak."
}

// Run writes a snapshot named <data file>.bak.<UTC timestamp>, encrypted
// when a passphrase is configured, and uploads it when S3 is configured.
func (m *Manager) Run(ctx context.Context) (*Result, error) {
	data, err := m.readSource(ctx)
	if err != nil {
		return nil, err
	}

	name := m.prefix() + m.now().UTC().Format("20060102T150405Z")
	res := &Result{}
	if m.cfg.Passphrase != "" {
		data, err = Encrypt(data, m.cfg.Passphrase)
		if err != nil {
			return nil, fmt.Errorf("encrypt snapshot: %w", err)
		}
		name += encSuffix
		res.Encrypted = true
	}

	if err := os.MkdirAll(m.dir(), 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}
	res.Path = filepath.Join(m.dir(), name)
	res.Size = int64(len(data))
	if err := os.WriteFile(res.Path, data, 0o600); err != nil {
		return nil, fmt.Errorf("write snapshot: %w", err)
	}
	m.logger.Info("backup written", "path", res.Path, "bytes", res.Size, "encrypted", res.Encrypted)

	if m.client != nil {
		res.S3Key = s3Prefix + name
		_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(m.cfg.S3.Bucket),
			Key:           aws.String(res.S3Key),
			Body:          bytes.NewReader(data),
			ContentLength: aws.Int64(res.Size),
		})
		if err != nil {
			return res, fmt.Errorf("upload to s3: %w", err)
		}
		m.logger.Info("backup uploaded", "bucket", m.cfg.S3.Bucket, "key", res.S3Key)
	}
	return res, nil
}

// readSource returns the current data file contents. A SQLite database is
// copied with VACUUM INTO so the snapshot is consistent while the server
// keeps writing.
func (m *Manager) readSource(ctx context.Context) ([]byte, error) {
	if m.db == nil {
		data, err := os.ReadFile(m.cfg.DataPath)
		if err != nil {
			return nil, fmt.Errorf("read data file: %w", err)
		}
		return data, nil
	}

	tmp, err := os.MkdirTemp("", "pawboard-backup-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	copyPath := filepath.Join(tmp, "snapshot.db")
	if _, err := m.db.ExecContext(ctx, "VACUUM INTO ?", copyPath); err != nil {
		return nil, fmt.Errorf("vacuum into: %w", err)
	}
	data, err := os.ReadFile(copyPath)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}

// Restore replaces the data file with the snapshot at source, a local path
// or an S3 key. The snapshot is decrypted when its name ends in .enc and
// validated before the data file is touched. The server must be stopped.
func (m *Manager) Restore(ctx context.Context, source string) error {
	data, err := m.fetch(ctx, source)
	if err != nil {
		return err
	}

	if strings.HasSuffix(source, encSuffix) {
		if m.cfg.Passphrase == "" {
			return fmt.Errorf("restore %s: snapshot is encrypted and no passphrase is configured", source)
		}
		data, err = Decrypt(data, m.cfg.Passphrase)
		if err != nil {
			return fmt.Errorf("decrypt snapshot: %w", err)
		}
	}

	isDB := bytes.HasPrefix(data, sqliteHeader)
	if isDB {
		err = validateDatabase(data)
	} else {
		_, err = docstore.Decode(data)
	}
	if err != nil {
		return fmt.Errorf("validate snapshot: %w", err)
	}

	if err := docstore.WriteFileAtomic(m.cfg.DataPath, data); err != nil {
		return fmt.Errorf("replace data file: %w", err)
	}
	if isDB {
		os.Remove(m.cfg.DataPath + "-wal")
		os.Remove(m.cfg.DataPath + "-shm")
	}
	m.logger.Info("restore complete", "source", source, "path", m.cfg.DataPath)
	return nil
}

func (m *Manager) fetch(ctx context.Context, source string) ([]byte, error) {
	data, err := os.ReadFile(source)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if m.client == nil {
		return nil, fmt.Errorf("snapshot %s not found", source)
	}

	out, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.cfg.S3.Bucket),
		Key:    aws.String(source),
	})
	if err != nil {
		return nil, fmt.Errorf("download from s3: %w", err)
	}
	defer out.Body.Close()
	data, err = io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3 object: %w", err)
	}
	return data, nil
}

func validateDatabase(data []byte) error {
	tmp, err := os.MkdirTemp("", "pawboard-restore-")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	p := filepath.Join(tmp, "restore.db")
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return fmt.Errorf("write temp db: %w", err)
	}
	db, err := sql.Open("sqlite", p)
	if err != nil {
		return fmt.Errorf("open restored db: %w", err)
	}
	defer db.Close()

	var integrity string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&integrity); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if integrity != "ok" {
		return fmt.Errorf("integrity check failed: %s", integrity)
	}
	return nil
}

// List returns local snapshot paths, newest first.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.dir())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), m.prefix()) {
			names = append(names, e.Name())
		}
	}
	// Timestamps are fixed width, so name order is time order.
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(m.dir(), n)
	}
	return paths, nil
}

// Prune keeps the newest keep snapshots and deletes the rest, locally and
// in S3. It returns the removed paths.
func (m *Manager) Prune(ctx context.Context, keep int) ([]string, error) {
	if keep < 1 {
		return nil, fmt.Errorf("prune: keep must be at least 1")
	}
	paths, err := m.List()
	if err != nil {
		return nil, err
	}
	if len(paths) <= keep {
		return nil, nil
	}

	removed := paths[keep:]
	for _, p := range removed {
		if err := os.Remove(p); err != nil {
			return nil, fmt.Errorf("remove snapshot: %w", err)
		}
		if m.client == nil {
			continue
		}
		key := path.Join(strings.TrimSuffix(s3Prefix, "/"), filepath.Base(p))
		if _, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(m.cfg.S3.Bucket),
			Key:    aws.String(key),
		}); err != nil {
			m.logger.Warn("delete s3 object", "key", key, "error", err)
		}
	}
	return removed, nil
}
