package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/NordCoder/Hertz/internal/domain/service"
	"github.com/NordCoder/Hertz/internal/obs/retry"
	"go.uber.org/zap"
)

const DefaultPath = "hertz_config.json"

type record struct {
	Name          string `json:"name"`
	URL           string `json:"url"`
	Path          string `json:"path"`
	CheckInterval int    `json:"check_interval"`
}

var _ service.Store = (*Store)(nil)

// Store keeps the service set as a JSON array in a single file. Saves replace the
// file atomically through a temp file and rename in the same directory.
type Store struct {
	path string
	log  *zap.Logger
}

func New(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{
		path: path,
		log:  zap.L().With(zap.String("component", "jsonfile.store"), zap.String("path", path)),
	}
}

func (s *Store) WithLogger(l *zap.Logger) *Store {
	if l == nil {
		return s
	}
	cp := *s
	cp.log = l.With(zap.String("component", "jsonfile.store"), zap.String("path", s.path))
	return &cp
}

func (s *Store) Path() string { return s.path }

// Load returns one Record per array element. Elements that do not decode come back
// with Err set so the caller can skip them; a missing file is an empty set.
func (s *Store) Load(ctx context.Context) ([]service.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Info("config file absent, starting empty")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(b, &raws); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	out := make([]service.Record, 0, len(raws))
	for i, raw := range raws {
		var r record
		if err := json.Unmarshal(raw, &r); err != nil {
			out = append(out, service.Record{Index: i, Err: fmt.Errorf("decode record: %w", err)})
			continue
		}
		out = append(out, service.Record{
			Index:         i,
			Name:          r.Name,
			URL:           r.URL,
			Path:          r.Path,
			CheckInterval: r.CheckInterval,
		})
	}
	s.log.Debug("config loaded", zap.Int("records", len(out)))
	return out, nil
}

func (s *Store) Save(ctx context.Context, cfgs []service.Config) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	recs := make([]record, 0, len(cfgs))
	for i, c := range cfgs {
		r := service.RecordOf(i, c)
		recs = append(recs, record{Name: r.Name, URL: r.URL, Path: r.Path, CheckInterval: r.CheckInterval})
	}
	b, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return retry.Permanent(fmt.Errorf("encode config: %w", err))
	}
	if err := writeAtomic(s.path, append(b, '\n')); err != nil {
		return err
	}
	s.log.Debug("config saved", zap.Int("records", len(recs)))
	return nil
}

func writeAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if errors.Is(err, fs.ErrNotExist) {
		return retry.Permanent(fmt.Errorf("config dir %s: %w", dir, err))
	}
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod temp: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}
