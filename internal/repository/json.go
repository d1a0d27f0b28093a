package repository

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

var (
	errTableFileIsDir = errors.New("table file is dir")
)

type Data struct {
	Values map[string]string `json:"values"`
}

// FileStore keeps values in a JSON file that is rewritten on every change,
// so a restarted process sees what the previous one saved.
type FileStore struct {
	path string
	log  *zap.Logger

	mu   sync.Mutex
	data *Data
}

func NewJSONFile(path string, log *zap.Logger) (*FileStore, error) {
	r := &FileStore{
		path: path,
		log:  log,
		data: &Data{Values: map[string]string{}},
	}

	err := r.readfile()
	if errors.Is(err, errTableFileIsDir) {
		return nil, err
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		// only log, data starts empty and the file is replaced on first write
		r.log.Warn("failed reading json store file", zap.String("path", path), zap.Error(err))
	}

	return r, nil
}

func (r *FileStore) stop(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writefile()
}

func (r *FileStore) readfile() error {
	finfo, err := os.Stat(r.path)
	if err != nil {
		return err
	}

	if finfo.IsDir() {
		return errTableFileIsDir
	}

	f, err := os.Open(r.path)
	if err != nil {
		return err
	}
	defer f.Close()

	data := &Data{}
	if err := json.NewDecoder(f).Decode(data); err != nil {
		return err
	}
	if data.Values != nil {
		r.data = data
	}
	return nil
}

func (r *FileStore) writefile() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return err
	}

	b, err := json.MarshalIndent(r.data, "", "  ")
	if err != nil {
		return err
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}

func (r *FileStore) Get(_ context.Context, key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.data.Values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (r *FileStore) Set(_ context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, had := r.data.Values[key]
	r.data.Values[key] = value
	if err := r.writefile(); err != nil {
		if had {
			r.data.Values[key] = prev
		} else {
			delete(r.data.Values, key)
		}
		return err
	}
	return nil
}

func (r *FileStore) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.data.Values[key]; !ok {
		return nil
	}
	delete(r.data.Values, key)
	return r.writefile()
}
