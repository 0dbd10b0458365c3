package token

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// document is the on-disk layout shared by plain and sealed stores
type document struct {
	Key     string    `json:"key"`
	Token   string    `json:"token,omitempty"`
	Sealed  []byte    `json:"sealed,omitempty"`
	Salt    []byte    `json:"salt,omitempty"`
	SavedAt time.Time `json:"savedAt"`
}

// FileStore keeps the token in <dir>/<key>.json, written atomically with mode 0600.
type FileStore struct {
	key    string
	path   string
	sealer *sealer
	mu     sync.Mutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore stores the token in plain text under dir.
func NewFileStore(dir, key string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("[NewFileStore] dir is required")
	}
	if key == "" {
		return nil, errors.New("[NewFileStore] key is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "[NewFileStore] creating dir")
	}
	return &FileStore{
		key:  key,
		path: filepath.Join(dir, key+".json"),
	}, nil
}

// NewSealedFileStore stores the token encrypted with a key derived from secret.
func NewSealedFileStore(dir, key, secret string) (*FileStore, error) {
	if secret == "" {
		return nil, errors.New("[NewSealedFileStore] secret is required")
	}
	fs, err := NewFileStore(dir, key)
	if err != nil {
		return nil, err
	}
	fs.sealer = newSealer(secret)
	return fs, nil
}

// Path returns the file backing the store
func (fs *FileStore) Path() string {
	return fs.path
}

// Save persists token, replacing any previous value. Saving "" clears the store.
func (fs *FileStore) Save(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if token == "" {
		return fs.Clear(ctx)
	}

	doc := document{Key: fs.key, SavedAt: time.Now().UTC()}
	if fs.sealer != nil {
		salt, sealed, err := fs.sealer.seal([]byte(token), []byte(fs.key))
		if err != nil {
			return errors.Wrap(err, "[FileStore.Save] sealing token")
		}
		doc.Salt, doc.Sealed = salt, sealed
	} else {
		doc.Token = token
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "[FileStore.Save] encoding")
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	return writeAtomic(fs.path, data)
}

// Load returns the persisted token, or "" when none is stored.
func (fs *FileStore) Load(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fs.mu.Lock()
	data, err := os.ReadFile(fs.path)
	fs.mu.Unlock()
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "[FileStore.Load] reading")
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", errors.Wrapf(ErrUnreadable, "[FileStore.Load] decoding: %v", err)
	}
	if doc.Key != fs.key {
		return "", errors.Wrapf(ErrUnreadable, "[FileStore.Load] %s holds key %q, want %q", fs.path, doc.Key, fs.key)
	}

	if len(doc.Sealed) > 0 {
		if fs.sealer == nil {
			return "", errors.Wrap(ErrUnreadable, "[FileStore.Load] token is sealed but no secret is configured")
		}
		plain, err := fs.sealer.open(doc.Salt, doc.Sealed, []byte(fs.key))
		if err != nil {
			return "", errors.Wrapf(ErrUnreadable, "[FileStore.Load] opening sealed token: %v", err)
		}
		return string(plain), nil
	}
	return doc.Token, nil
}

// Clear removes the persisted token. Clearing an empty store is a no-op.
func (fs *FileStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := os.Remove(fs.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "[FileStore.Clear] removing")
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "[writeAtomic] creating temp file")
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[writeAtomic] chmod")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[writeAtomic] writing")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[writeAtomic] sync")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "[writeAtomic] close")
	}
	return errors.Wrap(os.Rename(tmp.Name(), path), "[writeAtomic] rename")
}
