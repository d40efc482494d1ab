package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"task-list/pkg/task"
)

// DefaultPath is where the desktop app keeps its tasks, relative to the
// working directory.
var DefaultPath = filepath.Join("data", "tasks.json")

const (
	dirPerm        = 0o755
	filePerm       = 0o644
	lockRetryDelay = 25 * time.Millisecond
)

// FileStore is a Gateway backed by a single JSON file.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore for path. An empty path means DefaultPath.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultPath
	}
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load implements Gateway.
func (s *FileStore) Load(ctx context.Context) ([]task.Task, error) {
	if err := ctx.Err(); err != nil {
		return []task.Task{}, &Error{Kind: KindIO, Op: "load", Path: s.path, Err: err}
	}
	return Load(s.path)
}

// Save implements Gateway.
func (s *FileStore) Save(ctx context.Context, tasks []task.Task) error {
	return SaveContext(ctx, s.path, tasks)
}

// Load reads the task array at path. A missing file is a first run and
// returns an empty collection with no error. Malformed JSON, a document that
// is not a task array, and read failures all return an empty collection
// and an *Error; to the caller a corrupt file looks the same as no file.
func Load(path string) ([]task.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []task.Task{}, nil
		}
		return []task.Task{}, &Error{Kind: KindIO, Op: "load", Path: path, Err: err}
	}

	tasks, err := decode(data)
	if err != nil {
		return []task.Task{}, &Error{Kind: KindDeserialization, Op: "load", Path: path, Err: err}
	}
	return tasks, nil
}

func decode(data []byte) ([]task.Task, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if err := validateShape(doc); err != nil {
		return nil, err
	}

	var tasks []task.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	for i := range tasks {
		if tasks[i].ID == "" {
			tasks[i].ID = uuid.Must(uuid.NewV7()).String()
		}
	}
	return tasks, nil
}

// Save writes tasks to path as an indented JSON array, replacing the file.
func Save(path string, tasks []task.Task) error {
	return SaveContext(context.Background(), path, tasks)
}

// SaveContext is Save with a context bounding the wait for the file lock.
// The containing directory is created if needed. The file is replaced
// atomically, so readers never see a partial write.
func SaveContext(ctx context.Context, path string, tasks []task.Task) error {
	fail := func(err error) error {
		return &Error{Kind: KindIO, Op: "save", Path: path, Err: err}
	}

	if tasks == nil {
		tasks = []task.Task{}
	}
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return fail(fmt.Errorf("marshal tasks: %w", err))
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fail(fmt.Errorf("create data dir: %w", err))
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fail(fmt.Errorf("lock: %w", err))
	}
	if !locked {
		return fail(errors.New("lock: not acquired"))
	}
	defer func() { _ = lock.Unlock() }()

	if err := atomicWrite(path, data); err != nil {
		return fail(err)
	}
	return nil
}

// atomicWrite writes data to a temp file in the target directory and
// renames it over path.
func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, filePerm); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("replace file: %w", err)
	}
	return nil
}
