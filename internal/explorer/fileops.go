package explorer

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/polyglot/internal/logging"
)

// operation is one reversible file operation.
type operation interface {
	Do() error
	Undo() error
	Description() string
}

// opEntry wraps an operation with metadata.
type opEntry struct {
	op        operation
	timestamp time.Time
}

// FileOps executes file operations with undo/redo. Deletions move the target
// into a trash directory instead of unlinking it, so undo can restore the
// original content.
type FileOps struct {
	mu sync.Mutex

	undoStack []*opEntry
	redoStack []*opEntry

	trashDir   string
	maxEntries int
	logger     *logging.Logger
}

// NewFileOps creates a file-operation stack. trashDir is created on first
// delete.
func NewFileOps(trashDir string, logger *logging.Logger) *FileOps {
	if logger == nil {
		logger = logging.Null
	}
	return &FileOps{
		trashDir:   trashDir,
		maxEntries: 100,
		logger:     logger.WithComponent("fileops"),
	}
}

// CreateFile creates an empty file. The target must not exist.
func (f *FileOps) CreateFile(path string) error {
	return f.execute(&createOp{path: path})
}

// CreateDir creates a directory. The target must not exist.
func (f *FileOps) CreateDir(path string) error {
	return f.execute(&createOp{path: path, dir: true})
}

// Rename moves a file or directory. The destination must not exist.
func (f *FileOps) Rename(oldPath, newPath string) error {
	if _, err := os.Lstat(newPath); err == nil {
		return fmt.Errorf("rename %s: %w", newPath, ErrTargetExists)
	}
	return f.execute(&renameOp{from: oldPath, to: newPath})
}

// Delete moves a file or directory into the trash directory.
func (f *FileOps) Delete(path string) error {
	trashPath := filepath.Join(f.trashDir, filepath.Base(path)+"."+uuid.NewString())
	return f.execute(&deleteOp{path: path, trashPath: trashPath, trashDir: f.trashDir})
}

// execute runs op and pushes it onto the undo stack, clearing the redo
// stack. The lock is held only for stack mutation, not for filesystem work.
func (f *FileOps) execute(op operation) error {
	if err := op.Do(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.undoStack = append(f.undoStack, &opEntry{op: op, timestamp: time.Now()})
	f.redoStack = nil

	if len(f.undoStack) > f.maxEntries {
		excess := len(f.undoStack) - f.maxEntries
		f.undoStack = f.undoStack[excess:]
	}

	f.logger.Debug("executed %s", op.Description())
	return nil
}

// Undo reverses the most recent operation. The entry is restored to the
// undo stack if the reversal fails.
func (f *FileOps) Undo() error {
	f.mu.Lock()
	if len(f.undoStack) == 0 {
		f.mu.Unlock()
		return ErrNothingToUndo
	}
	entry := f.undoStack[len(f.undoStack)-1]
	f.undoStack = f.undoStack[:len(f.undoStack)-1]
	f.mu.Unlock()

	if err := entry.op.Undo(); err != nil {
		f.mu.Lock()
		f.undoStack = append(f.undoStack, entry)
		f.mu.Unlock()
		return fmt.Errorf("undo %s: %w", entry.op.Description(), err)
	}

	f.mu.Lock()
	f.redoStack = append(f.redoStack, entry)
	f.mu.Unlock()
	return nil
}

// Redo reapplies the most recently undone operation.
func (f *FileOps) Redo() error {
	f.mu.Lock()
	if len(f.redoStack) == 0 {
		f.mu.Unlock()
		return ErrNothingToRedo
	}
	entry := f.redoStack[len(f.redoStack)-1]
	f.redoStack = f.redoStack[:len(f.redoStack)-1]
	f.mu.Unlock()

	if err := entry.op.Do(); err != nil {
		f.mu.Lock()
		f.redoStack = append(f.redoStack, entry)
		f.mu.Unlock()
		return fmt.Errorf("redo %s: %w", entry.op.Description(), err)
	}

	f.mu.Lock()
	f.undoStack = append(f.undoStack, entry)
	f.mu.Unlock()
	return nil
}

// CanUndo reports whether an undo is available.
func (f *FileOps) CanUndo() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.undoStack) > 0
}

// CanRedo reports whether a redo is available.
func (f *FileOps) CanRedo() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.redoStack) > 0
}

// PeekUndo returns the description of the next undo operation.
func (f *FileOps) PeekUndo() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.undoStack) == 0 {
		return "", false
	}
	return f.undoStack[len(f.undoStack)-1].op.Description(), true
}

// PeekRedo returns the description of the next redo operation.
func (f *FileOps) PeekRedo() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.redoStack) == 0 {
		return "", false
	}
	return f.redoStack[len(f.redoStack)-1].op.Description(), true
}

// Clear drops all undo/redo history. Trashed files are kept.
func (f *FileOps) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.undoStack = nil
	f.redoStack = nil
}

// EmptyTrash removes everything in the trash directory and clears the
// history, since older entries may reference trashed content.
func (f *FileOps) EmptyTrash() error {
	f.Clear()
	if err := os.RemoveAll(f.trashDir); err != nil {
		return err
	}
	return nil
}

// createOp creates a file or directory; undo removes it.
type createOp struct {
	path string
	dir  bool
}

func (o *createOp) Do() error {
	if _, err := os.Lstat(o.path); err == nil {
		return fmt.Errorf("create %s: %w", o.path, ErrTargetExists)
	}
	if o.dir {
		return os.Mkdir(o.path, 0o755)
	}
	file, err := os.OpenFile(o.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return file.Close()
}

func (o *createOp) Undo() error {
	return os.Remove(o.path)
}

func (o *createOp) Description() string {
	if o.dir {
		return "create directory " + o.path
	}
	return "create file " + o.path
}

// renameOp moves an entry; undo moves it back.
type renameOp struct {
	from, to string
}

func (o *renameOp) Do() error   { return os.Rename(o.from, o.to) }
func (o *renameOp) Undo() error { return os.Rename(o.to, o.from) }

func (o *renameOp) Description() string {
	return fmt.Sprintf("rename %s to %s", o.from, o.to)
}

// deleteOp moves an entry into the trash; undo restores it.
type deleteOp struct {
	path      string
	trashPath string
	trashDir  string
}

func (o *deleteOp) Do() error {
	if err := os.MkdirAll(o.trashDir, 0o755); err != nil {
		return err
	}
	return os.Rename(o.path, o.trashPath)
}

func (o *deleteOp) Undo() error {
	return os.Rename(o.trashPath, o.path)
}

func (o *deleteOp) Description() string {
	return "delete " + o.path
}
