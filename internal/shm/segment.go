// Package shm implements the cross-process state shared by the perception
// and planning processes: named counting semaphores, the write-priority
// reader/writer lock built on top of them, and the fixed-layout memory
// region holding sensor buffers, pose history, obstacle lists and planner
// output.
//
// Each named object is a file under Dir (a tmpfs such as /dev/shm by
// default) mapped MAP_SHARED into every participating process. Exactly one
// process per logical name opens with owner=true; it creates and
// zero-initializes the backing files, and unlinks them on Close. Non-owners
// attach to existing files and fail construction when the owner has not
// created them yet.
package shm

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/banshee-data/navcore/internal/security"
)

// Dir is the directory holding the backing files for all named shared
// objects. Tests point this at a throwaway directory.
var Dir = "/dev/shm"

// segment is a named file mapped shared into the process.
type segment struct {
	name  string
	path  string
	owner bool
	mem   []byte
}

// openSegment creates (owner) or attaches to (non-owner) a named mapping of
// the given size.
func openSegment(name string, owner bool, size int) (*segment, error) {
	if err := security.ValidateSegmentName(name); err != nil {
		return nil, fmt.Errorf("shm: %w", err)
	}
	path := filepath.Join(Dir, name)

	flags := unix.O_RDWR
	if owner {
		flags |= unix.O_CREAT | unix.O_TRUNC
	}
	fd, err := unix.Open(path, flags, 0o666)
	if err != nil {
		if !owner && os.IsNotExist(err) {
			return nil, fmt.Errorf("shm: segment %q does not exist; owner process not started: %w", name, err)
		}
		return nil, fmt.Errorf("shm: failed to open segment %q: %w", name, err)
	}

	if owner {
		if err := unix.Ftruncate(fd, int64(size)); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("shm: failed to size segment %q: %w", name, err)
		}
	}

	mem, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	// The mapping keeps the file contents alive; the descriptor is no longer
	// needed either way.
	unix.Close(fd)
	if err != nil {
		return nil, fmt.Errorf("shm: failed to map segment %q: %w", name, err)
	}

	return &segment{name: name, path: path, owner: owner, mem: mem}, nil
}

// close unmaps the segment. The owner also unlinks the backing file, so a
// non-owner may safely outlive the mapping without destroying shared state.
func (s *segment) close() error {
	if s.mem == nil {
		return nil
	}
	err := unix.Munmap(s.mem)
	s.mem = nil
	if s.owner {
		if unlinkErr := unix.Unlink(s.path); unlinkErr != nil && err == nil {
			err = unlinkErr
		}
	}
	return err
}
