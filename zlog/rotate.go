package zlog

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"sync"

	"golang.org/x/sys/unix"
)

// rotater owns one output file's rotation bookkeeping. Rotation must be
// safe when multiple zlog processes share the same log file (spec §4.4:
// "the rotation lock is a file-system advisory lock, not an in-process
// mutex, because the processes sharing a log file are not threads of one
// program") — a sync.Mutex only protects goroutines within this process,
// so the actual gate is an flock(2) advisory lock on a dedicated lock
// file, with the in-process mutex layered on top purely to avoid two
// goroutines of this process both trying to acquire the flock at once.
type rotater struct {
	mu       sync.Mutex
	lockPath string
}

func newRotater(lockPath string) *rotater {
	return &rotater{lockPath: lockPath}
}

// maybeRotate rotates path if its current size is at or beyond
// policy.MaxSizeBytes, returning true if a rotation happened. Archive
// names are derived from policy.ArchivePattern by substituting "#r" with
// the zero-padded 1-based sequence number and "#s" with the same number
// unpadded (see archiveName).
func (rt *rotater) maybeRotate(path string, policy *RotationPolicy) (bool, error) {
	if policy == nil {
		return false, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.Size() < policy.MaxSizeBytes {
		return false, nil
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	unlock, err := rt.acquireFileLock()
	if err != nil {
		return false, fmt.Errorf("rotate %s: %w", path, err)
	}
	defer unlock()

	// Re-stat under the lock: another process may have rotated already
	// while we waited.
	info, err = os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.Size() < policy.MaxSizeBytes {
		return false, nil
	}

	if err := rt.rotate(path, policy); err != nil {
		return false, err
	}
	return true, nil
}

func (rt *rotater) acquireFileLock() (unlock func(), err error) {
	f, err := os.OpenFile(rt.lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("flock: %w", err)
	}
	return func() {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
	}, nil
}

// rotate performs the prune/rename sequence: remove the archive in slot
// policy.MaxCount, shift each remaining archive up by one slot, then
// rename path into slot #1. Archives numbered above policy.MaxCount are
// not looked at.
func (rt *rotater) rotate(path string, policy *RotationPolicy) error {
	for seq := policy.MaxCount; seq >= 1; seq-- {
		src := archiveName(policy.ArchivePattern, path, seq, policy.MaxCount)
		if seq == policy.MaxCount {
			if _, err := os.Stat(src); err == nil {
				os.Remove(src)
			}
			continue
		}
		dst := archiveName(policy.ArchivePattern, path, seq+1, policy.MaxCount)
		if _, err := os.Stat(src); err == nil {
			if err := os.Rename(src, dst); err != nil {
				return fmt.Errorf("rename %s -> %s: %w", src, dst, err)
			}
		}
	}

	first := archiveName(policy.ArchivePattern, path, 1, policy.MaxCount)
	if err := os.Rename(path, first); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", path, first, err)
	}
	return nil
}

// archiveTokenRe matches the two archive-naming tokens a rotation pattern
// may carry: "#r" (optionally preceded by an explicit zero-pad width, as
// in "#02r") and "#s".
var archiveTokenRe = regexp.MustCompile(`#(\d*)([rs])`)

// archiveName substitutes a rotation pattern's "#r"/"#s" tokens, falling
// back to "<path>.<seq>" when no pattern was given. "#r" is the fixed-
// width, zero-padded rotation sequence — its width defaults to however
// many digits maxCount needs, so archives still sort lexicographically
// (e.g. "01".."12" rather than "1",..,"10","11","12"), or can be pinned
// explicitly with a leading digit ("#02r"). "#s" is the same sequence
// number rendered unpadded.
func archiveName(pattern, path string, seq, maxCount int) string {
	if pattern == "" {
		return path + "." + strconv.Itoa(seq)
	}
	return archiveTokenRe.ReplaceAllStringFunc(pattern, func(tok string) string {
		m := archiveTokenRe.FindStringSubmatch(tok)
		widthStr, kind := m[1], m[2]
		if kind == "s" {
			return strconv.Itoa(seq)
		}
		width := len(strconv.Itoa(maxCount))
		if widthStr != "" {
			width, _ = strconv.Atoi(widthStr)
		}
		return fmt.Sprintf("%0*d", width, seq)
	})
}
