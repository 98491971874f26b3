package sslcache

import (
	"os"
	"syscall"
	"time"
)

// statFile stats path and returns its mtime and filesystem identity
// (device+inode). A nil error with a zero fsUniq means the platform's
// os.FileInfo didn't expose a *syscall.Stat_t (non-Unix); freshness checks
// then fall back to mtime alone.
func statFile(path string) (mtime time.Time, uniq fsUniq, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, fsUniq{}, err
	}
	mtime = info.ModTime()
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		uniq = fsUniq{dev: uint64(st.Dev), ino: st.Ino} //nolint:unconvert
	}
	return mtime, uniq, nil
}
