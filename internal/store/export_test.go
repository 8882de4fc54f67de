package store

// SetRenameFile swaps the rename used by Compact and returns a restore func.
func SetRenameFile(fn func(oldpath, newpath string) error) (restore func()) {
	prev := renameFile
	renameFile = fn
	return func() { renameFile = prev }
}
