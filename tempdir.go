package mime

import "os"

// defaultTempDir is ParserConfig.TempDir's fallback: the OS-provided
// scratch directory, same as every other staging location in the
// package picks when not overridden.
func defaultTempDir() string {
	return os.TempDir()
}
