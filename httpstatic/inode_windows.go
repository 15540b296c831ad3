//go:build windows

// File: httpstatic/inode_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package httpstatic

import "os"

// Windows has no stable inode exposed through os.FileInfo; size and
// modification time alone give a weak tag that is still correct for
// cache invalidation purposes.
func computeETag(fi os.FileInfo) string {
	return etagString(0, fi.Size(), fi.ModTime().UnixMilli())
}
