//go:build linux

package diskio

import "syscall"

// On Linux, O_DIRECT bypasses the page cache, matching the
// __linux__ branch of original_source/disk_storage.h's DirectIOFile.
const directIOFlag = syscall.O_DIRECT
