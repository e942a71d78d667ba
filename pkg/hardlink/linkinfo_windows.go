package hardlink

import (
	"fmt"
	"syscall"
)

// getFileID returns the unique file identifier (volume + file index) and link count for a file on Windows.
// Symlinks are not deduplicated, so the handle always follows the final target.
func getFileID(path string) (FileID, uint64, error) {
	pathp, err := syscall.UTF16PtrFromString(path)
	if err != nil {
		return FileID{}, 0, fmt.Errorf("convert path to UTF16: %w", err)
	}

	h, err := syscall.CreateFile(pathp, 0, 0, nil, syscall.OPEN_EXISTING, syscall.FILE_FLAG_BACKUP_SEMANTICS, 0)
	if err != nil {
		return FileID{}, 0, fmt.Errorf("open file: %w", err)
	}
	defer syscall.CloseHandle(h)

	var info syscall.ByHandleFileInformation
	err = syscall.GetFileInformationByHandle(h, &info)
	if err != nil {
		return FileID{}, 0, fmt.Errorf("get file info: %w", err)
	}

	// Device = VolumeSerialNumber, Inode = (FileIndexHigh << 32) | FileIndexLow
	fileID := FileID{
		Device: uint64(info.VolumeSerialNumber),
		Inode:  (uint64(info.FileIndexHigh) << 32) | uint64(info.FileIndexLow),
	}

	return fileID, uint64(info.NumberOfLinks), nil
}
