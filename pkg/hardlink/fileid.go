package hardlink

// FileID represents a unique file identifier (device ID + inode number).
type FileID struct {
	Device uint64 // Device ID
	Inode  uint64 // Inode number
}

// Equal checks if two FileIDs are equal.
func (f FileID) Equal(other FileID) bool {
	return f.Device == other.Device && f.Inode == other.Inode
}

// Identify returns the identity and link count of the file at path.
func Identify(path string) (FileID, uint64, error) {
	return getFileID(path)
}

// SameFile reports whether a and b are links to the same underlying file.
func SameFile(a, b string) (bool, error) {
	idA, _, err := getFileID(a)
	if err != nil {
		return false, err
	}

	idB, _, err := getFileID(b)
	if err != nil {
		return false, err
	}

	return idA.Equal(idB), nil
}
