package hasher

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"hash"
	"io"
	"os"

	"github.com/minio/highwayhash"
	"github.com/pkg/errors"
)

// PartialSize is how much of the head of a file the partial phase reads.
const PartialSize = 8 * 1024

const fullBufferSize = 64 * 1024

// Digest is a 256-bit content fingerprint. It is comparable, so it can key a map.
type Digest [highwayhash.Size]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Compare orders digests bytewise, returning -1, 0 or +1.
func (d Digest) Compare(other Digest) int {
	return bytes.Compare(d[:], other[:])
}

// DigestFunc fingerprints the file at path.
type DigestFunc func(path string) (Digest, error)

// key is random per process. Digests are never persisted or compared across runs.
var key = newKey()

func newKey() []byte {
	k := make([]byte, highwayhash.Size)
	if _, err := rand.Read(k); err != nil {
		panic(errors.Wrap(err, "generate digest key"))
	}
	return k
}

func newHash() hash.Hash {
	h, err := highwayhash.New(key)
	if err != nil {
		// only fails on a key of the wrong length
		panic(err)
	}
	return h
}

// Partial digests at most the first PartialSize bytes of path. Shorter files
// are digested whole.
func Partial(path string) (Digest, error) {
	d, _, err := digestFile(path, PartialSize)
	return d, err
}

// Full digests the entire content of path.
func Full(path string) (Digest, error) {
	d, _, err := digestFile(path, -1)
	return d, err
}

// digestFile hashes up to limit bytes (all of them when limit < 0) and reports
// how many were read.
func digestFile(path string, limit int64) (Digest, int64, error) {
	var d Digest

	f, err := os.Open(path)
	if err != nil {
		return d, 0, errors.Wrap(err, "open")
	}
	defer f.Close()

	h := newHash()
	var n int64
	if limit >= 0 {
		n, err = io.CopyN(h, f, limit)
		if err != nil && !errors.Is(err, io.EOF) {
			return d, n, errors.Wrapf(err, "read head of %s", path)
		}
	} else {
		buf := make([]byte, fullBufferSize)
		n, err = io.CopyBuffer(h, f, buf)
		if err != nil {
			return d, n, errors.Wrapf(err, "read %s", path)
		}
	}

	copy(d[:], h.Sum(nil))
	return d, n, nil
}
