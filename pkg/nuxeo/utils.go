package nuxeo

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"mime"
	"path/filepath"
	"runtime"
)

// windowsMimePatches corrects MIME types the Windows registry reports
// wrongly (NXP-11660).
var windowsMimePatches = map[string]string{
	"image/pjpeg":                "image/jpeg",
	"image/x-png":                "image/png",
	"image/bmp":                  "image/x-ms-bmp",
	"audio/x-mpg":                "audio/mpeg",
	"video/x-mpeg2a":             "video/mpeg",
	"application/x-javascript":   "application/javascript",
	"application/x-msexcel":      "application/vnd.ms-excel",
	"application/x-mspowerpoint": "application/vnd.ms-powerpoint",
	"application/x-mspowerpoint.12": "application/vnd.openxmlformats-officedocument" +
		".presentationml.presentation",
}

// GuessMimeType guesses a file's MIME type from its name, falling back to
// application/octet-stream.
func GuessMimeType(filename string) string {
	mimeType := mime.TypeByExtension(filepath.Ext(filename))
	if mimeType == "" {
		return "application/octet-stream"
	}

	// TypeByExtension may append parameters (charset); the server only
	// wants the media type.
	if mediaType, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = mediaType
	}

	if runtime.GOOS == "windows" {
		if patched, ok := windowsMimePatches[mimeType]; ok {
			mimeType = patched
		}
	}
	return mimeType
}

// digesters maps hex digest lengths to hash constructors, mirroring the
// algorithms a server blob provider can be configured with.
var digesters = map[int]struct {
	name string
	new  func() hash.Hash
}{
	32:  {"md5", md5.New},
	40:  {"sha1", sha1.New},
	56:  {"sha224", sha256.New224},
	64:  {"sha256", sha256.New},
	96:  {"sha384", sha512.New384},
	128: {"sha512", sha512.New},
}

// DigesterFromDigest returns a hash matching the given hex digest's
// algorithm, inferred from its length, along with the algorithm name.
// Returns (nil, "") for non-hex input or an unknown length.
func DigesterFromDigest(digest string) (hash.Hash, string) {
	if _, err := hex.DecodeString(digest); err != nil {
		return nil, ""
	}
	d, ok := digesters[len(digest)]
	if !ok {
		return nil, ""
	}
	return d.new(), d.name
}

// SwapValue sets *ptr to value and returns a func restoring the previous
// value. It exists for tests that temporarily reconfigure a client:
//
//	defer nuxeo.SwapValue(&cfg.Repository, "other")()
func SwapValue[T any](ptr *T, value T) (restore func()) {
	old := *ptr
	*ptr = value
	return func() { *ptr = old }
}
