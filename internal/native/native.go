// Package native documents the seams native collaborators (file, socket,
// crypto, compression, regex, os, time) would implement against the
// runtime's Value type. No implementation lives here — these are
// out-of-scope external collaborators per the runtime's module-boundary
// design; the interfaces exist only to name the contract.
package native

import (
	"context"

	"github.com/hemlang/hemlock/internal/value"
)

// FileSystem is the contract a native file collaborator implements.
type FileSystem interface {
	Open(path string, flags int) (value.Value, error)
	Read(handle value.Value, n int) (value.Value, error)
	Write(handle value.Value, data value.Value) (int, error)
	Close(handle value.Value) error
}

// Socket is the contract a native network collaborator implements.
type Socket interface {
	Dial(ctx context.Context, network, addr string) (value.Value, error)
	Send(handle value.Value, data value.Value) (int, error)
	Recv(handle value.Value, n int) (value.Value, error)
	Close(handle value.Value) error
}

// Crypto is the contract a native cryptography collaborator implements.
type Crypto interface {
	Hash(algorithm string, data value.Value) (value.Value, error)
	RandomBytes(n int) (value.Value, error)
}

// Compression is the contract a native compression collaborator implements.
type Compression interface {
	Compress(algorithm string, data value.Value) (value.Value, error)
	Decompress(algorithm string, data value.Value) (value.Value, error)
}

// Regex is the contract a native regular-expression collaborator implements.
type Regex interface {
	Match(pattern string, data value.Value) (bool, error)
	FindAll(pattern string, data value.Value) (value.Value, error)
}

// OS is the contract a native OS-interaction collaborator implements.
type OS interface {
	Getenv(key string) (value.Value, error)
	Args() (value.Value, error)
}

// Clock is the contract a native time collaborator implements.
type Clock interface {
	Now() (value.Value, error)
	Sleep(ctx context.Context, durationMs int64) error
}
