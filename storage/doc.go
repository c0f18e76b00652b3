// Package storage provides file storage for export scratch data and output.
//
// Storage is path based: callers address files relative to a backend root.
// Backends register a factory under a provider name and are selected by
// Config:
//
//	storage:
//	  provider: local
//	  base_path: /var/lib/gobexport/buffer
//
// Import the backend package for its side effect so the factory is
// registered:
//
//	import _ "github.com/kbukum/gobexport/storage/local"
package storage
