package storage

import "fmt"

// Open returns the store named by backend: "file" (the default), "redis",
// or "none", which yields a nil Store.
func Open(backend, dir, redisAddr string) (Store, error) {
	switch backend {
	case "", "file":
		s := NewFileStore(dir)
		if err := s.Init(); err != nil {
			return nil, err
		}
		return s, nil
	case "redis":
		return NewRedisStore(redisAddr), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", backend)
	}
}
