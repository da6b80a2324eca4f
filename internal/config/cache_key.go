package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// StudentLoginKey returns the cache key holding a student's active login JTI.
func (r *CacheKeyStruct) StudentLoginKey(studentID string) string {
	return fmt.Sprintf("login:%s", studentID)
}

// RegistrySessionKey returns the cache key for one live session record.
func (r *CacheKeyStruct) RegistrySessionKey(sessionID string) string {
	return fmt.Sprintf("registry:session:%s", sessionID)
}

// RegistryIndexKey returns the set key holding all registered session IDs.
func (r *CacheKeyStruct) RegistryIndexKey() string {
	return "registry:sessions"
}

// PairingKey returns the cache key for a session's mobile pairing record.
func (r *CacheKeyStruct) PairingKey(sessionID string) string {
	return fmt.Sprintf("pairing:%s", sessionID)
}

// ControlKey returns the list key for pending admin control commands
// (warnings, terminate) addressed to one student session.
func (r *CacheKeyStruct) ControlKey(sessionID string) string {
	return fmt.Sprintf("control:%s", sessionID)
}

// MonitorChannel returns the Redis PubSub channel for dashboard monitor events.
func (r *CacheKeyStruct) MonitorChannel() string {
	return "registry:monitor"
}

var CacheKey = NewCacheKeyStruct()
