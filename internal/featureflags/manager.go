// Package featureflags switches optional surfaces of the API on and off per deployment.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
)

// Known flags. Both default to on; FEATURE_FLAGS only needs to name the ones being turned off
// or rolled out gradually.
const (
	// Realtime gates the /api/ws event stream.
	Realtime = "realtime"
	// ImageUploads gates the image part of post create and update requests.
	ImageUploads = "image_uploads"
)

var defaults = map[string]bool{
	Realtime:     true,
	ImageUploads: true,
}

// Manager evaluates flags defined in a key=value list such as
// "realtime=off,image_uploads=25%".
type Manager struct {
	flags map[string]string
}

// NewManager parses raw. Malformed pairs are skipped.
func NewManager(raw string) *Manager {
	out := make(map[string]string)

	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}

	return &Manager{flags: out}
}

// Enabled reports whether name is on for userID. Supported values are on/true/1,
// off/false/0 and N%, a deterministic per-user rollout. Unset or unparsable flags fall back
// to their default, which is off for unknown names.
func (m *Manager) Enabled(name string, userID uint) bool {
	name = normalize(name)
	fallback := defaults[name]
	if m == nil {
		return fallback
	}

	value, ok := m.flags[name]
	if !ok {
		return fallback
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pctRaw, isPct := strings.CutSuffix(value, "%")
	if !isPct {
		return fallback
	}
	pct, err := strconv.Atoi(pctRaw)
	switch {
	case err != nil:
		return fallback
	case pct <= 0:
		return false
	case pct >= 100:
		return true
	case userID == 0:
		return false
	}
	return rolloutBucket(name, userID) < pct
}

// Raw returns a copy of the configured values.
func (m *Manager) Raw() map[string]string {
	if m == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(m.flags))
	for k, v := range m.flags {
		out[k] = v
	}
	return out
}

// Snapshot evaluates every known and configured flag for userID.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool, len(defaults))
	for name := range defaults {
		out[name] = m.Enabled(name, userID)
	}
	if m != nil {
		for name := range m.flags {
			out[name] = m.Enabled(name, userID)
		}
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(fmt.Sprintf("%s:%d", name, userID)))
	return int(h.Sum32() % 100)
}
