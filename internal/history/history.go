// Package history remembers which devices were connected to recently, so
// the TUI can offer them before the user types anything.
package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rosterloh/tunnel-manager/internal/appconfig"
	"github.com/rosterloh/tunnel-manager/internal/model"
)

type store struct {
	LastUsed map[string]int64 `json:"last_used"`
}

func filePath() (string, error) {
	dir, err := appconfig.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.json"), nil
}

// Touch records a successful connection to a device id.
func Touch(deviceID string) error {
	st, err := load()
	if err != nil {
		return err
	}
	if st.LastUsed == nil {
		st.LastUsed = map[string]int64{}
	}
	st.LastUsed[deviceID] = time.Now().Unix()
	return save(st)
}

// LastUsed returns last successful connection timestamps by device id.
func LastUsed() (map[string]int64, error) {
	st, err := load()
	if err != nil {
		return nil, err
	}
	return st.LastUsed, nil
}

// SortDevicesRecent returns a new slice sorted by recent activity (desc),
// then device id.
func SortDevicesRecent(devices []model.DeviceEntry, lastUsed map[string]int64) []model.DeviceEntry {
	out := append([]model.DeviceEntry(nil), devices...)
	sort.Slice(out, func(i, j int) bool {
		ti := lastUsed[out[i].DeviceID]
		tj := lastUsed[out[j].DeviceID]
		if ti != tj {
			return ti > tj
		}
		return out[i].DeviceID < out[j].DeviceID
	})
	return out
}

// Recent returns up to limit device ids ordered by most recent use.
func Recent(limit int) ([]string, error) {
	st, err := load()
	if err != nil {
		return nil, err
	}
	type entry struct {
		id string
		ts int64
	}
	all := make([]entry, 0, len(st.LastUsed))
	for id, ts := range st.LastUsed {
		all = append(all, entry{id: id, ts: ts})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].ts != all[j].ts {
			return all[i].ts > all[j].ts
		}
		return all[i].id < all[j].id
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	out := make([]string, 0, len(all))
	for _, e := range all {
		out = append(out, e.id)
	}
	return out, nil
}

func load() (store, error) {
	path, err := filePath()
	if err != nil {
		return store{}, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return store{LastUsed: map[string]int64{}}, nil
		}
		return store{}, err
	}
	var st store
	if err := json.Unmarshal(b, &st); err != nil {
		return store{LastUsed: map[string]int64{}}, nil
	}
	if st.LastUsed == nil {
		st.LastUsed = map[string]int64{}
	}
	return st, nil
}

func save(st store) error {
	path, err := filePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}
