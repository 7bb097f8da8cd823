// Package registry keeps a local catalog of named devices in devices.yaml
// under the config directory, so frequently used device ids can be
// connected to by alias instead of retyping them.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rosterloh/tunnel-manager/internal/appconfig"
	"github.com/rosterloh/tunnel-manager/internal/model"
	"github.com/rosterloh/tunnel-manager/internal/util"
)

type fileModel struct {
	Devices map[string]model.DeviceEntry `yaml:"devices"`
}

func filePath() (string, error) {
	dir, err := appconfig.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "devices.yaml"), nil
}

// LoadAll returns all registered devices sorted by alias.
func LoadAll() ([]model.DeviceEntry, error) {
	fm, err := loadFile()
	if err != nil {
		return nil, err
	}
	out := make([]model.DeviceEntry, 0, len(fm.Devices))
	for _, d := range fm.Devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Alias < out[j].Alias })
	return out, nil
}

// Resolve maps an alias or raw device id to a device id. An unknown name
// is assumed to be a raw device id and returned as-is, so callers can
// treat registry use as optional.
func Resolve(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", util.ErrEmptyDeviceID
	}
	fm, err := loadFile()
	if err != nil {
		return "", err
	}
	if d, ok := fm.Devices[name]; ok {
		return d.DeviceID, nil
	}
	return name, nil
}

// Add registers or replaces a device under an alias.
func Add(alias, deviceID, notes string) error {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return fmt.Errorf("alias cannot be empty")
	}
	if err := util.ValidateDeviceID(deviceID); err != nil {
		return fmt.Errorf("device %s: %w", alias, err)
	}

	fm, err := loadFile()
	if err != nil {
		return err
	}
	fm.Devices[alias] = model.DeviceEntry{Alias: alias, DeviceID: deviceID, Notes: strings.TrimSpace(notes)}
	return saveFile(fm)
}

// Remove deletes a device by alias.
func Remove(alias string) error {
	fm, err := loadFile()
	if err != nil {
		return err
	}
	if _, ok := fm.Devices[alias]; !ok {
		return fmt.Errorf("device not found: %s", alias)
	}
	delete(fm.Devices, alias)
	return saveFile(fm)
}

func loadFile() (fileModel, error) {
	path, err := filePath()
	if err != nil {
		return fileModel{}, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fileModel{Devices: map[string]model.DeviceEntry{}}, nil
		}
		return fileModel{}, err
	}
	var fm fileModel
	if err := yaml.Unmarshal(b, &fm); err != nil {
		return fileModel{}, fmt.Errorf("parse devices: %w", err)
	}
	if fm.Devices == nil {
		fm.Devices = map[string]model.DeviceEntry{}
	}
	return fm, nil
}

func saveFile(fm fileModel) error {
	path, err := filePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	b, err := yaml.Marshal(fm)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}
