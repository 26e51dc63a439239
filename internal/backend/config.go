// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package backend

import (
	"github.com/ManuGH/gstbackend/internal/config"
	"github.com/ManuGH/gstbackend/internal/media/devices"
	"github.com/ManuGH/gstbackend/internal/media/player"
	"github.com/ManuGH/gstbackend/internal/media/pluginstall"
)

// SettingsFromConfig maps the player section onto media object tunables.
func SettingsFromConfig(cfg config.PlayerConfig) player.Settings {
	return player.Settings{
		TickInterval:   cfg.TickInterval,
		PrefinishMark:  cfg.PrefinishMark,
		TransitionTime: cfg.TransitionTime,
		AutoplayTitles: cfg.AutoplayTitles,
	}
}

// CatalogFromConfig builds the device snapshot outputs are resolved against.
func CatalogFromConfig(cfg config.DevicesConfig) (*devices.Catalog, error) {
	list := make([]devices.Device, 0, len(cfg.Audio)+len(cfg.Video))
	for _, d := range cfg.Audio {
		list = append(list, toDevice(d, devices.Audio))
	}
	for _, d := range cfg.Video {
		list = append(list, toDevice(d, devices.Video))
	}
	return devices.NewCatalog(list...)
}

func toDevice(d config.DeviceConfig, kind devices.Kind) devices.Device {
	name := d.Name
	if name == "" {
		name = d.ID
	}
	return devices.Device{ID: d.ID, Name: name, Element: d.Element, Kind: kind, Default: d.Default}
}

// InstallerFromConfig selects the plugin installer.
func InstallerFromConfig(cfg config.PluginsConfig) pluginstall.Installer {
	if cfg.Installer == config.InstallerStatic {
		return pluginstall.NewStatic(cfg.Available...)
	}
	return pluginstall.None{}
}
