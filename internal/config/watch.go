package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// WatchMarkers calls onChange with the new marker list whenever the config
// file is written. It does nothing when no config file is in use.
func WatchMarkers(v *viper.Viper, logger *zap.Logger, onChange func([]Marker)) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		markers, err := LoadMarkers(v)
		if err != nil {
			logger.Warn("ignoring config change", zap.String("file", e.Name), zap.Error(err))
			return
		}
		logger.Info("markers reloaded", zap.String("file", e.Name), zap.Int("count", len(markers)))
		onChange(markers)
	})
	v.WatchConfig()
}
