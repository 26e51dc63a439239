// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package player

import (
	"strings"

	"github.com/ManuGH/gstbackend/internal/engine"
	xglog "github.com/ManuGH/gstbackend/internal/log"
	"github.com/ManuGH/gstbackend/internal/media/pluginstall"
	"github.com/ManuGH/gstbackend/internal/metrics"
)

const (
	msgDeviceBusy     = "Could not open audio device. The device is already in use."
	msgNotFound       = "Could not locate media source."
	msgCannotDecode   = "Could not decode media source."
	msgMissingCodec   = "A required codec is missing. You need to install the following codec(s) to play this content: "
	msgInstallFailed  = "Plugin codec installation failed for codec: "
	msgUnknownFailure = "Unknown playback error."
	msgCannotStart    = "Cannot start playback. Check the GStreamer installation."
	msgCannotPause    = "Cannot pause playback."
	msgCannotStop     = "Cannot stop playback."
)

// handleError maps a native error onto exactly one outcome: a non-fatal
// device error, a plugin check, or a fatal error.
func (m *MediaObject) handleError(info *engine.ErrorInfo) {
	if info == nil {
		return
	}
	m.logger.Debug().
		Str(xglog.FieldErrorDomain, info.Domain.String()).
		Int(xglog.FieldErrorCode, info.Code).
		Str("debug", info.Debug).
		Str(xglog.FieldEvent, "player.engine_error").
		Msg(info.Message)

	switch {
	case info.Domain == engine.DomainResource && info.Code == engine.ResourceBusy && info.FromAudioSink():
		m.setError(msgDeviceBusy, NormalError)
		return
	case isMissingPlugin(info):
		m.checkPlugins()
		return
	}

	if m.installingPlugin {
		m.logger.Debug().Str(xglog.FieldEvent, "player.error_suppressed").Msg("error ignored during plugin installation")
		return
	}
	m.setError(fatalMessage(info), FatalError)
}

func isMissingPlugin(info *engine.ErrorInfo) bool {
	return (info.Domain == engine.DomainCore && info.Code == engine.CoreMissingPlugin) ||
		(info.Domain == engine.DomainStream && info.Code == engine.StreamCodecNotFound)
}

func fatalMessage(info *engine.ErrorInfo) string {
	switch info.Domain {
	case engine.DomainResource:
		switch info.Code {
		case engine.ResourceNotFound:
			return msgNotFound
		case engine.ResourceOpenRead:
			return msgCannotOpen
		}
	case engine.DomainStream:
		switch info.Code {
		case engine.StreamWrongType, engine.StreamTypeNotFound:
			return msgCannotDecode
		}
	}
	if info.Message == "" {
		return msgUnknownFailure
	}
	return info.Message
}

// setError records an error. Fatal errors stop the pipeline and commit
// Error at once; normal errors wait for loading to finish.
func (m *MediaObject) setError(msg string, typ ErrorType) {
	m.errorString = msg
	m.errorType = typ
	m.stopTick()
	metrics.IncPlayerError(typ.String())
	m.logger.Warn().
		Str(xglog.FieldErrorKind, typ.String()).
		Bool("loading", m.loading).
		Str(xglog.FieldEvent, "player.error").
		Msg(msg)

	if typ == FatalError {
		if m.hasVideo {
			m.hasVideo = false
			m.emit(Event{Kind: EventHasVideoChanged, Flag: false})
		}
		m.pipe.SetState(engine.StateReady)
		m.loading = false
		m.changeState(StateError)
		return
	}
	if m.loading {
		m.pendingState = StateError
		return
	}
	m.changeState(StateError)
}

// pluginErrorType keeps a codec failure non-fatal while some stream of
// the source still plays.
func (m *MediaObject) pluginErrorType() ErrorType {
	if m.hasAudio || m.hasVideo {
		return NormalError
	}
	return FatalError
}

func (m *MediaObject) checkPlugins() {
	status := m.plugins.Check()
	switch status {
	case pluginstall.StatusMissing:
		m.setError(msgMissingCodec+strings.Join(m.plugins.Pending(), ", "), m.pluginErrorType())
	case pluginstall.StatusInstalling:
		m.installingPlugin = true
	case pluginstall.StatusInstalled:
		if m.pluginReloaded {
			// already reloaded once for this source and it still fails
			m.setError(msgMissingCodec+strings.Join(m.plugins.Pending(), ", "), m.pluginErrorType())
			return
		}
		m.reloadForPlugins()
	}
}

func (m *MediaObject) onPluginInstallStarted() {
	m.logger.Info().
		Strs("plugins", m.plugins.Pending()).
		Str(xglog.FieldEvent, "player.plugin_install_started").
		Msg("installing missing plugins")
}

func (m *MediaObject) onPluginInstallSucceeded() {
	if m.disposed {
		return
	}
	m.installingPlugin = false
	m.reloadForPlugins()
}

func (m *MediaObject) onPluginInstallFailed(err error) {
	if m.disposed {
		return
	}
	m.installingPlugin = false
	m.logger.Warn().Err(err).Msg("plugin install failed")
	m.setError(msgInstallFailed+strings.Join(m.plugins.Pending(), ", "), m.pluginErrorType())
}

// reloadForPlugins loads the current source again and restores the state
// that was requested before the codec went missing.
func (m *MediaObject) reloadForPlugins() {
	want := m.pendingState
	switch want {
	case StatePlaying, StatePaused, StateStopped:
	default:
		want = StateStopped
	}
	m.pluginReloaded = true
	m.loadSource(m.source)
	if m.loading {
		m.pendingState = want
	}
}
