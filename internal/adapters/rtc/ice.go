// Package rtc builds the WebRTC configuration handed to browsers. The server
// never terminates media itself; peers connect directly using these servers.
package rtc

import (
	"github.com/dkeye/VoiceCall/internal/config"
	"github.com/pion/webrtc/v4"
)

func DefaultWebRTCConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: []string{"stun:stun.l.google.com:19302"},
			},
		},
	}
}

// ICEConfig converts configured servers. Entries without URLs are skipped;
// with nothing left the default STUN server is used.
func ICEConfig(servers []config.ICEServer) webrtc.Configuration {
	cfg := webrtc.Configuration{}
	for _, s := range servers {
		if len(s.URLs) == 0 {
			continue
		}
		srv := webrtc.ICEServer{URLs: s.URLs}
		if s.Username != "" {
			srv.Username = s.Username
			srv.Credential = s.Credential
			srv.CredentialType = webrtc.ICECredentialTypePassword
		}
		cfg.ICEServers = append(cfg.ICEServers, srv)
	}
	if len(cfg.ICEServers) == 0 {
		return DefaultWebRTCConfig()
	}
	return cfg
}
