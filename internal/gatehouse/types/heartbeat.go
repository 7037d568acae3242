package types

type HeartbeatRequest struct {
	TerminalID      string `json:"terminal_id"`
	FirmwareVersion string `json:"firmware_version,omitempty"`
	UptimeSeconds   uint32 `json:"uptime_s,omitempty"`
	CameraOK        *bool  `json:"camera_ok,omitempty"`
	IP              string `json:"ip,omitempty"`
}

type HeartbeatResponse struct {
	OK         bool   `json:"ok"`
	Known      bool   `json:"known"`
	TerminalID string `json:"terminal_id"`
	ServerTime string `json:"server_time"`
}
