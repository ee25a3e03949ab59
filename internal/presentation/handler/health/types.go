package health

// rootResponse is the status document served at "/".
type rootResponse struct {
	Message        string `json:"message"`
	Status         string `json:"status"`
	ConnectedUsers int    `json:"connectedUsers"`
	MaxUsers       int    `json:"maxUsers"`
	Timestamp      string `json:"timestamp"`
}

// healthResponse represents the health status of the server
type healthResponse struct {
	Status         string  `json:"status"`         // ok or unhealthy
	Uptime         float64 `json:"uptime"`         // seconds since start
	ConnectedUsers int     `json:"connectedUsers"` // members currently in the room
	Timestamp      string  `json:"timestamp"`      // RFC3339, UTC
}
