// Package config loads the server-side configuration from the `server:` section
// of config.yaml (the `agent:` key is ignored by the server binary).
//
// Config fields:
//   - HTTPPort          - port for the REST API, WebSocket hub and /metrics (default 8080)
//   - GRPCPort          - port for the gRPC health service (default 50051)
//   - Auth.Mode         - "apikey" or "none"
//   - Auth.KeyEnv       - environment variable holding the expected API key
//   - Auth.Header       - gRPC metadata/HTTP header name (default "x-api-key")
//   - Session.TTL       - idle time before a FIT session is evicted (default 2h)
//   - Stream.Interval   - WebSocket refresh tick (default 5s)
//   - RateLimit.RPS     - per-client request rate; 0 disables limiting
//   - RateLimit.Burst   - per-client burst size
//   - Alerts            - threshold rules and webhook targets
//
// Load(path) applies defaults before unmarshalling, then validates.
package config
