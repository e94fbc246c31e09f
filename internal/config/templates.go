package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "ssh", "remote":
		return sshTemplate, nil
	case "local":
		return localTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const sshTemplate = `[server]
url = "ssh://demo.example.com:33001"
username = "xfer"
key_path = "~/.ssh/id_ed25519"
known_hosts = "~/.ssh/known_hosts"
timeout = "10s"
security_mode = "development"

[agent]
protocol = 2
path = "ascmd"

[gateway]
addr = ":9300"
cors_origins = ["http://localhost:3000"]
max_reconnect_attempts = 5

[log]
level = "info"
`

const localTemplate = `[agent]
protocol = 2
local = true
path = "ascmd"

[gateway]
addr = "127.0.0.1:9300"
max_reconnect_attempts = 5

[log]
level = "info"
`
