// Copyright 2026 The Alona Authors
// SPDX-License-Identifier: Apache-2.0

package health

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// BrokerConfig configures the broker reachability check.
type BrokerConfig struct {
	// Address is the broker URL (e.g., "tcp://127.0.0.1:1883").
	Address string

	// Username and PasswordFile authenticate the check client when the
	// broker requires credentials.
	Username     string
	PasswordFile string

	// Timeout bounds the whole connect attempt. Zero means 5 seconds.
	Timeout time.Duration
}

// BrokerCheck performs a real MQTT connect against the local broker.
// A TCP port probe is not enough: Mosquitto can accept connections and
// still reject every client because its password or ACL file is
// broken, which is exactly the misconfiguration this check exists to
// catch.
func BrokerCheck(cfg BrokerConfig) Check {
	return Check{
		Name: "broker",
		Run: func(ctx context.Context) Result {
			timeout := cfg.Timeout
			if timeout == 0 {
				timeout = 5 * time.Second
			}

			options := mqtt.NewClientOptions().
				AddBroker(cfg.Address).
				SetClientID("alona-health").
				SetConnectTimeout(timeout).
				SetConnectRetry(false).
				SetAutoReconnect(false)

			if cfg.Username != "" {
				options.SetUsername(cfg.Username)
				password, err := readPasswordFile(cfg.PasswordFile)
				if err != nil {
					return Fail("broker", err.Error())
				}
				options.SetPassword(password)
			}

			client := mqtt.NewClient(options)
			token := client.Connect()
			if !token.WaitTimeout(timeout) {
				return Fail("broker", fmt.Sprintf("connect to %s timed out after %v", cfg.Address, timeout))
			}
			if err := token.Error(); err != nil {
				return Fail("broker", fmt.Sprintf("connect to %s: %v", cfg.Address, err))
			}
			client.Disconnect(250)

			return Pass("broker", fmt.Sprintf("%s accepts connections", cfg.Address))
		},
	}
}

func readPasswordFile(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("broker username set but no password file configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading broker password file %s: %v", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}
