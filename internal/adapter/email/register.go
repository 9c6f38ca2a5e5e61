package email

import (
	"fmt"
	"strconv"

	"github.com/Strob0t/buildnotify/internal/port/notifier"
)

func init() {
	notifier.Register(providerName, func(settings map[string]string) (notifier.Sender, error) {
		port := 587
		if v := settings["port"]; v != "" {
			p, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("email: invalid port %q: %w", v, err)
			}
			port = p
		}
		return NewNotifier(SMTPConfig{
			Host:     settings["host"],
			Port:     port,
			From:     settings["from"],
			Username: settings["username"],
			Password: settings["password"],
		}), nil
	})
}
