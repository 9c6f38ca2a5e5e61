package webhook

import (
	"github.com/Strob0t/buildnotify/internal/adapter/httpclient"
	"github.com/Strob0t/buildnotify/internal/port/notifier"
)

func init() {
	notifier.Register(providerName, func(settings map[string]string) (notifier.Sender, error) {
		return NewNotifier(Config{
			Endpoint: settings["endpoint"],
			Token:    settings["token"],
		}, httpclient.Default()), nil
	})
}
