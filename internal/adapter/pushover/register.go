package pushover

import (
	"github.com/Strob0t/buildnotify/internal/adapter/httpclient"
	"github.com/Strob0t/buildnotify/internal/port/notifier"
)

func init() {
	notifier.Register(providerName, func(settings map[string]string) (notifier.Sender, error) {
		return NewNotifier(Config{
			AppToken: settings["app_token"],
			Device:   settings["device"],
			APIURL:   settings["api_url"],
		}, httpclient.Default()), nil
	})
}
