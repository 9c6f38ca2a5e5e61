package main

// Provider blank imports: each import activates a self-registering sender.

import (
	_ "github.com/Strob0t/buildnotify/internal/adapter/discord"
	_ "github.com/Strob0t/buildnotify/internal/adapter/email"
	_ "github.com/Strob0t/buildnotify/internal/adapter/pushover"
	_ "github.com/Strob0t/buildnotify/internal/adapter/slack"
	_ "github.com/Strob0t/buildnotify/internal/adapter/telegram"
	_ "github.com/Strob0t/buildnotify/internal/adapter/webhook"
)
