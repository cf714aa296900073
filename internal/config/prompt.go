package config

import (
	"fmt"
	"strings"
)

// AskFunc shows label to the user and returns the typed answer.
type AskFunc func(label string) (string, error)

// FillMissing asks for settings the file and environment left unset:
// the platform cookie when empty, whether to enable the bot when the key was
// never given, and the bot token and channel when the bot is enabled. It
// returns true if anything was answered, so the caller knows to Save.
func FillMissing(c *Config, ask AskFunc) (bool, error) {
	if c.present == nil {
		c.present = map[string]bool{}
	}
	changed := false
	str := func(label string, dst *string) error {
		v, err := ask(fmt.Sprintf("Enter %s: ", label))
		if err != nil {
			return err
		}
		*dst = strings.TrimSpace(v)
		changed = true
		return nil
	}

	if c.RobloxCookie == "" {
		if err := str("roblox cookie", &c.RobloxCookie); err != nil {
			return changed, err
		}
	}
	if !c.present["discord_bot"] {
		v, err := ask("Enable discord bot? (yes/no): ")
		if err != nil {
			return changed, err
		}
		c.DiscordBot = isYes(v)
		c.present["discord_bot"] = true
		changed = true
	}
	if c.DiscordBot {
		if c.DiscordToken == "" {
			if err := str("discord token", &c.DiscordToken); err != nil {
				return changed, err
			}
		}
		if c.DiscordChannelID == "" && !c.present["discord_channel_id"] {
			if err := str("discord channel id (blank for any)", &c.DiscordChannelID); err != nil {
				return changed, err
			}
			c.present["discord_channel_id"] = true
		}
	}
	return changed, nil
}

func isYes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "1":
		return true
	}
	return false
}
