// Package discordbot serves the /download slash command: it resolves one
// asset ID through the pipeline and replies with the owner details and the
// downloaded file.
package discordbot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/snapetech/assetfetch/internal/pipeline"
)

const (
	CommandName = "download"
	OptionName  = "asset_id"
)

// Resolver is implemented by *pipeline.Resolver.
type Resolver interface {
	Resolve(ctx context.Context, assetID string) pipeline.Result
}

// responder is the part of *discordgo.Session the interaction handler needs.
type responder interface {
	InteractionRespond(i *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(i *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Bot owns a gateway session and the registered command.
type Bot struct {
	session   *discordgo.Session
	resolver  Resolver
	channelID string // empty = any channel

	ctx     context.Context
	command *discordgo.ApplicationCommand
	remove  func()

	// discordgo runs each handler in its own goroutine; runs are serialized
	// so the pipeline keeps a single caller.
	resolveMu sync.Mutex
}

// New prepares a bot for token. Nothing touches the network until Start.
func New(token string, r Resolver, channelID string) (*Bot, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("discordbot: empty token")
	}
	if !strings.HasPrefix(token, "Bot ") {
		token = "Bot " + token
	}
	s, err := discordgo.New(token)
	if err != nil {
		return nil, fmt.Errorf("discordbot: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds
	return &Bot{session: s, resolver: r, channelID: strings.TrimSpace(channelID)}, nil
}

// Command is the slash command definition registered on Start.
func Command() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        CommandName,
		Description: "Download an audio asset by ID",
		Options: []*discordgo.ApplicationCommandOption{{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        OptionName,
			Description: "Asset ID",
			Required:    true,
		}},
	}
}

// Start opens the gateway and registers /download globally. ctx bounds every
// pipeline run started from an interaction.
func (b *Bot) Start(ctx context.Context) error {
	b.ctx = ctx
	b.remove = b.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		b.handle(s, i)
	})
	if err := b.session.Open(); err != nil {
		b.remove()
		return fmt.Errorf("discordbot: open: %w", err)
	}
	appID := ""
	if b.session.State != nil && b.session.State.User != nil {
		appID = b.session.State.User.ID
	}
	cmd, err := b.session.ApplicationCommandCreate(appID, "", Command())
	if err != nil {
		b.session.Close()
		b.remove()
		return fmt.Errorf("discordbot: register /%s: %w", CommandName, err)
	}
	b.command = cmd
	log.Printf("discordbot: logged in as %s; /%s registered", appID, CommandName)
	return nil
}

// Stop unregisters the command and closes the session.
func (b *Bot) Stop() error {
	if b.command != nil {
		if err := b.session.ApplicationCommandDelete(b.command.ApplicationID, "", b.command.ID); err != nil {
			log.Printf("discordbot: unregister /%s: %v", CommandName, err)
		}
		b.command = nil
	}
	if b.remove != nil {
		b.remove()
		b.remove = nil
	}
	return b.session.Close()
}

// Run starts the bot, blocks until ctx is done, then stops it.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return b.Stop()
}

func (b *Bot) handle(s responder, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	if data.Name != CommandName {
		return
	}
	ctx := b.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if b.channelID != "" && i.ChannelID != b.channelID {
		err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: "This command is not available in this channel.",
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		})
		if err != nil {
			log.Printf("discordbot: refuse channel=%s: %v", i.ChannelID, err)
		}
		return
	}

	assetID := optionString(data.Options, OptionName)
	// Resolution can take longer than the 3s initial-response window.
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		log.Printf("discordbot: defer asset=%s: %v", assetID, err)
		return
	}

	b.resolveMu.Lock()
	res := b.resolver.Resolve(ctx, assetID)
	b.resolveMu.Unlock()
	params := &discordgo.WebhookParams{Content: replyContent(res)}
	if res.OK() {
		f, err := os.Open(res.FilePath)
		if err != nil {
			params.Content = fmt.Sprintf("Failed to download asset %s: %v", res.AssetID, err)
		} else {
			defer f.Close()
			params.Files = []*discordgo.File{{
				Name:        filepath.Base(res.FilePath),
				ContentType: contentType(res.FilePath),
				Reader:      f,
			}}
		}
	}
	if _, err := s.FollowupMessageCreate(i.Interaction, true, params); err != nil {
		log.Printf("discordbot: followup asset=%s: %v", assetID, err)
	}
}

func optionString(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, o := range opts {
		if o.Name == name && o.Type == discordgo.ApplicationCommandOptionString {
			return strings.TrimSpace(o.StringValue())
		}
	}
	return ""
}

// replyContent is the followup text for a finished run.
func replyContent(r pipeline.Result) string {
	if !r.OK() {
		return fmt.Sprintf("Failed to download asset %s (stopped at %s): %v", r.AssetID, r.Stage, r.Err)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Downloaded asset %s\n", r.AssetID)
	fmt.Fprintf(&sb, "Owner ID: %s\n", r.Creator.ID)
	fmt.Fprintf(&sb, "Owner Type: %s\n", r.Creator.Kind)
	fmt.Fprintf(&sb, "Root Place ID: %s", r.PlaceID)
	return sb.String()
}

func contentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ogg":
		return "audio/ogg"
	case ".mp3":
		return "audio/mpeg"
	default:
		return "application/octet-stream"
	}
}
